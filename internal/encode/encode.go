// Package encode 将 token 序列映射为定长 id 序列。
package encode

import (
	"fmt"

	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

// Encoder: 基于冻结词表的定长编码器，只读、并发安全。
type Encoder struct {
	v      *vocab.Vocabulary
	length int
	pad    uint32
	unk    uint32
}

var _ contract.SequenceEncoder = (*Encoder)(nil)

// New 构造编码器；词表必须含 padding 与 unknown，length 必须 > 0。
func New(v *vocab.Vocabulary, length int) (*Encoder, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: nil vocabulary", contract.ErrConfiguration)
	}
	if length <= 0 {
		return nil, fmt.Errorf("%w: sequence length must be > 0, got %d", contract.ErrConfiguration, length)
	}
	pad, ok := v.PadID()
	if !ok {
		return nil, fmt.Errorf("%w: vocabulary has no padding token", contract.ErrConfiguration)
	}
	unk, ok := v.UnkID()
	if !ok {
		return nil, fmt.Errorf("%w: vocabulary has no unknown token", contract.ErrConfiguration)
	}
	return &Encoder{v: v, length: length, pad: pad, unk: unk}, nil
}

// Length 返回输出宽度。
func (e *Encoder) Length() int { return e.length }

// Encode 返回恰为 Length() 的 id 序列与截断前的 token 数。
// 未知 token 与空串映射为 unknown id；不足右侧补 padding id；超出保留前 Length() 个。
func (e *Encoder) Encode(tokens []string) ([]uint32, int) {
	out := make([]uint32, e.length)
	n := min(len(tokens), e.length)
	for i := 0; i < n; i++ {
		if id, ok := e.v.ID(tokens[i]); ok {
			out[i] = id
		} else {
			out[i] = e.unk
		}
	}
	for i := n; i < e.length; i++ {
		out[i] = e.pad
	}
	return out, len(tokens)
}

// Pad 将任意 id 序列调整为 length：截断尾部或以 pad 右侧填充。
// 用于 tag 等与词表无关的并行序列。
func Pad(ids []uint32, length int, pad uint32) []uint32 {
	out := make([]uint32, length)
	n := copy(out, ids)
	for i := n; i < length; i++ {
		out[i] = pad
	}
	return out
}
