// Package vocab 实现词表的构建（频次排序）、加载与持久化。
//
// Vocabulary 一经构造即不可变：构建阶段产出，编码阶段只读共享。
package vocab

import (
	"bufio"
	"io"
)

// Vocabulary: 有序、双射的 token→id 映射，id 自 0 连续。
type Vocabulary struct {
	tokens []string
	ids    map[string]uint32

	padID  uint32
	hasPad bool
	unkID  uint32
	hasUnk bool
}

// Options: 词表的特殊符号与规模。
type Options struct {
	// Padding/Unknown: 保留符号文本（如 "<PAD>"/"<UNK>"）。
	Padding string
	Unknown string
	// MaxSize: 构建模式下保留的最高频 token 数（不含保留符号）；必须 > 0。
	MaxSize int
}

// newVocabulary 由有序 token 列表构造；重复 token 保留首个 id，空串占位但不可寻址。
func newVocabulary(tokens []string) *Vocabulary {
	v := &Vocabulary{
		tokens: tokens,
		ids:    make(map[string]uint32, len(tokens)),
	}
	for i, t := range tokens {
		if t == "" {
			continue
		}
		if _, dup := v.ids[t]; dup {
			continue
		}
		v.ids[t] = uint32(i)
	}
	return v
}

// Len 返回词表规模（含保留符号与占位行）。
func (v *Vocabulary) Len() int { return len(v.tokens) }

// ID 返回 token 的 id；空串永远不命中。
func (v *Vocabulary) ID(tok string) (uint32, bool) {
	if tok == "" {
		return 0, false
	}
	id, ok := v.ids[tok]
	return id, ok
}

// Lookup 返回 token 的 id，未命中时回退到 unknown id。
// 无 unknown 的词表（闭集标签）未命中时 ok=false。
func (v *Vocabulary) Lookup(tok string) (id uint32, ok bool) {
	if id, hit := v.ID(tok); hit {
		return id, true
	}
	if v.hasUnk {
		return v.unkID, true
	}
	return 0, false
}

// Token 返回 id 对应的 token。
func (v *Vocabulary) Token(id uint32) (string, bool) {
	if int(id) >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// PadID 返回 padding id；闭集标签表未配置 padding 时 ok=false。
func (v *Vocabulary) PadID() (uint32, bool) { return v.padID, v.hasPad }

// UnkID 返回 unknown id；无回退时 ok=false。
func (v *Vocabulary) UnkID() (uint32, bool) { return v.unkID, v.hasUnk }

// Tokens 返回按 id 排序的 token 副本。
func (v *Vocabulary) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// Save 按 id 顺序每行写出一个 token，可由 Load 原样读回。
func (v *Vocabulary) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, t := range v.tokens {
		if _, err := bw.WriteString(t); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}
