package encode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

func newVocab(t *testing.T, lines ...string) *vocab.Vocabulary {
	t.Helper()
	c := vocab.NewCounter()
	for i, l := range lines {
		c.AddAll(i, 0, strings.Split(l, " "))
	}
	v, err := c.Build(vocab.Options{Padding: "<PAD>", Unknown: "<UNK>", MaxSize: 100})
	require.NoError(t, err)
	return v
}

// 任意输入、任意长度下输出长度恒为 L。
func TestEncodeFixedLength(t *testing.T) {
	v := newVocab(t, "a b c d e")
	inputs := [][]string{nil, {}, {"a"}, {"a", "b", "c"}, {"x", "y", "z", "w", "a", "b", "c", "d"}}
	for L := 1; L <= 9; L++ {
		enc, err := New(v, L)
		require.NoError(t, err)
		for _, in := range inputs {
			ids, n := enc.Encode(in)
			require.Len(t, ids, L)
			assert.Equal(t, len(in), n)
		}
	}
}

func TestEncodePadTruncateUnknown(t *testing.T) {
	v := newVocab(t, "我 爱 中国")
	enc, err := New(v, 5)
	require.NoError(t, err)

	ids, n := enc.Encode([]string{"我", "爱", "中国"})
	assert.Equal(t, []uint32{2, 3, 4, 0, 0}, ids)
	assert.Equal(t, 3, n)

	ids, _ = enc.Encode([]string{"我", "", "你", "<PAD>", "爱", "中国", "我"})
	assert.Equal(t, []uint32{2, 1, 1, 0, 3}, ids, "截断保留前 L 个；空串与未知词为 unknown")
}

// 已为长度 L 且无未知词的序列编码后逐位对应原 token。
func TestEncodeIdempotent(t *testing.T) {
	v := newVocab(t, "a b c")
	enc, err := New(v, 3)
	require.NoError(t, err)
	ids, _ := enc.Encode([]string{"c", "a", "b"})
	back := make([]string, len(ids))
	for i, id := range ids {
		back[i], _ = v.Token(id)
	}
	assert.Equal(t, []string{"c", "a", "b"}, back)
	again, _ := enc.Encode(back)
	assert.Equal(t, ids, again)
}

func TestNewErrors(t *testing.T) {
	v := newVocab(t, "a")
	_, err := New(v, 0)
	assert.ErrorIs(t, err, contract.ErrConfiguration)
	_, err = New(nil, 4)
	assert.ErrorIs(t, err, contract.ErrConfiguration)
	_, err = New(vocab.FromTokens("x"), 4)
	assert.ErrorIs(t, err, contract.ErrConfiguration)
}

func TestPad(t *testing.T) {
	assert.Equal(t, []uint32{3, 4, 7, 7}, Pad([]uint32{3, 4}, 4, 7))
	assert.Equal(t, []uint32{3, 4}, Pad([]uint32{3, 4, 5}, 2, 7))
	assert.Equal(t, []uint32{7}, Pad(nil, 1, 7))
}
