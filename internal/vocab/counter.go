package vocab

import (
	"fmt"
	"sort"

	"fastrecord/pkg/contract"
)

// Pos: token 首次出现的全局位置（单元序号, 单元内偏移），按字典序比较。
type Pos struct {
	Unit   int
	Offset int
}

func (p Pos) before(q Pos) bool {
	if p.Unit != q.Unit {
		return p.Unit < q.Unit
	}
	return p.Offset < q.Offset
}

type entry struct {
	count int64
	first Pos
}

// Counter: token 频次与首见位置计数器。
// 非并发安全：每个 worker 持有独立 Counter，结束后 Merge 汇总。
type Counter struct {
	m map[string]*entry
}

// NewCounter 创建空计数器。
func NewCounter() *Counter { return &Counter{m: make(map[string]*entry)} }

// Add 计入一次 token；空串忽略。
func (c *Counter) Add(tok string, at Pos) {
	if tok == "" {
		return
	}
	e, ok := c.m[tok]
	if !ok {
		c.m[tok] = &entry{count: 1, first: at}
		return
	}
	e.count++
	if at.before(e.first) {
		e.first = at
	}
}

// AddAll 计入单元 unit 的 token 序列，偏移自 base 起算。
func (c *Counter) AddAll(unit, base int, tokens []string) {
	for i, t := range tokens {
		c.Add(t, Pos{Unit: unit, Offset: base + i})
	}
}

// Merge 合并另一计数器：频次相加，首见位置取较早者。
// 合并结果与合并顺序无关，等价于单线程计数。
func (c *Counter) Merge(o *Counter) {
	if o == nil {
		return
	}
	for tok, oe := range o.m {
		e, ok := c.m[tok]
		if !ok {
			c.m[tok] = &entry{count: oe.count, first: oe.first}
			continue
		}
		e.count += oe.count
		if oe.first.before(e.first) {
			e.first = oe.first
		}
	}
}

// Len 返回不同 token 数。
func (c *Counter) Len() int { return len(c.m) }

// Count 返回 token 频次。
func (c *Counter) Count(tok string) int64 {
	if e, ok := c.m[tok]; ok {
		return e.count
	}
	return 0
}

// Ranked 返回按频次降序、首见位置升序排列的 token。
func (c *Counter) Ranked() []string {
	out := c.keys()
	sort.Slice(out, func(i, j int) bool {
		a, b := c.m[out[i]], c.m[out[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first.before(b.first)
	})
	return out
}

// FirstSeen 返回按首见位置排列的 token。
func (c *Counter) FirstSeen() []string {
	out := c.keys()
	sort.Slice(out, func(i, j int) bool { return c.m[out[i]].first.before(c.m[out[j]].first) })
	return out
}

func (c *Counter) keys() []string {
	out := make([]string, 0, len(c.m))
	for tok := range c.m {
		out = append(out, tok)
	}
	return out
}

// Build 以构建模式生成词表：padding→0，unknown→1，其后为前 MaxSize 个高频 token。
// 与保留符号同文的 token 不参与排名（保留 id 优先）。
func (c *Counter) Build(opts Options) (*Vocabulary, error) {
	if err := checkSpecials(opts); err != nil {
		return nil, err
	}
	if opts.MaxSize <= 0 {
		return nil, fmt.Errorf("%w: max vocab size must be > 0, got %d", contract.ErrConfiguration, opts.MaxSize)
	}
	ranked := c.Ranked()
	tokens := make([]string, 0, min(len(ranked), opts.MaxSize)+2)
	tokens = append(tokens, opts.Padding, opts.Unknown)
	for _, t := range ranked {
		if len(tokens)-2 >= opts.MaxSize {
			break
		}
		if t == opts.Padding || t == opts.Unknown {
			continue
		}
		tokens = append(tokens, t)
	}
	v := newVocabulary(tokens)
	v.padID, v.hasPad = 0, true
	v.unkID, v.hasUnk = 1, true
	return v, nil
}

// LabelOptions: 闭集标签表的构建选项。
type LabelOptions struct {
	// Pad: 非空时保留在 id 0（用于序列填充）。
	Pad string
	// Fallback: 为真时未知标签回退到 Pad 的 id。
	Fallback bool
	// Ranked: 为真时按频次降序+首见序；否则纯首见序。
	Ranked bool
}

// BuildLabels 生成闭集标签表（不截断）。
func (c *Counter) BuildLabels(o LabelOptions) *Vocabulary {
	order := c.FirstSeen()
	if o.Ranked {
		order = c.Ranked()
	}
	tokens := make([]string, 0, len(order)+1)
	if o.Pad != "" {
		tokens = append(tokens, o.Pad)
	}
	for _, t := range order {
		if t == o.Pad {
			continue
		}
		tokens = append(tokens, t)
	}
	v := newVocabulary(tokens)
	if o.Pad != "" {
		v.padID, v.hasPad = 0, true
		if o.Fallback {
			v.unkID, v.hasUnk = 0, true
		}
	}
	return v
}

func checkSpecials(opts Options) error {
	if opts.Padding == "" || opts.Unknown == "" {
		return fmt.Errorf("%w: padding and unknown tokens must be non-empty", contract.ErrConfiguration)
	}
	if opts.Padding == opts.Unknown {
		return fmt.Errorf("%w: padding and unknown tokens must differ (%q)", contract.ErrConfiguration, opts.Padding)
	}
	return nil
}
