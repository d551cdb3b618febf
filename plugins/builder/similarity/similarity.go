// Package similarity 实现句对相似度任务的记录构建：
// "text_a<sent-sep>text_b<label-sep>label"。
package similarity

import (
	"fmt"
	"strconv"
	"strings"

	"fastrecord/internal/tokenize"
	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

// ClassesArtifact: 分类标签集工件名（WithBool 时不产出）。
const ClassesArtifact contract.ArtifactID = "classes.txt"

// Options 为相似度构建器的配置。
type Options struct {
	// SentSep: text_a 与其余部分的分隔符（默认制表符）。
	SentSep string `json:"sent_sep"`
	// LabelSep: text_b 与标签的分隔符（默认制表符）。
	LabelSep string `json:"label_sep"`
	// WordMode: 句子切分方式（char|space）。
	WordMode string `json:"word_mode"`
	// WithBool: 标签按 strconv.ParseBool 解析并输出 bool 列。
	WithBool bool `json:"with_bool"`
	// ClassFile: 分类标签文件；为空时从词表划分按首见序收集。
	ClassFile string `json:"class_file"`
}

// Builder 实现 contract.RecordBuilder。
type Builder struct {
	sentSep  string
	labelSep string
	mode     tokenize.Mode
	withBool bool
	labels   *vocab.Vocabulary
	fixed    bool
}

var _ contract.RecordBuilder = (*Builder)(nil)

// New 创建相似度构建器。
func New(opts *Options) (*Builder, error) {
	b := &Builder{sentSep: "\t", labelSep: "\t", mode: tokenize.ModeChar}
	if opts == nil {
		return b, nil
	}
	if opts.SentSep != "" {
		b.sentSep = opts.SentSep
	}
	if opts.LabelSep != "" {
		b.labelSep = opts.LabelSep
	}
	if opts.WordMode != "" {
		m, ok := tokenize.ParseMode(opts.WordMode)
		if !ok {
			return nil, fmt.Errorf("%w: similarity: unknown word mode %q", contract.ErrConfiguration, opts.WordMode)
		}
		b.mode = m
	}
	b.withBool = opts.WithBool
	if opts.ClassFile != "" && !b.withBool {
		v, err := vocab.LoadLabels(opts.ClassFile)
		if err != nil {
			return nil, fmt.Errorf("similarity: class file: %w", err)
		}
		b.labels, b.fixed = v, true
	}
	return b, nil
}

func (b *Builder) Task() contract.Task { return contract.TaskSimilarity }

func (b *Builder) Segment(lines []contract.Line) []contract.Unit { return contract.LineUnits(lines) }

// Parse 拆分出 (text_a, text_b, label)。
// 两分隔符相同时整行须恰为 3 段；否则 text_a 取首个 sent-sep 之前，
// 其余部分须按 label-sep 恰为 2 段。
func (b *Builder) Parse(u contract.Unit) (contract.Sample, error) {
	if len(u.Lines) != 1 {
		return contract.Sample{}, contract.Malformed(u, "want 1 line, got %d", len(u.Lines))
	}
	text := u.Lines[0].Text
	var a, bb, label string
	if b.sentSep == b.labelSep {
		f, ok := tokenize.SplitN(text, b.sentSep, 3)
		if !ok {
			return contract.Sample{}, contract.Malformed(u, "want 3 fields (text_a, text_b, label), got %d", len(f))
		}
		a, bb, label = f[0], f[1], f[2]
	} else {
		var rest string
		var found bool
		a, rest, found = strings.Cut(text, b.sentSep)
		if !found {
			return contract.Sample{}, contract.Malformed(u, "missing sentence separator")
		}
		f, ok := tokenize.SplitN(rest, b.labelSep, 2)
		if !ok {
			return contract.Sample{}, contract.Malformed(u, "want 2 fields (text_b, label), got %d", len(f))
		}
		bb, label = f[0], f[1]
	}
	if label == "" {
		return contract.Sample{}, contract.Malformed(u, "empty label")
	}
	return contract.Sample{
		Unit:   u,
		Fields: [][]string{tokenize.Words(a, b.mode), tokenize.Words(bb, b.mode)},
		Labels: []string{label},
	}, nil
}

func (b *Builder) Fit(samples []contract.Sample) error {
	if b.withBool || b.fixed {
		return nil
	}
	c := vocab.NewCounter()
	for i, s := range samples {
		c.AddAll(i, 0, s.Labels)
	}
	b.labels = c.BuildLabels(vocab.LabelOptions{})
	return nil
}

func (b *Builder) Encode(s contract.Sample, enc contract.SequenceEncoder) (contract.Record, error) {
	if len(s.Fields) != 2 || len(s.Labels) != 1 {
		return nil, contract.Malformed(s.Unit, "similarity sample shape")
	}
	ta, _ := enc.Encode(s.Fields[0])
	tb, _ := enc.Encode(s.Fields[1])
	rec := contract.SimilarityRecord{TextA: ta, TextB: tb, Bool: b.withBool}
	raw := s.Labels[0]
	if b.withBool {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, contract.Malformed(s.Unit, "label %q is not a bool", raw)
		}
		rec.BoolLabel = v
		return rec, nil
	}
	if b.labels == nil {
		return nil, contract.Malformed(s.Unit, "label set not fitted")
	}
	id, ok := b.labels.ID(raw)
	if !ok {
		return nil, contract.Malformed(s.Unit, "unknown label %q", raw)
	}
	rec.Label = id
	return rec, nil
}

func (b *Builder) Columns(length int) []contract.Column {
	cols := append(contract.IDColumns("text_a", length), contract.IDColumns("text_b", length)...)
	lt := contract.ColumnUint32
	if b.withBool {
		lt = contract.ColumnBool
	}
	return append(cols, contract.Column{Name: "label", Type: lt})
}

func (b *Builder) Artifacts() []contract.Artifact {
	if b.withBool || b.labels == nil {
		return nil
	}
	return []contract.Artifact{{ID: ClassesArtifact, Body: b.labels}}
}

// Labels 返回分类标签集（WithBool 时为 nil）。
func (b *Builder) Labels() *vocab.Vocabulary { return b.labels }
