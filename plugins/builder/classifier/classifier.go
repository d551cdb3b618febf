// Package classifier 实现文本分类任务的记录构建：每行 "句子<sep>标签"。
package classifier

import (
	"fmt"
	"strconv"

	"fastrecord/internal/tokenize"
	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

// ClassesArtifact: 标签集工件名。
const ClassesArtifact contract.ArtifactID = "classes.txt"

// Options 为分类构建器的配置。
type Options struct {
	// Separator: 句子与标签的分隔符（默认制表符）。
	Separator string `json:"separator"`
	// WordMode: 句子切分方式（char|space，默认 char）。
	WordMode string `json:"word_mode"`
	// WithLabelID: 标签本身为非负整数 id，不建立标签集。
	WithLabelID bool `json:"with_label_id"`
	// ClassFile: 标签文件（行序即 id 序）；为空时从词表划分按首见序收集。
	ClassFile string `json:"class_file"`
}

// Builder 实现 contract.RecordBuilder。
type Builder struct {
	sep     string
	mode    tokenize.Mode
	labelID bool
	labels  *vocab.Vocabulary
	fixed   bool
}

var _ contract.RecordBuilder = (*Builder)(nil)

// New 创建分类构建器；ClassFile 非空时在此加载。
func New(opts *Options) (*Builder, error) {
	b := &Builder{sep: "\t", mode: tokenize.ModeChar}
	if opts == nil {
		return b, nil
	}
	if opts.Separator != "" {
		b.sep = opts.Separator
	}
	if opts.WordMode != "" {
		m, ok := tokenize.ParseMode(opts.WordMode)
		if !ok {
			return nil, fmt.Errorf("%w: classifier: unknown word mode %q", contract.ErrConfiguration, opts.WordMode)
		}
		b.mode = m
	}
	b.labelID = opts.WithLabelID
	if opts.ClassFile != "" && !b.labelID {
		v, err := vocab.LoadLabels(opts.ClassFile)
		if err != nil {
			return nil, fmt.Errorf("classifier: class file: %w", err)
		}
		b.labels, b.fixed = v, true
	}
	return b, nil
}

func (b *Builder) Task() contract.Task { return contract.TaskClassifier }

func (b *Builder) Segment(lines []contract.Line) []contract.Unit { return contract.LineUnits(lines) }

// Parse 要求恰好两个字段且标签非空。
func (b *Builder) Parse(u contract.Unit) (contract.Sample, error) {
	if len(u.Lines) != 1 {
		return contract.Sample{}, contract.Malformed(u, "want 1 line, got %d", len(u.Lines))
	}
	f, ok := tokenize.SplitN(u.Lines[0].Text, b.sep, 2)
	if !ok {
		return contract.Sample{}, contract.Malformed(u, "want 2 fields (sentence, label), got %d", len(f))
	}
	if f[1] == "" {
		return contract.Sample{}, contract.Malformed(u, "empty label")
	}
	return contract.Sample{
		Unit:   u,
		Fields: [][]string{tokenize.Words(f[0], b.mode)},
		Labels: []string{f[1]},
	}, nil
}

// Fit 未提供标签文件时按首见序收集标签。
func (b *Builder) Fit(samples []contract.Sample) error {
	if b.labelID || b.fixed {
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
	if len(s.Fields) != 1 || len(s.Labels) != 1 {
		return nil, contract.Malformed(s.Unit, "classifier sample shape")
	}
	ids, _ := enc.Encode(s.Fields[0])
	label, err := b.label(s)
	if err != nil {
		return nil, err
	}
	return contract.ClassifierRecord{WordIDs: ids, Label: label}, nil
}

func (b *Builder) label(s contract.Sample) (uint32, error) {
	raw := s.Labels[0]
	if b.labelID {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return 0, contract.Malformed(s.Unit, "label %q is not a non-negative integer", raw)
		}
		return uint32(n), nil
	}
	if b.labels == nil {
		return 0, contract.Malformed(s.Unit, "label set not fitted")
	}
	id, ok := b.labels.ID(raw)
	if !ok {
		return 0, contract.Malformed(s.Unit, "unknown label %q", raw)
	}
	return id, nil
}

func (b *Builder) Columns(length int) []contract.Column {
	return append(contract.IDColumns("word", length), contract.Column{Name: "class", Type: contract.ColumnUint32})
}

func (b *Builder) Artifacts() []contract.Artifact {
	if b.labelID || b.labels == nil {
		return nil
	}
	return []contract.Artifact{{ID: ClassesArtifact, Body: b.labels}}
}

// Labels 返回当前标签集（WithLabelID 时为 nil）。
func (b *Builder) Labels() *vocab.Vocabulary { return b.labels }
