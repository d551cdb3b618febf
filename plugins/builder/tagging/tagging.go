// Package tagging 实现序列标注任务的记录构建。
// 输入为空行分隔的句子块，块内每行 "词<sep>tag"。
package tagging

import (
	"fmt"

	"fastrecord/internal/encode"
	"fastrecord/internal/tokenize"
	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

// TagsArtifact: tag 集工件名。
const TagsArtifact contract.ArtifactID = "tags.txt"

// Options 为序列标注构建器的配置。
type Options struct {
	// Separator: 词与 tag 的分隔符（默认制表符）。
	Separator string `json:"separator"`
	// PaddingTag: 非空时保留在 id 0，用于填充并作为未知 tag 的回退。
	PaddingTag string `json:"padding_tag"`
	// Padding: 未配置 PaddingTag 时占用 tag id 0 的填充文本（默认 "<PAD>"）。
	Padding string `json:"padding"`
}

// Builder 实现 contract.RecordBuilder。
type Builder struct {
	sep      string
	pad      string
	fallback bool
	tags     *vocab.Vocabulary
}

var _ contract.RecordBuilder = (*Builder)(nil)

// New 创建序列标注构建器。
func New(opts *Options) (*Builder, error) {
	b := &Builder{sep: "\t", pad: "<PAD>"}
	if opts == nil {
		return b, nil
	}
	if opts.Separator != "" {
		b.sep = opts.Separator
	}
	switch {
	case opts.PaddingTag != "":
		b.pad, b.fallback = opts.PaddingTag, true
	case opts.Padding != "":
		b.pad = opts.Padding
	}
	return b, nil
}

func (b *Builder) Task() contract.Task { return contract.TaskTagging }

func (b *Builder) Segment(lines []contract.Line) []contract.Unit { return contract.BlockUnits(lines) }

// Parse 块内任一行不是恰好 (词, tag) 两段即整块不合规；不做截断或补齐。
func (b *Builder) Parse(u contract.Unit) (contract.Sample, error) {
	if len(u.Lines) == 0 {
		return contract.Sample{}, contract.Malformed(u, "empty block")
	}
	words := make([]string, 0, len(u.Lines))
	tags := make([]string, 0, len(u.Lines))
	for i, ln := range u.Lines {
		f, ok := tokenize.SplitN(ln.Text, b.sep, 2)
		if !ok {
			return contract.Sample{}, contract.Malformed(u, "line %d of block: want 2 fields (word, tag), got %d", i+1, len(f))
		}
		if f[1] == "" {
			return contract.Sample{}, contract.Malformed(u, "line %d of block: empty tag", i+1)
		}
		words = append(words, f[0])
		tags = append(tags, f[1])
	}
	return contract.Sample{Unit: u, Fields: [][]string{words}, Labels: tags}, nil
}

// Fit 以频次降序、首见序构建 tag 集，不截断。
func (b *Builder) Fit(samples []contract.Sample) error {
	c := vocab.NewCounter()
	for i, s := range samples {
		c.AddAll(i, 0, s.Labels)
	}
	b.tags = c.BuildLabels(vocab.LabelOptions{Pad: b.pad, Fallback: b.fallback, Ranked: true})
	return nil
}

func (b *Builder) Encode(s contract.Sample, enc contract.SequenceEncoder) (contract.Record, error) {
	if b.tags == nil {
		return nil, fmt.Errorf("%w: tagging: tag set not fitted", contract.ErrInvariantViolation)
	}
	if len(s.Fields) != 1 || len(s.Fields[0]) != len(s.Labels) {
		return nil, contract.Malformed(s.Unit, "words and tags differ in length")
	}
	words, n := enc.Encode(s.Fields[0])
	tagIDs := make([]uint32, 0, len(s.Labels))
	for _, t := range s.Labels {
		id, ok := b.tags.Lookup(t)
		if !ok {
			return nil, contract.Malformed(s.Unit, "unknown tag %q", t)
		}
		tagIDs = append(tagIDs, id)
	}
	pad, _ := b.tags.PadID()
	return contract.TaggingRecord{
		WordIDs: words,
		TagIDs:  encode.Pad(tagIDs, enc.Length(), pad),
		Length:  n,
	}, nil
}

func (b *Builder) Columns(length int) []contract.Column {
	return append(contract.IDColumns("word", length), contract.IDColumns("tag", length)...)
}

func (b *Builder) Artifacts() []contract.Artifact {
	if b.tags == nil {
		return nil
	}
	return []contract.Artifact{{ID: TagsArtifact, Body: b.tags}}
}

// Tags 返回 tag 集。
func (b *Builder) Tags() *vocab.Vocabulary { return b.tags }
