package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fastrecord/pkg/contract"
)

// maxMalformedSamples: 报告中保留的不合规记录明细上限。
const maxMalformedSamples = 20

// SplitReport: 单个划分的处理统计。
type SplitReport struct {
	Name     string
	Artifact contract.ArtifactID
	Units    int
	Rows     int
	Skipped  int
	// SkippedLines: 按文件记录被跳过单元的首行行号（1 基）。
	SkippedLines map[contract.FileID]*roaring.Bitmap
	// Malformed: 前若干条不合规原因。
	Malformed []string

	Tokens    int64
	Unknown   int64
	Truncated int64

	lengths []float64
	LenMean float64
	LenP95  float64
	LenMax  float64
}

func newSplitReport(name string) *SplitReport {
	return &SplitReport{
		Name:         name,
		Artifact:     contract.RecordsArtifact(name),
		SkippedLines: make(map[contract.FileID]*roaring.Bitmap),
	}
}

// skip 记录一个被跳过的单元。
func (r *SplitReport) skip(u contract.Unit, err error) {
	r.Skipped++
	fid, idx := u.Pos()
	bm, ok := r.SkippedLines[fid]
	if !ok {
		bm = roaring.New()
		r.SkippedLines[fid] = bm
	}
	bm.Add(uint32(idx) + 1)
	if len(r.Malformed) < maxMalformedSamples {
		r.Malformed = append(r.Malformed, err.Error())
	}
}

// UnknownRate 返回未登录 token 占比。
func (r *SplitReport) UnknownRate() float64 {
	if r.Tokens == 0 {
		return 0
	}
	return float64(r.Unknown) / float64(r.Tokens)
}

// finalize 计算真实序列长度的均值、P95 与最大值。
func (r *SplitReport) finalize() {
	if len(r.lengths) == 0 {
		return
	}
	sort.Float64s(r.lengths)
	r.LenMean = stat.Mean(r.lengths, nil)
	r.LenP95 = stat.Quantile(0.95, stat.Empirical, r.lengths, nil)
	r.LenMax = floats.Max(r.lengths)
	r.lengths = nil
}

// SkippedLineList 返回某文件被跳过的行号（升序）。
func (r *SplitReport) SkippedLineList(fid contract.FileID) []uint32 {
	bm, ok := r.SkippedLines[fid]
	if !ok {
		return nil
	}
	return bm.ToArray()
}

// Summary 返回单行摘要。
func (r *SplitReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: rows=%d skipped=%d unk=%.2f%% truncated=%d len(mean=%.1f p95=%.0f max=%.0f)",
		r.Name, r.Rows, r.Skipped, r.UnknownRate()*100, r.Truncated, r.LenMean, r.LenP95, r.LenMax)
	if r.Skipped > 0 {
		fids := make([]string, 0, len(r.SkippedLines))
		for fid := range r.SkippedLines {
			fids = append(fids, string(fid))
		}
		sort.Strings(fids)
		for _, fid := range fids {
			lines := r.SkippedLines[contract.FileID(fid)].ToArray()
			if len(lines) > 10 {
				lines = lines[:10]
			}
			fmt.Fprintf(&b, " %s%v", fid, lines)
		}
	}
	return b.String()
}

// Report: 一次运行的汇总。
type Report struct {
	Task       contract.Task
	VocabSize  int
	VocabSplit string
	Loaded     bool
	Splits     []*SplitReport
	Artifacts  []contract.ArtifactID
}

// Split 按名称查找划分报告。
func (r *Report) Split(name string) *SplitReport {
	for _, s := range r.Splits {
		if s.Name == name {
			return s
		}
	}
	return nil
}
