// Package pipeline 编排两遍处理：词表构建（第一遍）→ 冻结 → 定长编码与写出（第二遍）。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strconv"

	"github.com/sourcegraph/conc/pool"

	"fastrecord/internal/diag"
	"fastrecord/internal/encode"
	"fastrecord/internal/table"
	"fastrecord/internal/tokenize"
	"fastrecord/internal/vocab"
	"fastrecord/pkg/contract"
)

// - 单点并发：仅此层管理并发；构建器、编码器、计数器均为同步组件。
// - 分块有序：每个 worker 处理连续的单元块，结果按块序号归并，输出与并发度无关。
// - 首错取消：非 malformed 错误取消整体；malformed 单元跳过并计入报告。
// - 词表冻结：第一遍结束后词表只读，第二遍并发共享。

// VocabArtifact: 词表工件名。
const VocabArtifact contract.ArtifactID = "vocab.txt"

// Components 聚合运行所需的组件。
type Components struct {
	Reader  contract.Reader
	Builder contract.RecordBuilder
	Writer  contract.Writer
}

// Settings 运行期配置。
type Settings struct {
	// Input: 语料路径（文件或目录）。
	Input string
	// Vocab: 保留符号与构建规模。
	Vocab vocab.Options
	// VocabFile: 非空时为加载模式，不构建也不写出 vocab.txt。
	VocabFile string
	// Stopwords: 仅作用于第一遍计数。
	Stopwords tokenize.Stopwords
	// SequenceLength: 输出宽度 L。
	SequenceLength int
	// Concurrency: worker 数；<=0 取 CPU 数。
	Concurrency int
	// BatchRows: Arrow RecordBatch 行数。
	BatchRows int
	// ChunkSize: 每个任务块的单元数；<=0 取 1024。
	ChunkSize int
}

const defaultChunk = 1024

// parsed: 划分内已解析的单元（nil 表示跳过）。
type parsed struct {
	split   contract.Split
	units   []contract.Unit
	samples []*contract.Sample
	errs    []error
}

// Run 执行完整流水线：Reader → Segment/Parse → Count/Build → Fit → Encode → Table → Writer。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (*Report, error) {
	if logger == nil {
		logger = diag.Nop()
	}
	set, err := sanity(comp, set)
	if err != nil {
		return nil, fmt.Errorf("sanity: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	// 成功或失败都输出一次本次运行的计数快照
	defer logger.Metrics("pipeline", "run metrics")

	rep := &Report{Task: comp.Builder.Task()}

	rtimer := logger.StartWith("reader", "read", set.Input)
	splits, err := comp.Reader.Read(ctx, set.Input)
	if err != nil {
		return nil, fail(logger, "reader", set.Input, "read failed", err)
	}
	rtimer.Finish("read", int64(len(splits)))
	diag.IncOp("reader", "finish", "success")

	all := make([]*parsed, 0, len(splits))
	for _, sp := range splits {
		ptimer := logger.StartWith("parse", "segment+parse", sp.Name)
		p, err := parseSplit(ctx, comp.Builder, sp, set)
		if err != nil {
			return nil, fail(logger, "parse", sp.Name, "parse failed", err)
		}
		ptimer.Finish("parsed", int64(len(p.units)))
		all = append(all, p)
	}

	// 第一遍：词表划分 = train（预先划分）或首个划分。
	vp := vocabSplit(all)
	rep.VocabSplit = vp.split.Name
	valid := validSamples(vp)
	if len(vp.units) == 0 {
		return nil, fail(logger, "vocab", vp.split.Name, "empty vocabulary split",
			fmt.Errorf("%w: split %s has no records", contract.ErrMissingResource, vp.split.Name))
	}
	if len(valid) == 0 {
		return nil, fail(logger, "vocab", vp.split.Name, "all records malformed",
			fmt.Errorf("%w: every record of split %s is malformed: %v", contract.ErrMalformedRecord, vp.split.Name, vp.errs[0]))
	}

	vtimer := logger.StartWithKV("vocab", "build", vp.split.Name, map[string]string{"mode": vocabMode(set)})
	v, err := buildVocabulary(ctx, valid, set)
	if err != nil {
		return nil, fail(logger, "vocab", set.VocabFile, "build failed", err)
	}
	rep.VocabSize, rep.Loaded = v.Len(), set.VocabFile != ""
	vtimer.Finish("built", int64(v.Len()))
	diag.IncOp("vocab", "finish", "success")

	if err := comp.Builder.Fit(valid); err != nil {
		return nil, fail(logger, "builder", vp.split.Name, "fit failed", err)
	}
	enc, err := encode.New(v, set.SequenceLength)
	if err != nil {
		return nil, fail(logger, "encode", "", "encoder init failed", err)
	}

	// 第二遍：逐划分编码并写出。
	for _, p := range all {
		sr, err := encodeSplit(ctx, comp, set, v, enc, p, logger)
		if err != nil {
			return nil, err
		}
		rep.Splits = append(rep.Splits, sr)
		rep.Artifacts = append(rep.Artifacts, sr.Artifact)
	}

	arts := comp.Builder.Artifacts()
	if set.VocabFile == "" {
		arts = append([]contract.Artifact{{ID: VocabArtifact, Body: v}}, arts...)
	}
	for _, a := range arts {
		if err := writeSaver(ctx, comp.Writer, a); err != nil {
			return nil, fail(logger, "writer", string(a.ID), "write failed", err)
		}
		rep.Artifacts = append(rep.Artifacts, a.ID)
	}
	return rep, nil
}

func sanity(c Components, s Settings) (Settings, error) {
	if c.Reader == nil || c.Builder == nil || c.Writer == nil {
		return s, errors.New("pipeline: missing components")
	}
	if s.Input == "" {
		return s, fmt.Errorf("%w: empty input path", contract.ErrConfiguration)
	}
	if s.SequenceLength <= 0 {
		return s, fmt.Errorf("%w: sequence length must be > 0, got %d", contract.ErrConfiguration, s.SequenceLength)
	}
	if s.Concurrency <= 0 {
		s.Concurrency = runtime.NumCPU()
	}
	if s.ChunkSize <= 0 {
		s.ChunkSize = defaultChunk
	}
	if s.BatchRows <= 0 {
		s.BatchRows = table.DefaultBatchRows
	}
	return s, nil
}

// fail 记录 error 事件（附 file_id）与计数，原样返回 err。
func fail(logger *diag.Logger, comp, fileID, msg string, err error) error {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), msg+": "+err.Error(), nil, fileID)
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	return err
}

func vocabMode(set Settings) string {
	if set.VocabFile != "" {
		return "load"
	}
	return "build"
}

// chunks 将 [0,n) 切为连续块并以有界并发执行 fn；任一错误取消其余块。
func chunks(ctx context.Context, n, size, conc int, fn func(ctx context.Context, ci, lo, hi int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	p := pool.New().WithMaxGoroutines(conc).WithContext(ctx).WithCancelOnError().WithFirstError()
	for ci, lo := 0, 0; lo < n; ci, lo = ci+1, lo+size {
		hi := min(lo+size, n)
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, ci, lo, hi)
		})
	}
	return p.Wait()
}

func numChunks(n, size int) int { return (n + size - 1) / size }

// parseSplit 分组并并发解析；不合规单元记录错误后置空。
func parseSplit(ctx context.Context, b contract.RecordBuilder, sp contract.Split, set Settings) (*parsed, error) {
	units := b.Segment(sp.Lines)
	p := &parsed{
		split:   sp,
		units:   units,
		samples: make([]*contract.Sample, len(units)),
		errs:    make([]error, len(units)),
	}
	err := chunks(ctx, len(units), set.ChunkSize, set.Concurrency, func(_ context.Context, _, lo, hi int) error {
		for i := lo; i < hi; i++ {
			s, err := b.Parse(units[i])
			if err != nil {
				if !errors.Is(err, contract.ErrMalformedRecord) {
					return err
				}
				p.errs[i] = err
				continue
			}
			p.samples[i] = &s
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func vocabSplit(all []*parsed) *parsed {
	for _, p := range all {
		if p.split.Name == contract.SplitTrain {
			return p
		}
	}
	return all[0]
}

func validSamples(p *parsed) []contract.Sample {
	out := make([]contract.Sample, 0, len(p.samples))
	for _, s := range p.samples {
		if s != nil {
			out = append(out, *s)
		}
	}
	return out
}

// buildVocabulary: 加载模式读取词表文件；构建模式分块计数后按块序合并。
func buildVocabulary(ctx context.Context, samples []contract.Sample, set Settings) (*vocab.Vocabulary, error) {
	if set.VocabFile != "" {
		return vocab.Load(set.VocabFile, set.Vocab)
	}
	counters := make([]*vocab.Counter, numChunks(len(samples), set.ChunkSize))
	err := chunks(ctx, len(samples), set.ChunkSize, set.Concurrency, func(_ context.Context, ci, lo, hi int) error {
		c := vocab.NewCounter()
		for i := lo; i < hi; i++ {
			base := 0
			for _, f := range samples[i].Fields {
				toks := set.Stopwords.Filter(f)
				c.AddAll(i, base, toks)
				base += len(toks)
			}
		}
		counters[ci] = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	total := vocab.NewCounter()
	for _, c := range counters {
		total.Merge(c)
	}
	return total.Build(set.Vocab)
}

type encoded struct {
	recs  []contract.Record
	skips []int
	errs  []error
	stats SplitReport
}

// encodeSplit 第二遍：并发编码，按块序归并进表，经管道流式写出。
func encodeSplit(ctx context.Context, comp Components, set Settings, v *vocab.Vocabulary, enc *encode.Encoder, p *parsed, logger *diag.Logger) (*SplitReport, error) {
	name := p.split.Name
	sr := newSplitReport(name)
	sr.Units = len(p.units)
	term := diag.GetTerminal()
	term.SplitStart(name, sr.Units)
	etimer := logger.StartWith("encode", "encode", name)
	ok := false
	defer func() { term.SplitFinish(ok, sr.Rows, etimer.Elapsed()) }()

	tb, err := table.New(comp.Builder.Task(), set.SequenceLength, comp.Builder.Columns(set.SequenceLength))
	if err != nil {
		return nil, fail(logger, "table", name, "open failed", err)
	}

	out := make([]encoded, numChunks(len(p.units), set.ChunkSize))
	err = chunks(ctx, len(p.units), set.ChunkSize, set.Concurrency, func(_ context.Context, ci, lo, hi int) error {
		e := &out[ci]
		for i := lo; i < hi; i++ {
			s := p.samples[i]
			if s == nil {
				e.skips, e.errs = append(e.skips, i), append(e.errs, p.errs[i])
				continue
			}
			rec, err := comp.Builder.Encode(*s, enc)
			if err != nil {
				if !errors.Is(err, contract.ErrMalformedRecord) {
					return err
				}
				e.skips, e.errs = append(e.skips, i), append(e.errs, err)
				continue
			}
			e.recs = append(e.recs, rec)
			observe(&e.stats, v, s, set.SequenceLength)
		}
		return nil
	})
	if err != nil {
		return nil, fail(logger, "encode", name, "encode failed", err)
	}

	done := 0
	for ci := range out {
		e := &out[ci]
		for _, rec := range e.recs {
			if err := tb.Append(rec); err != nil {
				return nil, fail(logger, "table", name, "append failed", err)
			}
		}
		for k, i := range e.skips {
			sr.skip(p.units[i], e.errs[k])
			if sr.Skipped <= maxMalformedSamples {
				fid, _ := p.units[i].Pos()
				logger.Warn("encode", string(diag.CodeMalformed), e.errs[k].Error(), string(fid), nil)
			}
		}
		sr.Tokens += e.stats.Tokens
		sr.Unknown += e.stats.Unknown
		sr.Truncated += e.stats.Truncated
		sr.lengths = append(sr.lengths, e.stats.lengths...)
		done += len(e.recs) + len(e.skips)
		term.SplitProgress(done, sr.Skipped)
	}
	sr.Rows = tb.Len()
	sr.finalize()
	diag.AddOp("encode", "finish", "success", int64(sr.Rows))
	diag.AddOp("encode", "finish", "skipped", int64(sr.Skipped))
	etimer.FinishKV("encoded", int64(sr.Rows), map[string]string{
		"skipped":   strconv.Itoa(sr.Skipped),
		"truncated": strconv.FormatInt(sr.Truncated, 10),
		"unk_rate":  strconv.FormatFloat(sr.UnknownRate(), 'f', 4, 64),
		"len_p95":   strconv.FormatFloat(sr.LenP95, 'f', 0, 64),
	})

	wtimer := logger.StartWith("writer", "write", string(sr.Artifact))
	if err := writeTable(ctx, comp.Writer, sr.Artifact, tb, set.BatchRows); err != nil {
		return nil, fail(logger, "writer", string(sr.Artifact), "write failed", err)
	}
	wtimer.Finish("write", int64(sr.Rows))
	diag.IncOp("writer", "finish", "success")
	ok = true
	return sr, nil
}

// observe 累计样本词字段的 token 统计。
func observe(st *SplitReport, v *vocab.Vocabulary, s *contract.Sample, length int) {
	for _, f := range s.Fields {
		st.Tokens += int64(len(f))
		for _, t := range f {
			if _, hit := v.ID(t); !hit {
				st.Unknown++
			}
		}
		if len(f) > length {
			st.Truncated += int64(len(f) - length)
		}
		st.lengths = append(st.lengths, float64(len(f)))
	}
}

// writeTable 通过管道将 IPC 编码流式交给 Writer；编码错误经管道传递，Writer 丢弃临时文件。
func writeTable(ctx context.Context, w contract.Writer, id contract.ArtifactID, tb *table.Table, batchRows int) error {
	pr, pw := io.Pipe()
	go func() {
		_ = pw.CloseWithError(tb.WriteIPC(pw, batchRows))
	}()
	err := w.Write(ctx, id, pr)
	// Writer 提前返回时解除编码侧阻塞
	_ = pr.CloseWithError(errWriterDone)
	return err
}

var errWriterDone = errors.New("writer returned")

func writeSaver(ctx context.Context, w contract.Writer, a contract.Artifact) error {
	pr, pw := io.Pipe()
	go func() {
		_ = pw.CloseWithError(a.Body.Save(pw))
	}()
	err := w.Write(ctx, a.ID, pr)
	_ = pr.CloseWithError(errWriterDone)
	return err
}
