package contract

// SequenceEncoder: 词表冻结后的定长编码器（只读、并发安全）。
type SequenceEncoder interface {
	// Encode 返回恰为 Length() 的 id 序列，以及截断前的 token 数。
	Encode(tokens []string) (ids []uint32, n int)
	Length() int
}

// RecordBuilder: 任务记录构建器。三种任务共享编码器，仅解析与列形状不同。
// 约束：
//  1. Segment/Fit 在单 goroutine 内调用；
//  2. Fit 完成后构建器只读，Parse/Encode 可并发调用；
//  3. Parse/Encode 对不合规单元返回 ErrMalformedRecord（由调用方决定跳过或中止）；
//  4. 不做 I/O（附属文件由配置在构造期加载）。
type RecordBuilder interface {
	Task() Task
	// Segment 将划分内的行分组为解析单元。
	Segment(lines []Line) []Unit
	// Parse 将单元拆分为字段与标签。
	Parse(u Unit) (Sample, error)
	// Fit 基于词表划分的样本构建标签集/tag 集。
	Fit(samples []Sample) error
	// Encode 将样本编码为定宽记录。
	Encode(s Sample, enc SequenceEncoder) (Record, error)
	// Columns 返回给定序列长度下的列定义（顺序即表结构顺序）。
	Columns(length int) []Column
	// Artifacts 返回 Fit 产出的附属工件（标签集等）。
	Artifacts() []Artifact
}
