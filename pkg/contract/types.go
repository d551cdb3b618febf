package contract

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Index: 单文件内稳定递增的行号（0..n-1）。
type Index int64

// Line: 原始输入行（不跨文件）。
// 约束：
// - Index 为该行在源文件中的 0 基行号；
// - Text 仅做 CRLF→LF 归一，不做业务性清洗。
type Line struct {
	Index  Index
	FileID FileID
	Text   string
}

// Split: 一个数据集划分（train/dev/test，或未预先划分时的 all）。
// Lines 按文件顺序、行号顺序排列。
type Split struct {
	Name  string
	Lines []Line
}

// 预定义的划分名。
const (
	SplitTrain = "train"
	SplitDev   = "dev"
	SplitTest  = "test"
	SplitAll   = "all"
)

// Task: 任务类型（闭集）。
type Task string

const (
	TaskClassifier Task = "classifier"
	TaskSimilarity Task = "similarity"
	TaskTagging    Task = "tagging"
)

// Unit: 一个解析单元。分类/相似度为单行；序列标注为空行分隔的一个句子块。
type Unit struct {
	Lines []Line
}

// Pos 返回单元首行的位置（用于诊断）；空单元返回零值。
func (u Unit) Pos() (FileID, Index) {
	if len(u.Lines) == 0 {
		return "", 0
	}
	return u.Lines[0].FileID, u.Lines[0].Index
}

// Sample: 解析后的样本（尚未编码）。
// Fields: 需经词表编码的 token 序列（分类 1 个、相似度 2 个、标注 1 个）；
// Labels: 标签（分类/相似度为 1 个；标注为与 Fields[0] 等长的 tag 序列）。
type Sample struct {
	Unit   Unit
	Fields [][]string
	Labels []string
}
