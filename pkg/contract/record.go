package contract

import "fmt"

// Record: 一行已编码的定宽记录（闭集变体：分类/相似度/序列标注）。
// 通过未导出方法封闭实现集合，包外无法新增变体。
type Record interface {
	Task() Task
	// AppendCells 按列顺序将本行的单元值追加到 dst。
	AppendCells(dst []Cell) []Cell
	sealed()
}

// ClassifierRecord: word_0..word_{L-1} + class。
type ClassifierRecord struct {
	WordIDs []uint32
	Label   uint32
}

// SimilarityRecord: text_a_* + text_b_* + label。
// Bool 为真时使用 BoolLabel，否则使用 Label。
type SimilarityRecord struct {
	TextA     []uint32
	TextB     []uint32
	Label     uint32
	Bool      bool
	BoolLabel bool
}

// TaggingRecord: word_* 与 tag_* 按位置对齐；Length 为截断前的真实长度。
type TaggingRecord struct {
	WordIDs []uint32
	TagIDs  []uint32
	Length  int
}

func (ClassifierRecord) Task() Task { return TaskClassifier }
func (SimilarityRecord) Task() Task { return TaskSimilarity }
func (TaggingRecord) Task() Task    { return TaskTagging }

func (r ClassifierRecord) AppendCells(dst []Cell) []Cell {
	dst = appendIDs(dst, r.WordIDs)
	return append(dst, Cell{Type: ColumnUint32, U: r.Label})
}

func (r SimilarityRecord) AppendCells(dst []Cell) []Cell {
	dst = appendIDs(dst, r.TextA)
	dst = appendIDs(dst, r.TextB)
	if r.Bool {
		return append(dst, Cell{Type: ColumnBool, B: r.BoolLabel})
	}
	return append(dst, Cell{Type: ColumnUint32, U: r.Label})
}

func (r TaggingRecord) AppendCells(dst []Cell) []Cell {
	dst = appendIDs(dst, r.WordIDs)
	return appendIDs(dst, r.TagIDs)
}

func appendIDs(dst []Cell, ids []uint32) []Cell {
	for _, id := range ids {
		dst = append(dst, Cell{Type: ColumnUint32, U: id})
	}
	return dst
}

func (ClassifierRecord) sealed() {}
func (SimilarityRecord) sealed() {}
func (TaggingRecord) sealed()    {}

// ColumnType: 列的物理类型。
type ColumnType int

const (
	ColumnUint32 ColumnType = iota
	ColumnBool
)

func (t ColumnType) String() string {
	switch t {
	case ColumnBool:
		return "bool"
	default:
		return "uint32"
	}
}

// Column: 列定义。
type Column struct {
	Name string
	Type ColumnType
}

// Cell: 单元值；Type 决定 U 或 B 有效。
type Cell struct {
	Type ColumnType
	U    uint32
	B    bool
}

// IDColumns 生成 prefix_0..prefix_{n-1} 的 uint32 列。
func IDColumns(prefix string, n int) []Column {
	cols := make([]Column, n)
	for i := range cols {
		cols[i] = Column{Name: fmt.Sprintf("%s_%d", prefix, i), Type: ColumnUint32}
	}
	return cols
}
