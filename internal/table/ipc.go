package table

import (
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"fastrecord/pkg/contract"
)

// DefaultBatchRows: 每个 Arrow RecordBatch 的默认行数。
const DefaultBatchRows = 1024

// ArrowSchema 将列定义映射为 Arrow schema（全部非空列）。
func (t *Table) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, len(t.columns))
	for i, c := range t.columns {
		fields[i] = arrow.Field{Name: c.Name, Type: arrowType(c.Type), Nullable: false}
	}
	md := arrow.NewMetadata([]string{"task", "sequence_length"}, []string{string(t.task), fmt.Sprintf("%d", t.length)})
	return arrow.NewSchema(fields, &md)
}

func arrowType(ct contract.ColumnType) arrow.DataType {
	if ct == contract.ColumnBool {
		return arrow.FixedWidthTypes.Boolean
	}
	return arrow.PrimitiveTypes.Uint32
}

// WriteIPC 封存表并以 Arrow IPC 文件格式写出，按 batchRows 分批（<=0 使用默认）。
// 空表写出仅含 schema 的合法文件。
func (t *Table) WriteIPC(w io.Writer, batchRows int) error {
	t.Seal()
	if batchRows <= 0 {
		batchRows = DefaultBatchRows
	}
	mem := memory.NewGoAllocator()
	schema := t.ArrowSchema()
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(mem))
	if err != nil {
		return err
	}
	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	var cells []contract.Cell
	for from := 0; from < len(t.rows); from += batchRows {
		to := min(from+batchRows, len(t.rows))
		for _, rec := range t.rows[from:to] {
			cells = rec.AppendCells(cells[:0])
			for i, c := range cells {
				switch fb := b.Field(i).(type) {
				case *array.Uint32Builder:
					fb.Append(c.U)
				case *array.BooleanBuilder:
					fb.Append(c.B)
				default:
					_ = fw.Close()
					return fmt.Errorf("%w: unsupported column builder %T", contract.ErrInvariantViolation, fb)
				}
			}
		}
		batch := b.NewRecord()
		err := fw.Write(batch)
		batch.Release()
		if err != nil {
			_ = fw.Close()
			return err
		}
	}
	return fw.Close()
}
