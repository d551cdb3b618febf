// Package table 承载定宽记录表：打开时固定列结构，逐行追加，写出时封存。
package table

import (
	"errors"
	"fmt"

	"fastrecord/pkg/contract"
)

// ErrSealed: 对已封存的表追加行。
var ErrSealed = errors.New("table sealed")

// Table: 同构记录的有序集合。非并发安全；由单一写者追加。
type Table struct {
	task    contract.Task
	length  int
	columns []contract.Column
	rows    []contract.Record
	sealed  bool
	scratch []contract.Cell
}

// New 以固定列结构打开空表。
func New(task contract.Task, length int, columns []contract.Column) (*Table, error) {
	if length <= 0 {
		return nil, fmt.Errorf("%w: sequence length must be > 0, got %d", contract.ErrConfiguration, length)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: table has no columns", contract.ErrConfiguration)
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", contract.ErrConfiguration, c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	cols := make([]contract.Column, len(columns))
	copy(cols, columns)
	return &Table{task: task, length: length, columns: cols}, nil
}

// Append 追加一行；任务类型、定宽与列类型必须与表结构一致。
func (t *Table) Append(rec contract.Record) error {
	if t.sealed {
		return ErrSealed
	}
	if err := contract.ValidateRecord(rec, t.length); err != nil {
		return err
	}
	if rec.Task() != t.task {
		return fmt.Errorf("%w: %s record appended to %s table", contract.ErrInvariantViolation, rec.Task(), t.task)
	}
	t.scratch = rec.AppendCells(t.scratch[:0])
	if len(t.scratch) != len(t.columns) {
		return fmt.Errorf("%w: row has %d cells, table has %d columns", contract.ErrInvariantViolation, len(t.scratch), len(t.columns))
	}
	for i, c := range t.scratch {
		if c.Type != t.columns[i].Type {
			return fmt.Errorf("%w: column %s wants %s, got %s", contract.ErrInvariantViolation, t.columns[i].Name, t.columns[i].Type, c.Type)
		}
	}
	t.rows = append(t.rows, rec)
	return nil
}

// Seal 封存表，此后不可追加。
func (t *Table) Seal() { t.sealed = true }

// Len 返回行数。
func (t *Table) Len() int { return len(t.rows) }
