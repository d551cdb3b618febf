package table

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastrecord/pkg/contract"
)

func classifierColumns(l int) []contract.Column {
	return append(contract.IDColumns("word", l), contract.Column{Name: "class", Type: contract.ColumnUint32})
}

func similarityColumns(l int, label contract.ColumnType) []contract.Column {
	cols := append(contract.IDColumns("text_a", l), contract.IDColumns("text_b", l)...)
	return append(cols, contract.Column{Name: "label", Type: label})
}

func TestNewRejectsBadSchema(t *testing.T) {
	_, err := New(contract.TaskClassifier, 0, classifierColumns(1))
	assert.ErrorIs(t, err, contract.ErrConfiguration)

	_, err = New(contract.TaskClassifier, 2, nil)
	assert.ErrorIs(t, err, contract.ErrConfiguration)

	dup := []contract.Column{{Name: "word_0"}, {Name: "word_0"}}
	_, err = New(contract.TaskClassifier, 1, dup)
	assert.ErrorIs(t, err, contract.ErrConfiguration)
}

func TestAppendChecksShape(t *testing.T) {
	tb, err := New(contract.TaskClassifier, 3, classifierColumns(3))
	require.NoError(t, err)

	require.NoError(t, tb.Append(contract.ClassifierRecord{WordIDs: []uint32{2, 3, 0}, Label: 1}))
	assert.ErrorIs(t, tb.Append(contract.ClassifierRecord{WordIDs: []uint32{2}}), contract.ErrInvariantViolation)

	sim := contract.SimilarityRecord{TextA: []uint32{1, 1, 1}, TextB: []uint32{1, 1, 1}}
	assert.ErrorIs(t, tb.Append(sim), contract.ErrInvariantViolation)
	assert.Equal(t, 1, tb.Len())
}

func TestAppendChecksColumnTypes(t *testing.T) {
	tb, err := New(contract.TaskSimilarity, 1, similarityColumns(1, contract.ColumnBool))
	require.NoError(t, err)

	err = tb.Append(contract.SimilarityRecord{TextA: []uint32{2}, TextB: []uint32{3}, Label: 1})
	assert.ErrorIs(t, err, contract.ErrInvariantViolation)
	require.NoError(t, tb.Append(contract.SimilarityRecord{TextA: []uint32{2}, TextB: []uint32{3}, Bool: true, BoolLabel: true}))
}

func TestSealedTableRejectsAppend(t *testing.T) {
	tb, err := New(contract.TaskClassifier, 1, classifierColumns(1))
	require.NoError(t, err)
	tb.Seal()
	assert.ErrorIs(t, tb.Append(contract.ClassifierRecord{WordIDs: []uint32{1}}), ErrSealed)
}

func readIPC(t *testing.T, data []byte) (*arrow.Schema, []arrow.Record) {
	t.Helper()
	r, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(memory.NewGoAllocator()))
	require.NoError(t, err)
	defer r.Close()
	var recs []arrow.Record
	for i := 0; i < r.NumRecords(); i++ {
		rec, err := r.Record(i)
		require.NoError(t, err)
		rec.Retain()
		recs = append(recs, rec)
	}
	return r.Schema(), recs
}

func TestWriteIPCBatches(t *testing.T) {
	tb, err := New(contract.TaskClassifier, 2, classifierColumns(2))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, tb.Append(contract.ClassifierRecord{WordIDs: []uint32{uint32(i + 2), 0}, Label: uint32(i % 2)}))
	}

	var buf bytes.Buffer
	require.NoError(t, tb.WriteIPC(&buf, 2))
	assert.ErrorIs(t, tb.Append(contract.ClassifierRecord{WordIDs: []uint32{1, 0}}), ErrSealed, "写出后封存")

	schema, recs := readIPC(t, buf.Bytes())
	require.Equal(t, 3, schema.NumFields())
	assert.Equal(t, "word_0", schema.Field(0).Name)
	assert.Equal(t, "class", schema.Field(2).Name)
	assert.True(t, arrow.TypeEqual(arrow.PrimitiveTypes.Uint32, schema.Field(2).Type))
	md := schema.Metadata()
	idx := md.FindKey("task")
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, "classifier", md.Values()[idx])

	require.Len(t, recs, 3)
	var rows int64
	var words []uint32
	for _, rec := range recs {
		rows += rec.NumRows()
		words = append(words, rec.Column(0).(*array.Uint32).Uint32Values()...)
		rec.Release()
	}
	assert.Equal(t, int64(5), rows)
	assert.Equal(t, []uint32{2, 3, 4, 5, 6}, words)
}

func TestWriteIPCBoolLabel(t *testing.T) {
	tb, err := New(contract.TaskSimilarity, 1, similarityColumns(1, contract.ColumnBool))
	require.NoError(t, err)
	require.NoError(t, tb.Append(contract.SimilarityRecord{TextA: []uint32{2}, TextB: []uint32{3}, Bool: true, BoolLabel: true}))
	require.NoError(t, tb.Append(contract.SimilarityRecord{TextA: []uint32{4}, TextB: []uint32{1}, Bool: true}))

	var buf bytes.Buffer
	require.NoError(t, tb.WriteIPC(&buf, 0))
	schema, recs := readIPC(t, buf.Bytes())
	assert.True(t, arrow.TypeEqual(arrow.FixedWidthTypes.Boolean, schema.Field(2).Type))
	require.Len(t, recs, 1)
	defer recs[0].Release()
	label := recs[0].Column(2).(*array.Boolean)
	assert.True(t, label.Value(0))
	assert.False(t, label.Value(1))
}

func TestWriteIPCEmptyTable(t *testing.T) {
	tb, err := New(contract.TaskTagging, 2, append(contract.IDColumns("word", 2), contract.IDColumns("tag", 2)...))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, tb.WriteIPC(&buf, 10))
	schema, recs := readIPC(t, buf.Bytes())
	assert.Equal(t, 4, schema.NumFields())
	assert.Empty(t, recs)
}
