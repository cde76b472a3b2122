package clickhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"hermannm.dev/datasetquery/db"
)

func TestSanitizeRowOnlyTouchesTextColumns(t *testing.T) {
	schema := db.TableSchema{Columns: []db.Column{
		{Name: "note", DataType: db.DataTypeText},
		{Name: "delta", DataType: db.DataTypeInt},
		{Name: "comment", DataType: db.DataTypeText},
	}}
	row := []string{"=SUM(A1:A2)", "-5", "plain"}

	sanitized := sanitizeRow(row, textColumnIndices(schema))

	assert.Equal(t, []string{"'=SUM(A1:A2)", "-5", "plain"}, sanitized)
	assert.Equal(t, "=SUM(A1:A2)", row[0], "input row should not be modified")
}

func TestIsDateType(t *testing.T) {
	assert.True(t, isDateType("Date"))
	assert.True(t, isDateType("Date32"))
	assert.True(t, isDateType("Nullable(Date32)"))
	assert.False(t, isDateType("DateTime"))
	assert.False(t, isDateType("Nullable(String)"))
}

func TestDereference(t *testing.T) {
	value := int64(3)
	pointerToValue := &value
	var nilPointer *int64

	assert.Equal(t, int64(3), dereference(&value))
	assert.Equal(t, int64(3), dereference(&pointerToValue))
	assert.Nil(t, dereference(&nilPointer))
}
