package db

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"hermannm.dev/wrap"
)

type TableSchema struct {
	Columns []Column `json:"columns"`
}

type Column struct {
	Name     string   `json:"name"`
	DataType DataType `json:"dataType"`
	Optional bool     `json:"optional"`
}

func NewTableSchema(columnNames []string) TableSchema {
	columns := make([]Column, 0, len(columnNames))
	for _, columnName := range columnNames {
		columns = append(columns, Column{Name: columnName})
	}

	return TableSchema{Columns: columns}
}

func (schema TableSchema) ColumnNames() []string {
	names := make([]string, 0, len(schema.Columns))
	for _, column := range schema.Columns {
		names = append(names, column.Name)
	}
	return names
}

// DeduceDataTypesFromRow updates the column types with the types of the given row's fields.
// Conflicting types are widened (int and float to float, date and datetime to datetime, anything
// else to text), since uploaded CSVs are not expected to be consistently typed.
func (schema TableSchema) DeduceDataTypesFromRow(row []string) error {
	if len(row) > len(schema.Columns) {
		return errors.New("row contains more fields than there are columns")
	}

	for i, field := range row {
		column := schema.Columns[i]

		deducedType, isBlank := deduceDataTypeFromField(field)
		if isBlank {
			column.Optional = true
		} else if !column.DataType.IsValid() {
			column.DataType = deducedType
		} else {
			column.DataType = column.DataType.widen(deducedType)
		}

		schema.Columns[i] = column
	}

	// Short rows leave the remaining fields empty
	for i := len(row); i < len(schema.Columns); i++ {
		schema.Columns[i].Optional = true
	}

	return nil
}

// FinalizeDataTypes sets columns whose type could not be deduced (all fields blank) to text.
func (schema TableSchema) FinalizeDataTypes() {
	for i, column := range schema.Columns {
		if !column.DataType.IsValid() {
			schema.Columns[i].DataType = DataTypeText
			schema.Columns[i].Optional = true
		}
	}
}

const dateTimeLayout = "2006-01-02 15:04:05"

func deduceDataTypeFromField(field string) (deducedType DataType, isBlank bool) {
	if field == "" {
		return 0, true
	}
	if _, err := strconv.ParseInt(field, 10, 64); err == nil {
		return DataTypeInt, false
	}
	if _, err := strconv.ParseFloat(field, 64); err == nil {
		return DataTypeFloat, false
	}
	if _, err := time.Parse(time.DateOnly, field); err == nil {
		return DataTypeDate, false
	}
	if _, err := parseDateTime(field); err == nil {
		return DataTypeDateTime, false
	}
	if _, err := uuid.Parse(field); err == nil {
		return DataTypeUUID, false
	}
	return DataTypeText, false
}

func parseDateTime(field string) (time.Time, error) {
	if value, err := time.Parse(time.RFC3339, field); err == nil {
		return value, nil
	}
	return time.Parse(dateTimeLayout, field)
}

// ConvertAndAppendRow converts the raw fields of a row to the Go types matching the schema's
// column types, and appends them to convertedRow. Missing trailing fields are treated as blank.
func (schema TableSchema) ConvertAndAppendRow(convertedRow []any, rawRow []string) ([]any, error) {
	if len(rawRow) > len(schema.Columns) {
		return nil, errors.New(
			"given row has more fields than there are columns in the table schema",
		)
	}

	for i, column := range schema.Columns {
		var field string
		if i < len(rawRow) {
			field = rawRow[i]
		}

		convertedField, err := convertField(field, column)
		if err != nil {
			return nil, wrap.Errorf(
				err,
				"failed to convert field '%s' to %s for column '%s'",
				field,
				column.DataType,
				column.Name,
			)
		}

		convertedRow = append(convertedRow, convertedField)
	}

	return convertedRow, nil
}

func convertField(field string, column Column) (convertedField any, err error) {
	if field == "" {
		if column.Optional {
			return nil, nil
		} else {
			return nil, errors.New("tried to insert empty value into non-optional column")
		}
	}

	switch column.DataType {
	case DataTypeInt:
		return strconv.ParseInt(field, 10, 64)
	case DataTypeFloat:
		return strconv.ParseFloat(field, 64)
	case DataTypeDate:
		return time.Parse(time.DateOnly, field)
	case DataTypeDateTime:
		value, err := parseDateTime(field)
		if err != nil {
			// Date-only values widened into a datetime column
			return time.Parse(time.DateOnly, field)
		}
		return value, nil
	case DataTypeUUID:
		if _, err := uuid.Parse(field); err != nil {
			return nil, wrap.Errorf(
				err,
				"failed to parse value '%s' as UUID for column '%s'",
				field,
				column.Name,
			)
		}
		return field, nil
	case DataTypeText:
		return field, nil
	}

	return nil, fmt.Errorf("unrecognized data type '%s' in column", column.DataType)
}

func (schema TableSchema) Validate() []error {
	var errs []error

	for i, column := range schema.Columns {
		if err := column.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("column %d ('%s'): %w", i, column.Name, err))
		}
	}

	return errs
}

func (column Column) Validate() error {
	if column.Name == "" {
		return errors.New("column name is blank")
	}

	if !column.DataType.IsValid() {
		return errors.New("invalid column data type")
	}

	return nil
}
