package dataframe

import (
	"context"
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/wrap"
)

// Dataset is a CSV dataset held in memory as a dataframe. Implements db.Backend.
type Dataset struct {
	frame    dataframe.DataFrame
	schema   db.TableSchema
	rowCount int
}

// Load reads up to maxRows data rows (all rows if maxRows <= 0) from the given reader into a
// dataframe, with column types deduced from the loaded rows. Text cells are sanitized against
// spreadsheet formula injection; numeric columns are left as they are.
//
// rowCount is the row count of the full dataset, which may exceed the loaded rows when maxRows is
// set.
func Load(reader *csv.Reader, maxRows int, rowCount int) (*Dataset, error) {
	schema, err := reader.DeduceTableSchema(maxRows)
	if err != nil {
		return nil, wrap.Error(err, "failed to deduce dataset schema")
	}

	rows, err := reader.ReadRows(maxRows, len(schema.Columns))
	if err != nil {
		return nil, wrap.Error(err, "failed to read dataset rows")
	}

	types := make(map[string]series.Type, len(schema.Columns))
	var textColumns []int
	for i, column := range schema.Columns {
		types[column.Name] = seriesType(column.DataType)
		if types[column.Name] == series.String {
			textColumns = append(textColumns, i)
		}
	}

	csv.SanitizeColumns(rows, textColumns)

	records := make([][]string, 0, len(rows)+1)
	records = append(records, schema.ColumnNames())
	records = append(records, rows...)

	frame := dataframe.LoadRecords(
		records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{""}),
	)
	if frame.Err != nil {
		return nil, wrap.Error(frame.Err, "failed to create dataframe")
	}

	// The dataframe renames blank and duplicate header names
	for i, name := range frame.Names() {
		if i < len(schema.Columns) {
			schema.Columns[i].Name = name
		}
	}

	return &Dataset{frame: frame, schema: schema, rowCount: rowCount}, nil
}

func seriesType(dataType db.DataType) series.Type {
	switch dataType {
	case db.DataTypeInt:
		return series.Int
	case db.DataTypeFloat:
		return series.Float
	default:
		return series.String
	}
}

func (dataset *Dataset) Kind() db.BackendKind {
	return db.BackendDataFrame
}

func (dataset *Dataset) RowCount() int {
	return dataset.rowCount
}

// LoadedRowCount is the number of rows held in the dataframe, which is below RowCount if the
// dataset was loaded as a sample.
func (dataset *Dataset) LoadedRowCount() int {
	return dataset.frame.Nrow()
}

func (dataset *Dataset) Schema() db.TableSchema {
	return dataset.schema
}

// BlankCounts returns the number of blank cells in each loaded column, in schema order.
func (dataset *Dataset) BlankCounts() []int {
	counts := make([]int, len(dataset.schema.Columns))
	for i, column := range dataset.schema.Columns {
		for _, isBlank := range dataset.frame.Col(column.Name).IsNaN() {
			if isBlank {
				counts[i]++
			}
		}
	}
	return counts
}

func (dataset *Dataset) Close() error {
	return nil
}

func (dataset *Dataset) Filter(ctx context.Context, filters []db.FilterSpec) (db.RawResult, error) {
	frame, err := dataset.filtered(filters)
	if err != nil {
		return db.RawResult{}, err
	}

	columns := slices.Clone(frame.Names())
	result := db.RawResult{Columns: columns, Rows: make([]db.Row, 0, frame.Nrow())}

	columnValues := make([]column, len(columns))
	for i, name := range columns {
		columnValues[i], err = dataset.column(frame, name)
		if err != nil {
			return db.RawResult{}, err
		}
	}

	for rowIndex := 0; rowIndex < frame.Nrow(); rowIndex++ {
		row := make(db.Row, len(columns))
		for i, name := range columns {
			row[name] = columnValues[i].value(rowIndex)
		}
		result.Rows = append(result.Rows, row)
	}

	return result, nil
}
