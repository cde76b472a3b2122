package clickhouse

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// Ingest creates a new table for the CSV dataset and inserts all its rows. Text cells are sanitized
// against spreadsheet formula injection as they are inserted, since ClickHouse applies UPDATE
// mutations asynchronously.
func (clickhouse ClickHouseDB) Ingest(
	ctx context.Context,
	reader *csv.Reader,
	rowCount int,
) (*Dataset, error) {
	schema, err := reader.DeduceTableSchema(0)
	if err != nil {
		return nil, wrap.Error(err, "failed to deduce dataset schema")
	}

	table := "dataset_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	if err := clickhouse.CreateTable(ctx, table, schema); err != nil {
		return nil, err
	}

	dataset := &Dataset{db: clickhouse, table: table, rowCount: rowCount}

	if err := clickhouse.InsertRows(ctx, table, schema, reader); err != nil {
		if closeErr := dataset.Close(); closeErr != nil {
			log.ErrorCause(closeErr, "failed to drop table after failed ingest")
		}
		return nil, err
	}

	return dataset, nil
}

func (clickhouse ClickHouseDB) CreateTable(
	ctx context.Context,
	table string,
	schema db.TableSchema,
) error {
	var builder strings.Builder

	builder.WriteString("CREATE TABLE ")
	if err := writeIdentifier(&builder, table); err != nil {
		return wrap.Error(err, "invalid table name")
	}
	builder.WriteString(" (")

	for i, column := range schema.Columns {
		if err := writeIdentifier(&builder, column.Name); err != nil {
			return wrap.Error(err, "invalid column name")
		}
		builder.WriteRune(' ')

		dataType, ok := clickhouseDataTypes.GetName(column.DataType)
		if !ok {
			return fmt.Errorf("invalid data type '%v' in column '%s'", column.DataType, column.Name)
		}
		builder.WriteString(dataType)

		if column.Optional {
			builder.WriteString(" NULL")
		}

		if i != len(schema.Columns)-1 {
			builder.WriteString(", ")
		}
	}
	builder.WriteRune(')')
	// Dataset tables live only as long as the handle that loaded them
	builder.WriteString(" ENGINE = Memory")

	if err := clickhouse.conn.Exec(ctx, builder.String()); err != nil {
		return wrap.Error(err, "create table query failed")
	}

	return nil
}

func writeIdentifier(builder *strings.Builder, identifier string) error {
	quoted, err := Dialect{}.QuoteIdentifier(identifier)
	if err != nil {
		return err
	}
	builder.WriteString(quoted)
	return nil
}

// ClickHouse recommends keeping batch inserts between 10,000 and 100,000 rows:
// https://clickhouse.com/docs/en/cloud/bestpractices/bulk-inserts
const BatchInsertSize = 10000

func (clickhouse ClickHouseDB) InsertRows(
	ctx context.Context,
	table string,
	schema db.TableSchema,
	reader *csv.Reader,
) error {
	var builder strings.Builder
	builder.WriteString("INSERT INTO ")
	if err := writeIdentifier(&builder, table); err != nil {
		return wrap.Error(err, "invalid table name")
	}
	queryString := builder.String()

	textColumns := textColumnIndices(schema)
	fieldsPerRow := len(schema.Columns)

	allRowsSent := false
	for !allRowsSent {
		batch, err := clickhouse.conn.PrepareBatch(ctx, queryString)
		if err != nil {
			return wrap.Error(err, "failed to prepare batch data insert")
		}

		for i := 0; i < BatchInsertSize; i++ {
			rawRow, rowNumber, done, err := reader.ReadRow()
			if done {
				allRowsSent = true
				break
			}
			if err != nil {
				return wrap.Error(err, "failed to read row")
			}

			rawRow = sanitizeRow(rawRow, textColumns)

			convertedRow, err := schema.ConvertAndAppendRow(make([]any, 0, fieldsPerRow), rawRow)
			if err != nil {
				return wrap.Errorf(
					err,
					"failed to convert row %d to data types expected by table schema",
					rowNumber,
				)
			}

			if err := batch.Append(convertedRow...); err != nil {
				return wrap.Errorf(err, "failed to add row %d to batch insert", rowNumber)
			}
		}

		if err := batch.Send(); err != nil {
			return wrap.Error(err, "failed to send batch insert")
		}
	}

	return nil
}

func textColumnIndices(schema db.TableSchema) []int {
	var indices []int
	for i, column := range schema.Columns {
		if column.DataType == db.DataTypeText {
			indices = append(indices, i)
		}
	}
	return indices
}

// sanitizeRow returns a sanitized copy of the row, leaving the reader's reused record untouched.
func sanitizeRow(row []string, textColumns []int) []string {
	row = slices.Clone(row)
	for _, i := range textColumns {
		if i < len(row) {
			row[i] = csv.SanitizeCell(row[i])
		}
	}
	return row
}
