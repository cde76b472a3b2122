package clickhouse

import (
	"context"
	"math"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/sqlquery"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// Dataset is a CSV dataset ingested into its own ClickHouse table. Implements db.Backend.
type Dataset struct {
	db       ClickHouseDB
	table    string
	rowCount int

	closeOnce sync.Once
	closeErr  error
}

func (dataset *Dataset) Kind() db.BackendKind {
	return db.BackendClickHouse
}

func (dataset *Dataset) RowCount() int {
	return dataset.rowCount
}

func (dataset *Dataset) Table() string {
	return dataset.table
}

// Close drops the dataset's table.
func (dataset *Dataset) Close() error {
	dataset.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if _, err := dataset.db.DropTable(ctx, dataset.table); err != nil {
			dataset.closeErr = wrap.Errorf(err, "failed to drop dataset table '%s'", dataset.table)
		}
	})
	return dataset.closeErr
}

func (dataset *Dataset) Filter(ctx context.Context, filters []db.FilterSpec) (db.RawResult, error) {
	query, err := sqlquery.FilterQuery(Dialect{}, dataset.table, filters)
	if err != nil {
		return db.RawResult{}, err
	}
	return dataset.run(ctx, query)
}

func (dataset *Dataset) Aggregate(
	ctx context.Context,
	filters []db.FilterSpec,
	groupBy db.GroupBySpec,
) (db.RawResult, error) {
	query, err := sqlquery.AggregateQuery(Dialect{}, dataset.table, filters, groupBy)
	if err != nil {
		return db.RawResult{}, err
	}
	return dataset.run(ctx, query)
}

func (dataset *Dataset) Trend(
	ctx context.Context,
	filters []db.FilterSpec,
	trend db.TrendSpec,
) (db.RawResult, error) {
	query, err := sqlquery.TrendQuery(Dialect{}, dataset.table, filters, trend)
	if err != nil {
		return db.RawResult{}, err
	}
	return dataset.run(ctx, query)
}

func (dataset *Dataset) Compare(
	ctx context.Context,
	filters []db.FilterSpec,
	compare db.CompareSpec,
) (db.RawResult, error) {
	query, err := sqlquery.CompareQuery(Dialect{}, dataset.table, filters, compare)
	if err != nil {
		return db.RawResult{}, err
	}
	return dataset.run(ctx, query)
}

func (dataset *Dataset) Correlate(
	ctx context.Context,
	filters []db.FilterSpec,
	correlate db.CorrelateSpec,
) (db.RawResult, error) {
	query, err := sqlquery.CorrelateQuery(Dialect{}, dataset.table, filters, correlate)
	if err != nil {
		return db.RawResult{}, err
	}

	result, err := dataset.run(ctx, query)
	if err != nil {
		return db.RawResult{}, err
	}

	var coefficient any
	if len(result.Rows) != 0 {
		if value, ok := result.Rows[0][db.CorrelationColumn].(float64); ok &&
			!math.IsNaN(value) && !math.IsInf(value, 0) {
			coefficient = value
		}
	}
	return db.NewCorrelationResult(correlate, coefficient), nil
}

func (dataset *Dataset) run(ctx context.Context, query sqlquery.Query) (db.RawResult, error) {
	log.Debugf("running ClickHouse query: %s", query.SQL)

	rows, err := dataset.db.conn.Query(ctx, query.SQL, query.Params...)
	if err != nil {
		return db.RawResult{}, wrap.Error(err, "ClickHouse query failed")
	}
	defer rows.Close()

	return scanRows(rows)
}

// scanRows reads rows of any shape by scanning into values of each column's scan type.
func scanRows(rows driver.Rows) (db.RawResult, error) {
	columnTypes := rows.ColumnTypes()

	columns := make([]string, len(columnTypes))
	isDate := make([]bool, len(columnTypes))
	for i, columnType := range columnTypes {
		columns[i] = columnType.Name()
		isDate[i] = isDateType(columnType.DatabaseTypeName())
	}

	result := db.RawResult{Columns: columns, Rows: []db.Row{}}

	for rows.Next() {
		pointers := make([]any, len(columnTypes))
		for i, columnType := range columnTypes {
			pointers[i] = reflect.New(columnType.ScanType()).Interface()
		}

		if err := rows.Scan(pointers...); err != nil {
			return db.RawResult{}, wrap.Error(err, "failed to scan result row")
		}

		row := make(db.Row, len(columns))
		for i, column := range columns {
			value := dereference(pointers[i])
			if date, ok := value.(time.Time); ok && isDate[i] {
				value = db.Date{Time: date}
			}
			row[column] = value
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return db.RawResult{}, wrap.Error(err, "failed to read result rows")
	}

	return result, nil
}

// dereference unwraps the scan pointer, and the inner pointer of Nullable columns (nil if NULL).
func dereference(pointer any) any {
	value := reflect.ValueOf(pointer).Elem()
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return nil
		}
		value = value.Elem()
	}
	return value.Interface()
}

func isDateType(databaseTypeName string) bool {
	typeName := strings.TrimSuffix(strings.TrimPrefix(databaseTypeName, "Nullable("), ")")
	return typeName == "Date" || typeName == "Date32"
}
