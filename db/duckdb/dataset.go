package duckdb

import (
	"context"
	"database/sql"
	"math"
	"sync"
	"time"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/sqlquery"
	"hermannm.dev/devlog/log"
	"hermannm.dev/wrap"
)

// Dataset is a CSV dataset materialized in a DuckDB engine. Implements db.Backend.
type Dataset struct {
	engine    *Engine
	rowCount  int
	closeOnce sync.Once
	closeErr  error
}

func (dataset *Dataset) Kind() db.BackendKind {
	return db.BackendDuckDB
}

func (dataset *Dataset) RowCount() int {
	return dataset.rowCount
}

func (dataset *Dataset) Close() error {
	dataset.closeOnce.Do(func() {
		dataset.closeErr = dataset.engine.Close()
	})
	return dataset.closeErr
}

func (dataset *Dataset) Filter(ctx context.Context, filters []db.FilterSpec) (db.RawResult, error) {
	query, err := sqlquery.FilterQuery(Dialect{}, TableName, filters)
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
	query, err := sqlquery.AggregateQuery(Dialect{}, TableName, filters, groupBy)
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
	query, err := sqlquery.TrendQuery(Dialect{}, TableName, filters, trend)
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
	query, err := sqlquery.CompareQuery(Dialect{}, TableName, filters, compare)
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
	query, err := sqlquery.CorrelateQuery(Dialect{}, TableName, filters, correlate)
	if err != nil {
		return db.RawResult{}, err
	}

	log.Debugf("running DuckDB query: %s", query.SQL)

	var coefficient sql.NullFloat64
	if err := dataset.engine.db.QueryRowContext(ctx, query.SQL, query.Params...).Scan(
		&coefficient,
	); err != nil {
		return db.RawResult{}, wrap.Error(err, "correlation query failed")
	}

	var value any
	if coefficient.Valid && !math.IsNaN(coefficient.Float64) && !math.IsInf(coefficient.Float64, 0) {
		value = coefficient.Float64
	}
	return db.NewCorrelationResult(correlate, value), nil
}

func (dataset *Dataset) run(ctx context.Context, query sqlquery.Query) (db.RawResult, error) {
	log.Debugf("running DuckDB query: %s", query.SQL)

	rows, err := dataset.engine.db.QueryContext(ctx, query.SQL, query.Params...)
	if err != nil {
		return db.RawResult{}, wrap.Error(err, "DuckDB query failed")
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return db.RawResult{}, err
	}
	return result, nil
}

// scanRows reads all rows into maps, wrapping DATE values in db.Date so they keep their
// date-only rendering.
func scanRows(rows *sql.Rows) (db.RawResult, error) {
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return db.RawResult{}, wrap.Error(err, "failed to get result column types")
	}

	columns := make([]string, len(columnTypes))
	isDate := make([]bool, len(columnTypes))
	for i, columnType := range columnTypes {
		columns[i] = columnType.Name()
		isDate[i] = columnType.DatabaseTypeName() == "DATE"
	}

	result := db.RawResult{Columns: columns, Rows: []db.Row{}}

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return db.RawResult{}, wrap.Error(err, "failed to scan result row")
		}

		row := make(db.Row, len(columns))
		for i, column := range columns {
			value := values[i]
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
