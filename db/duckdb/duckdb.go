package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/wrap"
)

// TableName is the table that a materialized dataset is stored in.
const TableName = "dataset"

// Engine is an isolated in-memory DuckDB database. Every dataset load opens its own engine, so
// concurrent loads never share tables.
type Engine struct {
	db *sql.DB
}

func Open() (*Engine, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, wrap.Error(err, "failed to open in-memory DuckDB")
	}

	// Keeps all statements on one connection, so the session sees the tables it created
	conn.SetMaxOpenConns(1)

	return &Engine{db: conn}, nil
}

func (engine *Engine) Close() error {
	return engine.db.Close()
}

// readCSVExpression returns a read_csv table function call for the given path. The path is
// generated by us (a temp file), but is escaped anyway since it cannot be a bind parameter in
// every DuckDB version.
func readCSVExpression(path string) string {
	escapedPath := strings.ReplaceAll(path, "'", "''")
	return fmt.Sprintf(
		"read_csv('%s', header = true, auto_detect = true, sample_size = -1)", escapedPath,
	)
}

// CountCSVRows counts the data rows of the CSV file at the given path without materializing it.
func (engine *Engine) CountCSVRows(ctx context.Context, path string) (int, error) {
	query := "SELECT count(*) FROM " + readCSVExpression(path)

	var count int64
	if err := engine.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, wrap.Error(err, "CSV row count query failed")
	}

	return int(count), nil
}

// MaterializeCSV loads the CSV file at the given path into the dataset table, and neutralizes
// spreadsheet formulas in its text columns. The returned Dataset takes ownership of the engine.
func (engine *Engine) MaterializeCSV(
	ctx context.Context,
	path string,
	rowCount int,
) (*Dataset, error) {
	var query strings.Builder
	query.WriteString("CREATE TABLE ")
	query.WriteString(quoteIdentifier(TableName))
	query.WriteString(" AS SELECT * FROM ")
	query.WriteString(readCSVExpression(path))

	if _, err := engine.db.ExecContext(ctx, query.String()); err != nil {
		return nil, wrap.Error(err, "failed to create dataset table from CSV")
	}

	if err := engine.sanitizeTextColumns(ctx); err != nil {
		return nil, wrap.Error(err, "failed to sanitize dataset table")
	}

	return &Dataset{engine: engine, rowCount: rowCount}, nil
}

func (engine *Engine) sanitizeTextColumns(ctx context.Context) error {
	rows, err := engine.db.QueryContext(
		ctx,
		"SELECT column_name FROM information_schema.columns "+
			"WHERE table_name = ? AND data_type = 'VARCHAR' ORDER BY ordinal_position",
		TableName,
	)
	if err != nil {
		return wrap.Error(err, "failed to list text columns")
	}

	var textColumns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			rows.Close()
			return wrap.Error(err, "failed to read column name")
		}
		textColumns = append(textColumns, column)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return wrap.Error(err, "failed to list text columns")
	}

	params := make([]any, 0, len(csv.FormulaPrefixes)+1)
	params = append(params, csv.SanitizationPrefix)
	for _, prefix := range csv.FormulaPrefixes {
		params = append(params, string(prefix))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(csv.FormulaPrefixes)), ", ")

	for _, column := range textColumns {
		quoted := quoteIdentifier(column)

		statement := fmt.Sprintf(
			"UPDATE %s SET %s = ? || %s WHERE substr(%s, 1, 1) IN (%s)",
			quoteIdentifier(TableName), quoted, quoted, quoted, placeholders,
		)
		if _, err := engine.db.ExecContext(ctx, statement, params...); err != nil {
			return wrap.Errorf(err, "failed to sanitize column '%s'", column)
		}
	}

	return nil
}

func quoteIdentifier(identifier string) string {
	quoted, _ := Dialect{}.QuoteIdentifier(identifier)
	return quoted
}
