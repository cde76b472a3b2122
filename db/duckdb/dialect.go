package duckdb

import (
	"errors"
	"fmt"
	"strings"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/enumnames"
)

// Dialect renders DuckDB SQL. Implements sqlquery.Dialect.
type Dialect struct{}

func (Dialect) QuoteIdentifier(identifier string) (string, error) {
	if strings.ContainsRune(identifier, 0) {
		return "", errors.New("identifier contains NUL character")
	}
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`, nil
}

func (Dialect) CastToString(expression string) string {
	return fmt.Sprintf("CAST(%s AS VARCHAR)", expression)
}

func (Dialect) CastToFloat(expression string) string {
	return fmt.Sprintf("CAST(%s AS DOUBLE)", expression)
}

// See https://duckdb.org/docs/sql/functions/datepart
var datePartSpecifiers = enumnames.NewMap(map[db.DateInterval]string{
	db.DateIntervalDay:     "day",
	db.DateIntervalWeek:    "week",
	db.DateIntervalMonth:   "month",
	db.DateIntervalQuarter: "quarter",
	db.DateIntervalYear:    "year",
})

func (Dialect) TruncateDate(expression string, interval db.DateInterval) (string, error) {
	part, ok := datePartSpecifiers.GetName(interval)
	if !ok {
		return "", fmt.Errorf("unsupported date interval '%v'", interval)
	}

	// TRY_CAST yields NULL for unparseable dates instead of failing the query
	return fmt.Sprintf(
		"strftime(date_trunc('%s', TRY_CAST(%s AS TIMESTAMP)), '%%Y-%%m-%%d')", part, expression,
	), nil
}

func (Dialect) NullIf(expression string, value string) string {
	return fmt.Sprintf("NULLIF(%s, %s)", expression, value)
}
