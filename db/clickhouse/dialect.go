package clickhouse

import (
	"errors"
	"fmt"
	"strings"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/enumnames"
)

// Dialect renders ClickHouse SQL. Implements sqlquery.Dialect.
type Dialect struct{}

// ClickHouse reads backslash escapes inside backquoted identifiers, so both the backslash and the
// backtick must be escaped.
var identifierEscaper = strings.NewReplacer(`\`, `\\`, "`", "\\`")

// QuoteIdentifier backquotes the identifier, escaping any backslashes and backticks in it.
func (Dialect) QuoteIdentifier(identifier string) (string, error) {
	if err := ValidateIdentifier(identifier); err != nil {
		return "", err
	}
	return "`" + identifierEscaper.Replace(identifier) + "`", nil
}

func (Dialect) CastToString(expression string) string {
	return fmt.Sprintf("toString(%s)", expression)
}

func (Dialect) CastToFloat(expression string) string {
	return fmt.Sprintf("toFloat64(%s)", expression)
}

// See https://clickhouse.com/docs/en/sql-reference/functions/date-time-functions
var truncateFunctions = enumnames.NewMap(map[db.DateInterval]string{
	db.DateIntervalDay:     "toDate",
	db.DateIntervalWeek:    "toMonday",
	db.DateIntervalMonth:   "toStartOfMonth",
	db.DateIntervalQuarter: "toStartOfQuarter",
	db.DateIntervalYear:    "toStartOfYear",
})

func (Dialect) TruncateDate(expression string, interval db.DateInterval) (string, error) {
	function, ok := truncateFunctions.GetName(interval)
	if !ok {
		return "", fmt.Errorf("unsupported date interval '%v'", interval)
	}

	// parseDateTimeBestEffortOrNull yields NULL for unparseable dates instead of failing the query
	return fmt.Sprintf(
		"toString(%s(parseDateTimeBestEffortOrNull(toString(%s))))", function, expression,
	), nil
}

func (Dialect) NullIf(expression string, value string) string {
	return fmt.Sprintf("nullIf(%s, %s)", expression, value)
}

// ValidateIdentifier rejects identifiers that cannot be quoted: blank ones, and ones with NUL
// characters.
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return errors.New("identifier is blank")
	}
	if strings.ContainsRune(identifier, 0) {
		return fmt.Errorf("identifier %q contains a NUL character", identifier)
	}

	return nil
}
