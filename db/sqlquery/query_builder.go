package sqlquery

import (
	"strconv"
	"strings"

	"hermannm.dev/datasetquery/db"
)

// Dialect renders the engine-specific parts of generated SQL. Everything else (clause structure,
// parameter placeholders) is shared between engines.
type Dialect interface {
	// QuoteIdentifier returns the identifier quoted for safe splicing into query text, or an error
	// if the identifier cannot be represented.
	QuoteIdentifier(identifier string) (string, error)
	CastToString(expression string) string
	CastToFloat(expression string) string
	// TruncateDate returns an expression that parses the given expression as a date, truncates it
	// to the start of the interval and renders it as YYYY-MM-DD text. Values that cannot be parsed
	// as dates must yield NULL rather than fail the query.
	TruncateDate(expression string, interval db.DateInterval) (string, error)
	NullIf(expression string, value string) string
}

// Query is generated SQL text with its bind parameters, in placeholder order.
type Query struct {
	SQL    string
	Params []any
}

// QueryBuilder writes SQL text while collecting bind parameters. The first error encountered
// (e.g. an identifier that cannot be quoted) is recorded and returned from Build, so that callers
// can write a full query without checking every write.
type QueryBuilder struct {
	strings.Builder
	dialect Dialect
	params  []any
	err     error
}

func NewQueryBuilder(dialect Dialect) *QueryBuilder {
	return &QueryBuilder{dialect: dialect}
}

func (builder *QueryBuilder) WriteInt(i int) {
	builder.WriteString(strconv.Itoa(i))
}

// WriteIdentifier writes the quoted identifier. Identifiers are the only user-supplied strings
// ever written into query text.
func (builder *QueryBuilder) WriteIdentifier(identifier string) {
	builder.WriteString(builder.QuoteIdentifier(identifier))
}

// QuoteIdentifier quotes the identifier with the builder's dialect, recording any error.
func (builder *QueryBuilder) QuoteIdentifier(identifier string) string {
	if identifier == "" {
		builder.setErr(db.NewQueryConfigError("blank column name"))
		return ""
	}

	quoted, err := builder.dialect.QuoteIdentifier(identifier)
	if err != nil {
		builder.setErr(db.NewQueryConfigError("invalid column name '%s': %v", identifier, err))
		return ""
	}
	return quoted
}

// WriteParam writes a placeholder and binds the given value to it.
func (builder *QueryBuilder) WriteParam(value any) {
	builder.WriteByte('?')
	builder.params = append(builder.params, value)
}

func (builder *QueryBuilder) Dialect() Dialect {
	return builder.dialect
}

func (builder *QueryBuilder) setErr(err error) {
	if builder.err == nil {
		builder.err = err
	}
}

func (builder *QueryBuilder) Build() (Query, error) {
	if builder.err != nil {
		return Query{}, builder.err
	}

	params := builder.params
	if params == nil {
		params = []any{}
	}
	return Query{SQL: builder.String(), Params: params}, nil
}
