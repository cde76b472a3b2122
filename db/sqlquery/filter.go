package sqlquery

import (
	"fmt"
	"reflect"
	"strings"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/enumnames"
)

var comparisonOperators = enumnames.NewMap(map[db.Operator]string{
	db.OperatorEqual:          "=",
	db.OperatorNotEqual:       "!=",
	db.OperatorGreater:        ">",
	db.OperatorLess:           "<",
	db.OperatorGreaterOrEqual: ">=",
	db.OperatorLessOrEqual:    "<=",
})

// BuildFilterClause returns the predicate for the given filters joined with AND, without the
// WHERE keyword, along with its bind parameters. No filters gives an empty clause and no params.
func BuildFilterClause(dialect Dialect, filters []db.FilterSpec) (clause string, params []any, err error) {
	builder := NewQueryBuilder(dialect)
	builder.writeFilterPredicate(filters)

	query, err := builder.Build()
	if err != nil {
		return "", nil, err
	}
	return query.SQL, query.Params, nil
}

// WriteWhere writes " WHERE <predicate>" for the given filters, or nothing if there are none.
func (builder *QueryBuilder) WriteWhere(filters []db.FilterSpec) {
	if len(filters) == 0 {
		return
	}

	builder.WriteString(" WHERE ")
	builder.writeFilterPredicate(filters)
}

func (builder *QueryBuilder) writeFilterPredicate(filters []db.FilterSpec) {
	for i, filter := range filters {
		if i != 0 {
			builder.WriteString(" AND ")
		}
		builder.writeFilter(filter)
	}
}

func (builder *QueryBuilder) writeFilter(filter db.FilterSpec) {
	column := builder.QuoteIdentifier(filter.Field)

	if symbol, ok := comparisonOperators.GetName(filter.Operator); ok {
		builder.WriteString(column)
		builder.WriteByte(' ')
		builder.WriteString(symbol)
		builder.WriteByte(' ')
		builder.WriteParam(filter.Value)
		return
	}

	switch filter.Operator {
	case db.OperatorContains:
		builder.WriteString("lower(")
		builder.WriteString(builder.dialect.CastToString(column))
		builder.WriteString(") LIKE ")
		builder.WriteParam(ContainsPattern(filter.Value))
	case db.OperatorIn:
		values := FilterValueList(filter.Value)
		if len(values) == 0 {
			builder.setErr(
				db.NewQueryConfigError("'in' filter on '%s' requires at least one value", filter.Field),
			)
			return
		}

		builder.WriteString(column)
		builder.WriteString(" IN (")
		for i, value := range values {
			if i != 0 {
				builder.WriteString(", ")
			}
			builder.WriteParam(value)
		}
		builder.WriteByte(')')
	default:
		builder.setErr(
			db.NewQueryConfigError("unsupported operator '%s' on '%s'", filter.Operator, filter.Field),
		)
	}
}

// ContainsPattern returns the LIKE pattern for a case-insensitive substring match on the value.
func ContainsPattern(value any) string {
	return "%" + strings.ToLower(FormatFilterValue(value)) + "%"
}

// FormatFilterValue renders a filter value as text, for matching against string-cast columns.
// Whole floats are rendered without a fractional part, so 5.0 from JSON matches "5".
func FormatFilterValue(value any) string {
	switch value := value.(type) {
	case nil:
		return ""
	case string:
		return value
	case float64:
		if value == float64(int64(value)) {
			return fmt.Sprintf("%d", int64(value))
		}
		return fmt.Sprint(value)
	default:
		return fmt.Sprint(value)
	}
}

// FilterValueList returns the elements of a list filter value. A scalar is treated as a
// single-element list.
func FilterValueList(value any) []any {
	if value == nil {
		return []any{nil}
	}
	if list, ok := value.([]any); ok {
		return list
	}

	reflected := reflect.ValueOf(value)
	if reflected.Kind() == reflect.Slice && reflected.Type().Elem().Kind() != reflect.Uint8 {
		list := make([]any, 0, reflected.Len())
		for i := 0; i < reflected.Len(); i++ {
			list = append(list, reflected.Index(i).Interface())
		}
		return list
	}

	return []any{value}
}
