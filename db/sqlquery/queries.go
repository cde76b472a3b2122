package sqlquery

import (
	"fmt"

	"hermannm.dev/datasetquery/db"
	"hermannm.dev/enumnames"
)

var aggregateTemplates = enumnames.NewMap(map[db.AggregateFunction]string{
	db.AggregateSum:      "SUM(%s)",
	db.AggregateAverage:  "AVG(%s)",
	db.AggregateMin:      "MIN(%s)",
	db.AggregateMax:      "MAX(%s)",
	db.AggregateCount:    "COUNT(%s)",
	db.AggregateDistinct: "COUNT(DISTINCT %s)",
})

func (builder *QueryBuilder) aggregateExpression(
	function db.AggregateFunction,
	field string,
) string {
	template, ok := aggregateTemplates.GetName(function)
	if !ok {
		builder.setErr(db.NewQueryConfigError("invalid aggregate function on '%s'", field))
		return ""
	}
	return fmt.Sprintf(template, builder.QuoteIdentifier(field))
}

// DropTableQuery drops the given table.
func DropTableQuery(dialect Dialect, table string) (Query, error) {
	builder := NewQueryBuilder(dialect)

	builder.WriteString("DROP TABLE ")
	builder.WriteIdentifier(table)

	return builder.Build()
}

// FilterQuery selects all columns of the rows matching the filters.
func FilterQuery(dialect Dialect, table string, filters []db.FilterSpec) (Query, error) {
	builder := NewQueryBuilder(dialect)

	builder.WriteString("SELECT * FROM ")
	builder.WriteIdentifier(table)
	builder.WriteWhere(filters)

	return builder.Build()
}

// AggregateQuery groups the filtered rows by the group fields, with one aggregate column per
// aggregate spec. Groups are ordered by the group fields, for stable pagination.
func AggregateQuery(
	dialect Dialect,
	table string,
	filters []db.FilterSpec,
	groupBy db.GroupBySpec,
) (Query, error) {
	builder := NewQueryBuilder(dialect)

	builder.WriteString("SELECT ")
	for _, field := range groupBy.Fields {
		builder.WriteIdentifier(field)
		builder.WriteString(", ")
	}
	for i, aggregate := range groupBy.Aggregates {
		if i != 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(builder.aggregateExpression(aggregate.Function, aggregate.Field))
		builder.WriteString(" AS ")
		builder.WriteIdentifier(aggregate.OutputName())
	}

	builder.WriteString(" FROM ")
	builder.WriteIdentifier(table)
	builder.WriteWhere(filters)

	if len(groupBy.Fields) != 0 {
		builder.WriteString(" GROUP BY ")
		builder.writeIdentifierList(groupBy.Fields)
		builder.WriteString(" ORDER BY ")
		builder.writeIdentifierList(groupBy.Fields)
	}

	return builder.Build()
}

// TrendQuery aggregates the value field per date period. Periods are rendered as YYYY-MM-DD and
// ordered ascending, with rows whose date could not be parsed collected in a final NULL period.
func TrendQuery(
	dialect Dialect,
	table string,
	filters []db.FilterSpec,
	trend db.TrendSpec,
) (Query, error) {
	builder := NewQueryBuilder(dialect)

	period, err := dialect.TruncateDate(builder.QuoteIdentifier(trend.DateField), trend.Interval)
	if err != nil {
		return Query{}, db.NewQueryConfigError("invalid trend interval: %v", err)
	}

	builder.WriteString("SELECT ")
	builder.WriteString(period)
	builder.WriteString(" AS ")
	builder.WriteIdentifier(trend.DateField)
	builder.WriteString(", ")
	builder.WriteString(builder.aggregateExpression(trend.AggregateFunction, trend.ValueField))
	builder.WriteString(" AS ")
	builder.WriteIdentifier(db.AggregateColumnName(trend.ValueField, trend.AggregateFunction))

	builder.WriteString(" FROM ")
	builder.WriteIdentifier(table)
	builder.WriteWhere(filters)

	builder.WriteString(" GROUP BY ")
	builder.WriteString(period)
	builder.WriteString(" ORDER BY ")
	builder.WriteString(period)
	builder.WriteString(" ASC NULLS LAST")

	return builder.Build()
}

// CompareQuery aggregates the value field per group. With percentage comparison, each group's
// share of the aggregate over all filtered rows is added, rounded to 2 decimals, and NULL when the
// total is zero.
func CompareQuery(
	dialect Dialect,
	table string,
	filters []db.FilterSpec,
	compare db.CompareSpec,
) (Query, error) {
	builder := NewQueryBuilder(dialect)

	aggregate := builder.aggregateExpression(compare.AggregateFunction, compare.ValueField)

	builder.WriteString("SELECT ")
	builder.WriteIdentifier(compare.GroupField)
	builder.WriteString(", ")
	builder.WriteString(aggregate)
	builder.WriteString(" AS ")
	builder.WriteIdentifier(db.AggregateColumnName(compare.ValueField, compare.AggregateFunction))

	if compare.ComparisonType == db.ComparisonPercentage {
		builder.WriteString(", round(100 * ")
		builder.WriteString(dialect.CastToFloat(aggregate))
		builder.WriteString(" / ")

		// Grand total over the same filtered rows
		total := NewQueryBuilder(dialect)
		total.WriteString("(SELECT ")
		total.WriteString(aggregate)
		total.WriteString(" FROM ")
		total.WriteIdentifier(table)
		total.WriteWhere(filters)
		total.WriteByte(')')
		builder.writeSubquery(total, func(subquery string) string {
			return dialect.NullIf(dialect.CastToFloat(subquery), "0")
		})

		builder.WriteString(", 2) AS ")
		builder.WriteIdentifier(db.PercentageColumn)
	}

	builder.WriteString(" FROM ")
	builder.WriteIdentifier(table)
	builder.WriteWhere(filters)

	builder.WriteString(" GROUP BY ")
	builder.WriteIdentifier(compare.GroupField)
	builder.WriteString(" ORDER BY ")
	builder.WriteIdentifier(compare.GroupField)

	return builder.Build()
}

// CorrelateQuery computes the Pearson correlation of the two fields cast to float, rounded to 4
// decimals, as a single column named "correlation".
func CorrelateQuery(
	dialect Dialect,
	table string,
	filters []db.FilterSpec,
	correlate db.CorrelateSpec,
) (Query, error) {
	builder := NewQueryBuilder(dialect)

	builder.WriteString("SELECT round(corr(")
	builder.WriteString(dialect.CastToFloat(builder.QuoteIdentifier(correlate.FieldA)))
	builder.WriteString(", ")
	builder.WriteString(dialect.CastToFloat(builder.QuoteIdentifier(correlate.FieldB)))
	builder.WriteString("), 4) AS ")
	builder.WriteIdentifier(db.CorrelationColumn)

	builder.WriteString(" FROM ")
	builder.WriteIdentifier(table)
	builder.WriteWhere(filters)

	return builder.Build()
}

// writeSubquery splices the SQL of another builder (wrapped by the given function) into this one,
// taking over its params and error. Its placeholders must come at this point in the query.
func (builder *QueryBuilder) writeSubquery(subquery *QueryBuilder, wrap func(string) string) {
	if subquery.err != nil {
		builder.setErr(subquery.err)
		return
	}

	builder.WriteString(wrap(subquery.String()))
	builder.params = append(builder.params, subquery.params...)
}

func (builder *QueryBuilder) writeIdentifierList(identifiers []string) {
	for i, identifier := range identifiers {
		if i != 0 {
			builder.WriteString(", ")
		}
		builder.WriteIdentifier(identifier)
	}
}
