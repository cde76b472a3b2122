package sqlquery_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/sqlquery"
)

type testDialect struct{}

func (testDialect) QuoteIdentifier(identifier string) (string, error) {
	if strings.ContainsRune(identifier, '"') {
		return "", errors.New("contains quote")
	}
	return `"` + identifier + `"`, nil
}

func (testDialect) CastToString(expression string) string {
	return fmt.Sprintf("CAST(%s AS VARCHAR)", expression)
}

func (testDialect) CastToFloat(expression string) string {
	return fmt.Sprintf("CAST(%s AS DOUBLE)", expression)
}

func (testDialect) TruncateDate(expression string, interval db.DateInterval) (string, error) {
	if !interval.IsValid() {
		return "", errors.New("invalid interval")
	}
	return fmt.Sprintf("trunc('%s', %s)", interval, expression), nil
}

func (testDialect) NullIf(expression string, value string) string {
	return fmt.Sprintf("NULLIF(%s, %s)", expression, value)
}

var dialect testDialect

func TestFilterClauseEmpty(t *testing.T) {
	clause, params, err := sqlquery.BuildFilterClause(dialect, nil)
	require.NoError(t, err)
	assert.Empty(t, clause)
	assert.Empty(t, params)

	query, err := sqlquery.FilterQuery(dialect, "dataset", nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "dataset"`, query.SQL)
	assert.NotContains(t, query.SQL, "WHERE")
}

func TestFilterClauseOperators(t *testing.T) {
	testCases := []struct {
		operator       db.Operator
		value          any
		expectedClause string
		expectedParams []any
	}{
		{db.OperatorEqual, "A", `"col" = ?`, []any{"A"}},
		{db.OperatorNotEqual, "A", `"col" != ?`, []any{"A"}},
		{db.OperatorGreater, 5.0, `"col" > ?`, []any{5.0}},
		{db.OperatorLess, 5.0, `"col" < ?`, []any{5.0}},
		{db.OperatorGreaterOrEqual, 5.0, `"col" >= ?`, []any{5.0}},
		{db.OperatorLessOrEqual, 5.0, `"col" <= ?`, []any{5.0}},
		{db.OperatorContains, "FoO", `lower(CAST("col" AS VARCHAR)) LIKE ?`, []any{"%foo%"}},
		{db.OperatorContains, 5.0, `lower(CAST("col" AS VARCHAR)) LIKE ?`, []any{"%5%"}},
		{db.OperatorIn, []any{"a", "b", "c"}, `"col" IN (?, ?, ?)`, []any{"a", "b", "c"}},
		{db.OperatorIn, []string{"a", "b"}, `"col" IN (?, ?)`, []any{"a", "b"}},
		{db.OperatorIn, "a", `"col" IN (?)`, []any{"a"}},
	}

	for _, testCase := range testCases {
		t.Run(fmt.Sprintf("%s %v", testCase.operator, testCase.value), func(t *testing.T) {
			clause, params, err := sqlquery.BuildFilterClause(
				dialect,
				[]db.FilterSpec{{Field: "col", Operator: testCase.operator, Value: testCase.value}},
			)
			require.NoError(t, err)
			assert.Equal(t, testCase.expectedClause, clause)
			assert.Equal(t, testCase.expectedParams, params)
		})
	}
}

func TestFilterClauseJoinsWithAnd(t *testing.T) {
	clause, params, err := sqlquery.BuildFilterClause(dialect, []db.FilterSpec{
		{Field: "category", Operator: db.OperatorEqual, Value: "A"},
		{Field: "amount", Operator: db.OperatorGreater, Value: 100.0},
	})
	require.NoError(t, err)

	assert.Equal(t, `"category" = ? AND "amount" > ?`, clause)
	assert.Equal(t, []any{"A", 100.0}, params)
}

func TestFilterValuesAreNeverSplicedIntoQuery(t *testing.T) {
	injection := "x'; DROP TABLE dataset; --"

	query, err := sqlquery.FilterQuery(dialect, "dataset", []db.FilterSpec{
		{Field: "name", Operator: db.OperatorEqual, Value: injection},
		{Field: "name", Operator: db.OperatorContains, Value: injection},
		{Field: "name", Operator: db.OperatorIn, Value: []any{injection}},
	})
	require.NoError(t, err)

	assert.NotContains(t, query.SQL, "DROP")
	assert.Len(t, query.Params, 3)
}

func TestInvalidIdentifierIsConfigError(t *testing.T) {
	_, err := sqlquery.FilterQuery(dialect, "dataset", []db.FilterSpec{
		{Field: `bad"name`, Operator: db.OperatorEqual, Value: 1},
	})

	var configErr db.QueryConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestEmptyInListIsConfigError(t *testing.T) {
	_, _, err := sqlquery.BuildFilterClause(dialect, []db.FilterSpec{
		{Field: "col", Operator: db.OperatorIn, Value: []any{}},
	})

	var configErr db.QueryConfigError
	require.ErrorAs(t, err, &configErr)
}

func TestAggregateQuery(t *testing.T) {
	query, err := sqlquery.AggregateQuery(
		dialect,
		"dataset",
		[]db.FilterSpec{{Field: "region", Operator: db.OperatorEqual, Value: "north"}},
		db.GroupBySpec{
			Fields: []string{"category", "year"},
			Aggregates: []db.AggregateSpec{
				{Field: "amount", Function: db.AggregateSum},
				{Field: "customer", Function: db.AggregateDistinct, Alias: "customers"},
			},
		},
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		`SELECT "category", "year", SUM("amount") AS "amount_sum", `+
			`COUNT(DISTINCT "customer") AS "customers" FROM "dataset" WHERE "region" = ? `+
			`GROUP BY "category", "year" ORDER BY "category", "year"`,
		query.SQL,
	)
	assert.Equal(t, []any{"north"}, query.Params)
}

func TestAggregateQueryWithoutGroupFields(t *testing.T) {
	query, err := sqlquery.AggregateQuery(dialect, "dataset", nil, db.GroupBySpec{
		Aggregates: []db.AggregateSpec{{Field: "amount", Function: db.AggregateCount}},
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT("amount") AS "amount_count" FROM "dataset"`, query.SQL)
}

func TestTrendQuery(t *testing.T) {
	query, err := sqlquery.TrendQuery(dialect, "dataset", nil, db.TrendSpec{
		DateField:         "date",
		ValueField:        "amount",
		Interval:          db.DateIntervalMonth,
		AggregateFunction: db.AggregateAverage,
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		`SELECT trunc('month', "date") AS "date", AVG("amount") AS "amount_avg" FROM "dataset" `+
			`GROUP BY trunc('month', "date") ORDER BY trunc('month', "date") ASC NULLS LAST`,
		query.SQL,
	)
}

func TestComparePercentageQueryBindsSubqueryParamsFirst(t *testing.T) {
	query, err := sqlquery.CompareQuery(
		dialect,
		"dataset",
		[]db.FilterSpec{{Field: "year", Operator: db.OperatorEqual, Value: 2024.0}},
		db.CompareSpec{
			GroupField:        "category",
			ValueField:        "amount",
			AggregateFunction: db.AggregateSum,
			ComparisonType:    db.ComparisonPercentage,
		},
	)
	require.NoError(t, err)

	assert.Equal(
		t,
		`SELECT "category", SUM("amount") AS "amount_sum", `+
			`round(100 * CAST(SUM("amount") AS DOUBLE) / `+
			`NULLIF(CAST((SELECT SUM("amount") FROM "dataset" WHERE "year" = ?) AS DOUBLE), 0), 2) `+
			`AS "percentage" FROM "dataset" WHERE "year" = ? `+
			`GROUP BY "category" ORDER BY "category"`,
		query.SQL,
	)
	assert.Equal(t, []any{2024.0, 2024.0}, query.Params)
	assert.Equal(t, strings.Count(query.SQL, "?"), len(query.Params))
}

func TestCompareAbsoluteQuery(t *testing.T) {
	query, err := sqlquery.CompareQuery(dialect, "dataset", nil, db.CompareSpec{
		GroupField:        "category",
		ValueField:        "amount",
		AggregateFunction: db.AggregateMax,
		ComparisonType:    db.ComparisonAbsolute,
	})
	require.NoError(t, err)

	assert.NotContains(t, query.SQL, db.PercentageColumn)
	assert.Contains(t, query.SQL, `MAX("amount") AS "amount_max"`)
}

func TestCorrelateQuery(t *testing.T) {
	query, err := sqlquery.CorrelateQuery(dialect, "dataset", nil, db.CorrelateSpec{
		FieldA: "x",
		FieldB: "y",
		Method: "pearson",
	})
	require.NoError(t, err)

	assert.Equal(
		t,
		`SELECT round(corr(CAST("x" AS DOUBLE), CAST("y" AS DOUBLE)), 4) AS "correlation" `+
			`FROM "dataset"`,
		query.SQL,
	)
}

func TestDropTableQuery(t *testing.T) {
	query, err := sqlquery.DropTableQuery(dialect, "dataset")
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE "dataset"`, query.SQL)

	_, err = sqlquery.DropTableQuery(dialect, `bad"table`)
	var configErr db.QueryConfigError
	assert.ErrorAs(t, err, &configErr)
}
