package dataframe_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/datasetquery/csv"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/dataframe"
)

const salesCSV = `category,amount,date,note
A,100.5,2024-01-15,=SUM(A1:A2)
A,150.75,2024-01-20,plain
A,250.25,2024-02-03,
B,200.0,2024-02-10,-negative
B,300.0,not a date,@mention
`

func loadDataset(t *testing.T, data string) *dataframe.Dataset {
	t.Helper()

	reader, err := csv.NewReader(strings.NewReader(data), false)
	require.NoError(t, err)

	dataset, err := dataframe.Load(reader, 0, 5)
	require.NoError(t, err)
	return dataset
}

func TestAggregateSumByCategory(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Aggregate(context.Background(), nil, db.GroupBySpec{
		Fields:     []string{"category"},
		Aggregates: []db.AggregateSpec{{Field: "amount", Function: db.AggregateSum}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "amount_sum"}, result.Columns)
	assert.Equal(t, []db.Row{
		{"category": "A", "amount_sum": 501.5},
		{"category": "B", "amount_sum": 500.0},
	}, result.Rows)
}

func TestAggregateFunctions(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Aggregate(context.Background(), nil, db.GroupBySpec{
		Fields: []string{"category"},
		Aggregates: []db.AggregateSpec{
			{Field: "amount", Function: db.AggregateAverage},
			{Field: "amount", Function: db.AggregateMin},
			{Field: "amount", Function: db.AggregateMax},
			{Field: "note", Function: db.AggregateCount},
			{Field: "category", Function: db.AggregateDistinct, Alias: "categories"},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)

	a := result.Rows[0]
	assert.InDelta(t, 501.5/3, a["amount_avg"], 1e-9)
	assert.Equal(t, 100.5, a["amount_min"])
	assert.Equal(t, 250.25, a["amount_max"])
	assert.Equal(t, 2, a["note_count"])
	assert.Equal(t, 1, a["categories"])
}

func TestAggregateSumOnTextColumnFails(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	_, err := dataset.Aggregate(context.Background(), nil, db.GroupBySpec{
		Aggregates: []db.AggregateSpec{{Field: "category", Function: db.AggregateSum}},
	})
	assert.Error(t, err)
}

func TestFilterEqual(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Filter(context.Background(), []db.FilterSpec{
		{Field: "category", Operator: db.OperatorEqual, Value: "A"},
	})
	require.NoError(t, err)

	require.Len(t, result.Rows, 3)
	for _, row := range result.Rows {
		assert.Equal(t, "A", row["category"])
	}
	assert.Equal(t, []string{"category", "amount", "date", "note"}, result.Columns)
}

func TestFilterOperators(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	testCases := []struct {
		name     string
		filters  []db.FilterSpec
		expected int
	}{
		{"gt", []db.FilterSpec{{Field: "amount", Operator: db.OperatorGreater, Value: 200.0}}, 2},
		{"gte", []db.FilterSpec{{Field: "amount", Operator: db.OperatorGreaterOrEqual, Value: 200.0}}, 3},
		{"lt", []db.FilterSpec{{Field: "amount", Operator: db.OperatorLess, Value: 150.75}}, 1},
		{"lte", []db.FilterSpec{{Field: "amount", Operator: db.OperatorLessOrEqual, Value: "150.75"}}, 2},
		{"ne", []db.FilterSpec{{Field: "category", Operator: db.OperatorNotEqual, Value: "A"}}, 2},
		{"contains", []db.FilterSpec{{Field: "note", Operator: db.OperatorContains, Value: "PLAIN"}}, 1},
		{"contains number", []db.FilterSpec{{Field: "amount", Operator: db.OperatorContains, Value: "0.7"}}, 1},
		{"in", []db.FilterSpec{{Field: "amount", Operator: db.OperatorIn, Value: []any{100.5, 300.0}}}, 2},
		{"in scalar", []db.FilterSpec{{Field: "category", Operator: db.OperatorIn, Value: "B"}}, 2},
		{
			"and",
			[]db.FilterSpec{
				{Field: "category", Operator: db.OperatorEqual, Value: "A"},
				{Field: "amount", Operator: db.OperatorGreater, Value: 120.0},
			},
			2,
		},
		{"blank never matches", []db.FilterSpec{{Field: "note", Operator: db.OperatorNotEqual, Value: "x"}}, 4},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			result, err := dataset.Filter(context.Background(), testCase.filters)
			require.NoError(t, err)
			assert.Len(t, result.Rows, testCase.expected)
		})
	}
}

func TestFilterUnknownColumnFails(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	_, err := dataset.Filter(context.Background(), []db.FilterSpec{
		{Field: "missing", Operator: db.OperatorEqual, Value: "A"},
	})
	assert.Error(t, err)
}

func TestLoadSanitizesTextCells(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Filter(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, `'=SUM(A1:A2)`, result.Rows[0]["note"])
	assert.Equal(t, "plain", result.Rows[1]["note"])
	assert.Nil(t, result.Rows[2]["note"])
	assert.Equal(t, "'-negative", result.Rows[3]["note"])
	assert.Equal(t, "'@mention", result.Rows[4]["note"])
}

func TestLoadDoesNotSanitizeNumbers(t *testing.T) {
	dataset := loadDataset(t, "id,delta\n1,-5\n2,+3\n")

	result, err := dataset.Filter(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, -5, result.Rows[0]["delta"])
	assert.Equal(t, 3, result.Rows[1]["delta"])
}

func TestTrendByMonth(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Trend(context.Background(), nil, db.TrendSpec{
		DateField:         "date",
		ValueField:        "amount",
		Interval:          db.DateIntervalMonth,
		AggregateFunction: db.AggregateSum,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "amount_sum"}, result.Columns)
	assert.Equal(t, []db.Row{
		{"date": "2024-01-01", "amount_sum": 251.25},
		{"date": "2024-02-01", "amount_sum": 450.25},
		{"date": nil, "amount_sum": 300.0},
	}, result.Rows)
}

func TestTrendByWeekStartsOnMonday(t *testing.T) {
	dataset := loadDataset(t, "date,value\n2024-01-03,1\n2024-01-07,2\n2024-01-08,3\n")

	result, err := dataset.Trend(context.Background(), nil, db.TrendSpec{
		DateField:         "date",
		ValueField:        "value",
		Interval:          db.DateIntervalWeek,
		AggregateFunction: db.AggregateCount,
	})
	require.NoError(t, err)

	assert.Equal(t, []db.Row{
		{"date": "2024-01-01", "value_count": 2},
		{"date": "2024-01-08", "value_count": 1},
	}, result.Rows)
}

func TestComparePercentageSumsTo100(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Compare(context.Background(), nil, db.CompareSpec{
		GroupField:        "category",
		ValueField:        "amount",
		AggregateFunction: db.AggregateSum,
		ComparisonType:    db.ComparisonPercentage,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "amount_sum", "percentage"}, result.Columns)
	require.Len(t, result.Rows, 2)

	total := 0.0
	for _, row := range result.Rows {
		total += row["percentage"].(float64)
	}
	assert.InDelta(t, 100, total, 0.5)
	assert.Equal(t, 50.07, result.Rows[0]["percentage"])
	assert.Equal(t, 49.93, result.Rows[1]["percentage"])
}

func TestComparePercentageWithZeroTotal(t *testing.T) {
	dataset := loadDataset(t, "group,value\na,0\nb,0\n")

	result, err := dataset.Compare(context.Background(), nil, db.CompareSpec{
		GroupField:        "group",
		ValueField:        "value",
		AggregateFunction: db.AggregateSum,
		ComparisonType:    db.ComparisonPercentage,
	})
	require.NoError(t, err)

	for _, row := range result.Rows {
		assert.Nil(t, row["percentage"])
	}
}

func TestCorrelate(t *testing.T) {
	dataset := loadDataset(t, "x,y,z\n1,2,5\n2,4,5\n3,6,5\n4,8.5,5\n")

	result, err := dataset.Correlate(context.Background(), nil, db.CorrelateSpec{
		FieldA: "x",
		FieldB: "y",
		Method: "spearman",
	})
	require.NoError(t, err)

	require.Len(t, result.Rows, 1)
	row := result.Rows[0]
	assert.Equal(t, "x", row["field_a"])
	assert.Equal(t, "y", row["field_b"])
	assert.Equal(t, "spearman", row["method"])
	assert.InDelta(t, 0.9984, row["correlation"], 1e-9)

	constant, err := dataset.Correlate(context.Background(), nil, db.CorrelateSpec{
		FieldA: "x",
		FieldB: "z",
		Method: "pearson",
	})
	require.NoError(t, err)
	assert.Nil(t, constant.Rows[0]["correlation"])
}

func TestCorrelateNonNumericFails(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	_, err := dataset.Correlate(context.Background(), nil, db.CorrelateSpec{
		FieldA: "amount",
		FieldB: "category",
		Method: "pearson",
	})
	assert.Error(t, err)
}

func TestBlankCounts(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	assert.Equal(t, []int{0, 0, 0, 1}, dataset.BlankCounts())
	assert.Equal(t, 5, dataset.LoadedRowCount())
}
