package duckdb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/duckdb"
)

const salesCSV = `category,amount,date,note
A,100.5,2024-01-15,=SUM(A1:A2)
A,150.75,2024-01-20,plain
A,250.25,2024-02-03,
B,200.0,2024-02-10,-negative
B,300.0,2024-03-01,@mention
`

func loadDataset(t *testing.T, data string) *duckdb.Dataset {
	t.Helper()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "dataset's file.csv")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	engine, err := duckdb.Open()
	require.NoError(t, err)

	rowCount, err := engine.CountCSVRows(ctx, path)
	require.NoError(t, err)

	dataset, err := engine.MaterializeCSV(ctx, path, rowCount)
	require.NoError(t, err)
	t.Cleanup(func() { dataset.Close() })

	return dataset
}

func TestCountAndMaterialize(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	assert.Equal(t, 5, dataset.RowCount())
	assert.Equal(t, db.BackendDuckDB, dataset.Kind())
}

func TestAggregateSumByCategory(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Aggregate(context.Background(), nil, db.GroupBySpec{
		Fields:     []string{"category"},
		Aggregates: []db.AggregateSpec{{Field: "amount", Function: db.AggregateSum}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "amount_sum"}, result.Columns)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "A", result.Rows[0]["category"])
	assert.InDelta(t, 501.5, result.Rows[0]["amount_sum"], 1e-9)
	assert.Equal(t, "B", result.Rows[1]["category"])
	assert.InDelta(t, 500.0, result.Rows[1]["amount_sum"], 1e-9)
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
}

func TestFilterContainsAndIn(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Filter(context.Background(), []db.FilterSpec{
		{Field: "note", Operator: db.OperatorContains, Value: "PLAIN"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)

	result, err = dataset.Filter(context.Background(), []db.FilterSpec{
		{Field: "amount", Operator: db.OperatorIn, Value: []any{100.5, 300.0}},
	})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
}

func TestMaterializeSanitizesTextColumns(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Filter(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 5)

	assert.Equal(t, `'=SUM(A1:A2)`, result.Rows[0]["note"])
	assert.Equal(t, "plain", result.Rows[1]["note"])
	assert.Nil(t, result.Rows[2]["note"])
	assert.Equal(t, "'-negative", result.Rows[3]["note"])
	assert.Equal(t, "'@mention", result.Rows[4]["note"])
}

func TestDateColumnsScanAsDate(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Filter(context.Background(), nil)
	require.NoError(t, err)

	date, ok := result.Rows[0]["date"].(db.Date)
	require.True(t, ok, "expected db.Date, got %T", result.Rows[0]["date"])
	assert.Equal(t, "2024-01-15", date.String())
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
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "2024-01-01", result.Rows[0]["date"])
	assert.Equal(t, "2024-02-01", result.Rows[1]["date"])
	assert.Equal(t, "2024-03-01", result.Rows[2]["date"])
	assert.InDelta(t, 251.25, result.Rows[0]["amount_sum"], 1e-9)
}

func TestTrendWithUnparseableDates(t *testing.T) {
	dataset := loadDataset(t, "when,value\n2024-01-03,1\nsoon,2\n2024-01-08,3\n")

	result, err := dataset.Trend(context.Background(), nil, db.TrendSpec{
		DateField:         "when",
		ValueField:        "value",
		Interval:          db.DateIntervalWeek,
		AggregateFunction: db.AggregateCount,
	})
	require.NoError(t, err)

	require.Len(t, result.Rows, 3)
	assert.Equal(t, "2024-01-01", result.Rows[0]["when"])
	assert.Equal(t, "2024-01-08", result.Rows[1]["when"])
	assert.Nil(t, result.Rows[2]["when"])
}

func TestComparePercentageSumsTo100(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	result, err := dataset.Compare(
		context.Background(),
		[]db.FilterSpec{{Field: "amount", Operator: db.OperatorGreater, Value: 0}},
		db.CompareSpec{
			GroupField:        "category",
			ValueField:        "amount",
			AggregateFunction: db.AggregateSum,
			ComparisonType:    db.ComparisonPercentage,
		},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"category", "amount_sum", "percentage"}, result.Columns)
	require.Len(t, result.Rows, 2)

	total := 0.0
	for _, row := range result.Rows {
		total += row["percentage"].(float64)
	}
	assert.InDelta(t, 100, total, 0.5)
	assert.InDelta(t, 50.07, result.Rows[0]["percentage"], 1e-9)
}

func TestCorrelate(t *testing.T) {
	dataset := loadDataset(t, "x,y\n1,2\n2,4\n3,6\n4,8.5\n")

	result, err := dataset.Correlate(context.Background(), nil, db.CorrelateSpec{
		FieldA: "x",
		FieldB: "y",
		Method: "pearson",
	})
	require.NoError(t, err)

	assert.Equal(t, db.CorrelationColumns, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "pearson", result.Rows[0]["method"])
	assert.InDelta(t, 0.9984, result.Rows[0]["correlation"], 1e-9)
}

func TestUnknownColumnFails(t *testing.T) {
	dataset := loadDataset(t, salesCSV)

	_, err := dataset.Filter(context.Background(), []db.FilterSpec{
		{Field: "missing", Operator: db.OperatorEqual, Value: "A"},
	})
	assert.Error(t, err)
}

func TestQuoteIdentifierEscapesQuotes(t *testing.T) {
	quoted, err := duckdb.Dialect{}.QuoteIdentifier(`weird "name"`)
	require.NoError(t, err)
	assert.Equal(t, `"weird ""name"""`, quoted)
}
