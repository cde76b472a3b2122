package engine_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hermannm.dev/datasetquery/cache"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/engine"
)

// fakeBackend returns a fixed filter result, and counts how often it is queried.
type fakeBackend struct {
	result db.RawResult
	err    error
	calls  int
}

func newFakeBackend(rowCount int) *fakeBackend {
	backend := &fakeBackend{result: db.RawResult{Columns: []string{"id", "name"}}}
	for i := 0; i < rowCount; i++ {
		backend.result.Rows = append(
			backend.result.Rows,
			db.Row{"id": int64(i), "name": fmt.Sprintf("row %d", i)},
		)
	}
	return backend
}

func (backend *fakeBackend) run() (db.RawResult, error) {
	backend.calls++
	return backend.result, backend.err
}

func (backend *fakeBackend) Kind() db.BackendKind { return db.BackendDataFrame }
func (backend *fakeBackend) RowCount() int        { return len(backend.result.Rows) }
func (backend *fakeBackend) Close() error         { return nil }

func (backend *fakeBackend) Filter(context.Context, []db.FilterSpec) (db.RawResult, error) {
	return backend.run()
}

func (backend *fakeBackend) Aggregate(
	context.Context, []db.FilterSpec, db.GroupBySpec,
) (db.RawResult, error) {
	return backend.run()
}

func (backend *fakeBackend) Trend(context.Context, []db.FilterSpec, db.TrendSpec) (db.RawResult, error) {
	return backend.run()
}

func (backend *fakeBackend) Compare(
	context.Context, []db.FilterSpec, db.CompareSpec,
) (db.RawResult, error) {
	return backend.run()
}

func (backend *fakeBackend) Correlate(
	context.Context, []db.FilterSpec, db.CorrelateSpec,
) (db.RawResult, error) {
	return backend.run()
}

// failingCache fails every call.
type failingCache struct{}

func (failingCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("cache unavailable")
}

func (failingCache) SetEx(context.Context, string, time.Duration, []byte) error {
	return errors.New("cache unavailable")
}

func filterSpec(limit int, offset int) db.QuerySpec {
	return db.QuerySpec{QueryType: db.QueryTypeFilter, Limit: limit, Offset: offset}
}

func newExecutor() *engine.Executor {
	return engine.NewExecutor(cache.NewMemoryCache(100, engine.ResultCacheTTL), nil)
}

func TestPaginationStability(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(25)
	executor := newExecutor()

	uncached, err := executor.Execute(ctx, backend, filterSpec(1000, 0), "", false)
	require.NoError(t, err)
	require.Equal(t, 1, backend.calls)

	firstPage, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", true)
	require.NoError(t, err)
	require.Equal(t, 2, backend.calls)

	secondPage, err := executor.Execute(ctx, backend, filterSpec(10, 10), "dataset-1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, backend.calls, "second page should be served from cache")

	assert.Len(t, firstPage.Rows, 10)
	assert.Len(t, secondPage.Rows, 10)
	assert.Equal(t, uncached.Rows[:20], append(firstPage.Rows, secondPage.Rows...))
	assert.Equal(t, 25, firstPage.TotalCount)
	assert.Equal(t, 25, secondPage.TotalCount)
	assert.True(t, firstPage.HasMore)
	assert.True(t, secondPage.HasMore)

	lastPage, err := executor.Execute(ctx, backend, filterSpec(10, 20), "dataset-1", true)
	require.NoError(t, err)
	assert.Len(t, lastPage.Rows, 5)
	assert.False(t, lastPage.HasMore)
	assert.Equal(t, 2, backend.calls)
}

func TestCacheHitMatchesFreshResult(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(3)
	executor := newExecutor()

	fresh, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", true)
	require.NoError(t, err)

	cached, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", true)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, fresh, cached)
	assert.Equal(t, []string{"id", "name"}, cached.Columns)
	assert.Equal(t, 0.0, cached.Rows[0]["id"])
}

func TestOffsetPastEnd(t *testing.T) {
	backend := newFakeBackend(5)

	result, err := newExecutor().Execute(
		context.Background(), backend, filterSpec(10, 50), "dataset-1", true,
	)
	require.NoError(t, err)

	assert.Empty(t, result.Rows)
	assert.NotNil(t, result.Rows)
	assert.Equal(t, 5, result.TotalCount)
	assert.False(t, result.HasMore)
}

func TestEmptyResultHasEmptyColumns(t *testing.T) {
	backend := newFakeBackend(0)

	result, err := newExecutor().Execute(context.Background(), backend, filterSpec(10, 0), "", false)
	require.NoError(t, err)

	assert.Equal(t, []string{}, result.Columns)
	assert.Equal(t, []db.Row{}, result.Rows)
	assert.Equal(t, 0, result.TotalCount)
	assert.Equal(t, db.QueryTypeFilter, result.QueryType)
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(5)
	executor := newExecutor()

	for i := 0; i < 2; i++ {
		_, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", false)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, backend.calls)

	// Without a dataset ID, results cannot be cached either
	for i := 0; i < 2; i++ {
		_, err := executor.Execute(ctx, backend, filterSpec(10, 0), "", true)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, backend.calls)
}

func TestCacheFailuresFallBackToExecution(t *testing.T) {
	backend := newFakeBackend(5)
	executor := engine.NewExecutor(failingCache{}, nil)

	result, err := executor.Execute(context.Background(), backend, filterSpec(2, 0), "dataset-1", true)
	require.NoError(t, err)

	assert.Len(t, result.Rows, 2)
	assert.Equal(t, 5, result.TotalCount)
	assert.True(t, result.HasMore)
	assert.Equal(t, 1, backend.calls)
}

func TestMissingSubSpecIsConfigError(t *testing.T) {
	backend := newFakeBackend(5)

	_, err := newExecutor().Execute(
		context.Background(),
		backend,
		db.QuerySpec{QueryType: db.QueryTypeAggregate, Limit: 10},
		"dataset-1",
		true,
	)

	var configErr db.QueryConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, 0, backend.calls)
}

func TestBackendFailureIsExecutionError(t *testing.T) {
	backend := newFakeBackend(0)
	backend.err = errors.New(`Binder Error: Referenced column "missing" not found`)

	_, err := newExecutor().Execute(context.Background(), backend, filterSpec(10, 0), "dataset-1", true)

	var executionErr db.QueryExecutionError
	require.ErrorAs(t, err, &executionErr)
	assert.Equal(t, db.QueryTypeFilter, executionErr.QueryType)
	assert.Contains(t, err.Error(), `Referenced column "missing" not found`)
}

func TestBackendConfigErrorPassesThrough(t *testing.T) {
	backend := newFakeBackend(0)
	backend.err = db.NewQueryConfigError("blank column name")

	_, err := newExecutor().Execute(context.Background(), backend, filterSpec(10, 0), "", false)

	var configErr db.QueryConfigError
	require.ErrorAs(t, err, &configErr)

	var executionErr db.QueryExecutionError
	assert.False(t, errors.As(err, &executionErr))
}

func TestFailedQueriesAreNotCached(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend(3)
	backend.err = errors.New("transient")
	executor := newExecutor()

	_, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", true)
	require.Error(t, err)

	backend.err = nil
	result, err := executor.Execute(ctx, backend, filterSpec(10, 0), "dataset-1", true)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 3)
	assert.Equal(t, 2, backend.calls)
}

func TestPaginate(t *testing.T) {
	full := db.EmptyQueryResult(db.QueryTypeFilter)
	for i := 0; i < 7; i++ {
		full.Rows = append(full.Rows, db.Row{"i": float64(i)})
	}
	full.TotalCount = 7

	page := engine.Paginate(full, 3, 3)
	assert.Equal(t, []db.Row{{"i": 3.0}, {"i": 4.0}, {"i": 5.0}}, page.Rows)
	assert.True(t, page.HasMore)
	assert.Equal(t, 7, page.TotalCount)

	page = engine.Paginate(full, 3, 6)
	assert.Equal(t, []db.Row{{"i": 6.0}}, page.Rows)
	assert.False(t, page.HasMore)

	page = engine.Paginate(full, math.MaxInt, 1)
	assert.Len(t, page.Rows, 6)
	assert.Equal(t, db.Row{"i": 1.0}, page.Rows[0])
	assert.False(t, page.HasMore)

	page = engine.Paginate(full, math.MaxInt, math.MaxInt)
	assert.Empty(t, page.Rows)
	assert.False(t, page.HasMore)
}

func TestExecuteWithMaximalLimit(t *testing.T) {
	backend := newFakeBackend(3)

	spec := filterSpec(math.MaxInt, 1)
	result, err := newExecutor().Execute(context.Background(), backend, spec, "", false)
	require.NoError(t, err)
	assert.Len(t, result.Rows, 2)
	assert.Equal(t, 3, result.TotalCount)
	assert.False(t, result.HasMore)
}
