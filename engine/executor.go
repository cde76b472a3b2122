package engine

import (
	"context"
	"errors"
	"time"

	"hermannm.dev/datasetquery/cache"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/metrics"
	"hermannm.dev/devlog/log"
)

// Executor runs queries against dataset backends. Each query's full result is computed once,
// normalized and cached whole; pages are always sliced from the full result, so paging through a
// cached query never re-runs it.
type Executor struct {
	results *ResultCache
	metrics *metrics.Metrics
}

// NewExecutor creates an executor caching results in the given cache. A nil cache disables
// caching.
func NewExecutor(resultCache cache.Cache, metrics *metrics.Metrics) *Executor {
	executor := &Executor{metrics: metrics}
	if resultCache != nil {
		results := NewResultCache(resultCache, metrics)
		executor.results = &results
	}
	return executor
}

// Execute validates the query spec and returns the requested page of its result. With useCache and a
// dataset ID, the result is read from and stored in the cache.
//
// Returned errors are db.QueryConfigError for invalid specs, db.DatasetLoadError if a lazily
// loaded backend fails to load, and db.QueryExecutionError for failures in the backend. Cache
// failures are never returned.
func (executor *Executor) Execute(
	ctx context.Context,
	backend db.Backend,
	spec db.QuerySpec,
	datasetID string,
	useCache bool,
) (result db.QueryResult, err error) {
	startTime := time.Now()
	backendLabel := metrics.BackendCache
	defer func() {
		status := metrics.StatusSuccess
		if err != nil {
			status = metrics.StatusError
		}
		executor.metrics.ObserveQuery(
			spec.QueryType.String(), backendLabel, status, time.Since(startTime),
		)
	}()

	if err := spec.Validate(); err != nil {
		return db.QueryResult{}, err
	}

	var cacheKey string
	caching := useCache && datasetID != "" && executor.results != nil
	if caching {
		cacheKey = cache.Key(datasetID, spec)
		if cached, hit := executor.results.Get(ctx, cacheKey); hit {
			log.Debugf("query cache hit for key '%s'", cacheKey)
			return Paginate(cached, spec.Limit, spec.Offset), nil
		}
	}

	raw, err := db.RunQuery(ctx, backend, spec)
	if kind := backend.Kind(); kind.IsValid() {
		backendLabel = kind.String()
	} else {
		backendLabel = "unknown"
	}
	if err != nil {
		return db.QueryResult{}, classifyError(spec.QueryType, err)
	}

	full := db.EmptyQueryResult(spec.QueryType)
	full.Rows = NormalizeRows(raw.Rows)
	full.TotalCount = len(full.Rows)
	if len(full.Rows) != 0 && raw.Columns != nil {
		full.Columns = raw.Columns
	}

	if caching {
		executor.results.Put(ctx, cacheKey, full)
	}

	return Paginate(full, spec.Limit, spec.Offset), nil
}

// classifyError passes config and load errors through, and wraps everything else from the backend
// as an execution error.
func classifyError(queryType db.QueryType, err error) error {
	var configErr db.QueryConfigError
	if errors.As(err, &configErr) {
		return configErr
	}

	var loadErr db.DatasetLoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}

	var executionErr db.QueryExecutionError
	if errors.As(err, &executionErr) {
		return executionErr
	}

	return db.QueryExecutionError{QueryType: queryType, Cause: err}
}

// Paginate returns the page [offset, offset+limit) of the full result. TotalCount stays that of the
// full result.
func Paginate(full db.QueryResult, limit int, offset int) db.QueryResult {
	// Compared by subtraction, as offset+limit may overflow.
	start := min(offset, len(full.Rows))
	end := start + min(limit, len(full.Rows)-start)

	page := full
	page.Rows = full.Rows[start:end:end]
	page.HasMore = offset < full.TotalCount && limit < full.TotalCount-offset
	return page
}
