package engine

import (
	"context"
	"encoding/json"
	"time"

	"hermannm.dev/datasetquery/cache"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/metrics"
	"hermannm.dev/devlog/log"
)

// ResultCacheTTL applies to every cached query result.
const ResultCacheTTL = 5 * time.Minute

// ResultCache stores full, unpaginated query results. All cache failures are logged and absorbed:
// a failed read is a miss, and a failed write is a no-op.
type ResultCache struct {
	cache   cache.Cache
	metrics *metrics.Metrics
}

// cachedResult is the stored form of a full result. has_more depends on the requested page, so it
// is recomputed on every read.
type cachedResult struct {
	Rows       []db.Row     `json:"rows"`
	Columns    []string     `json:"columns"`
	TotalCount int          `json:"total_count"`
	QueryType  db.QueryType `json:"query_type"`
}

func NewResultCache(cache cache.Cache, metrics *metrics.Metrics) ResultCache {
	return ResultCache{cache: cache, metrics: metrics}
}

func (results ResultCache) Get(ctx context.Context, key string) (db.QueryResult, bool) {
	value, found, err := results.cache.Get(ctx, key)
	if err != nil {
		log.Warnf("query cache read failed for key '%s', treating as miss: %v", key, err)
		results.metrics.ObserveCacheRequest(metrics.CacheError)
		return db.QueryResult{}, false
	}
	if !found {
		results.metrics.ObserveCacheRequest(metrics.CacheMiss)
		return db.QueryResult{}, false
	}

	var cached cachedResult
	if err := json.Unmarshal(value, &cached); err != nil {
		log.Warnf("failed to deserialize cached query result for key '%s': %v", key, err)
		results.metrics.ObserveCacheRequest(metrics.CacheError)
		return db.QueryResult{}, false
	}

	results.metrics.ObserveCacheRequest(metrics.CacheHit)

	result := db.QueryResult{
		Rows:       cached.Rows,
		Columns:    cached.Columns,
		TotalCount: cached.TotalCount,
		QueryType:  cached.QueryType,
	}
	if result.Rows == nil {
		result.Rows = []db.Row{}
	}
	if result.Columns == nil {
		result.Columns = []string{}
	}
	return result, true
}

func (results ResultCache) Put(ctx context.Context, key string, result db.QueryResult) {
	value, err := json.Marshal(cachedResult{
		Rows:       result.Rows,
		Columns:    result.Columns,
		TotalCount: result.TotalCount,
		QueryType:  result.QueryType,
	})
	if err != nil {
		log.Warnf("failed to serialize query result for key '%s', not caching: %v", key, err)
		return
	}

	if err := results.cache.SetEx(ctx, key, ResultCacheTTL, value); err != nil {
		log.Warnf("query cache write failed for key '%s': %v", key, err)
	}
}
