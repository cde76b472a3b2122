package db

import (
	"context"

	"hermannm.dev/enumnames"
)

// Backend is a dataset loaded into an engine that can run the five query types against it.
// Implementations must treat every field name and filter value as untrusted input.
//
// Each query method returns the full result; pagination is applied by the caller. Errors from a
// backend rejecting a query (unknown column, type mismatch) are returned as-is, and classified by
// the caller.
type Backend interface {
	Kind() BackendKind
	RowCount() int

	Filter(ctx context.Context, filters []FilterSpec) (RawResult, error)
	Aggregate(ctx context.Context, filters []FilterSpec, groupBy GroupBySpec) (RawResult, error)
	Trend(ctx context.Context, filters []FilterSpec, trend TrendSpec) (RawResult, error)
	Compare(ctx context.Context, filters []FilterSpec, compare CompareSpec) (RawResult, error)
	Correlate(ctx context.Context, filters []FilterSpec, correlate CorrelateSpec) (RawResult, error)

	// Close releases the engine resources held by the dataset. Safe to call more than once.
	Close() error
}

type BackendKind uint8

const (
	BackendDataFrame BackendKind = iota + 1
	BackendDuckDB
	BackendClickHouse
)

var backendKindNames = enumnames.NewMap(map[BackendKind]string{
	BackendDataFrame:  "dataframe",
	BackendDuckDB:     "duckdb",
	BackendClickHouse: "clickhouse",
})

func (kind BackendKind) IsValid() bool {
	_, ok := backendKindNames.GetName(kind)
	return ok
}

func (kind BackendKind) String() string {
	return backendKindNames.GetNameOrFallback(kind, "INVALID_BACKEND")
}

func (kind BackendKind) MarshalJSON() ([]byte, error) {
	return backendKindNames.MarshalToNameJSON(kind)
}

func (kind *BackendKind) UnmarshalJSON(bytes []byte) error {
	return backendKindNames.UnmarshalFromNameJSON(bytes, kind)
}

// IsColumnar reports whether the backend is one of the SQL engines used for large datasets.
func (kind BackendKind) IsColumnar() bool {
	return kind == BackendDuckDB || kind == BackendClickHouse
}

// RunQuery dispatches the query spec to the backend method for its query type. It must already be
// validated.
func RunQuery(ctx context.Context, backend Backend, spec QuerySpec) (RawResult, error) {
	switch spec.QueryType {
	case QueryTypeFilter:
		return backend.Filter(ctx, spec.Filters)
	case QueryTypeAggregate:
		return backend.Aggregate(ctx, spec.Filters, *spec.GroupBy)
	case QueryTypeTrend:
		return backend.Trend(ctx, spec.Filters, *spec.Trend)
	case QueryTypeCompare:
		return backend.Compare(ctx, spec.Filters, *spec.Compare)
	case QueryTypeCorrelate:
		return backend.Correlate(ctx, spec.Filters, *spec.Correlate)
	default:
		return RawResult{}, NewQueryConfigError("unknown query_type %d", spec.QueryType)
	}
}
