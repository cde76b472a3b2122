package db

import "time"

// Row maps column names to cell values. Column order is carried separately, in RawResult.Columns
// and QueryResult.Columns.
type Row map[string]any

// RawResult is what a Backend returns before normalization and pagination.
type RawResult struct {
	Columns []string
	Rows    []Row
}

type QueryResult struct {
	Rows       []Row     `json:"rows"`
	Columns    []string  `json:"columns"`
	TotalCount int       `json:"total_count"`
	HasMore    bool      `json:"has_more"`
	QueryType  QueryType `json:"query_type"`
}

// EmptyQueryResult returns a result with non-nil rows and columns, so that it serializes to empty
// JSON arrays rather than null.
func EmptyQueryResult(queryType QueryType) QueryResult {
	return QueryResult{Rows: []Row{}, Columns: []string{}, QueryType: queryType}
}

// Date is a calendar date without time of day, as produced by DATE columns. It is kept distinct
// from time.Time so that it can be rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (date Date) String() string {
	return date.Format(time.DateOnly)
}

// Column names of a correlate result.
const (
	CorrelationFieldAColumn = "field_a"
	CorrelationFieldBColumn = "field_b"
	CorrelationMethodColumn = "method"
	CorrelationColumn       = "correlation"
)

var CorrelationColumns = []string{
	CorrelationFieldAColumn,
	CorrelationFieldBColumn,
	CorrelationMethodColumn,
	CorrelationColumn,
}

// NewCorrelationResult builds the single-row result of a correlate query. A nil coefficient means
// it could not be computed (fewer than 2 complete pairs, or zero variance).
func NewCorrelationResult(spec CorrelateSpec, coefficient any) RawResult {
	return RawResult{
		Columns: CorrelationColumns,
		Rows: []Row{
			{
				CorrelationFieldAColumn: spec.FieldA,
				CorrelationFieldBColumn: spec.FieldB,
				CorrelationMethodColumn: spec.Method,
				CorrelationColumn:       coefficient,
			},
		},
	}
}
