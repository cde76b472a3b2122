package db

import (
	"fmt"

	"hermannm.dev/wrap"
)

// QueryConfigError is returned when a QuerySpec is malformed, e.g. an aggregate query without
// group_by. It is the caller's fault, and retrying the same spec will fail the same way.
type QueryConfigError struct {
	Message string
}

func NewQueryConfigError(format string, args ...any) QueryConfigError {
	return QueryConfigError{Message: fmt.Sprintf(format, args...)}
}

func (err QueryConfigError) Error() string {
	return "invalid query: " + err.Message
}

// QueryExecutionError wraps an error from the backend engine that rejected a generated query.
// The backend's own message is kept in the error chain.
type QueryExecutionError struct {
	QueryType QueryType
	Cause     error
}

func (err QueryExecutionError) Error() string {
	return wrap.Errorf(err.Cause, "%s query failed", err.QueryType).Error()
}

func (err QueryExecutionError) Unwrap() error {
	return err.Cause
}

// DatasetLoadError is returned when a dataset could not be downloaded, decoded or materialized
// into a backend.
type DatasetLoadError struct {
	DatasetKey string
	Cause      error
}

func (err DatasetLoadError) Error() string {
	return wrap.Errorf(err.Cause, "failed to load dataset '%s'", err.DatasetKey).Error()
}

func (err DatasetLoadError) Unwrap() error {
	return err.Cause
}
