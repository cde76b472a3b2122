package db

import "fmt"

type QuerySpec struct {
	QueryType QueryType      `json:"query_type"`
	Filters   []FilterSpec   `json:"filters,omitempty"`
	GroupBy   *GroupBySpec   `json:"group_by,omitempty"`
	Trend     *TrendSpec     `json:"trend,omitempty"`
	Compare   *CompareSpec   `json:"compare,omitempty"`
	Correlate *CorrelateSpec `json:"correlate,omitempty"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

type FilterSpec struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	// Scalar for every operator except OperatorIn, where it should be a list (a scalar is treated
	// as a single-element list).
	Value any `json:"value"`
}

type GroupBySpec struct {
	Fields     []string        `json:"fields"`
	Aggregates []AggregateSpec `json:"aggregates"`
}

type AggregateSpec struct {
	Field    string            `json:"field"`
	Function AggregateFunction `json:"function"`
	Alias    string            `json:"alias,omitempty"`
}

// OutputName is the result column name of the aggregate: the alias if given, otherwise
// "{field}_{function}".
func (aggregate AggregateSpec) OutputName() string {
	if aggregate.Alias != "" {
		return aggregate.Alias
	}
	return AggregateColumnName(aggregate.Field, aggregate.Function)
}

func AggregateColumnName(field string, function AggregateFunction) string {
	return fmt.Sprintf("%s_%s", field, function)
}

type TrendSpec struct {
	DateField         string            `json:"date_field"`
	ValueField        string            `json:"value_field"`
	Interval          DateInterval      `json:"interval"`
	AggregateFunction AggregateFunction `json:"aggregate_function"`
}

type CompareSpec struct {
	GroupField        string            `json:"group_field"`
	ValueField        string            `json:"value_field"`
	AggregateFunction AggregateFunction `json:"aggregate_function"`
	ComparisonType    ComparisonType    `json:"comparison_type"`
}

// PercentageColumn is the extra result column of a compare query with ComparisonPercentage.
const PercentageColumn = "percentage"

type CorrelateSpec struct {
	FieldA string `json:"field_a"`
	FieldB string `json:"field_b"`
	// Label only, echoed in the result. The coefficient is always Pearson's.
	Method string `json:"method"`
}

const DefaultCorrelationMethod = "pearson"

// Validate checks that the query spec is well-formed for its query type, and fills in defaults for
// optional enum fields (sum for trend/compare aggregates, absolute comparison, pearson label).
// All returned errors are QueryConfigError.
func (spec *QuerySpec) Validate() error {
	if spec.QueryType == 0 {
		return NewQueryConfigError("missing query_type")
	}
	if !spec.QueryType.IsValid() {
		return NewQueryConfigError("unknown query_type %d", spec.QueryType)
	}

	if spec.Limit <= 0 {
		return NewQueryConfigError("limit must be a positive integer, got %d", spec.Limit)
	}
	if spec.Offset < 0 {
		return NewQueryConfigError("offset must be non-negative, got %d", spec.Offset)
	}

	for i, filter := range spec.Filters {
		if filter.Field == "" {
			return NewQueryConfigError("filter %d is missing field", i)
		}
		if !filter.Operator.IsValid() {
			return NewQueryConfigError("filter %d on '%s' has invalid operator", i, filter.Field)
		}
	}

	if err := spec.validateSubSpecs(); err != nil {
		return err
	}

	switch spec.QueryType {
	case QueryTypeAggregate:
		return spec.GroupBy.validate()
	case QueryTypeTrend:
		return spec.Trend.validate()
	case QueryTypeCompare:
		return spec.Compare.validate()
	case QueryTypeCorrelate:
		return spec.Correlate.validate()
	}

	return nil
}

// validateSubSpecs enforces that exactly the sub-spec matching the query type is populated (none
// for filter queries).
func (spec *QuerySpec) validateSubSpecs() error {
	present := map[QueryType]bool{
		QueryTypeAggregate: spec.GroupBy != nil,
		QueryTypeTrend:     spec.Trend != nil,
		QueryTypeCompare:   spec.Compare != nil,
		QueryTypeCorrelate: spec.Correlate != nil,
	}
	subSpecNames := map[QueryType]string{
		QueryTypeAggregate: "group_by",
		QueryTypeTrend:     "trend",
		QueryTypeCompare:   "compare",
		QueryTypeCorrelate: "correlate",
	}

	if spec.QueryType != QueryTypeFilter && !present[spec.QueryType] {
		return NewQueryConfigError(
			"%s query requires %s", spec.QueryType, subSpecNames[spec.QueryType],
		)
	}

	for queryType, isPresent := range present {
		if isPresent && queryType != spec.QueryType {
			return NewQueryConfigError(
				"%s query must not set %s", spec.QueryType, subSpecNames[queryType],
			)
		}
	}

	return nil
}

func (groupBy *GroupBySpec) validate() error {
	if len(groupBy.Aggregates) == 0 {
		return NewQueryConfigError("group_by requires at least one aggregate")
	}
	for i, field := range groupBy.Fields {
		if field == "" {
			return NewQueryConfigError("group_by field %d is blank", i)
		}
	}
	for i, aggregate := range groupBy.Aggregates {
		if aggregate.Field == "" {
			return NewQueryConfigError("aggregate %d is missing field", i)
		}
		if !aggregate.Function.IsValid() {
			return NewQueryConfigError("aggregate %d on '%s' has invalid function", i, aggregate.Field)
		}
	}
	return nil
}

func (trend *TrendSpec) validate() error {
	if trend.DateField == "" || trend.ValueField == "" {
		return NewQueryConfigError("trend requires date_field and value_field")
	}
	if !trend.Interval.IsValid() {
		return NewQueryConfigError("trend has missing or invalid interval")
	}
	if trend.AggregateFunction == 0 {
		trend.AggregateFunction = AggregateSum
	} else if !trend.AggregateFunction.IsValid() {
		return NewQueryConfigError("trend has invalid aggregate_function")
	}
	return nil
}

func (compare *CompareSpec) validate() error {
	if compare.GroupField == "" || compare.ValueField == "" {
		return NewQueryConfigError("compare requires group_field and value_field")
	}
	if compare.AggregateFunction == 0 {
		compare.AggregateFunction = AggregateSum
	} else if !compare.AggregateFunction.IsValid() {
		return NewQueryConfigError("compare has invalid aggregate_function")
	}
	if compare.ComparisonType == 0 {
		compare.ComparisonType = ComparisonAbsolute
	} else if !compare.ComparisonType.IsValid() {
		return NewQueryConfigError("compare has invalid comparison_type")
	}
	return nil
}

func (correlate *CorrelateSpec) validate() error {
	if correlate.FieldA == "" || correlate.FieldB == "" {
		return NewQueryConfigError("correlate requires field_a and field_b")
	}
	if correlate.Method == "" {
		correlate.Method = DefaultCorrelationMethod
	}
	return nil
}
