package db

import "hermannm.dev/enumnames"

type QueryType uint8

const (
	QueryTypeFilter QueryType = iota + 1
	QueryTypeAggregate
	QueryTypeTrend
	QueryTypeCompare
	QueryTypeCorrelate
)

var queryTypeNames = enumnames.NewMap(map[QueryType]string{
	QueryTypeFilter:    "filter",
	QueryTypeAggregate: "aggregate",
	QueryTypeTrend:     "trend",
	QueryTypeCompare:   "compare",
	QueryTypeCorrelate: "correlate",
})

func (queryType QueryType) IsValid() bool {
	_, ok := queryTypeNames.GetName(queryType)
	return ok
}

func (queryType QueryType) String() string {
	return queryTypeNames.GetNameOrFallback(queryType, "INVALID_QUERY_TYPE")
}

func (queryType QueryType) MarshalJSON() ([]byte, error) {
	return queryTypeNames.MarshalToNameJSON(queryType)
}

func (queryType *QueryType) UnmarshalJSON(bytes []byte) error {
	return queryTypeNames.UnmarshalFromNameJSON(bytes, queryType)
}

type ComparisonType uint8

const (
	ComparisonAbsolute ComparisonType = iota + 1
	ComparisonPercentage
)

var comparisonTypeNames = enumnames.NewMap(map[ComparisonType]string{
	ComparisonAbsolute:   "absolute",
	ComparisonPercentage: "percentage",
})

func (comparison ComparisonType) IsValid() bool {
	_, ok := comparisonTypeNames.GetName(comparison)
	return ok
}

func (comparison ComparisonType) String() string {
	return comparisonTypeNames.GetNameOrFallback(comparison, "INVALID_COMPARISON_TYPE")
}

func (comparison ComparisonType) MarshalJSON() ([]byte, error) {
	return comparisonTypeNames.MarshalToNameJSON(comparison)
}

func (comparison *ComparisonType) UnmarshalJSON(bytes []byte) error {
	return comparisonTypeNames.UnmarshalFromNameJSON(bytes, comparison)
}
