package db

import "hermannm.dev/enumnames"

type AggregateFunction uint8

const (
	AggregateSum AggregateFunction = iota + 1
	AggregateAverage
	AggregateMin
	AggregateMax
	AggregateCount
	AggregateDistinct
)

var aggregateFunctionNames = enumnames.NewMap(map[AggregateFunction]string{
	AggregateSum:      "sum",
	AggregateAverage:  "avg",
	AggregateMin:      "min",
	AggregateMax:      "max",
	AggregateCount:    "count",
	AggregateDistinct: "distinct",
})

func (function AggregateFunction) IsValid() bool {
	_, ok := aggregateFunctionNames.GetName(function)
	return ok
}

func (function AggregateFunction) String() string {
	return aggregateFunctionNames.GetNameOrFallback(function, "INVALID_AGGREGATE_FUNCTION")
}

func (function AggregateFunction) MarshalJSON() ([]byte, error) {
	return aggregateFunctionNames.MarshalToNameJSON(function)
}

func (function *AggregateFunction) UnmarshalJSON(bytes []byte) error {
	return aggregateFunctionNames.UnmarshalFromNameJSON(bytes, function)
}
