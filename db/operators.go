package db

import "hermannm.dev/enumnames"

// Operator is the comparison applied by a single filter predicate.
type Operator uint8

const (
	OperatorEqual Operator = iota + 1
	OperatorNotEqual
	OperatorGreater
	OperatorLess
	OperatorGreaterOrEqual
	OperatorLessOrEqual
	OperatorContains
	OperatorIn
)

var operatorNames = enumnames.NewMap(map[Operator]string{
	OperatorEqual:          "eq",
	OperatorNotEqual:       "ne",
	OperatorGreater:        "gt",
	OperatorLess:           "lt",
	OperatorGreaterOrEqual: "gte",
	OperatorLessOrEqual:    "lte",
	OperatorContains:       "contains",
	OperatorIn:             "in",
})

func (operator Operator) IsValid() bool {
	_, ok := operatorNames.GetName(operator)
	return ok
}

func (operator Operator) String() string {
	return operatorNames.GetNameOrFallback(operator, "INVALID_OPERATOR")
}

func (operator Operator) MarshalJSON() ([]byte, error) {
	return operatorNames.MarshalToNameJSON(operator)
}

func (operator *Operator) UnmarshalJSON(bytes []byte) error {
	return operatorNames.UnmarshalFromNameJSON(bytes, operator)
}
