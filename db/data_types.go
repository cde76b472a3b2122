package db

import (
	"hermannm.dev/enumnames"
)

type DataType uint8

const (
	DataTypeText DataType = iota + 1
	DataTypeInt
	DataTypeFloat
	DataTypeDate
	DataTypeDateTime
	DataTypeUUID
)

var dataTypeNames = enumnames.NewMap(map[DataType]string{
	DataTypeText:     "TEXT",
	DataTypeInt:      "INTEGER",
	DataTypeFloat:    "FLOAT",
	DataTypeDate:     "DATE",
	DataTypeDateTime: "DATETIME",
	DataTypeUUID:     "UUID",
})

func (dataType DataType) IsValid() bool {
	_, ok := dataTypeNames.GetName(dataType)
	return ok
}

func (dataType DataType) String() string {
	return dataTypeNames.GetNameOrFallback(dataType, "INVALID_DATA_TYPE")
}

func (dataType DataType) MarshalJSON() ([]byte, error) {
	return dataTypeNames.MarshalToNameJSON(dataType)
}

func (dataType *DataType) UnmarshalJSON(bytes []byte) error {
	return dataTypeNames.UnmarshalFromNameJSON(bytes, dataType)
}

func (dataType DataType) IsNumeric() bool {
	return dataType == DataTypeInt || dataType == DataTypeFloat
}

// widen returns the narrowest type that can hold values of both types. Types without a common
// numeric or temporal representation fall back to text.
func (dataType DataType) widen(other DataType) DataType {
	switch {
	case dataType == other:
		return dataType
	case dataType.IsNumeric() && other.IsNumeric():
		return DataTypeFloat
	case isTemporal(dataType) && isTemporal(other):
		return DataTypeDateTime
	default:
		return DataTypeText
	}
}

func isTemporal(dataType DataType) bool {
	return dataType == DataTypeDate || dataType == DataTypeDateTime
}
