package clickhouse

import (
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/enumnames"
)

// See https://clickhouse.com/docs/en/sql-reference/data-types
var clickhouseDataTypes = enumnames.NewMap(map[db.DataType]string{
	db.DataTypeInt:      "Int64",
	db.DataTypeFloat:    "Float64",
	db.DataTypeDate:     "Date32",
	db.DataTypeDateTime: "DateTime64(3)",
	db.DataTypeUUID:     "UUID",
	db.DataTypeText:     "String",
})
