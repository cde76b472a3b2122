package engine

import (
	"math"
	"math/big"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"hermannm.dev/datasetquery/db"
)

const dateTimeLayout = "2006-01-02T15:04:05.999999"

// NormalizeRows returns a copy of the raw result where every cell is a string, float64 or bool.
// Applying it to already normalized rows is a no-op.
func NormalizeRows(rows []db.Row) []db.Row {
	normalized := make([]db.Row, len(rows))
	for i, row := range rows {
		normalizedRow := make(db.Row, len(row))
		for column, value := range row {
			normalizedRow[column] = NormalizeValue(value)
		}
		normalized[i] = normalizedRow
	}
	return normalized
}

// NormalizeValue converts a backend-native cell value to a JSON-safe primitive:
//   - nil (SQL NULL, blank cell) becomes the empty string
//   - dates become YYYY-MM-DD, and datetimes ISO 8601
//   - all numbers (decimals, big integers, engine-specific numeric types) become float64
//   - UUIDs become their canonical string form
//
// Other values are returned unchanged.
func NormalizeValue(value any) any {
	switch value := value.(type) {
	case nil:
		return ""
	case string, bool:
		return value
	case float64:
		return normalizeFloat(value)
	case time.Time:
		return formatDateTime(value)
	case db.Date:
		return value.Format(time.DateOnly)
	case decimal.Decimal:
		return normalizeFloat(value.InexactFloat64())
	case *big.Int:
		if value == nil {
			return ""
		}
		float, _ := new(big.Float).SetInt(value).Float64()
		return normalizeFloat(float)
	case uuid.UUID:
		return value.String()
	case []byte:
		return string(value)
	case interface{ Float64() float64 }:
		return normalizeFloat(value.Float64())
	}

	return normalizeReflected(reflect.ValueOf(value))
}

func normalizeReflected(value reflect.Value) any {
	switch value.Kind() {
	case reflect.Pointer, reflect.Interface:
		if value.IsNil() {
			return ""
		}
		return NormalizeValue(value.Elem().Interface())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(value.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(value.Uint())
	case reflect.Float32, reflect.Float64:
		return normalizeFloat(value.Float())
	case reflect.String:
		return value.String()
	case reflect.Bool:
		return value.Bool()
	case reflect.Array:
		// UUIDs from SQL drivers come as 16-byte arrays of their own named types
		if value.Len() == 16 && value.Type().Elem().Kind() == reflect.Uint8 {
			var id uuid.UUID
			for i := range id {
				id[i] = byte(value.Index(i).Uint())
			}
			return id.String()
		}
	}

	return value.Interface()
}

// normalizeFloat maps values JSON cannot represent to the empty string, like NULL.
func normalizeFloat(value float64) any {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ""
	}
	return value
}

func formatDateTime(value time.Time) string {
	if value.Location() == time.UTC {
		return value.Format(dateTimeLayout)
	}
	return value.Format(time.RFC3339Nano)
}
