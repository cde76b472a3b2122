package dataframe

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"hermannm.dev/datasetquery/db"
)

func (dataset *Dataset) Aggregate(
	ctx context.Context,
	filters []db.FilterSpec,
	groupBy db.GroupBySpec,
) (db.RawResult, error) {
	frame, err := dataset.filtered(filters)
	if err != nil {
		return db.RawResult{}, err
	}

	groups, err := dataset.groupRows(frame, groupBy.Fields)
	if err != nil {
		return db.RawResult{}, err
	}

	aggregateColumns := make([]column, len(groupBy.Aggregates))
	for i, aggregate := range groupBy.Aggregates {
		if aggregateColumns[i], err = dataset.column(frame, aggregate.Field); err != nil {
			return db.RawResult{}, err
		}
	}

	columns := slices.Clone(groupBy.Fields)
	for _, aggregate := range groupBy.Aggregates {
		columns = append(columns, aggregate.OutputName())
	}

	result := db.RawResult{Columns: columns, Rows: make([]db.Row, 0, len(groups))}
	for _, group := range groups {
		row := make(db.Row, len(columns))
		for i, field := range groupBy.Fields {
			row[field] = group.key[i]
		}

		for i, aggregate := range groupBy.Aggregates {
			value, err := aggregateColumn(aggregateColumns[i], group.rows, aggregate.Function)
			if err != nil {
				return db.RawResult{}, err
			}
			row[aggregate.OutputName()] = value
		}

		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

func (dataset *Dataset) Compare(
	ctx context.Context,
	filters []db.FilterSpec,
	compare db.CompareSpec,
) (db.RawResult, error) {
	frame, err := dataset.filtered(filters)
	if err != nil {
		return db.RawResult{}, err
	}

	groups, err := dataset.groupRows(frame, []string{compare.GroupField})
	if err != nil {
		return db.RawResult{}, err
	}

	valueColumn, err := dataset.column(frame, compare.ValueField)
	if err != nil {
		return db.RawResult{}, err
	}

	aggregateName := db.AggregateColumnName(compare.ValueField, compare.AggregateFunction)
	columns := []string{compare.GroupField, aggregateName}

	withPercentage := compare.ComparisonType == db.ComparisonPercentage
	var total any
	if withPercentage {
		columns = append(columns, db.PercentageColumn)

		// Grand total over the same filtered rows
		total, err = aggregateColumn(valueColumn, allRows(frame.Nrow()), compare.AggregateFunction)
		if err != nil {
			return db.RawResult{}, err
		}
	}

	result := db.RawResult{Columns: columns, Rows: make([]db.Row, 0, len(groups))}
	for _, group := range groups {
		value, err := aggregateColumn(valueColumn, group.rows, compare.AggregateFunction)
		if err != nil {
			return db.RawResult{}, err
		}

		row := db.Row{compare.GroupField: group.key[0], aggregateName: value}
		if withPercentage {
			if row[db.PercentageColumn], err = percentage(value, total); err != nil {
				return db.RawResult{}, err
			}
		}

		result.Rows = append(result.Rows, row)
	}

	return result, nil
}

// percentage returns part's share of total in [0,100], rounded to 2 decimals, or nil if either is
// missing or the total is zero.
func percentage(part any, total any) (any, error) {
	if part == nil || total == nil {
		return nil, nil
	}

	partValue, partOK := toFloat(part)
	totalValue, totalOK := toFloat(total)
	if !partOK || !totalOK {
		return nil, fmt.Errorf("percentage comparison requires a numeric aggregate, got '%v'", part)
	}
	if totalValue == 0 {
		return nil, nil
	}

	return roundTo(100*partValue/totalValue, 2), nil
}

type rowGroup struct {
	key  []any
	rows []int
}

// groupRows partitions the frame's rows by the values of the given fields, returning groups
// ordered by key ascending with blank values last. No fields gives a single group of all rows.
func (dataset *Dataset) groupRows(frame dataframe.DataFrame, fields []string) ([]rowGroup, error) {
	if len(fields) == 0 {
		return []rowGroup{{key: []any{}, rows: allRows(frame.Nrow())}}, nil
	}

	keyColumns := make([]column, len(fields))
	for i, field := range fields {
		var err error
		if keyColumns[i], err = dataset.column(frame, field); err != nil {
			return nil, err
		}
	}

	groupIndices := make(map[string]int)
	var groups []rowGroup

	for row := 0; row < frame.Nrow(); row++ {
		key := make([]any, len(keyColumns))
		var keyString strings.Builder
		for i, keyColumn := range keyColumns {
			key[i] = keyColumn.value(row)
			fmt.Fprintf(&keyString, "%T:%v\x00", key[i], key[i])
		}

		index, ok := groupIndices[keyString.String()]
		if !ok {
			index = len(groups)
			groupIndices[keyString.String()] = index
			groups = append(groups, rowGroup{key: key})
		}
		groups[index].rows = append(groups[index].rows, row)
	}

	sortGroups(groups)
	return groups, nil
}

func sortGroups(groups []rowGroup) {
	slices.SortStableFunc(groups, func(a rowGroup, b rowGroup) int {
		for i := range a.key {
			if comparison := compareValues(a.key[i], b.key[i]); comparison != 0 {
				return comparison
			}
		}
		return 0
	})
}

func allRows(count int) []int {
	rows := make([]int, count)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// aggregateColumn applies the aggregate function to the given rows of the column, skipping blank
// cells. Sum, average, min and max over no values give nil, like in SQL.
func aggregateColumn(column column, rows []int, function db.AggregateFunction) (any, error) {
	switch function {
	case db.AggregateCount:
		count := 0
		for _, row := range rows {
			if !column.isNA(row) {
				count++
			}
		}
		return count, nil
	case db.AggregateDistinct:
		distinct := make(map[string]struct{})
		for _, row := range rows {
			if !column.isNA(row) {
				distinct[column.text(row)] = struct{}{}
			}
		}
		return len(distinct), nil
	case db.AggregateMin, db.AggregateMax:
		return extremeValue(column, rows, function == db.AggregateMax), nil
	case db.AggregateSum, db.AggregateAverage:
		if !column.isNumeric() {
			return nil, fmt.Errorf(
				"cannot apply %s to non-numeric column '%s'", function, column.name,
			)
		}

		values := make([]float64, 0, len(rows))
		for _, row := range rows {
			if value, isNA, _ := column.float(row); !isNA {
				values = append(values, value)
			}
		}
		if len(values) == 0 {
			return nil, nil
		}

		if function == db.AggregateSum {
			return floats.Sum(values), nil
		}
		return stat.Mean(values, nil), nil
	default:
		return nil, fmt.Errorf("unsupported aggregate function '%v'", function)
	}
}

func extremeValue(column column, rows []int, isMax bool) any {
	var extreme any
	for _, row := range rows {
		value := column.value(row)
		if value == nil {
			continue
		}
		if extreme == nil {
			extreme = value
			continue
		}

		comparison := compareValues(value, extreme)
		if (isMax && comparison > 0) || (!isMax && comparison < 0) {
			extreme = value
		}
	}

	if extreme == nil {
		return nil
	}
	if value, ok := toFloat(extreme); ok {
		return value
	}
	return extreme
}

// compareValues orders cell values: numbers numerically, everything else by its text rendering,
// and nil after all other values.
func compareValues(a any, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	aFloat, aIsNumber := toFloat(a)
	bFloat, bIsNumber := toFloat(b)
	if aIsNumber && bIsNumber {
		return cmp.Compare(aFloat, bFloat)
	}

	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(value any) (float64, bool) {
	switch value := value.(type) {
	case float64:
		return value, true
	case int:
		return float64(value), true
	default:
		return 0, false
	}
}

func roundTo(value float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}
