package dataframe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"hermannm.dev/datasetquery/db"
	"hermannm.dev/datasetquery/db/sqlquery"
)

// filtered returns the rows of the dataframe matching all the given filters. Blank cells never
// match, like NULL in SQL.
func (dataset *Dataset) filtered(filters []db.FilterSpec) (dataframe.DataFrame, error) {
	frame := dataset.frame

	for _, filter := range filters {
		column, err := dataset.column(frame, filter.Field)
		if err != nil {
			return dataframe.DataFrame{}, err
		}

		matches, err := newMatcher(column, filter)
		if err != nil {
			return dataframe.DataFrame{}, err
		}

		// Each Filter call is ANDed with the previous ones (filters within one call are ORed)
		frame = frame.Filter(dataframe.F{
			Colname:    filter.Field,
			Comparator: series.CompFunc,
			Comparando: func(element series.Element) bool {
				if element.IsNA() {
					return false
				}
				return matches(element)
			},
		})
		if frame.Err != nil {
			return dataframe.DataFrame{}, fmt.Errorf(
				"failed to apply filter on '%s': %w", filter.Field, frame.Err,
			)
		}
	}

	return frame, nil
}

type matcher func(element series.Element) bool

func newMatcher(column column, filter db.FilterSpec) (matcher, error) {
	switch filter.Operator {
	case db.OperatorContains:
		pattern := strings.ToLower(sqlquery.FormatFilterValue(filter.Value))
		return func(element series.Element) bool {
			return strings.Contains(strings.ToLower(elementText(column, element)), pattern)
		}, nil
	case db.OperatorIn:
		var matchers []matcher
		for _, value := range sqlquery.FilterValueList(filter.Value) {
			equal, err := comparisonMatcher(column, db.OperatorEqual, value)
			if err != nil {
				return nil, err
			}
			matchers = append(matchers, equal)
		}
		return func(element series.Element) bool {
			for _, matches := range matchers {
				if matches(element) {
					return true
				}
			}
			return false
		}, nil
	default:
		return comparisonMatcher(column, filter.Operator, filter.Value)
	}
}

func comparisonMatcher(column column, operator db.Operator, value any) (matcher, error) {
	if value == nil {
		// Comparisons with NULL are never true
		return func(series.Element) bool { return false }, nil
	}

	if column.isNumeric() {
		target, err := filterValueToFloat(value)
		if err != nil {
			return nil, fmt.Errorf("invalid filter value for numeric column '%s': %w", column.name, err)
		}

		return func(element series.Element) bool {
			return compareResult(operator, compareFloats(element.Float(), target))
		}, nil
	}

	target := sqlquery.FormatFilterValue(value)
	return func(element series.Element) bool {
		return compareResult(operator, strings.Compare(element.String(), target))
	}, nil
}

func compareResult(operator db.Operator, comparison int) bool {
	switch operator {
	case db.OperatorEqual:
		return comparison == 0
	case db.OperatorNotEqual:
		return comparison != 0
	case db.OperatorGreater:
		return comparison > 0
	case db.OperatorLess:
		return comparison < 0
	case db.OperatorGreaterOrEqual:
		return comparison >= 0
	case db.OperatorLessOrEqual:
		return comparison <= 0
	default:
		return false
	}
}

func compareFloats(a float64, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func filterValueToFloat(value any) (float64, error) {
	switch value := value.(type) {
	case float64:
		return value, nil
	case float32:
		return float64(value), nil
	case int:
		return float64(value), nil
	case int64:
		return float64(value), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(value), 64)
	case bool:
		if value {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot compare %T value '%v' with a number", value, value)
	}
}

func elementText(column column, element series.Element) string {
	if column.series.Type() == series.Float {
		return strconv.FormatFloat(element.Float(), 'f', -1, 64)
	}
	return element.String()
}
