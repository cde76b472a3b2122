package dataframe

import (
	"context"
	"time"

	"hermannm.dev/datasetquery/db"
)

func (dataset *Dataset) Trend(
	ctx context.Context,
	filters []db.FilterSpec,
	trend db.TrendSpec,
) (db.RawResult, error) {
	frame, err := dataset.filtered(filters)
	if err != nil {
		return db.RawResult{}, err
	}

	dateColumn, err := dataset.column(frame, trend.DateField)
	if err != nil {
		return db.RawResult{}, err
	}
	valueColumn, err := dataset.column(frame, trend.ValueField)
	if err != nil {
		return db.RawResult{}, err
	}

	// Rows whose date cannot be parsed go in a nil period, ordered last
	periodIndices := make(map[any]int)
	var periods []rowGroup
	for row := 0; row < frame.Nrow(); row++ {
		var period any
		if !dateColumn.isNA(row) {
			if date, ok := parseDate(dateColumn.text(row)); ok {
				period = truncateDate(date, trend.Interval).Format(time.DateOnly)
			}
		}

		index, ok := periodIndices[period]
		if !ok {
			index = len(periods)
			periodIndices[period] = index
			periods = append(periods, rowGroup{key: []any{period}})
		}
		periods[index].rows = append(periods[index].rows, row)
	}

	sortGroups(periods)

	aggregateName := db.AggregateColumnName(trend.ValueField, trend.AggregateFunction)
	result := db.RawResult{
		Columns: []string{trend.DateField, aggregateName},
		Rows:    make([]db.Row, 0, len(periods)),
	}
	for _, period := range periods {
		value, err := aggregateColumn(valueColumn, period.rows, trend.AggregateFunction)
		if err != nil {
			return db.RawResult{}, err
		}

		result.Rows = append(result.Rows, db.Row{
			trend.DateField: period.key[0],
			aggregateName:   value,
		})
	}

	return result, nil
}

// truncateDate returns the start of the interval containing the given date. Weeks start on
// Monday.
func truncateDate(date time.Time, interval db.DateInterval) time.Time {
	year, month, day := date.Date()

	switch interval {
	case db.DateIntervalWeek:
		daysSinceMonday := (int(date.Weekday()) + 6) % 7
		return time.Date(year, month, day-daysSinceMonday, 0, 0, 0, 0, time.UTC)
	case db.DateIntervalMonth:
		return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	case db.DateIntervalQuarter:
		quarterStart := time.Month((int(month)-1)/3*3 + 1)
		return time.Date(year, quarterStart, 1, 0, 0, 0, 0, time.UTC)
	case db.DateIntervalYear:
		return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	default:
		return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	}
}
