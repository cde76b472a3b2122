package dataframe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"hermannm.dev/datasetquery/db"
)

// column is a dataframe series along with the data type deduced for it on load.
type column struct {
	name     string
	series   series.Series
	dataType db.DataType
}

func (dataset *Dataset) column(frame dataframe.DataFrame, name string) (column, error) {
	for _, schemaColumn := range dataset.schema.Columns {
		if schemaColumn.Name == name {
			values := frame.Col(name)
			if values.Err != nil {
				return column{}, fmt.Errorf("failed to get column '%s': %w", name, values.Err)
			}
			return column{name: name, series: values, dataType: schemaColumn.DataType}, nil
		}
	}

	return column{}, fmt.Errorf("column '%s' not found in dataset", name)
}

func (column column) isNumeric() bool {
	return column.series.Type() == series.Int || column.series.Type() == series.Float
}

func (column column) isNA(row int) bool {
	return column.series.Elem(row).IsNA()
}

// value returns the cell as the Go type matching its column type, or nil for blank cells.
func (column column) value(row int) any {
	element := column.series.Elem(row)
	if element.IsNA() {
		return nil
	}

	switch column.series.Type() {
	case series.Int:
		value, err := element.Int()
		if err != nil {
			return element.Float()
		}
		return value
	case series.Float:
		return element.Float()
	}

	text := element.String()
	switch column.dataType {
	case db.DataTypeDate:
		if date, err := time.Parse(time.DateOnly, text); err == nil {
			return db.Date{Time: date}
		}
	case db.DataTypeDateTime:
		if dateTime, ok := parseDate(text); ok {
			return dateTime
		}
	}
	return text
}

// float returns the cell cast to float. Text cells must parse as numbers, like a SQL cast.
func (column column) float(row int) (value float64, isNA bool, err error) {
	element := column.series.Elem(row)
	if element.IsNA() {
		return 0, true, nil
	}

	if column.isNumeric() {
		return element.Float(), false, nil
	}

	text := strings.TrimSpace(element.String())
	value, err = strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf(
			"could not convert value '%s' in column '%s' to a number", text, column.name,
		)
	}
	return value, false, nil
}

// text returns the cell as it would be rendered by a cast to string.
func (column column) text(row int) string {
	return elementText(column, column.series.Elem(row))
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
}

func parseDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	for _, layout := range dateLayouts {
		if value, err := time.Parse(layout, text); err == nil {
			return value, true
		}
	}
	return time.Time{}, false
}
