package db

import "hermannm.dev/enumnames"

type DateInterval uint8

const (
	DateIntervalDay DateInterval = iota + 1
	DateIntervalWeek
	DateIntervalMonth
	DateIntervalQuarter
	DateIntervalYear
)

var dateIntervalNames = enumnames.NewMap(map[DateInterval]string{
	DateIntervalDay:     "day",
	DateIntervalWeek:    "week",
	DateIntervalMonth:   "month",
	DateIntervalQuarter: "quarter",
	DateIntervalYear:    "year",
})

func (interval DateInterval) IsValid() bool {
	_, ok := dateIntervalNames.GetName(interval)
	return ok
}

func (interval DateInterval) String() string {
	return dateIntervalNames.GetNameOrFallback(interval, "INVALID_DATE_INTERVAL")
}

func (interval DateInterval) MarshalJSON() ([]byte, error) {
	return dateIntervalNames.MarshalToNameJSON(interval)
}

func (interval *DateInterval) UnmarshalJSON(bytes []byte) error {
	return dateIntervalNames.UnmarshalFromNameJSON(bytes, interval)
}
