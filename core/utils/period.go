package utils

import (
	stderrors "errors"
	"time"
)

const DateLayout = "2006-01-02"

var ErrInvalidPeriod = stderrors.New("use period=YYYY-MM or from=YYYY-MM-DD&to=YYYY-MM-DD")

// ParsePeriod reads period=YYYY-MM, or from/to dates with to inclusive, into a
// half-open UTC range. Without parameters it returns the current month.
func ParsePeriod(period, from, to string, now time.Time) (time.Time, time.Time, error) {
	switch {
	case period != "":
		start, err := time.Parse("2006-01", period)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidPeriod
		}
		return start, start.AddDate(0, 1, 0), nil
	case from != "" || to != "":
		start, err := time.Parse(DateLayout, from)
		if err != nil {
			return time.Time{}, time.Time{}, ErrInvalidPeriod
		}
		end, err := time.Parse(DateLayout, to)
		if err != nil || end.Before(start) {
			return time.Time{}, time.Time{}, ErrInvalidPeriod
		}
		return start, end.AddDate(0, 0, 1), nil
	default:
		y, m, _ := now.UTC().Date()
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	}
}
