package entity

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

// DateLayout is the wire and storage format of an occurrence date.
const DateLayout = "2006-01-02"

var (
	ErrInvalidSlot       = stderrors.New("invalid slot")
	ErrWeekdayMismatch   = stderrors.New("occurrence date does not fall on the slot weekday")
	ErrInvalidOccurrence = stderrors.New("invalid occurrence date")
)

// ResourceSlot is a recurring weekly time window of one resource.
type ResourceSlot struct {
	ResourceID string       `json:"resource_id"`
	DayOfWeek  time.Weekday `json:"day_of_week"`
	StartTime  string       `json:"start_time"`
	EndTime    string       `json:"end_time"`
}

// Key returns the canonical slot key, e.g. "monday-10-00-11-00".
func (s ResourceSlot) Key() string {
	return slug.Make(fmt.Sprintf("%s %s %s", s.DayOfWeek.String(), s.StartTime, s.EndTime))
}

func (s ResourceSlot) Validate() error {
	if s.DayOfWeek < time.Sunday || s.DayOfWeek > time.Saturday {
		return fmt.Errorf("%w: day_of_week %d", ErrInvalidSlot, s.DayOfWeek)
	}
	start, err := clockMinutes(s.StartTime)
	if err != nil {
		return err
	}
	end, err := clockMinutes(s.EndTime)
	if err != nil {
		return err
	}
	if end <= start {
		return fmt.Errorf("%w: end_time must be after start_time", ErrInvalidSlot)
	}
	return nil
}

// Window returns the concrete start and end of the occurrence on date, in loc.
func (s ResourceSlot) Window(date time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if date.Weekday() != s.DayOfWeek {
		return time.Time{}, time.Time{}, ErrWeekdayMismatch
	}
	start, err := clockMinutes(s.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := clockMinutes(s.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return midnight.Add(time.Duration(start) * time.Minute), midnight.Add(time.Duration(end) * time.Minute), nil
}

func (s ResourceSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.DayOfWeek, s.StartTime, s.EndTime)
}

// ParseSlotKey reverses Key.
func ParseSlotKey(resourceID, key string) (ResourceSlot, error) {
	parts := strings.Split(key, "-")
	if len(parts) != 5 {
		return ResourceSlot{}, fmt.Errorf("%w: key %q", ErrInvalidSlot, key)
	}
	day, ok := parseWeekday(parts[0])
	if !ok {
		return ResourceSlot{}, fmt.Errorf("%w: weekday %q", ErrInvalidSlot, parts[0])
	}
	slot := ResourceSlot{
		ResourceID: resourceID,
		DayOfWeek:  day,
		StartTime:  parts[1] + ":" + parts[2],
		EndTime:    parts[3] + ":" + parts[4],
	}
	if err := slot.Validate(); err != nil {
		return ResourceSlot{}, err
	}
	return slot, nil
}

// ParseOccurrence parses a YYYY-MM-DD date.
func ParseOccurrence(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidOccurrence, s)
	}
	return t, nil
}

func FormatOccurrence(t time.Time) string {
	return t.Format(DateLayout)
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d, true
		}
	}
	return 0, false
}

func clockMinutes(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidSlot, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidSlot, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: time %q", ErrInvalidSlot, s)
	}
	return h*60 + m, nil
}
