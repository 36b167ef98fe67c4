package daterange

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the wire and storage format of a calendar date.
const Layout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: end date must not be before start date")
)

// DateRange represents an inclusive interval of calendar days [Start, End].
// Both bounds are kept at midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Day(start), End: Day(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD strings.
func Parse(start, end string) (DateRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return DateRange{}, err
	}
	e, err := ParseDate(end)
	if err != nil {
		return DateRange{}, err
	}
	return New(s, e)
}

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(Layout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed date %q", ErrInvalidRange, raw)
	}
	return t, nil
}

// Day drops the clock part of t, keeping the calendar date as seen in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (dr DateRange) Validate() error {
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

const secondsPerDay = 24 * 60 * 60

// Days counts both ends, so a single-day range is 1. It works on Unix seconds
// since time.Duration cannot span more than about 292 years.
func (dr DateRange) Days() int {
	return int((dr.End.Unix()-dr.Start.Unix())/secondsPerDay) + 1
}

// Shift moves both bounds by the given number of days, keeping the duration.
func (dr DateRange) Shift(days int) DateRange {
	return DateRange{Start: dr.Start.AddDate(0, 0, days), End: dr.End.AddDate(0, 0, days)}
}

// Overlaps reports whether the two ranges share at least one day.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !dr.End.Before(other.Start)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Day(t)
	return !t.Before(dr.Start) && !t.After(dr.End)
}

func (dr DateRange) StartString() string { return dr.Start.Format(Layout) }
func (dr DateRange) EndString() string   { return dr.End.Format(Layout) }

func (dr DateRange) String() string {
	return dr.StartString() + ".." + dr.EndString()
}
