package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout       = "2006-01-02"
	clockLayout      = "15:04:05"
	shortClockLayout = "15:04"
)

var (
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("booking: invalid date")
	// ErrInvalidClockTime is returned when a wall-clock time cannot be parsed.
	ErrInvalidClockTime = errors.New("booking: invalid time of day")
	// ErrEmptySlot is returned when a slot does not start strictly before it ends.
	ErrEmptySlot = errors.New("booking: start must be before end")
)

// Date is a calendar day with no time zone attached.
type Date struct {
	year  int
	month time.Month
	day   int
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}, nil
}

// NewDate builds a Date from its components, normalising overflow the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// IsZero reports whether the date was never set.
func (d Date) IsZero() bool {
	return d.year == 0 && d.month == 0 && d.day == 0
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.year, int(d.month), d.day)
}

// ClockTime is a wall-clock time of day measured in seconds after midnight.
type ClockTime int

// EndOfDay is the exclusive upper bound for ClockTime values.
const EndOfDay ClockTime = 24 * 60 * 60

// ParseClockTime accepts HH:MM or HH:MM:SS between 00:00:00 and 23:59:59.
func ParseClockTime(value string) (ClockTime, error) {
	value = strings.TrimSpace(value)
	var layout string
	switch len(value) {
	case len(shortClockLayout):
		layout = shortClockLayout
	case len(clockLayout):
		layout = clockLayout
	default:
		// time.Parse would accept and drop fractional seconds.
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	t, err := time.Parse(layout, value)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, value)
	}
	return ClockTime(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

// String renders the time as HH:MM:SS.
func (c ClockTime) String() string {
	seconds := int(c)
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

// Slot is the half-open interval [Start, End) on a single day.
type Slot struct {
	Start ClockTime
	End   ClockTime
}

// NewSlot validates that start strictly precedes end. A slot cannot cross midnight.
func NewSlot(start, end ClockTime) (Slot, error) {
	if start < 0 || end > EndOfDay || start >= end {
		return Slot{}, ErrEmptySlot
	}
	return Slot{Start: start, End: end}, nil
}

// Overlaps reports whether the two half-open intervals share any instant.
// Touching endpoints do not overlap.
func (s Slot) Overlaps(other Slot) bool {
	return s.Start < other.End && s.End > other.Start
}

// Duration returns the length of the slot.
func (s Slot) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Second
}

func (s Slot) String() string {
	return s.Start.String() + "-" + s.End.String()
}
