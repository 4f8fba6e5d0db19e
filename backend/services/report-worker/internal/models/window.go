package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WindowLayout is the timestamp layout the log book API expects. The trailing Z is
// literal: the API is queried with the process-local wall clock.
const WindowLayout = "2006-01-02T15:04:05Z"

// TimeWindow bounds one calendar day.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// DayWindow returns 00:00:00 through 23:59:59 of the day containing now, in now's location.
func DayWindow(now time.Time) TimeWindow {
	y, m, d := now.Date()
	loc := now.Location()
	return TimeWindow{
		Start: time.Date(y, m, d, 0, 0, 0, 0, loc),
		End:   time.Date(y, m, d, 23, 59, 59, 0, loc),
	}
}

// StartString formats the window start for the API.
func (w TimeWindow) StartString() string {
	return w.Start.Format(WindowLayout)
}

// EndString formats the window end for the API.
func (w TimeWindow) EndString() string {
	return w.End.Format(WindowLayout)
}

// TimeOfDay is a wall-clock trigger time.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay accepts HH:MM or HH:MM:SS.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	limits := []int{23, 59, 59}
	values := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
		}
		values[i] = n
	}
	return TimeOfDay{Hour: values[0], Minute: values[1], Second: values[2]}, nil
}

// On returns the trigger instant on the day of t, in t's location.
func (tod TimeOfDay) On(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, tod.Hour, tod.Minute, tod.Second, 0, t.Location())
}

func (tod TimeOfDay) String() string {
	if tod.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", tod.Hour, tod.Minute, tod.Second)
	}
	return fmt.Sprintf("%02d:%02d", tod.Hour, tod.Minute)
}
