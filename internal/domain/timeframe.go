package domain

import (
	"fmt"
	"time"
)

// Timeframe selects the window commits are counted in.
type Timeframe string

const (
	// TimeframeToday is the local calendar day, midnight to midnight.
	TimeframeToday Timeframe = "today"
	// TimeframeWeek is a rolling window of 7*24h ending now.
	TimeframeWeek Timeframe = "week"
	// TimeframeMonth is a rolling window of 30*24h ending now.
	TimeframeMonth Timeframe = "month"
)

// ParseTimeframe validates a user supplied timeframe name.
func ParseTimeframe(s string) (Timeframe, error) {
	switch tf := Timeframe(s); tf {
	case TimeframeToday, TimeframeWeek, TimeframeMonth:
		return tf, nil
	default:
		return "", fmt.Errorf("unknown timeframe %q (want today, week or month)", s)
	}
}

// Window is a time range. Start is inclusive; a nil End leaves the range open.
type Window struct {
	Start time.Time
	End   *time.Time
}

// Window returns the boundaries of tf relative to now.
func (tf Timeframe) Window(now time.Time) Window {
	switch tf {
	case TimeframeWeek:
		return Window{Start: now.Add(-7 * 24 * time.Hour)}
	case TimeframeMonth:
		return Window{Start: now.Add(-30 * 24 * time.Hour)}
	default:
		return Window{Start: DateOf(now).Midnight()}
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End == nil || !t.After(*w.End)
}
