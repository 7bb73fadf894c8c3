package supervisor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window is a daily market session expressed as wall-clock bounds in a
// fixed timezone. The start is inclusive and the end exclusive, so a
// "09:13"–"16:00" window admits 09:13:00 but not 16:00:00.
type Window struct {
	startMin int // minutes after midnight
	endMin   int
	loc      *time.Location
}

// NewWindow parses "HH:MM" bounds in the given location.
func NewWindow(start, end string, loc *time.Location) (Window, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("supervisor: window start: %w", err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("supervisor: window end: %w", err)
	}
	if endMin <= startMin {
		return Window{}, fmt.Errorf("supervisor: window end %q not after start %q", end, start)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Window{startMin: startMin, endMin: endMin, loc: loc}, nil
}

// Contains reports whether t falls inside the session.
func (w Window) Contains(t time.Time) bool {
	local := t.In(w.loc)
	min := local.Hour()*60 + local.Minute()
	return min >= w.startMin && min < w.endMin
}

// NextOpen returns the next session start at or after t.
func (w Window) NextOpen(t time.Time) time.Time {
	local := t.In(w.loc)
	open := time.Date(local.Year(), local.Month(), local.Day(),
		w.startMin/60, w.startMin%60, 0, 0, w.loc)
	if !local.Before(open) {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

func parseClock(s string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("parse clock %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("parse clock %q: bad hour", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("parse clock %q: bad minute", s)
	}
	return hour*60 + minute, nil
}
