// Package session aggregates bar highs and lows into named, recurring daily
// wall-clock windows such as "London" or "NY1".
package session

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // session timezones must resolve without a system zoneinfo
)

// DefaultTimezone is the wall clock the default windows are expressed in.
const DefaultTimezone = "America/New_York"

// Window is the daily interval [Start, End) in the tracker's location.
type Window struct {
	Name        string `json:"name"`
	StartHour   int    `json:"start_hour"`
	StartMinute int    `json:"start_minute"`
	EndHour     int    `json:"end_hour"`
	EndMinute   int    `json:"end_minute"`
}

func DefaultWindows() []Window {
	return []Window{
		{Name: "London", StartHour: 2, StartMinute: 33, EndHour: 3, EndMinute: 0},
		{Name: "NY1", StartHour: 9, StartMinute: 30, EndHour: 11, EndMinute: 0},
	}
}

// ParseWindow parses a span such as "02:33-03:00".
func ParseWindow(name, span string) (Window, error) {
	from, to, ok := strings.Cut(span, "-")
	if !ok {
		return Window{}, fmt.Errorf("session %s: span %q must look like HH:MM-HH:MM", name, span)
	}
	w := Window{Name: name}
	var err error
	if w.StartHour, w.StartMinute, err = parseClock(from); err != nil {
		return Window{}, fmt.Errorf("session %s start: %w", name, err)
	}
	if w.EndHour, w.EndMinute, err = parseClock(to); err != nil {
		return Window{}, fmt.Errorf("session %s end: %w", name, err)
	}
	return w, w.Validate()
}

func parseClock(s string) (int, int, error) {
	hs, ms, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("bad clock %q", s)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(ms)
	if err != nil {
		return 0, 0, fmt.Errorf("bad minute in %q", s)
	}
	return h, m, nil
}

func (w Window) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("session name is required")
	}
	if w.StartHour < 0 || w.StartHour > 23 || w.StartMinute < 0 || w.StartMinute > 59 {
		return fmt.Errorf("session %s: bad start %02d:%02d", w.Name, w.StartHour, w.StartMinute)
	}
	// 24:00 is allowed as an end of day
	if w.EndHour < 0 || w.EndHour > 24 || w.EndMinute < 0 || w.EndMinute > 59 ||
		(w.EndHour == 24 && w.EndMinute != 0) {
		return fmt.Errorf("session %s: bad end %02d:%02d", w.Name, w.EndHour, w.EndMinute)
	}
	if w.endMinutes() <= w.startMinutes() {
		return fmt.Errorf("session %s: end %s must be after start %s", w.Name, w.clock(w.EndHour, w.EndMinute), w.clock(w.StartHour, w.StartMinute))
	}
	return nil
}

func (w Window) startMinutes() int { return w.StartHour*60 + w.StartMinute }
func (w Window) endMinutes() int   { return w.EndHour*60 + w.EndMinute }

func (w Window) clock(h, m int) string {
	return fmt.Sprintf("%02d:%02d", h, m)
}

// Span formats the window as "HH:MM-HH:MM".
func (w Window) Span() string {
	return w.clock(w.StartHour, w.StartMinute) + "-" + w.clock(w.EndHour, w.EndMinute)
}

func (w Window) String() string {
	return w.Name + " " + w.Span()
}

// Contains reports whether t, read on the wall clock of loc, falls inside
// the window.
func (w Window) Contains(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	sec := lt.Hour()*3600 + lt.Minute()*60 + lt.Second()
	return sec >= w.startMinutes()*60 && sec < w.endMinutes()*60
}

// Bounds returns the instance of the window on the calendar day of t.
func (w Window) Bounds(t time.Time, loc *time.Location) (start, end time.Time) {
	lt := t.In(loc)
	y, m, d := lt.Date()
	start = time.Date(y, m, d, w.StartHour, w.StartMinute, 0, 0, loc)
	end = time.Date(y, m, d, w.EndHour, w.EndMinute, 0, 0, loc)
	return start, end
}
