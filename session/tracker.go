package session

import (
	"math"
	"time"

	"github.com/rustyeddy/ifvg/market"
)

// Level is a session's range as seen from one bar. Valid is false when the
// bar is outside every instance of the window.
type Level struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Valid bool    `json:"valid"`
}

// Instance is one day's occurrence of a window together with the range of
// the bars inside it.
type Instance struct {
	Name  string    `json:"name"`
	Date  string    `json:"date"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	First int       `json:"first"`
	Last  int       `json:"last"`
	Bars  int       `json:"bars"`
}

func (in Instance) Level() Level {
	return Level{High: in.High, Low: in.Low, Valid: true}
}

// Table holds per-bar levels and per-day instances for every window.
type Table struct {
	Names     []string
	Levels    map[string][]Level
	Instances map[string][]Instance
}

// Level returns the level of the named session at bar i.
func (t *Table) Level(name string, i int) Level {
	lv, ok := t.Levels[name]
	if !ok || i < 0 || i >= len(lv) {
		return Level{}
	}
	return lv[i]
}

type Tracker struct {
	Windows  []Window
	Location *time.Location
}

func NewTracker(loc *time.Location, windows ...Window) *Tracker {
	if loc == nil {
		loc = time.UTC
	}
	return &Tracker{Windows: windows, Location: loc}
}

type dayKey struct {
	name string
	date string
}

// Compute aggregates each window per (session, calendar day). Every bar
// inside a day's instance reports the high and low of the whole instance,
// not a running partial value. Days with no bars in a window produce no
// instance.
func (tr *Tracker) Compute(bars []market.Bar) *Table {
	loc := tr.Location
	if loc == nil {
		loc = time.UTC
	}

	t := &Table{
		Levels:    make(map[string][]Level, len(tr.Windows)),
		Instances: make(map[string][]Instance, len(tr.Windows)),
	}

	for _, w := range tr.Windows {
		t.Names = append(t.Names, w.Name)

		index := map[dayKey]int{}
		var instances []Instance
		member := make([]int, len(bars))

		for i, b := range bars {
			member[i] = -1
			if !w.Contains(b.Time, loc) {
				continue
			}
			key := dayKey{w.Name, b.Time.In(loc).Format(time.DateOnly)}
			k, ok := index[key]
			if !ok {
				start, end := w.Bounds(b.Time, loc)
				instances = append(instances, Instance{
					Name:  w.Name,
					Date:  key.date,
					Start: start,
					End:   end,
					High:  math.Inf(-1),
					Low:   math.Inf(1),
					First: i,
				})
				k = len(instances) - 1
				index[key] = k
			}
			in := &instances[k]
			in.High = math.Max(in.High, b.High)
			in.Low = math.Min(in.Low, b.Low)
			in.Last = i
			in.Bars++
			member[i] = k
		}

		levels := make([]Level, len(bars))
		for i, k := range member {
			if k >= 0 {
				levels[i] = instances[k].Level()
			}
		}
		t.Levels[w.Name] = levels
		t.Instances[w.Name] = instances
	}
	return t
}

// ForwardFill carries the last valid level over the bars that follow it.
// It is a display choice; the tracker itself never fills.
func ForwardFill(levels []Level) []Level {
	out := make([]Level, len(levels))
	var last Level
	for i, lv := range levels {
		if lv.Valid {
			last = lv
		}
		out[i] = last
	}
	return out
}
