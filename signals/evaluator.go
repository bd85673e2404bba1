// Package signals turns inversion flags and session ranges into per-bar
// long and short entry conditions.
package signals

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/session"
)

// Flags are the entry conditions of a single bar.
type Flags struct {
	Long  bool `json:"long_condition_met"`
	Short bool `json:"short_condition_met"`
}

// Evaluator derives Flags bar by bar. It keeps no state between bars.
//
// A bar is long when an inversion happened on it and it closed below the
// low of the most recently completed session. A bar is short when an
// inversion happened on it and it closed above the highest high among the
// latest completed instance of every session. Only instances whose window
// has ended at or before the bar's timestamp count, so a bar never looks at
// session bars that follow it.
type Evaluator struct{}

func (Evaluator) Evaluate(bars []market.Bar, inverted []bool, table *session.Table) []Flags {
	out := make([]Flags, len(bars))
	if table == nil {
		return out
	}
	for i, b := range bars {
		if i >= len(inverted) || !inverted[i] {
			continue
		}
		out[i] = Eval(b, true, table)
	}
	return out
}

// Eval computes the flags of one bar.
func Eval(b market.Bar, inverted bool, table *session.Table) Flags {
	var f Flags
	if !inverted || table == nil {
		return f
	}
	if low, ok := PriorLow(table, b.Time); ok && b.Close < low {
		f.Long = true
	}
	if high, ok := PriorHigh(table, b.Time); ok && b.Close > high {
		f.Short = true
	}
	return f
}

// lastCompleted returns the latest instance of a session that ended at or
// before t.
func lastCompleted(instances []session.Instance, t time.Time) (session.Instance, bool) {
	n := sort.Search(len(instances), func(k int) bool {
		return instances[k].End.After(t)
	})
	if n == 0 {
		return session.Instance{}, false
	}
	return instances[n-1], true
}

// PriorLow is the low of the most recently completed session instance,
// across all sessions in the table.
func PriorLow(table *session.Table, t time.Time) (float64, bool) {
	var (
		best  session.Instance
		found bool
	)
	for _, name := range table.Names {
		in, ok := lastCompleted(table.Instances[name], t)
		if !ok {
			continue
		}
		if !found || in.End.After(best.End) {
			best, found = in, true
		}
	}
	return best.Low, found
}

// PriorHigh is the highest high among the latest completed instance of
// every session in the table.
func PriorHigh(table *session.Table, t time.Time) (float64, bool) {
	high := math.Inf(-1)
	found := false
	for _, name := range table.Names {
		in, ok := lastCompleted(table.Instances[name], t)
		if !ok {
			continue
		}
		high = math.Max(high, in.High)
		found = true
	}
	return high, found
}
