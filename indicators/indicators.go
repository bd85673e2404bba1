// Package indicators provides technical analysis indicators computed over
// market bars.
package indicators

import "github.com/rustyeddy/ifvg/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use for one-shot scans and incremental
// updates alike.
type Indicator interface {
	// Name returns a stable identifier like "ATR(200)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool
}

type ValueF64 interface {
	// Value returns the current indicator value. If !Ready(), it returns 0.
	Value() float64
}

// ValueIndicator is an Indicator with a float64 value.
type ValueIndicator interface {
	Indicator
	ValueF64
}

// Values resets ind and feeds it every bar in order, returning the value
// after each update.
func Values(ind ValueIndicator, bars []market.Bar) []float64 {
	ind.Reset()
	out := make([]float64, len(bars))
	for i, b := range bars {
		ind.Update(b)
		out[i] = ind.Value()
	}
	return out
}
