package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/ifvg/market"
)

// DefaultATRPeriod is the rolling window used for gap significance.
const DefaultATRPeriod = 200

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
// Without a previous bar it degenerates to high-low.
func TrueRange(cur, prev market.Bar, hasPrev bool) float64 {
	highLow := cur.High - cur.Low
	if !hasPrev {
		return highLow
	}
	highClose := math.Abs(cur.High - prev.Close)
	lowClose := math.Abs(cur.Low - prev.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATRSeries returns, for every bar, the simple mean of the true range over
// the trailing period bars. Bars before period observations are available
// get 0, never a missing value.
func ATRSeries(bars []market.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	return Values(NewATR(period), bars), nil
}

// ATR is a streaming Average True Range over a fixed window of true ranges.
// Unlike Wilder's smoothing it is a plain rolling mean, so each value
// depends only on the last period bars.
type ATR struct {
	period int

	ring  []float64 // last period true ranges
	next  int
	count int
	sum   float64

	prev        market.Bar
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
		ring:   make([]float64, period),
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	return a.period
}

func (a *ATR) Reset() {
	for i := range a.ring {
		a.ring[i] = 0
	}
	a.next = 0
	a.count = 0
	a.sum = 0
	a.hasPrevious = false
}

func (a *ATR) Update(b market.Bar) {
	if a.period <= 0 {
		return
	}
	tr := TrueRange(b, a.prev, a.hasPrevious)
	a.prev = b
	a.hasPrevious = true

	if a.count == a.period {
		a.sum -= a.ring[a.next]
	} else {
		a.count++
	}
	a.ring[a.next] = tr
	a.sum += tr
	a.next = (a.next + 1) % a.period
}

func (a *ATR) Ready() bool {
	return a.period > 0 && a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	// running sums drift; clamp tiny negatives from cancellation
	return math.Max(0, a.sum/float64(a.period))
}
