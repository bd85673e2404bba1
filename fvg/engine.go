package fvg

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/ifvg/market"
)

const (
	DefaultATRMultiplier = 0.25
	DefaultLookback      = 5

	// minLookback is the smallest index with a bar two positions back.
	minLookback = 2
)

// ErrStateMismatch is returned when a restored engine is handed a series
// that does not contain the bars it already scanned.
var ErrStateMismatch = errors.New("engine state does not match series")

type Config struct {
	// ATRMultiplier scales ATR into the minimum significant gap size.
	ATRMultiplier float64 `json:"atr_multiplier" yaml:"atr_multiplier"`

	// Lookback is the first bar index that is scanned.
	Lookback int `json:"lookback" yaml:"lookback"`
}

func DefaultConfig() Config {
	return Config{
		ATRMultiplier: DefaultATRMultiplier,
		Lookback:      DefaultLookback,
	}
}

func (c Config) Validate() error {
	if c.ATRMultiplier < 0 {
		return fmt.Errorf("atr multiplier must not be negative, got %g", c.ATRMultiplier)
	}
	if c.Lookback < minLookback {
		return fmt.Errorf("lookback must be at least %d, got %d", minLookback, c.Lookback)
	}
	return nil
}

// Engine runs the single forward pass over a bar series. It keeps the open
// bullish and bearish gaps (oldest first) and the inversion log between
// calls, so a later Scan over a longer series resumes where the previous
// one stopped.
//
// An Engine is not safe for concurrent use; scan independent series with
// independent engines.
type Engine struct {
	cfg Config

	bullish    []Gap
	bearish    []Gap
	inversions []Gap

	next     int // next bar index to scan, 0 until the first scan
	nextID   int
	lastTime time.Time
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, nextID: 1}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Result describes one Scan call.
type Result struct {
	// Inverted has one flag per input bar; true where at least one gap
	// inverted on that bar during this scan.
	Inverted []bool

	// Inversions are the gaps inverted during this scan, ordered by
	// inversion time.
	Inversions []Gap

	// OpenBullish and OpenBearish are the gaps still open after the scan.
	OpenBullish []Gap
	OpenBearish []Gap

	// Opened counts gaps created during this scan.
	Opened map[Direction]int

	// From and To bound the scanned bar indexes, [From, To).
	From int
	To   int
}

// Scan tests every bar from the lookback index (or the resume point) to the
// end of bars. atr must hold one value per bar. Series too short to reach
// the lookback index produce an empty result, not an error.
func (e *Engine) Scan(bars []market.Bar, atr []float64) (*Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	if len(atr) != len(bars) {
		return nil, fmt.Errorf("atr has %d values for %d bars", len(atr), len(bars))
	}
	if err := (market.Series{Bars: bars}).Validate(); err != nil {
		return nil, err
	}

	start := e.cfg.Lookback
	if e.next > 0 {
		if e.next > len(bars) {
			return nil, fmt.Errorf("%w: resume index %d beyond %d bars", ErrStateMismatch, e.next, len(bars))
		}
		if !bars[e.next-1].Time.Equal(e.lastTime) {
			return nil, fmt.Errorf("%w: bar %d is %s, state expects %s", ErrStateMismatch,
				e.next-1, bars[e.next-1].Time.Format(time.RFC3339), e.lastTime.Format(time.RFC3339))
		}
		start = max(start, e.next)
	}

	res := &Result{
		Inverted: make([]bool, len(bars)),
		Opened:   map[Direction]int{Bullish: 0, Bearish: 0},
		From:     start,
		To:       max(start, len(bars)),
	}

	for i := start; i < len(bars); i++ {
		e.step(bars, atr, i, res)
	}
	if len(bars) > start {
		e.next = len(bars)
		e.lastTime = bars[len(bars)-1].Time
	}

	res.OpenBullish = e.OpenBullish()
	res.OpenBearish = e.OpenBearish()
	return res, nil
}

func (e *Engine) step(bars []market.Bar, atr []float64, i int, res *Result) {
	cur, ref := bars[i], bars[i-2]
	minSize := atr[i] * e.cfg.ATRMultiplier

	if cur.Low > ref.High && cur.Low-ref.High > minSize {
		e.bullish = append(e.bullish, e.newGap(Bullish, bars, i, ref.High, cur.Low))
		res.Opened[Bullish]++
	}
	if cur.High < ref.Low && ref.Low-cur.High > minSize {
		e.bearish = append(e.bearish, e.newGap(Bearish, bars, i, cur.High, ref.Low))
		res.Opened[Bearish]++
	}

	// gaps created above are already eligible
	e.bullish = e.invert(e.bullish, cur, i, res)
	e.bearish = e.invert(e.bearish, cur, i, res)
}

func (e *Engine) newGap(dir Direction, bars []market.Bar, i int, low, high float64) Gap {
	g := Gap{
		ID:           e.nextID,
		Origin:       dir,
		Direction:    dir,
		Status:       Open,
		LeftTime:     bars[i-1].Time,
		RightTime:    bars[i].Time,
		CreatedIndex: i,
		Low:          low,
		High:         high,
		Mid:          (low + high) / 2,
	}
	e.nextID++
	return g
}

// invert evaluates every gap in open against bar i first and only then
// drops the inverted ones, so removal never disturbs the evaluation.
func (e *Engine) invert(open []Gap, bar market.Bar, i int, res *Result) []Gap {
	var hits []int
	for k, g := range open {
		if g.invertedBy(bar.Low, bar.High) {
			hits = append(hits, k)
		}
	}
	if len(hits) == 0 {
		return open
	}

	kept := make([]Gap, 0, len(open)-len(hits))
	h := 0
	for k, g := range open {
		if h < len(hits) && hits[h] == k {
			h++
			g.Status = Inverted
			g.Direction = g.Origin.Opposite()
			g.InversionTime = bar.Time
			g.InversionIndex = i
			e.inversions = append(e.inversions, g)
			res.Inversions = append(res.Inversions, g)
			res.Inverted[i] = true
			continue
		}
		kept = append(kept, g)
	}
	return kept
}

// OpenBullish returns a copy of the open bullish gaps, oldest first.
func (e *Engine) OpenBullish() []Gap {
	return append([]Gap(nil), e.bullish...)
}

// OpenBearish returns a copy of the open bearish gaps, oldest first.
func (e *Engine) OpenBearish() []Gap {
	return append([]Gap(nil), e.bearish...)
}

// Inversions returns a copy of every inversion this engine has recorded.
func (e *Engine) Inversions() []Gap {
	return append([]Gap(nil), e.inversions...)
}
