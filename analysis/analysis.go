// Package analysis runs the full pipeline over a bar series:
// ATR, gap detection and inversion, session ranges and entry signals.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/ifvg/fvg"
	"github.com/rustyeddy/ifvg/indicators"
	"github.com/rustyeddy/ifvg/internal/metrics"
	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/session"
	"github.com/rustyeddy/ifvg/signals"
)

type Options struct {
	ATRPeriod     int
	ATRMultiplier float64
	Lookback      int
	Windows       []session.Window
	Location      *time.Location
}

func DefaultOptions() Options {
	loc, err := time.LoadLocation(session.DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Options{
		ATRPeriod:     indicators.DefaultATRPeriod,
		ATRMultiplier: fvg.DefaultATRMultiplier,
		Lookback:      fvg.DefaultLookback,
		Windows:       session.DefaultWindows(),
		Location:      loc,
	}
}

func (o Options) engineConfig() fvg.Config {
	return fvg.Config{ATRMultiplier: o.ATRMultiplier, Lookback: o.Lookback}
}

func (o Options) Validate() error {
	if o.ATRPeriod <= 0 {
		return fmt.Errorf("atr period must be positive, got %d", o.ATRPeriod)
	}
	if err := o.engineConfig().Validate(); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, w := range o.Windows {
		if err := w.Validate(); err != nil {
			return err
		}
		if seen[w.Name] {
			return fmt.Errorf("duplicate session %q", w.Name)
		}
		seen[w.Name] = true
	}
	return nil
}

type Analyzer struct {
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
}

type Option func(*Analyzer)

func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

func New(opts Options, options ...Option) *Analyzer {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	a := &Analyzer{opts: opts, log: zerolog.Nop()}
	for _, o := range options {
		o(a)
	}
	return a
}

func (a *Analyzer) Options() Options {
	return a.opts
}

// Run analyzes a complete series with a fresh engine.
func (a *Analyzer) Run(s market.Series) (*Result, error) {
	return a.RunFrom(s, fvg.State{})
}

// RunFrom analyzes s with an engine restored from st. A zero st is a fresh
// scan. Inversion flags and signals are only produced for bars scanned in
// this call; the session columns cover the whole series.
func (a *Analyzer) RunFrom(s market.Series, st fvg.State) (res *Result, err error) {
	start := time.Now()
	defer func() {
		a.observe(s.Instrument, res, err, time.Since(start))
	}()

	if err := a.opts.Validate(); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	atr, err := indicators.ATRSeries(s.Bars, a.opts.ATRPeriod)
	if err != nil {
		return nil, err
	}

	var engine *fvg.Engine
	if st.Started() {
		engine = fvg.Restore(a.opts.engineConfig(), st)
	} else {
		engine = fvg.New(a.opts.engineConfig())
	}
	scan, err := engine.Scan(s.Bars, atr)
	if err != nil {
		return nil, err
	}

	table := session.NewTracker(a.opts.Location, a.opts.Windows...).Compute(s.Bars)
	flags := signals.Evaluator{}.Evaluate(s.Bars, scan.Inverted, table)

	res = &Result{
		Instrument: s.Instrument,
		Rows:       make([]Row, len(s.Bars)),
		Inversions: scan.Inversions,
		OpenGaps:   append(scan.OpenBullish, scan.OpenBearish...),
		State:      engine.State(),
		Sessions:   table,
	}
	for i, b := range s.Bars {
		row := Row{
			Bar:       b,
			ATR:       atr[i],
			Inversion: scan.Inverted[i],
			Long:      flags[i].Long,
			Short:     flags[i].Short,
		}
		if len(table.Names) > 0 {
			row.Sessions = make(map[string]session.Level, len(table.Names))
			for _, name := range table.Names {
				row.Sessions[name] = table.Level(name, i)
			}
		}
		res.Rows[i] = row
	}
	res.Summary = summarize(s, scan, flags, len(scan.OpenBullish), len(scan.OpenBearish))
	res.Summary.Duration = time.Since(start)

	a.log.Debug().
		Str("instrument", s.Instrument).
		Int("bars", len(s.Bars)).
		Int("from", scan.From).
		Int("inversions", len(scan.Inversions)).
		Int("open_bullish", len(scan.OpenBullish)).
		Int("open_bearish", len(scan.OpenBearish)).
		Msg("series analyzed")

	return res, nil
}

func summarize(s market.Series, scan *fvg.Result, flags []signals.Flags, openBull, openBear int) Summary {
	sum := Summary{
		Bars:          len(s.Bars),
		Scanned:       scan.To - scan.From,
		OpenedBullish: scan.Opened[fvg.Bullish],
		OpenedBearish: scan.Opened[fvg.Bearish],
		Inversions:    len(scan.Inversions),
		OpenBullish:   openBull,
		OpenBearish:   openBear,
	}
	if len(s.Bars) > 0 {
		sum.First = s.Bars[0].Time
		sum.Last = s.Bars[len(s.Bars)-1].Time
	}
	for _, f := range flags {
		if f.Long {
			sum.Long++
		}
		if f.Short {
			sum.Short++
		}
	}
	return sum
}

func (a *Analyzer) observe(instrument string, res *Result, err error, d time.Duration) {
	m := a.metrics
	if m == nil {
		return
	}
	instrument = m.InstrumentLabel(instrument)
	if err != nil {
		m.ScansTotal.WithLabelValues(instrument, "error").Inc()
		return
	}
	m.ScansTotal.WithLabelValues(instrument, "ok").Inc()
	m.ObserveScan(d)

	sum := res.Summary
	m.BarsScanned.WithLabelValues(instrument).Add(float64(sum.Scanned))
	m.GapsOpened.WithLabelValues(instrument, fvg.Bullish.String()).Add(float64(sum.OpenedBullish))
	m.GapsOpened.WithLabelValues(instrument, fvg.Bearish.String()).Add(float64(sum.OpenedBearish))
	for _, g := range res.Inversions {
		m.Inversions.WithLabelValues(instrument, g.Origin.String()).Inc()
	}
	m.Signals.WithLabelValues(instrument, "long").Add(float64(sum.Long))
	m.Signals.WithLabelValues(instrument, "short").Add(float64(sum.Short))
	m.OpenGaps.WithLabelValues(instrument, fvg.Bullish.String()).Set(float64(sum.OpenBullish))
	m.OpenGaps.WithLabelValues(instrument, fvg.Bearish.String()).Set(float64(sum.OpenBearish))
}

// RunAll analyzes independent series in parallel, one engine per series.
// Results keep the order of the input. The first failure cancels the
// series that have not started yet.
func (a *Analyzer) RunAll(ctx context.Context, series []market.Series) ([]*Result, error) {
	results := make([]*Result, len(series))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, s := range series {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := a.Run(s)
			if err != nil {
				return fmt.Errorf("%s: %w", s.Instrument, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			a.log.Warn().Err(err).Msg("analysis canceled")
		}
		return nil, err
	}
	return results, nil
}
