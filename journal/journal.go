// journal/journal.go
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/fvg"
)

var ErrNotFound = errors.New("not found")

// Run is one analysis of one instrument, as stored in the runs table.
type Run struct {
	RunID      string    `db:"run_id"`
	Instrument string    `db:"instrument"`
	Created    time.Time `db:"created"`
	FirstBar   time.Time `db:"first_bar"`
	LastBar    time.Time `db:"last_bar"`
	Bars       int       `db:"bars"`
	Scanned    int       `db:"scanned"`

	ATRPeriod     int     `db:"atr_period"`
	ATRMultiplier float64 `db:"atr_multiplier"`
	Lookback      int     `db:"lookback"`

	OpenedBullish int `db:"opened_bullish"`
	OpenedBearish int `db:"opened_bearish"`
	Inversions    int `db:"inversions"`
	OpenBullish   int `db:"open_bullish"`
	OpenBearish   int `db:"open_bearish"`
	LongSignals   int `db:"long_signals"`
	ShortSignals  int `db:"short_signals"`
}

// NewRun summarizes an analysis result for the journal.
func NewRun(runID string, res *analysis.Result, opts analysis.Options, created time.Time) Run {
	s := res.Summary
	return Run{
		RunID:         runID,
		Instrument:    res.Instrument,
		Created:       created.UTC(),
		FirstBar:      s.First.UTC(),
		LastBar:       s.Last.UTC(),
		Bars:          s.Bars,
		Scanned:       s.Scanned,
		ATRPeriod:     opts.ATRPeriod,
		ATRMultiplier: opts.ATRMultiplier,
		Lookback:      opts.Lookback,
		OpenedBullish: s.OpenedBullish,
		OpenedBearish: s.OpenedBearish,
		Inversions:    s.Inversions,
		OpenBullish:   s.OpenBullish,
		OpenBearish:   s.OpenBearish,
		LongSignals:   s.Long,
		ShortSignals:  s.Short,
	}
}

// InversionRecord is one inverted gap of a run.
type InversionRecord struct {
	RunID          string    `db:"run_id"`
	GapID          int       `db:"gap_id"`
	Instrument     string    `db:"instrument"`
	Origin         string    `db:"origin"`
	Low            float64   `db:"low"`
	High           float64   `db:"high"`
	Mid            float64   `db:"mid"`
	LeftTime       time.Time `db:"left_time"`
	RightTime      time.Time `db:"right_time"`
	CreatedIndex   int       `db:"created_index"`
	InversionTime  time.Time `db:"inversion_time"`
	InversionIndex int       `db:"inversion_index"`
}

func newInversionRecord(run Run, g fvg.Gap) InversionRecord {
	return InversionRecord{
		RunID:          run.RunID,
		GapID:          g.ID,
		Instrument:     run.Instrument,
		Origin:         g.Origin.String(),
		Low:            g.Low,
		High:           g.High,
		Mid:            g.Mid,
		LeftTime:       g.LeftTime.UTC(),
		RightTime:      g.RightTime.UTC(),
		CreatedIndex:   g.CreatedIndex,
		InversionTime:  g.InversionTime.UTC(),
		InversionIndex: g.InversionIndex,
	}
}

type Journal interface {
	RecordRun(ctx context.Context, run Run, inversions []fvg.Gap) error
	Close() error
}
