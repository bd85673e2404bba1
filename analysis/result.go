package analysis

import (
	"time"

	"github.com/rustyeddy/ifvg/fvg"
	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/session"
)

// Row is one bar annotated with everything the pipeline derived for it.
type Row struct {
	market.Bar
	ATR       float64                  `json:"atr"`
	Inversion bool                     `json:"inversion_detected"`
	Sessions  map[string]session.Level `json:"sessions,omitempty"`
	Long      bool                     `json:"long_condition_met"`
	Short     bool                     `json:"short_condition_met"`
}

type Summary struct {
	Bars          int           `json:"bars"`
	Scanned       int           `json:"scanned"`
	OpenedBullish int           `json:"opened_bullish"`
	OpenedBearish int           `json:"opened_bearish"`
	Inversions    int           `json:"inversions"`
	OpenBullish   int           `json:"open_bullish"`
	OpenBearish   int           `json:"open_bearish"`
	Long          int           `json:"long_signals"`
	Short         int           `json:"short_signals"`
	First         time.Time     `json:"first"`
	Last          time.Time     `json:"last"`
	Duration      time.Duration `json:"duration_ns"`
}

type Result struct {
	Instrument string         `json:"instrument"`
	Rows       []Row          `json:"rows"`
	Inversions []fvg.Gap      `json:"inversions"`
	OpenGaps   []fvg.Gap      `json:"open_gaps"`
	State      fvg.State      `json:"-"`
	Sessions   *session.Table `json:"-"`
	Summary    Summary        `json:"summary"`
}

// SessionNames returns the tracked session names in configuration order.
func (r *Result) SessionNames() []string {
	if r.Sessions == nil {
		return nil
	}
	return r.Sessions.Names
}

// SignalRows returns the rows where an inversion or an entry condition
// occurred.
func (r *Result) SignalRows() []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Inversion || row.Long || row.Short {
			out = append(out, row)
		}
	}
	return out
}

// ForwardFill returns a copy of rows with each session level carried
// forward over the bars outside its window. Display only.
func ForwardFill(rows []Row, names []string) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	for _, name := range names {
		levels := make([]session.Level, len(rows))
		for i, r := range rows {
			levels[i] = r.Sessions[name]
		}
		filled := session.ForwardFill(levels)
		for i := range out {
			m := make(map[string]session.Level, len(names))
			for k, v := range out[i].Sessions {
				m[k] = v
			}
			m[name] = filled[i]
			out[i].Sessions = m
		}
	}
	return out
}
