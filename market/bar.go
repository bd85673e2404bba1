package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidSeries is returned (wrapped) when a bar sequence violates the
// ordering or price preconditions of the scanners.
var ErrInvalidSeries = errors.New("invalid bar series")

// Bar represents one OHLC (Open, High, Low, Close) price observation.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// Series is an ordered sequence of bars for a single instrument.
// Bars are read-only once the series has been handed to a scanner.
type Series struct {
	Instrument string `json:"instrument"`
	Bars       []Bar  `json:"bars"`
}

func NewSeries(instrument string, bars []Bar) Series {
	return Series{Instrument: instrument, Bars: bars}
}

func (s Series) Len() int {
	return len(s.Bars)
}

// Validate checks that timestamps are strictly increasing and every price
// is a finite number with High >= Low.
func (s Series) Validate() error {
	for i, b := range s.Bars {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%w: bar %d: %v", ErrInvalidSeries, i, err)
		}
		if i > 0 && !b.Time.After(s.Bars[i-1].Time) {
			return fmt.Errorf("%w: bar %d: timestamp %s not after %s",
				ErrInvalidSeries, i,
				b.Time.Format(time.RFC3339), s.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

func (b Bar) validate() error {
	if b.Time.IsZero() {
		return errors.New("missing timestamp")
	}
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	} {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) {
			return fmt.Errorf("%s is not a finite number", p.name)
		}
	}
	if b.High < b.Low {
		return fmt.Errorf("high %g below low %g", b.High, b.Low)
	}
	return nil
}
