package fvg

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/ifvg/indicators"
	"github.com/rustyeddy/ifvg/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type ohlc struct{ o, h, l, c float64 }

func makeBars(rows ...ohlc) []market.Bar {
	bars := make([]market.Bar, len(rows))
	for i, r := range rows {
		bars[i] = market.Bar{
			Time:  t0.Add(time.Duration(i) * time.Minute),
			Open:  r.o,
			High:  r.h,
			Low:   r.l,
			Close: r.c,
		}
	}
	return bars
}

func constATR(n int, v float64) []float64 {
	atr := make([]float64, n)
	for i := range atr {
		atr[i] = v
	}
	return atr
}

// bullishScenario opens a bullish gap at bar 3 (bar 3 low above bar 1 high)
// and inverts it at bar 5.
func bullishScenario() []market.Bar {
	return makeBars(
		ohlc{10, 11, 9, 10},
		ohlc{10, 11, 9, 10.5},
		ohlc{10.5, 15, 10, 14.5},
		ohlc{14.5, 16, 13, 15},
		ohlc{15, 16, 14, 15.5},
		ohlc{15, 15.5, 10, 10.5},
	)
}

func TestScanBullishInversionScenario(t *testing.T) {
	bars := bullishScenario()
	atr, err := indicators.ATRSeries(bars, indicators.DefaultATRPeriod)
	require.NoError(t, err)

	// lookback 2 so the gap completed at bar 3 is seen
	e := New(Config{ATRMultiplier: DefaultATRMultiplier, Lookback: 2})
	res, err := e.Scan(bars, atr)
	require.NoError(t, err)

	require.Len(t, res.Inversions, 1)
	g := res.Inversions[0]
	assert.Equal(t, 1, g.ID)
	assert.Equal(t, Bullish, g.Origin)
	assert.Equal(t, Bearish, g.Direction)
	assert.Equal(t, Inverted, g.Status)
	assert.Equal(t, 11.0, g.Low)
	assert.Equal(t, 13.0, g.High)
	assert.Equal(t, 12.0, g.Mid)
	assert.Equal(t, 3, g.CreatedIndex)
	assert.Equal(t, bars[2].Time, g.LeftTime)
	assert.Equal(t, bars[3].Time, g.RightTime)
	assert.Equal(t, bars[5].Time, g.InversionTime)
	assert.Equal(t, 5, g.InversionIndex)

	assert.Equal(t, []bool{false, false, false, false, false, true}, res.Inverted)
	assert.Empty(t, res.OpenBullish)
	assert.Empty(t, res.OpenBearish)
	assert.Equal(t, 1, res.Opened[Bullish])
	assert.Equal(t, 0, res.Opened[Bearish])
	assert.Equal(t, 2, res.From)
	assert.Equal(t, 6, res.To)
}

func TestScanDefaultLookbackSkipsEarlyGap(t *testing.T) {
	bars := bullishScenario()
	res, err := New(DefaultConfig()).Scan(bars, constATR(len(bars), 0))
	require.NoError(t, err)

	assert.Empty(t, res.Inversions)
	for i, f := range res.Inverted {
		assert.False(t, f, "bar %d", i)
	}
}

func TestScanThresholdBoundary(t *testing.T) {
	tests := []struct {
		name    string
		low     float64
		wantGap bool
	}{
		{"exactly atr*multiplier is rejected", 11, false},
		{"just above threshold is kept", 11.0625, true},
		{"below threshold", 10.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bars := makeBars(
				ohlc{9.5, 10, 9, 9.5},
				ohlc{9.5, 12, 9.5, 11.5},
				ohlc{11.5, 12, tt.low, 11.75},
			)
			// threshold = 4 * 0.25 = 1.0 over bar 0 high of 10
			e := New(Config{ATRMultiplier: 0.25, Lookback: 2})
			res, err := e.Scan(bars, constATR(len(bars), 4))
			require.NoError(t, err)

			if tt.wantGap {
				require.Len(t, res.OpenBullish, 1)
				assert.Equal(t, 10.0, res.OpenBullish[0].Low)
				assert.Equal(t, tt.low, res.OpenBullish[0].High)
			} else {
				assert.Empty(t, res.OpenBullish)
			}
			assert.Empty(t, res.OpenBearish)
		})
	}
}

func TestScanBearishGapsInvertOnSameBar(t *testing.T) {
	bars := makeBars(
		ohlc{19.5, 20, 19, 19.5},
		ohlc{19.5, 19.5, 15, 15.5},
		ohlc{16.5, 17, 16, 16.5}, // bearish gap [17, 19]
		ohlc{16.5, 16.5, 14, 14.5},
		ohlc{14.5, 15, 13, 13.5}, // bearish gap [15, 16]
		ohlc{14, 21, 14, 20.5},   // trades above both i-2 lows
	)
	e := New(Config{ATRMultiplier: 0.25, Lookback: 2})
	res, err := e.Scan(bars, constATR(len(bars), 0))
	require.NoError(t, err)

	require.Len(t, res.Inversions, 2)
	assert.Equal(t, 2, res.Opened[Bearish])

	first, second := res.Inversions[0], res.Inversions[1]
	assert.Equal(t, 17.0, first.Low)
	assert.Equal(t, 19.0, first.High)
	assert.Equal(t, 19.0, first.InversionLevel())
	assert.Equal(t, 15.0, second.Low)
	assert.Equal(t, 16.0, second.High)
	assert.Less(t, first.ID, second.ID)

	for _, g := range res.Inversions {
		assert.Equal(t, Bearish, g.Origin)
		assert.Equal(t, Bullish, g.Direction)
		assert.Equal(t, bars[5].Time, g.InversionTime)
	}
	assert.Equal(t, []bool{false, false, false, false, false, true}, res.Inverted)
}

func TestScanShortSeries(t *testing.T) {
	bars := bullishScenario()[:5]
	res, err := New(DefaultConfig()).Scan(bars, constATR(len(bars), 0))
	require.NoError(t, err)
	assert.Empty(t, res.Inversions)
	assert.Len(t, res.Inverted, 5)
	assert.Equal(t, 5, res.From)
	assert.Equal(t, 5, res.To)

	res, err = New(DefaultConfig()).Scan(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Inverted)
}

func TestScanRejectsMalformedInput(t *testing.T) {
	t.Run("nan price", func(t *testing.T) {
		bars := bullishScenario()
		bars[4].Low = math.NaN()
		_, err := New(DefaultConfig()).Scan(bars, constATR(len(bars), 0))
		assert.ErrorIs(t, err, market.ErrInvalidSeries)
	})

	t.Run("non monotonic time", func(t *testing.T) {
		bars := bullishScenario()
		bars[2].Time = bars[1].Time
		_, err := New(DefaultConfig()).Scan(bars, constATR(len(bars), 0))
		assert.ErrorIs(t, err, market.ErrInvalidSeries)
	})

	t.Run("atr length mismatch", func(t *testing.T) {
		bars := bullishScenario()
		_, err := New(DefaultConfig()).Scan(bars, constATR(3, 0))
		assert.Error(t, err)
	})

	t.Run("bad config", func(t *testing.T) {
		bars := bullishScenario()
		_, err := New(Config{ATRMultiplier: 0.25, Lookback: 1}).Scan(bars, constATR(len(bars), 0))
		assert.Error(t, err)

		_, err = New(Config{ATRMultiplier: -1, Lookback: 5}).Scan(bars, constATR(len(bars), 0))
		assert.Error(t, err)
	})
}

func TestDirection(t *testing.T) {
	assert.Equal(t, Bearish, Bullish.Opposite())
	assert.Equal(t, Bullish, Bearish.Opposite())
	assert.Equal(t, "bullish", Bullish.String())

	d, err := ParseDirection("BEAR")
	require.NoError(t, err)
	assert.Equal(t, Bearish, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestGapStatusSurvivesSavedState(t *testing.T) {
	bars := bullishScenario()
	atr := constATR(len(bars), 0)
	cfg := Config{ATRMultiplier: DefaultATRMultiplier, Lookback: 2}

	e := New(cfg)
	_, err := e.Scan(bars[:5], atr[:5])
	require.NoError(t, err)

	data, err := json.Marshal(e.State())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"open"`)

	var st State
	require.NoError(t, json.Unmarshal(data, &st))
	require.Len(t, st.Bullish, 1)
	open := st.Bullish[0]
	assert.Equal(t, Open, open.Status)
	assert.Equal(t, 2.0, open.Size())

	res, err := Restore(cfg, st).Scan(bars, atr)
	require.NoError(t, err)
	require.Len(t, res.Inversions, 1)
	assert.Equal(t, Inverted, res.Inversions[0].Status)
	assert.Equal(t, open.ID, res.Inversions[0].ID)
}

func TestStatusText(t *testing.T) {
	b, err := Inverted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "inverted", string(b))

	var s Status
	require.NoError(t, s.UnmarshalText([]byte("OPEN")))
	assert.Equal(t, Open, s)
	assert.Error(t, s.UnmarshalText([]byte("closed")))
	assert.Equal(t, "status(9)", Status(9).String())
}
