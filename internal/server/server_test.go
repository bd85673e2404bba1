package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/internal/metrics"
	"github.com/rustyeddy/ifvg/journal"
	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/session"
)

func at(h, m int) time.Time {
	return time.Date(2024, 3, 4, h, m, 0, 0, time.UTC)
}

func testBars() []market.Bar {
	return []market.Bar{
		{Time: at(2, 40), Open: 101, High: 102, Low: 100, Close: 101},
		{Time: at(2, 45), Open: 101, High: 102, Low: 100.5, Close: 101.5},
		{Time: at(2, 50), Open: 101.5, High: 101.8, Low: 100.2, Close: 101},
		{Time: at(3, 5), Open: 101, High: 101.5, Low: 100.5, Close: 101.2},
		{Time: at(3, 10), Open: 101.2, High: 104, Low: 101, Close: 103.8},
		{Time: at(3, 15), Open: 103.8, High: 105, Low: 103, Close: 104.5},
		{Time: at(3, 20), Open: 104.5, High: 104.8, Low: 98, Close: 99},
	}
}

func testOptions() analysis.Options {
	return analysis.Options{
		ATRPeriod:     200,
		ATRMultiplier: 0.25,
		Lookback:      5,
		Windows:       []session.Window{{Name: "London", StartHour: 2, StartMinute: 33, EndHour: 3}},
		Location:      time.UTC,
	}
}

func newTestServer(t *testing.T, options ...Option) (*Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	options = append([]Option{WithMetrics(m)}, options...)
	return New(DefaultConfig(), testOptions(), options...), m
}

func post(t *testing.T, h http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/scan", bytes.NewReader(data)))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestScan(t *testing.T) {
	s, _ := newTestServer(t)

	rec := post(t, s.Handler(), ScanRequest{Instrument: "GC=F", Bars: testBars()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		RunID      string         `json:"run_id"`
		Instrument string         `json:"instrument"`
		Rows       []analysis.Row `json:"rows"`
		Summary    analysis.Summary
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.RunID, 26)
	assert.Equal(t, "GC=F", resp.Instrument)
	require.Len(t, resp.Rows, 7)
	assert.True(t, resp.Rows[6].Inversion)
	assert.True(t, resp.Rows[6].Long)
	assert.False(t, resp.Rows[6].Short)
	assert.Equal(t, 1, resp.Summary.Inversions)
}

func TestScanOverrides(t *testing.T) {
	s, _ := newTestServer(t)

	// a London window that closes after the breach bar: no prior session yet
	rec := post(t, s.Handler(), map[string]any{
		"instrument": "GC=F",
		"bars":       testBars(),
		"sessions":   []map[string]string{{"name": "London", "start": "02:33", "end": "04:00"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Rows    []analysis.Row   `json:"rows"`
		Summary analysis.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Rows[6].Inversion)
	assert.False(t, resp.Rows[6].Long)
	assert.Equal(t, 0, resp.Summary.Long)

	// lookback beyond the series: nothing is scanned
	rec = post(t, s.Handler(), map[string]any{"instrument": "GC=F", "bars": testBars(), "lookback": 50})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Summary.Inversions)
	assert.Equal(t, 0, resp.Summary.Scanned)
}

func TestScanSignalsOnlyAndFill(t *testing.T) {
	s, _ := newTestServer(t)

	rec := post(t, s.Handler(), ScanRequest{Instrument: "GC=F", Bars: testBars(), SignalsOnly: true, ForwardFill: true})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []analysis.Row `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, session.Level{High: 102, Low: 100, Valid: true}, resp.Rows[0].Sessions["London"])
}

func TestScanErrors(t *testing.T) {
	s, _ := newTestServer(t)

	unordered := testBars()
	unordered[3].Time = unordered[1].Time

	tests := []struct {
		name string
		body string
		code int
		msg  string
	}{
		{"bad json", `{"bars": [`, http.StatusBadRequest, "decode request"},
		{"unknown field", `{"bar": []}`, http.StatusBadRequest, "unknown field"},
		{"bad lookback", `{"lookback": 1}`, http.StatusBadRequest, "lookback"},
		{"bad timezone", `{"timezone": "Nowhere/City"}`, http.StatusBadRequest, "unknown timezone"},
		{"bad session", `{"sessions": [{"name": "X", "start": "10:00", "end": "09:00"}]}`, http.StatusBadRequest, "session X"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/scan", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.msg)
		})
	}

	rec := post(t, s.Handler(), ScanRequest{Instrument: "GC=F", Bars: unordered})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "bar 3")
}

func TestRoutes(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/scan", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, post(t, s.Handler(), ScanRequest{Instrument: "GC=F", Bars: testBars()}).Code)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `ifvg_scans_total{instrument="GC=F",result="ok"} 1`)
	assert.Contains(t, string(body), `ifvg_signals_total{instrument="GC=F",side="long"} 1`)
}

func TestMetricsInstrumentLabelsBounded(t *testing.T) {
	s, m := newTestServer(t)
	m.SetMaxInstruments(1)
	for _, name := range []string{"GC=F", "ES=F", "free text from a client"} {
		require.Equal(t, http.StatusOK, post(t, s.Handler(), ScanRequest{Instrument: name, Bars: testBars()}).Code)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `ifvg_scans_total{instrument="GC=F",result="ok"} 1`)
	assert.Contains(t, body, `ifvg_scans_total{instrument="other",result="ok"} 2`)
	assert.NotContains(t, body, "ES=F")
	assert.NotContains(t, body, "free text")
}

func TestScanRecordsJournal(t *testing.T) {
	j, err := journal.NewSQLite(filepath.Join(t.TempDir(), "ifvg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	s, _ := newTestServer(t, WithJournal(j))
	rec := post(t, s.Handler(), ScanRequest{Instrument: "GC=F", Bars: testBars()})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	run, err := j.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "GC=F", run.Instrument)
	assert.Equal(t, 1, run.Inversions)
	assert.Equal(t, 1, run.LongSignals)

	recs, err := j.ListInversions(context.Background(), resp.RunID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "bullish", recs[0].Origin)
}
