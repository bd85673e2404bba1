package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxInstruments caps the distinct instrument label values a
// Metrics will emit.
const DefaultMaxInstruments = 64

// OtherInstrument is the label used once the cap is reached or for names
// that are not plain symbols.
const OtherInstrument = "other"

const maxLabelLen = 32

// Metrics holds the Prometheus collectors for gap scans. Each Metrics owns
// its registry so several can coexist in one process (tests, multiple
// servers).
type Metrics struct {
	Registry *prometheus.Registry

	ScansTotal   *prometheus.CounterVec // labels: instrument, result
	BarsScanned  *prometheus.CounterVec // labels: instrument
	GapsOpened   *prometheus.CounterVec // labels: instrument, direction
	Inversions   *prometheus.CounterVec // labels: instrument, origin
	Signals      *prometheus.CounterVec // labels: instrument, side
	OpenGaps     *prometheus.GaugeVec   // labels: instrument, direction
	ScanDuration prometheus.Histogram

	mu             sync.Mutex
	maxInstruments int
	instruments    map[string]struct{}
}

// New registers and returns all scan metrics.
func New() *Metrics {
	m := &Metrics{
		Registry:       prometheus.NewRegistry(),
		maxInstruments: DefaultMaxInstruments,
		instruments:    make(map[string]struct{}),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifvg_scans_total",
			Help: "Bar series scans by outcome",
		}, []string{"instrument", "result"}),
		BarsScanned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifvg_bars_scanned_total",
			Help: "Bars tested by the gap engine",
		}, []string{"instrument"}),
		GapsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifvg_gaps_opened_total",
			Help: "Fair value gaps opened",
		}, []string{"instrument", "direction"}),
		Inversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifvg_inversions_total",
			Help: "Fair value gaps inverted, by creation direction",
		}, []string{"instrument", "origin"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ifvg_signals_total",
			Help: "Bars meeting a long or short entry condition",
		}, []string{"instrument", "side"}),
		OpenGaps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ifvg_open_gaps",
			Help: "Gaps still open after the latest scan",
		}, []string{"instrument", "direction"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ifvg_scan_duration_seconds",
			Help:    "Wall time of one full series analysis",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}

	m.Registry.MustRegister(
		m.ScansTotal,
		m.BarsScanned,
		m.GapsOpened,
		m.Inversions,
		m.Signals,
		m.OpenGaps,
		m.ScanDuration,
	)
	return m
}

// SetMaxInstruments changes the instrument label cap. Labels already
// handed out stay valid.
func (m *Metrics) SetMaxInstruments(n int) {
	m.mu.Lock()
	m.maxInstruments = n
	m.mu.Unlock()
}

// InstrumentLabel maps an instrument name to the label value to record it
// under. Names seen before keep their label. New names are admitted until
// the cap is reached; after that, and for anything that is not a short
// ticker-like symbol, OtherInstrument is returned.
func (m *Metrics) InstrumentLabel(name string) string {
	if !validSymbol(name) {
		return OtherInstrument
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instruments[name]; ok {
		return name
	}
	if len(m.instruments) >= m.maxInstruments {
		return OtherInstrument
	}
	m.instruments[name] = struct{}{}
	return name
}

func validSymbol(s string) bool {
	if s == "" || len(s) > maxLabelLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '=', r == '.', r == '_', r == '-', r == '/', r == '^', r == '!':
		default:
			return false
		}
	}
	return true
}

// ObserveScan records the duration of one scan.
func (m *Metrics) ObserveScan(d time.Duration) {
	m.ScanDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
