package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/config"
	"github.com/rustyeddy/ifvg/journal"
	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/pkg/id"
	"github.com/rustyeddy/ifvg/session"
)

// ScanRequest is the body of POST /v1/scan. Unset overrides keep the
// server defaults.
type ScanRequest struct {
	Instrument    string                 `json:"instrument"`
	Bars          []market.Bar           `json:"bars"`
	ATRPeriod     *int                   `json:"atr_period,omitempty"`
	ATRMultiplier *float64               `json:"atr_multiplier,omitempty"`
	Lookback      *int                   `json:"lookback,omitempty"`
	Timezone      string                 `json:"timezone,omitempty"`
	Sessions      []config.SessionConfig `json:"sessions,omitempty"`
	ForwardFill   bool                   `json:"ffill,omitempty"`
	SignalsOnly   bool                   `json:"signals_only,omitempty"`
}

type ScanResponse struct {
	RunID string `json:"run_id"`
	*analysis.Result
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req ScanRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	opts, err := s.requestOptions(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	series := market.NewSeries(req.Instrument, req.Bars)
	res, err := analysis.New(opts, analysis.WithLogger(s.log), analysis.WithMetrics(s.metrics)).Run(series)
	switch {
	case errors.Is(err, market.ErrInvalidSeries):
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runID := id.NewRunID()
	if s.journal != nil {
		run := journal.NewRun(runID, res, opts, time.Now())
		if err := s.journal.RecordRun(r.Context(), run, res.Inversions); err != nil {
			s.log.Error().Err(err).Str("run_id", runID).Msg("journal run")
			writeError(w, http.StatusInternalServerError, errors.New("failed to record run"))
			return
		}
	}

	if req.ForwardFill {
		res.Rows = analysis.ForwardFill(res.Rows, res.SessionNames())
	}
	if req.SignalsOnly {
		res.Rows = res.SignalRows()
	}

	s.log.Debug().
		Str("run_id", runID).
		Str("instrument", res.Instrument).
		Int("inversions", len(res.Inversions)).
		Msg("scan complete")
	writeJSON(w, http.StatusOK, ScanResponse{RunID: runID, Result: res})
}

func (s *Server) requestOptions(req ScanRequest) (analysis.Options, error) {
	opts := s.opts
	if req.ATRPeriod != nil {
		opts.ATRPeriod = *req.ATRPeriod
	}
	if req.ATRMultiplier != nil {
		opts.ATRMultiplier = *req.ATRMultiplier
	}
	if req.Lookback != nil {
		opts.Lookback = *req.Lookback
	}
	if req.Timezone != "" {
		loc, err := time.LoadLocation(req.Timezone)
		if err != nil {
			return opts, fmt.Errorf("unknown timezone %q", req.Timezone)
		}
		opts.Location = loc
	}
	if req.Sessions != nil {
		opts.Windows = make([]session.Window, 0, len(req.Sessions))
		for _, sc := range req.Sessions {
			w, err := sc.Window()
			if err != nil {
				return opts, err
			}
			opts.Windows = append(opts.Windows, w)
		}
	}
	return opts, opts.Validate()
}
