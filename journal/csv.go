// journal/csv.go
package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/ifvg/fvg"
)

var (
	runsHeader = []string{"run_id", "instrument", "created", "first_bar", "last_bar", "bars", "scanned",
		"atr_period", "atr_multiplier", "lookback", "opened_bullish", "opened_bearish", "inversions",
		"open_bullish", "open_bearish", "long_signals", "short_signals"}
	inversionsHeader = []string{"run_id", "gap_id", "instrument", "origin", "low", "high", "mid",
		"left_time", "right_time", "created_index", "inversion_time", "inversion_index"}
)

type CSVJournal struct {
	runs       *csv.Writer
	inversions *csv.Writer
	rf, inf    *os.File
}

func NewCSV(runsPath, inversionsPath string) (*CSVJournal, error) {
	rf, err := os.Create(runsPath)
	if err != nil {
		return nil, err
	}
	inf, err := os.Create(inversionsPath)
	if err != nil {
		rf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(rf), csv.NewWriter(inf), rf, inf}
	if err := j.write(j.runs, runsHeader); err != nil {
		j.Close()
		return nil, err
	}
	if err := j.write(j.inversions, inversionsHeader); err != nil {
		j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, rec []string) error {
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordRun(_ context.Context, run Run, inversions []fvg.Gap) error {
	err := j.write(j.runs, []string{
		run.RunID,
		run.Instrument,
		ts(run.Created),
		ts(run.FirstBar),
		ts(run.LastBar),
		strconv.Itoa(run.Bars),
		strconv.Itoa(run.Scanned),
		strconv.Itoa(run.ATRPeriod),
		f(run.ATRMultiplier),
		strconv.Itoa(run.Lookback),
		strconv.Itoa(run.OpenedBullish),
		strconv.Itoa(run.OpenedBearish),
		strconv.Itoa(run.Inversions),
		strconv.Itoa(run.OpenBullish),
		strconv.Itoa(run.OpenBearish),
		strconv.Itoa(run.LongSignals),
		strconv.Itoa(run.ShortSignals),
	})
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.RunID, err)
	}

	for _, g := range inversions {
		r := newInversionRecord(run, g)
		err := j.write(j.inversions, []string{
			r.RunID,
			strconv.Itoa(r.GapID),
			r.Instrument,
			r.Origin,
			f(r.Low),
			f(r.High),
			f(r.Mid),
			ts(r.LeftTime),
			ts(r.RightTime),
			strconv.Itoa(r.CreatedIndex),
			ts(r.InversionTime),
			strconv.Itoa(r.InversionIndex),
		})
		if err != nil {
			return fmt.Errorf("write inversion %d: %w", g.ID, err)
		}
	}
	return nil
}

func (j *CSVJournal) Close() error {
	j.runs.Flush()
	if err := j.runs.Error(); err != nil {
		return err
	}
	j.inversions.Flush()
	if err := j.inversions.Error(); err != nil {
		return err
	}

	if err := j.rf.Close(); err != nil {
		return err
	}
	return j.inf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
