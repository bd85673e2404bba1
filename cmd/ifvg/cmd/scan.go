package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/config"
	"github.com/rustyeddy/ifvg/export"
	"github.com/rustyeddy/ifvg/fvg"
	"github.com/rustyeddy/ifvg/journal"
	"github.com/rustyeddy/ifvg/market"
	"github.com/rustyeddy/ifvg/pkg/id"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan bar files for gaps, inversions and entry signals",
	Long: `Scan one or more CSV or Parquet bar files. Each file is an independent
series and files are scanned in parallel.

Examples:
  ifvg scan --bars GC=F.csv
  ifvg scan --bars gold.csv --instrument GC=F --lookback 3 --export gold.parquet --ffill
  ifvg scan --bars GC=F.csv --journal sqlite --db ifvg.sqlite --resume`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanBars          []string
	scanInstrument    string
	scanATRPeriod     int
	scanATRMultiplier float64
	scanLookback      int
	scanExport        string
	scanFormat        string
	scanFFill         bool
	scanJournal       string
	scanDB            string
	scanResume        bool
	scanAll           bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	f := scanCmd.Flags()
	f.StringSliceVarP(&scanBars, "bars", "b", nil, "bar files (.csv, .txt, .parquet), repeat or comma separate")
	f.StringVarP(&scanInstrument, "instrument", "i", "", "instrument name (single file only; default file name)")
	f.IntVar(&scanATRPeriod, "atr-period", 0, "ATR period in bars (overrides config)")
	f.Float64Var(&scanATRMultiplier, "atr-multiplier", 0, "minimum gap size as a multiple of ATR (overrides config)")
	f.IntVar(&scanLookback, "lookback", 0, "first bar index eligible for detection (overrides config)")
	f.StringVarP(&scanExport, "export", "e", "", "write annotated bars to this file")
	f.StringVar(&scanFormat, "format", "", "export format: csv, json, parquet (default from --export extension)")
	f.BoolVar(&scanFFill, "ffill", false, "forward fill session levels in the export")
	f.StringVar(&scanJournal, "journal", "", "journal type: none, csv, sqlite (overrides config)")
	f.StringVar(&scanDB, "db", "", "SQLite journal path (overrides config)")
	f.BoolVar(&scanResume, "resume", false, "continue from the engine state saved in the SQLite journal")
	f.BoolVar(&scanAll, "all", false, "print every bar, not only signal bars")
	scanCmd.MarkFlagRequired("bars")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyScanFlags(cmd, cfg)

	opts, err := cfg.Options()
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	series, err := loadSeries(scanBars, instrumentName(cfg))
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	if j != nil {
		defer j.Close()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a := analysis.New(opts, analysis.WithLogger(log.Logger))

	var results []*analysis.Result
	if scanResume {
		store, ok := j.(stateStore)
		if !ok {
			return errors.New("--resume needs a sqlite journal (--journal sqlite --db <path>)")
		}
		results, err = resumeAll(ctx, a, store, series)
	} else {
		results, err = a.RunAll(ctx, series)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, res := range results {
		runID := id.NewRunID()
		if j != nil {
			run := journal.NewRun(runID, res, opts, time.Now())
			if err := j.RecordRun(ctx, run, res.Inversions); err != nil {
				return fmt.Errorf("journal %s: %w", res.Instrument, err)
			}
		}

		printSummary(out, runID, res)
		fmt.Fprintln(out)
		printInversions(out, res.Inversions)
		fmt.Fprintln(out)
		rows := res.SignalRows()
		if scanAll {
			rows = res.Rows
		}
		printRows(out, rows, res.SessionNames())
		fmt.Fprintln(out)

		if scanExport != "" {
			path := exportPath(scanExport, res.Instrument, len(results) > 1)
			format := scanFormat
			if format == "" {
				format = strings.TrimPrefix(filepath.Ext(path), ".")
			}
			if err := export.Write(res, path, format, scanFFill); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Exported %d bars to %s\n", len(res.Rows), path)
		}
	}
	return nil
}

func applyScanFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("atr-period") {
		cfg.ATRPeriod = scanATRPeriod
	}
	if f.Changed("atr-multiplier") {
		cfg.ATRMultiplier = scanATRMultiplier
	}
	if f.Changed("lookback") {
		cfg.Lookback = scanLookback
	}
	if f.Changed("journal") {
		cfg.Journal.Type = scanJournal
	}
	if f.Changed("db") {
		cfg.Journal.DBPath = scanDB
		if !f.Changed("journal") && (cfg.Journal.Type == "" || cfg.Journal.Type == "none") {
			cfg.Journal.Type = "sqlite"
		}
	}
	if f.Changed("instrument") {
		cfg.Instrument = scanInstrument
	}
}

func instrumentName(cfg *config.Config) string {
	if len(scanBars) == 1 {
		return cfg.Instrument
	}
	return ""
}

func loadSeries(paths []string, instrument string) ([]market.Series, error) {
	series := make([]market.Series, 0, len(paths))
	for _, p := range paths {
		s, err := market.Load(p, instrument)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		log.Debug().Str("path", p).Str("instrument", s.Instrument).Int("bars", s.Len()).Msg("bars loaded")
		series = append(series, s)
	}
	return series, nil
}

// exportPath inserts the instrument before the extension when several
// series share one --export path.
func exportPath(path, instrument string, many bool) string {
	if !many {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + safeName(instrument) + ext
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '=', ' ':
			return '_'
		}
		return r
	}, s)
}

type stateStore interface {
	LoadState(ctx context.Context, instrument string) (fvg.State, error)
	SaveState(ctx context.Context, instrument string, st fvg.State) error
}

// resumeAll scans each series from its saved state, or from the start when
// none exists, and saves the new state.
func resumeAll(ctx context.Context, a *analysis.Analyzer, store stateStore, series []market.Series) ([]*analysis.Result, error) {
	results := make([]*analysis.Result, 0, len(series))
	for _, s := range series {
		st, err := store.LoadState(ctx, s.Instrument)
		switch {
		case errors.Is(err, journal.ErrNotFound):
			log.Info().Str("instrument", s.Instrument).Msg("no saved state, scanning from the start")
		case err != nil:
			return nil, err
		default:
			log.Info().Str("instrument", s.Instrument).Int("next_index", st.NextIndex).Msg("resuming scan")
		}

		res, err := a.RunFrom(s, st)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Instrument, err)
		}
		if err := store.SaveState(ctx, s.Instrument, res.State); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "", "none":
		return nil, nil
	case "csv":
		j, err := journal.NewCSV(jc.RunsFile, jc.InversionsFile)
		if err != nil {
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(jc.DBPath), 0755); err != nil {
			return nil, err
		}
		j, err := journal.NewSQLite(jc.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	default:
		return nil, fmt.Errorf("unknown journal type %q", jc.Type)
	}
}
