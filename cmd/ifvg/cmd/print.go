package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/fvg"
	"github.com/rustyeddy/ifvg/journal"
)

const timeLayout = "2006-01-02 15:04"

func printSummary(w io.Writer, runID string, res *analysis.Result) {
	s := res.Summary
	fmt.Fprintf(w, "✓ %s: %d bars %s → %s\n", res.Instrument, s.Bars, fmtTime(s.First), fmtTime(s.Last))
	if runID != "" {
		fmt.Fprintf(w, "  Run:        %s\n", runID)
	}
	fmt.Fprintf(w, "  Scanned:    %d bars\n", s.Scanned)
	fmt.Fprintf(w, "  Gaps:       %d bullish, %d bearish opened\n", s.OpenedBullish, s.OpenedBearish)
	fmt.Fprintf(w, "  Inversions: %d\n", s.Inversions)
	fmt.Fprintf(w, "  Still open: %d bullish, %d bearish\n", s.OpenBullish, s.OpenBearish)
	fmt.Fprintf(w, "  Signals:    %d long, %d short\n", s.Long, s.Short)
}

func printInversions(w io.Writer, gaps []fvg.Gap) {
	if len(gaps) == 0 {
		fmt.Fprintln(w, "No inversions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tORIGIN\tLOW\tHIGH\tSIZE\tCREATED\tINVERTED")
	for _, g := range gaps {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%.4g\t%s\t%s\n",
			g.ID, g.Origin, g.Low, g.High, g.Size(), fmtTime(g.RightTime), fmtTime(g.InversionTime))
	}
	tw.Flush()
}

func printRows(w io.Writer, rows []analysis.Row, names []string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No signal bars")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "TIME\tCLOSE\tATR\tINVERSION")
	for _, n := range names {
		fmt.Fprintf(tw, "\t%s", n)
	}
	fmt.Fprintln(tw, "\tLONG\tSHORT")

	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%g\t%.4f\t%s", fmtTime(r.Time), r.Close, r.ATR, mark(r.Inversion))
		for _, n := range names {
			if lvl := r.Sessions[n]; lvl.Valid {
				fmt.Fprintf(tw, "\t%g-%g", lvl.Low, lvl.High)
			} else {
				fmt.Fprint(tw, "\t-")
			}
		}
		fmt.Fprintf(tw, "\t%s\t%s\n", mark(r.Long), mark(r.Short))
	}
	tw.Flush()
}

func printRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tINSTRUMENT\tCREATED\tBARS\tSCANNED\tINVERSIONS\tLONG\tSHORT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			r.RunID, r.Instrument, fmtTime(r.Created), r.Bars, r.Scanned, r.Inversions, r.LongSignals, r.ShortSignals)
	}
	tw.Flush()
}

func printInversionRecords(w io.Writer, recs []journal.InversionRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No inversions")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tORIGIN\tLOW\tHIGH\tCREATED\tINVERTED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%s\t%s\n",
			r.GapID, r.Origin, r.Low, r.High, fmtTime(r.RightTime), fmtTime(r.InversionTime))
	}
	tw.Flush()
}

func printState(w io.Writer, instrument string, st fvg.State) {
	fmt.Fprintf(w, "%s: next bar %d, last scanned %s\n", instrument, st.NextIndex, fmtTime(st.LastTime))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDIRECTION\tLOW\tHIGH\tSIZE\tCREATED")
	for _, gaps := range [][]fvg.Gap{st.Bullish, st.Bearish} {
		for _, g := range gaps {
			fmt.Fprintf(tw, "%d\t%s\t%g\t%g\t%.4g\t%s\n",
				g.ID, g.Direction, g.Low, g.High, g.Size(), fmtTime(g.RightTime))
		}
	}
	tw.Flush()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timeLayout)
}

func mark(b bool) string {
	if b {
		return "✓"
	}
	return ""
}
