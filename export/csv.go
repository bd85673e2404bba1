package export

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/ifvg/analysis"
)

// CSVSaver writes one line per bar. Each session contributes a
// <name>_high and <name>_low column, empty where the level is absent.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(res *analysis.Result, path string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	defer fh.Close()

	names := res.SessionNames()
	w := csv.NewWriter(fh)

	header := []string{"time", "open", "high", "low", "close", "volume", "atr", "inversion_detected"}
	for _, n := range names {
		header = append(header, n+"_high", n+"_low")
	}
	header = append(header, "long_condition_met", "short_condition_met")
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range res.Rows {
		rec := []string{
			r.Time.Format(time.RFC3339),
			num(r.Open),
			num(r.High),
			num(r.Low),
			num(r.Close),
			num(r.Volume),
			num(r.ATR),
			strconv.FormatBool(r.Inversion),
		}
		for _, n := range names {
			lvl := r.Sessions[n]
			if lvl.Valid {
				rec = append(rec, num(lvl.High), num(lvl.Low))
			} else {
				rec = append(rec, "", "")
			}
		}
		rec = append(rec, strconv.FormatBool(r.Long), strconv.FormatBool(r.Short))
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fh.Close()
}

func num(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
