package export

import (
	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/ifvg/analysis"
)

type parquetSession struct {
	Name string  `parquet:"name"`
	High float64 `parquet:"high"`
	Low  float64 `parquet:"low"`
}

type parquetRow struct {
	Time      int64            `parquet:"time"`
	Open      float64          `parquet:"open"`
	High      float64          `parquet:"high"`
	Low       float64          `parquet:"low"`
	Close     float64          `parquet:"close"`
	Volume    float64          `parquet:"volume"`
	ATR       float64          `parquet:"atr"`
	Inversion bool             `parquet:"inversion_detected"`
	Long      bool             `parquet:"long_condition_met"`
	Short     bool             `parquet:"short_condition_met"`
	Sessions  []parquetSession `parquet:"sessions"`
}

// ParquetSaver writes one row per bar, time in unix milliseconds. Only
// valid session levels are listed for a bar.
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(res *analysis.Result, path string) error {
	return parquet.WriteFile(path, toParquet(res))
}

func toParquet(res *analysis.Result) []parquetRow {
	names := res.SessionNames()
	rows := make([]parquetRow, len(res.Rows))
	for i, r := range res.Rows {
		pr := parquetRow{
			Time:      r.Time.UnixMilli(),
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			ATR:       r.ATR,
			Inversion: r.Inversion,
			Long:      r.Long,
			Short:     r.Short,
		}
		for _, n := range names {
			if lvl := r.Sessions[n]; lvl.Valid {
				pr.Sessions = append(pr.Sessions, parquetSession{Name: n, High: lvl.High, Low: lvl.Low})
			}
		}
		rows[i] = pr
	}
	return rows
}
