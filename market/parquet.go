package market

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// parquetBar is the on-disk row layout for bar files.
type parquetBar struct {
	Time   int64   `parquet:"time"`
	Open   float64 `parquet:"open"`
	High   float64 `parquet:"high"`
	Low    float64 `parquet:"low"`
	Close  float64 `parquet:"close"`
	Volume float64 `parquet:"volume"`
}

// LoadParquet reads bars written by SaveParquet (or any file with the same
// column names).
func LoadParquet(path string) ([]Bar, error) {
	rows, err := parquet.ReadFile[parquetBar](path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	bars := make([]Bar, len(rows))
	for i, r := range rows {
		bars[i] = Bar{
			Time:   time.UnixMilli(r.Time).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bars, nil
}

// SaveParquet writes bars as a parquet file.
func SaveParquet(path string, bars []Bar) error {
	rows := make([]parquetBar, len(bars))
	for i, b := range bars {
		rows[i] = parquetBar{
			Time:   b.Time.UnixMilli(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return parquet.WriteFile(path, rows)
}

// Load reads a bar file, choosing the decoder from the file extension.
// The instrument name defaults to the file's base name.
func Load(path, instrument string) (Series, error) {
	var (
		bars []Bar
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		bars, err = LoadCSV(path)
	case ".parquet":
		bars, err = LoadParquet(path)
	default:
		return Series{}, fmt.Errorf("unsupported bar file %q (want .csv or .parquet)", path)
	}
	if err != nil {
		return Series{}, err
	}

	if instrument == "" {
		base := filepath.Base(path)
		instrument = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return NewSeries(instrument, bars), nil
}
