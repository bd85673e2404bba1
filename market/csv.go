package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// column aliases accepted in a CSV header row.
var columnAliases = map[string]string{
	"time":      "time",
	"t":         "time",
	"date":      "time",
	"datetime":  "time",
	"timestamp": "time",
	"open":      "open",
	"o":         "open",
	"high":      "high",
	"h":         "high",
	"low":       "low",
	"l":         "low",
	"close":     "close",
	"c":         "close",
	"volume":    "volume",
	"v":         "volume",
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSV reads an OHLC bar file. See ReadCSV for the accepted format.
func LoadCSV(path string) ([]Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	bars, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

// ReadCSV reads OHLC rows from r. The first row must be a header naming at
// least time, open, high, low and close columns (case-insensitive, short
// forms t/o/h/l/c allowed). Unknown columns such as "Adj Close" are ignored.
// Empty rows are skipped.
func ReadCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	var bars []Bar
	line := 1
	for {
		row, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		b, err := parseBarRow(row, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func mapColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if name, ok := columnAliases[key]; ok {
			if _, dup := cols[name]; !dup {
				cols[name] = i
			}
		}
	}
	for _, need := range []string{"time", "open", "high", "low", "close"} {
		if _, ok := cols[need]; !ok {
			return nil, fmt.Errorf("header missing %q column", need)
		}
	}
	return cols, nil
}

func parseBarRow(row []string, cols map[string]int) (Bar, error) {
	cell := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[i]), true
	}

	ts, _ := cell("time")
	t, err := ParseTime(ts)
	if err != nil {
		return Bar{}, err
	}

	var b Bar
	b.Time = t
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"open", &b.Open},
		{"high", &b.High},
		{"low", &b.Low},
		{"close", &b.Close},
	} {
		s, ok := cell(f.name)
		if !ok || s == "" {
			return Bar{}, fmt.Errorf("missing %s", f.name)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad %s %q: %w", f.name, s, err)
		}
		*f.dst = v
	}

	if s, ok := cell("volume"); ok && s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad volume %q: %w", s, err)
		}
		b.Volume = v
	}
	return b, nil
}

// ParseTime accepts RFC3339 (with or without fractional seconds), a few
// common date/time layouts interpreted as UTC, or unix seconds/milliseconds.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time")
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		// anything past year ~2286 in seconds is treated as milliseconds
		if n > 9_999_999_999 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}
