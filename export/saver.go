// Package export writes annotated analysis rows to CSV, JSON or Parquet.
package export

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/ifvg/analysis"
)

// Saver writes the rows of one result to path.
type Saver interface {
	Save(res *analysis.Result, path string) error
	Extension() string
}

// NewSaver returns the saver for format (csv, json, parquet), or nil if the
// format is not supported.
func NewSaver(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	default:
		return nil
	}
}

func Formats() []string {
	return []string{"csv", "json", "parquet"}
}

// Write saves res in format. With ffill the session columns carry the last
// completed range over bars outside each window.
func Write(res *analysis.Result, path, format string, ffill bool) error {
	s := NewSaver(format)
	if s == nil {
		return fmt.Errorf("export: unsupported format %q (use %s)", format, strings.Join(Formats(), ", "))
	}
	if ffill {
		filled := *res
		filled.Rows = analysis.ForwardFill(res.Rows, res.SessionNames())
		res = &filled
	}
	if err := s.Save(res, path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}
