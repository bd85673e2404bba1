package export

import (
	"encoding/json"
	"os"

	"github.com/rustyeddy/ifvg/analysis"
)

// JSONSaver writes the whole result (rows, inversion log, open gaps and
// summary) as indented JSON.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(res *analysis.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	return f.Close()
}
