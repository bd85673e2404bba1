package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ifvg/session"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, 200, cfg.ATRPeriod)
	assert.Equal(t, 0.25, cfg.ATRMultiplier)
	assert.Equal(t, 5, cfg.Lookback)
	assert.Equal(t, "America/New_York", cfg.Timezone)
	assert.Equal(t, []SessionConfig{
		{Name: "London", Start: "02:33", End: "03:00"},
		{Name: "NY1", Start: "09:30", End: "11:00"},
	}, cfg.Sessions)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:   "no sessions",
			mutate: func(c *Config) { c.Sessions = nil },
		},
		{
			name:    "zero atr period",
			mutate:  func(c *Config) { c.ATRPeriod = 0 },
			wantErr: true,
			errMsg:  "atr_period must be positive",
		},
		{
			name:    "negative multiplier",
			mutate:  func(c *Config) { c.ATRMultiplier = -1 },
			wantErr: true,
			errMsg:  "atr_multiplier must not be negative",
		},
		{
			name:    "lookback too small",
			mutate:  func(c *Config) { c.Lookback = 1 },
			wantErr: true,
			errMsg:  "lookback must be at least 2",
		},
		{
			name:    "unknown timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: true,
			errMsg:  "unknown timezone",
		},
		{
			name:    "session without name",
			mutate:  func(c *Config) { c.Sessions[0].Name = "" },
			wantErr: true,
			errMsg:  "sessions[0].name is required",
		},
		{
			name: "duplicate session",
			mutate: func(c *Config) {
				c.Sessions = append(c.Sessions, SessionConfig{Name: "London", Start: "04:00", End: "05:00"})
			},
			wantErr: true,
			errMsg:  `duplicate session "London"`,
		},
		{
			name:    "session wraps midnight",
			mutate:  func(c *Config) { c.Sessions[1].Start, c.Sessions[1].End = "23:00", "01:00" },
			wantErr: true,
			errMsg:  "sessions[1]",
		},
		{
			name:    "unknown journal type",
			mutate:  func(c *Config) { c.Journal.Type = "postgres" },
			wantErr: true,
			errMsg:  "journal.type must be",
		},
		{
			name:    "csv journal without files",
			mutate:  func(c *Config) { c.Journal = JournalConfig{Type: "csv", RunsFile: "runs.csv"} },
			wantErr: true,
			errMsg:  "runs_file and inversions_file required",
		},
		{
			name:    "sqlite journal without path",
			mutate:  func(c *Config) { c.Journal = JournalConfig{Type: "sqlite"} },
			wantErr: true,
			errMsg:  "db_path required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Timezone = "Asia/Tokyo"
	cfg.Lookback = 3

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 200, opts.ATRPeriod)
	assert.Equal(t, 3, opts.Lookback)
	assert.Equal(t, "Asia/Tokyo", opts.Location.String())
	assert.Equal(t, session.DefaultWindows(), opts.Windows)
	assert.NoError(t, opts.Validate())

	cfg.ATRPeriod = -1
	_, err = cfg.Options()
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Instrument = "GC=F"
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "ifvg.db"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ifvg.yaml")
	doc := `
atr_period: 14
atr_multiplier: 0.5
lookback: 2
timezone: UTC
sessions:
  - name: Asia
    start: "20:00"
    end: "24:00"
journal:
  type: csv
  runs_file: runs.csv
  inversions_file: inversions.csv
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, 14, opts.ATRPeriod)
	assert.Equal(t, 0.5, opts.ATRMultiplier)
	assert.Equal(t, time.UTC.String(), opts.Location.String())
	require.Len(t, opts.Windows, 1)
	assert.Equal(t, session.Window{Name: "Asia", StartHour: 20, EndHour: 24}, opts.Windows[0])
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("atr_period: 0\nlookback: 5\n"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}
