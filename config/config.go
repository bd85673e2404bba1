package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ifvg/analysis"
	"github.com/rustyeddy/ifvg/fvg"
	"github.com/rustyeddy/ifvg/indicators"
	"github.com/rustyeddy/ifvg/session"
)

// Config represents the complete analysis configuration
type Config struct {
	Instrument    string          `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	ATRPeriod     int             `json:"atr_period" yaml:"atr_period"`
	ATRMultiplier float64         `json:"atr_multiplier" yaml:"atr_multiplier"`
	Lookback      int             `json:"lookback" yaml:"lookback"`
	Timezone      string          `json:"timezone" yaml:"timezone"`
	Sessions      []SessionConfig `json:"sessions" yaml:"sessions"`
	Journal       JournalConfig   `json:"journal" yaml:"journal"`
	Server        ServerConfig    `json:"server" yaml:"server"`
}

// SessionConfig is one named daily window, bounds as "HH:MM"
type SessionConfig struct {
	Name  string `json:"name" yaml:"name"`
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// Window converts the session to a session.Window
func (s SessionConfig) Window() (session.Window, error) {
	return session.ParseWindow(s.Name, s.Start+"-"+s.End)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type           string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	DBPath         string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	RunsFile       string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	InversionsFile string `json:"inversions_file,omitempty" yaml:"inversions_file,omitempty"`
}

// ServerConfig contains HTTP service parameters
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LoadFromFile loads configuration from a file (JSON or YAML)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (YAML for .yaml/.yml, JSON otherwise)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("atr_period must be positive")
	}
	if c.ATRMultiplier < 0 {
		return fmt.Errorf("atr_multiplier must not be negative")
	}
	if c.Lookback < 2 {
		return fmt.Errorf("lookback must be at least 2")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}

	seen := map[string]bool{}
	for i, s := range c.Sessions {
		if s.Name == "" {
			return fmt.Errorf("sessions[%d].name is required", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate session %q", s.Name)
		}
		seen[s.Name] = true
		if _, err := s.Window(); err != nil {
			return fmt.Errorf("sessions[%d]: %w", i, err)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.RunsFile == "" || c.Journal.InversionsFile == "" {
			return fmt.Errorf("journal runs_file and inversions_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	return nil
}

// Options builds the analysis options described by the configuration.
func (c *Config) Options() (analysis.Options, error) {
	if err := c.Validate(); err != nil {
		return analysis.Options{}, err
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return analysis.Options{}, err
	}

	opts := analysis.Options{
		ATRPeriod:     c.ATRPeriod,
		ATRMultiplier: c.ATRMultiplier,
		Lookback:      c.Lookback,
		Location:      loc,
	}
	for _, s := range c.Sessions {
		w, err := s.Window()
		if err != nil {
			return analysis.Options{}, err
		}
		opts.Windows = append(opts.Windows, w)
	}
	return opts, nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	cfg := &Config{
		ATRPeriod:     indicators.DefaultATRPeriod,
		ATRMultiplier: fvg.DefaultATRMultiplier,
		Lookback:      fvg.DefaultLookback,
		Timezone:      session.DefaultTimezone,
		Journal: JournalConfig{
			Type: "none",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
	for _, w := range session.DefaultWindows() {
		cfg.Sessions = append(cfg.Sessions, SessionConfig{
			Name:  w.Name,
			Start: fmt.Sprintf("%02d:%02d", w.StartHour, w.StartMinute),
			End:   fmt.Sprintf("%02d:%02d", w.EndHour, w.EndMinute),
		})
	}
	return cfg
}
