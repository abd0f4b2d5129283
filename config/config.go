package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"gopkg.in/yaml.v3"
)

// Config represents the complete dialmap configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Journal     JournalConfig     `yaml:"journal"`
	Profiles    []Profile         `yaml:"profiles"`

	// LoadedFrom is the file or directory the config was read from.
	LoadedFrom string `yaml:"-"`
}

// LoggingConfig controls the optional daily log file.
type LoggingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	RetentionDays int    `yaml:"retention_days"`
}

// CalibrationConfig controls persistence of observed axis bounds.
type CalibrationConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// JournalConfig controls the SQLite lookup journal.
type JournalConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Path            string `yaml:"path"`
	PerProfileLimit int    `yaml:"per_profile_limit"`
}

// Profile describes one dial. Exactly one of Items (single axis) or Rows
// (one value per axis per row) is set.
type Profile struct {
	Name            string     `yaml:"name"`
	DeadzonePercent float64    `yaml:"deadzone_percent"`
	Autosort        bool       `yaml:"autosort"`
	Items           []string   `yaml:"items"`
	Rows            [][]string `yaml:"rows"`
}

// DefaultConfig returns a pinned default configuration.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Enabled:       false,
			Dir:           "data/logs",
			RetentionDays: 7,
		},
		Calibration: CalibrationConfig{
			Enabled: false,
			Path:    "data/calibration",
		},
		Journal: JournalConfig{
			Enabled:         false,
			Path:            "data/journal/lookups.db",
			PerProfileLimit: 10000,
		},
	}
}

// Load reads a YAML file, or every *.yaml/*.yml file of a directory in name
// order. Sections from later files override earlier ones; profiles from all
// files are concatenated.
func Load(path string) (*Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config path: %w", err)
	}
	files := []string{path}
	if info.IsDir() {
		files, err = yamlFiles(path)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no yaml files in %s", path)
		}
	}

	cfg := DefaultConfig()
	var profiles []Profile
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		cfg.Profiles = nil
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filepath.Base(file), err)
		}
		profiles = append(profiles, cfg.Profiles...)
	}
	cfg.Profiles = profiles
	cfg.LoadedFrom = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func yamlFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// normalize fills defaults and trims names.
func (c *Config) normalize() {
	if c == nil {
		return
	}
	def := DefaultConfig()
	if strings.TrimSpace(c.Logging.Dir) == "" {
		c.Logging.Dir = def.Logging.Dir
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = def.Logging.RetentionDays
	}
	if strings.TrimSpace(c.Calibration.Path) == "" {
		c.Calibration.Path = def.Calibration.Path
	}
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = def.Journal.Path
	}
	if c.Journal.PerProfileLimit <= 0 {
		c.Journal.PerProfileLimit = def.Journal.PerProfileLimit
	}
	for i := range c.Profiles {
		c.Profiles[i].Name = normalizeName(c.Profiles[i].Name)
	}
}

// Validate performs sanity checks on the configuration.
func (c Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("profiles cannot be empty")
	}
	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("profiles[%d] name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("profiles[%d] duplicate name %q", i, p.Name)
		}
		seen[p.Name] = true
		if err := p.validate(); err != nil {
			return fmt.Errorf("profiles[%d] %s: %w", i, p.Name, err)
		}
	}
	return nil
}

func (p Profile) validate() error {
	if math.IsNaN(p.DeadzonePercent) || p.DeadzonePercent < 0 || p.DeadzonePercent >= 100 {
		return fmt.Errorf("deadzone_percent must be in [0,100)")
	}
	switch {
	case len(p.Items) > 0 && len(p.Rows) > 0:
		return fmt.Errorf("set items or rows, not both")
	case len(p.Rows) > 0:
		if len(p.Rows) < 2 {
			return fmt.Errorf("rows needs at least 2 entries")
		}
		width := len(p.Rows[0])
		if width == 0 {
			return fmt.Errorf("rows[0] is empty")
		}
		for i, row := range p.Rows {
			if len(row) != width {
				return fmt.Errorf("rows[%d] has %d values, expected %d", i, len(row), width)
			}
		}
	default:
		if len(p.Items) < 2 {
			return fmt.Errorf("items needs at least 2 entries")
		}
	}
	return nil
}

// Multi reports whether the profile describes a multi-axis dial.
func (p Profile) Multi() bool {
	return len(p.Rows) > 0
}

// Axes returns the number of input axes the profile reads.
func (p Profile) Axes() int {
	if p.Multi() {
		return len(p.Rows[0])
	}
	return 1
}

// Compare orders values numerically when every value of the profile parses
// as a number, lexically otherwise.
func (p Profile) Compare() func(a, b string) int {
	values := p.Items
	if p.Multi() {
		values = nil
		for _, row := range p.Rows {
			values = append(values, row...)
		}
	}
	for _, v := range values {
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return strings.Compare
		}
	}
	return func(a, b string) int {
		x, _ := strconv.ParseFloat(strings.TrimSpace(a), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(b), 64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
}

// Profile returns the profile with the given name.
func (c *Config) Profile(name string) (Profile, bool) {
	name = normalizeName(name)
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Suggest returns the configured profile name closest to name, or "" when
// nothing is within a third of the name's length.
func (c *Config) Suggest(name string) string {
	name = normalizeName(name)
	best := ""
	bestDist := len(name)/3 + 1
	for _, p := range c.Profiles {
		d := levenshtein.ComputeDistance(name, p.Name)
		if d < bestDist {
			best = p.Name
			bestDist = d
		}
	}
	return best
}

// Print writes a summary of the configuration to w.
func (c *Config) Print(w io.Writer) {
	fmt.Fprintf(w, "Config: %s (%d profiles)\n", c.LoadedFrom, len(c.Profiles))
	for _, p := range c.Profiles {
		kind := fmt.Sprintf("%d items", len(p.Items))
		if p.Multi() {
			kind = fmt.Sprintf("%d rows x %d axes", len(p.Rows), p.Axes())
		}
		fmt.Fprintf(w, "Profile %s: %s, deadzone=%.1f%%, autosort=%v\n", p.Name, kind, p.DeadzonePercent, p.Autosort)
	}
	if c.Calibration.Enabled {
		fmt.Fprintf(w, "Calibration: %s\n", c.Calibration.Path)
	}
	if c.Journal.Enabled {
		fmt.Fprintf(w, "Journal: %s (limit %d per profile)\n", c.Journal.Path, c.Journal.PerProfileLimit)
	}
	if c.Logging.Enabled {
		fmt.Fprintf(w, "Logging: %s (%d days)\n", c.Logging.Dir, c.Logging.RetentionDays)
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
