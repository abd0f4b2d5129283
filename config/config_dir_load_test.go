package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()

	app := `logging:
  enabled: true
  dir: "logs"
calibration:
  enabled: true
profiles:
  - name: " Gearbox "
    deadzone_percent: 10
    items: ["1", "2", "3", "R"]
`
	stick := `journal:
  enabled: true
  per_profile_limit: 50
profiles:
  - name: "stick"
    autosort: true
    rows:
      - ["left", "low"]
      - ["right", "high"]
`

	if err := os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(app), 0o644); err != nil {
		t.Fatalf("write app.yaml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "stick.yml"), []byte(stick), 0o644); err != nil {
		t.Fatalf("write stick.yml: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write notes.txt: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got := filepath.Clean(cfg.LoadedFrom); got != filepath.Clean(dir) {
		t.Fatalf("expected LoadedFrom=%s, got %s", dir, got)
	}
	if len(cfg.Profiles) != 2 {
		t.Fatalf("expected profiles from both files, got %d", len(cfg.Profiles))
	}
	gear, ok := cfg.Profile("GEARBOX")
	if !ok {
		t.Fatalf("expected gearbox profile to be found case-insensitively")
	}
	if gear.Multi() || gear.Axes() != 1 || gear.DeadzonePercent != 10 {
		t.Fatalf("unexpected gearbox profile: %+v", gear)
	}
	stickProfile, ok := cfg.Profile("stick")
	if !ok || !stickProfile.Multi() || stickProfile.Axes() != 2 || !stickProfile.Autosort {
		t.Fatalf("unexpected stick profile: %+v", stickProfile)
	}
	if !cfg.Logging.Enabled || cfg.Logging.Dir != "logs" {
		t.Fatalf("expected logging section from app.yaml, got %+v", cfg.Logging)
	}
	if cfg.Logging.RetentionDays != 7 {
		t.Fatalf("expected default retention, got %d", cfg.Logging.RetentionDays)
	}
	if !cfg.Journal.Enabled || cfg.Journal.PerProfileLimit != 50 {
		t.Fatalf("expected journal section from stick.yml, got %+v", cfg.Journal)
	}
	if !cfg.Calibration.Enabled || cfg.Calibration.Path != "data/calibration" {
		t.Fatalf("expected calibration enabled with default path, got %+v", cfg.Calibration)
	}
}

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dial.yaml")
	body := "profiles:\n  - name: volume\n    items: [\"off\", \"low\", \"high\"]\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write dial.yaml: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if _, ok := cfg.Profile("volume"); !ok {
		t.Fatalf("expected volume profile")
	}
}

func TestLoadRejectsEmptyDirectory(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("expected Load() to reject a directory without yaml files")
	}
	if _, err := Load("  "); err == nil {
		t.Fatalf("expected Load() to reject an empty path")
	}
}

func TestValidateRejectsBadProfiles(t *testing.T) {
	cases := []struct {
		name    string
		profile Profile
		wantErr string
	}{
		{"one item", Profile{Name: "a", Items: []string{"x"}}, "at least 2"},
		{"no outputs", Profile{Name: "a"}, "at least 2"},
		{"both kinds", Profile{Name: "a", Items: []string{"x", "y"}, Rows: [][]string{{"x"}, {"y"}}}, "not both"},
		{"ragged rows", Profile{Name: "a", Rows: [][]string{{"x", "y"}, {"z"}}}, "expected 2"},
		{"empty rows", Profile{Name: "a", Rows: [][]string{{}, {}}}, "empty"},
		{"deadzone", Profile{Name: "a", Items: []string{"x", "y"}, DeadzonePercent: 100}, "deadzone"},
		{"no name", Profile{Items: []string{"x", "y"}}, "name is required"},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Profiles = []Profile{tc.profile}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: expected error containing %q, got %v", tc.name, tc.wantErr, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Profiles = []Profile{
		{Name: "a", Items: []string{"x", "y"}},
		{Name: "a", Items: []string{"x", "y"}},
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
	if err := DefaultConfig().Validate(); err == nil {
		t.Fatalf("expected empty profile list to be rejected")
	}
}

func TestProfileCompare(t *testing.T) {
	numeric := Profile{Items: []string{"10", "9", "-1.5"}}
	cmp := numeric.Compare()
	if cmp("9", "10") >= 0 {
		t.Fatalf("expected numeric compare to order 9 before 10")
	}
	lexical := Profile{Rows: [][]string{{"10", "b"}, {"9", "a"}}}
	cmp = lexical.Compare()
	if cmp("9", "10") <= 0 {
		t.Fatalf("expected lexical compare when any value is not numeric")
	}
}

func TestSuggest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles = []Profile{{Name: "gearbox"}, {Name: "throttle"}}
	if got := cfg.Suggest("gearbx"); got != "gearbox" {
		t.Fatalf("expected gearbox suggestion, got %q", got)
	}
	if got := cfg.Suggest("volume"); got != "" {
		t.Fatalf("expected no suggestion, got %q", got)
	}
}
