// Program dialmap replays raw dial readings from stdin through a configured
// profile and prints the output selected for each reading. Calibration bounds
// can be carried across runs and lookups journaled for later review.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"dialmap/calibstore"
	"dialmap/config"
	"dialmap/recorder"
	"dialmap/stats"
)

const (
	defaultConfigPath = "data/config"
	envConfigPath     = "DIALMAP_CONFIG_PATH"
)

type options struct {
	configPath  string
	profile     string
	jsonOutput  bool
	calibPath   string
	journalPath string
	printStats  bool
	printConfig bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dialmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "config file or directory (default $"+envConfigPath+" or "+defaultConfigPath+")")
	fs.StringVar(&opts.profile, "profile", "", "profile to replay (required when more than one is configured)")
	fs.BoolVar(&opts.jsonOutput, "json", false, "print one JSON object per reading")
	fs.StringVar(&opts.calibPath, "calib", "", "calibration store path; overrides and enables the calibration section")
	fs.StringVar(&opts.journalPath, "journal", "", "lookup journal path; overrides and enables the journal section")
	fs.BoolVar(&opts.printStats, "stats", false, "log lookup counters at end of input")
	fs.BoolVar(&opts.printConfig, "print-config", false, "print the loaded configuration and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return opts, nil
}

// Purpose: Load configuration from the flag, env, or default location.
// Key aspects: An explicit -config wins; env and default are tried in order.
// Upstream: run.
// Downstream: config.Load and os.IsNotExist.
func loadConfig(flagPath string) (*config.Config, error) {
	if strings.TrimSpace(flagPath) != "" {
		return config.Load(flagPath)
	}
	candidates := make([]string, 0, 2)
	if envPath := strings.TrimSpace(os.Getenv(envConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	candidates = append(candidates, defaultConfigPath)

	var lastErr error
	for _, path := range candidates {
		cfg, err := config.Load(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("unable to load config; tried %s (last error: %v)", strings.Join(candidates, ", "), lastErr)
}

func selectProfile(cfg *config.Config, name string) (config.Profile, error) {
	if strings.TrimSpace(name) == "" {
		if len(cfg.Profiles) == 1 {
			return cfg.Profiles[0], nil
		}
		return config.Profile{}, fmt.Errorf("%d profiles configured; choose one with -profile", len(cfg.Profiles))
	}
	p, ok := cfg.Profile(name)
	if ok {
		return p, nil
	}
	if hint := cfg.Suggest(name); hint != "" {
		return config.Profile{}, fmt.Errorf("unknown profile %q (did you mean %q?)", name, hint)
	}
	return config.Profile{}, fmt.Errorf("unknown profile %q", name)
}

// Purpose: Command body; wires config, logging, persistence and the replay loop.
// Key aspects: Returns errors instead of exiting so tests can drive it.
// Upstream: main.
// Downstream: replay, calibstore, recorder, stats.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if opts.calibPath != "" {
		cfg.Calibration.Enabled = true
		cfg.Calibration.Path = opts.calibPath
	}
	if opts.journalPath != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = opts.journalPath
	}
	if opts.printConfig {
		cfg.Print(stdout)
		return nil
	}

	fanout, err := setupLogging(cfg.Logging, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Logging: file sink disabled: %v\n", err)
	}
	defer fanout.Close()
	prevOutput, prevFlags := log.Writer(), log.Flags()
	log.SetFlags(0)
	log.SetOutput(fanout)
	defer func() {
		log.SetOutput(prevOutput)
		log.SetFlags(prevFlags)
	}()
	logger := log.Default()
	logger.Printf("Loaded configuration from %s", cfg.LoadedFrom)

	profile, err := selectProfile(cfg, opts.profile)
	if err != nil {
		return err
	}
	d, err := buildDial(profile)
	if err != nil {
		return fmt.Errorf("profile %s: %w", profile.Name, err)
	}
	logger.Printf("Profile %s: %d axes, deadzone %.1f%%", profile.Name, d.Axes(), profile.DeadzonePercent)

	var calib *calibstore.Store
	if cfg.Calibration.Enabled {
		calib, err = calibstore.Open(cfg.Calibration.Path)
		if err != nil {
			return err
		}
		defer calib.Close()
		restored, err := restoreCalibration(calib, profile.Name, d)
		if err != nil {
			return err
		}
		if restored > 0 {
			logger.Printf("Calibration: restored %d axes from %s", restored, cfg.Calibration.Path)
		}
	}

	var journal *recorder.Recorder
	if cfg.Journal.Enabled {
		journal, err = recorder.NewRecorder(cfg.Journal.Path, cfg.Journal.PerProfileLimit)
		if err != nil {
			return err
		}
		defer journal.Close()
	}

	counters := stats.NewTracker()
	r := &replayer{
		profile:  profile.Name,
		dial:     d,
		stats:    counters,
		journal:  journal,
		fanout:   fanout,
		logger:   logger,
		out:      stdout,
		json:     opts.jsonOutput,
		prompt:   isTerminal(stdin),
		promptTo: stderr,
	}
	d.SetObserver(counters.ProfileObserver(profile.Name))
	if err := r.run(stdin); err != nil {
		return err
	}

	if calib != nil {
		if err := saveCalibration(calib, profile.Name, d); err != nil {
			return err
		}
	}
	if opts.printStats {
		for _, line := range counters.SnapshotLines() {
			logger.Print(line)
		}
	}
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("dialmap: %v", err)
	}
}
