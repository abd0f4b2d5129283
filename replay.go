package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"dialmap/calibstore"
	"dialmap/config"
	"dialmap/dial"
	"dialmap/recorder"
	"dialmap/stats"
	"dialmap/tracker"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errBadReading = errors.New("bad reading")

// holdToken in a multi-axis line keeps that axis at its last accepted value.
const holdToken = "-"

type lookupResult struct {
	Points []int
	Output []string
	Hit    bool
}

// profileDial hides the single/multi split from the replay loop.
type profileDial interface {
	Axes() int
	Tracker(j int) *tracker.Tracker
	SetObserver(o dial.Observer)
	Lookup(line string) (lookupResult, error)
}

// lastLookup remembers the points and outcome of the most recent lookup.
type lastLookup struct {
	points []int
	hit    bool
}

func (l *lastLookup) ObserveLookup(points []int, hit bool) {
	l.points = append(l.points[:0], points...)
	l.hit = hit
}

func (l *lastLookup) result(output []string) lookupResult {
	return lookupResult{
		Points: append([]int(nil), l.points...),
		Output: output,
		Hit:    l.hit,
	}
}

type singleDial struct {
	m    *dial.DialMap[string]
	last lastLookup
}

func (s *singleDial) Axes() int { return 1 }

func (s *singleDial) Tracker(int) *tracker.Tracker { return s.m.Tracker() }

func (s *singleDial) SetObserver(o dial.Observer) {
	s.m.SetObserver(dial.Observers(o, &s.last))
}

func (s *singleDial) Lookup(line string) (lookupResult, error) {
	v, err := parseValue(line)
	if err != nil {
		return lookupResult{}, err
	}
	out := s.m.Lookup(v)
	return s.last.result([]string{out}), nil
}

type multiDial struct {
	m    *dial.MultiDialMap[string]
	last lastLookup
}

func (s *multiDial) Axes() int { return s.m.Axes() }

func (s *multiDial) Tracker(j int) *tracker.Tracker { return s.m.Tracker(j) }

func (s *multiDial) SetObserver(o dial.Observer) {
	s.m.SetObserver(dial.Observers(o, &s.last))
}

func (s *multiDial) Lookup(line string) (lookupResult, error) {
	readings, err := parseReadings(line)
	if err != nil {
		return lookupResult{}, err
	}
	out, err := s.m.Lookup(readings)
	if err != nil {
		return lookupResult{}, err
	}
	return s.last.result(out), nil
}

// buildDial constructs the dial a profile describes, ordering values with the
// profile's comparison when autosort is on.
func buildDial(p config.Profile) (profileDial, error) {
	opts := dial.Options{DeadzonePercent: p.DeadzonePercent, Autosort: p.Autosort}
	if p.Multi() {
		m, err := dial.NewMultiFunc(p.Rows, opts, p.Compare())
		if err != nil {
			return nil, err
		}
		d := &multiDial{m: m}
		d.SetObserver(nil)
		return d, nil
	}
	m, err := dial.NewFunc(p.Items, opts, p.Compare())
	if err != nil {
		return nil, err
	}
	d := &singleDial{m: m}
	d.SetObserver(nil)
	return d, nil
}

func parseValue(field string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", errBadReading, strings.TrimSpace(field))
	}
	return v, nil
}

// parseReadings splits a comma separated line into one reading per axis.
// An empty field or "-" holds the axis.
func parseReadings(line string) ([]dial.Reading, error) {
	fields := strings.Split(line, ",")
	readings := make([]dial.Reading, len(fields))
	for i, field := range fields {
		field = strings.TrimSpace(field)
		if field == "" || field == holdToken {
			readings[i] = dial.Hold()
			continue
		}
		v, err := parseValue(field)
		if err != nil {
			return nil, err
		}
		readings[i] = dial.At(v)
	}
	return readings, nil
}

// restoreCalibration widens each axis to its stored bounds and returns the
// number of axes restored.
func restoreCalibration(store *calibstore.Store, profile string, d profileDial) (int, error) {
	restored := 0
	for j := 0; j < d.Axes(); j++ {
		lo, hi, ok, err := store.Load(profile, j)
		if err != nil {
			return restored, err
		}
		if !ok || math.IsNaN(lo) || math.IsInf(lo, 0) || math.IsNaN(hi) || math.IsInf(hi, 0) {
			continue
		}
		d.Tracker(j).Widen(lo, hi)
		restored++
	}
	return restored, nil
}

func saveCalibration(store *calibstore.Store, profile string, d profileDial) error {
	bounds := make([]calibstore.Bounds, d.Axes())
	for j := range bounds {
		lo, hi := d.Tracker(j).Bounds()
		bounds[j] = calibstore.Bounds{Lo: lo, Hi: hi}
	}
	return store.SaveAll(profile, bounds, 0)
}

type lookupRecord struct {
	Line   int      `json:"line"`
	Input  string   `json:"input"`
	Points []int    `json:"points"`
	Output []string `json:"output"`
	Hit    bool     `json:"hit"`
}

type replayer struct {
	profile  string
	dial     profileDial
	stats    *stats.Tracker
	journal  *recorder.Recorder
	fanout   *logFanout
	logger   *log.Logger
	out      io.Writer
	json     bool
	prompt   bool
	promptTo io.Writer
}

// Purpose: Feed each stdin line through the dial and report the selection.
// Key aspects: Blank and # lines are skipped; bad lines are logged, not fatal.
// Upstream: run.
// Downstream: profileDial.Lookup, recorder, stats.
func (r *replayer) run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(r.out)
	lineNo := 0
	for {
		if r.prompt {
			fmt.Fprint(r.promptTo, "> ")
		}
		if !scanner.Scan() {
			break
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		res, err := r.dial.Lookup(line)
		switch {
		case errors.Is(err, dial.ErrArity):
			r.stats.IncrementArity(r.profile)
			r.logger.Printf("line %d: %v", lineNo, err)
			continue
		case err != nil:
			r.stats.IncrementInvalid(r.profile)
			r.logger.Printf("line %d: %v", lineNo, err)
			continue
		}

		now := time.Now().UTC()
		points := joinInts(res.Points)
		output := strings.Join(res.Output, ",")
		if !res.Hit {
			r.fanout.WriteFileOnlyLine(fmt.Sprintf("%s: miss at points %s for %q; holding %s", r.profile, points, line, output), now)
		}
		r.journal.Record(recorder.Entry{
			Profile:    r.profile,
			Inputs:     line,
			Points:     points,
			Output:     output,
			Hit:        res.Hit,
			ObservedAt: now,
		})

		if r.json {
			rec := lookupRecord{Line: lineNo, Input: line, Points: res.Points, Output: res.Output, Hit: res.Hit}
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			continue
		}
		if _, err := fmt.Fprintln(r.out, output); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// isTerminal reports whether r is an interactive terminal, which turns on the
// input prompt.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
