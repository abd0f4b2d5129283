package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dialmap/config"
)

const (
	logTimestampLayout = "2006/01/02 15:04:05"
	logFileDateLayout  = "2006-01-02"
	maxLogBufferBytes  = 16 * 1024
)

type lineSink interface {
	WriteLine(line string, now time.Time)
	Close() error
}

// writerSink prefixes each line with a UTC timestamp when stamp is set.
type writerSink struct {
	w     io.Writer
	stamp bool
}

func (s *writerSink) WriteLine(line string, now time.Time) {
	if s == nil || s.w == nil {
		return
	}
	if s.stamp {
		line = formatLogTimestamp(now) + " " + line
	}
	_, _ = io.WriteString(s.w, line+"\n")
}

func (s *writerSink) Close() error {
	return nil
}

// dailyLogFile appends to <dir>/<yyyy-mm-dd>.log, reopening when the UTC date
// changes and removing files older than the retention window.
type dailyLogFile struct {
	dir           string
	retentionDays int

	mu          sync.Mutex
	date        string
	file        *os.File
	lastErrorAt time.Time
}

// Purpose: Create the daily log file sink.
// Key aspects: Ensures the directory exists and prunes expired files up front.
// Upstream: setupLogging.
// Downstream: cleanupOldLogs.
func newDailyLogFile(dir string, retentionDays int) (*dailyLogFile, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("log directory is empty")
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", dir, err)
	}
	if err := cleanupOldLogs(dir, time.Now().UTC(), retentionDays); err != nil {
		fmt.Fprintf(os.Stderr, "Logging: cleanup failed for %s: %v\n", dir, err)
	}
	return &dailyLogFile{dir: dir, retentionDays: retentionDays}, nil
}

func (s *dailyLogFile) WriteLine(line string, now time.Time) {
	if s == nil {
		return
	}
	now = now.UTC()
	s.mu.Lock()
	defer s.mu.Unlock()
	if date := now.Format(logFileDateLayout); s.file == nil || s.date != date {
		s.reopenLocked(date, now)
	}
	if s.file == nil {
		return
	}
	if _, err := s.file.WriteString(formatLogTimestamp(now) + " " + line + "\n"); err != nil {
		s.reportErrorLocked(now, fmt.Errorf("write failed: %w", err))
	}
}

func (s *dailyLogFile) reopenLocked(date string, now time.Time) {
	if s.file != nil {
		_ = s.file.Close()
		s.file = nil
	}
	path := filepath.Join(s.dir, date+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.reportErrorLocked(now, fmt.Errorf("open failed for %s: %w", path, err))
		return
	}
	s.file = file
	s.date = date
	if err := cleanupOldLogs(s.dir, now, s.retentionDays); err != nil {
		s.reportErrorLocked(now, fmt.Errorf("cleanup failed: %w", err))
	}
}

// reportErrorLocked writes at most one sink error per minute to stderr.
func (s *dailyLogFile) reportErrorLocked(now time.Time, err error) {
	if !s.lastErrorAt.IsZero() && now.Sub(s.lastErrorAt) < time.Minute {
		return
	}
	s.lastErrorAt = now
	fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
}

func (s *dailyLogFile) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.date = ""
	return err
}

// logFanout is the log.Logger output: it splits writes into lines and hands
// each complete line to the console and file sinks.
type logFanout struct {
	mu      sync.Mutex
	buf     []byte
	console lineSink
	file    lineSink
}

// Purpose: Wire logging from config.
// Key aspects: Returns a usable console fanout even when the file sink fails.
// Upstream: run.
// Downstream: newDailyLogFile and log.SetOutput.
func setupLogging(cfg config.LoggingConfig, console io.Writer) (*logFanout, error) {
	fanout := &logFanout{console: &writerSink{w: console, stamp: true}}
	if !cfg.Enabled {
		return fanout, nil
	}
	file, err := newDailyLogFile(cfg.Dir, cfg.RetentionDays)
	if err != nil {
		return fanout, err
	}
	fanout.file = file
	return fanout, nil
}

func (f *logFanout) Write(p []byte) (int, error) {
	if f == nil {
		return len(p), nil
	}
	f.mu.Lock()
	f.buf = append(f.buf, p...)
	data := f.buf
	var lines []string
	for {
		idx := bytes.IndexByte(data, '\n')
		if idx == -1 {
			break
		}
		lines = append(lines, string(bytes.TrimRight(data[:idx], "\r")))
		data = data[idx+1:]
	}
	// flush an oversized partial line rather than grow without bound
	if len(data) > maxLogBufferBytes {
		if tail := string(bytes.TrimRight(data, "\r")); tail != "" {
			lines = append(lines, tail)
		}
		data = data[:0]
	}
	f.buf = append(f.buf[:0], data...)
	console, file := f.console, f.file
	f.mu.Unlock()

	now := time.Now().UTC()
	for _, line := range lines {
		if console != nil {
			console.WriteLine(line, now)
		}
		if file != nil {
			file.WriteLine(line, now)
		}
	}
	return len(p), nil
}

// WriteFileOnlyLine records line in the log file without echoing it to the
// console. No-op when file logging is off.
func (f *logFanout) WriteFileOnlyLine(line string, now time.Time) {
	if f == nil {
		return
	}
	f.mu.Lock()
	file := f.file
	f.mu.Unlock()
	if file != nil {
		file.WriteLine(line, now)
	}
}

func (f *logFanout) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	console, file := f.console, f.file
	f.mu.Unlock()
	if console != nil {
		_ = console.Close()
	}
	if file != nil {
		return file.Close()
	}
	return nil
}

func formatLogTimestamp(now time.Time) string {
	return now.UTC().Format(logTimestampLayout)
}

func parseLogFileDate(name string) (time.Time, bool) {
	if filepath.Ext(name) != ".log" {
		return time.Time{}, false
	}
	parsed, err := time.ParseInLocation(logFileDateLayout, strings.TrimSuffix(name, ".log"), time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func cleanupOldLogs(dir string, now time.Time, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	y, m, d := now.UTC().Date()
	cutoff := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(retentionDays - 1))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		date, ok := parseLogFileDate(entry.Name())
		if ok && date.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}
