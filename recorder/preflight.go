package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// PreflightResult reports the outcome of a journal integrity check.
type PreflightResult struct {
	Healthy        bool   // No issues detected; safe to open.
	Quarantined    bool   // The journal was renamed so a fresh one can be created.
	QuarantinePath string // Path of the renamed main file.
	Elapsed        time.Duration
	CheckError     error
}

// Preflight runs a bounded WAL checkpoint and quick_check on an existing
// journal. On failure it renames the journal and its sidecars to a
// timestamped .bad- path. A timeout is returned as an error.
func Preflight(path string, timeout time.Duration, logf func(string, ...any)) (PreflightResult, error) {
	if logf == nil {
		logf = log.Printf
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	res := PreflightResult{}
	if strings.TrimSpace(path) == "" {
		return res, errors.New("recorder: preflight: empty path")
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return res, fmt.Errorf("recorder: preflight open: %w", err)
	}
	db.SetMaxOpenConns(1)
	checkErr := check(ctx, db, timeout)
	db.Close()
	res.Elapsed = time.Since(start)
	res.CheckError = checkErr

	if checkErr == nil {
		res.Healthy = true
		return res, nil
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return res, fmt.Errorf("recorder: preflight timed out after %s", timeout)
	}

	dest, err := quarantine(path)
	if err != nil {
		return res, fmt.Errorf("recorder: quarantine: %w (check=%v)", err, checkErr)
	}
	res.Quarantined = true
	res.QuarantinePath = dest
	logf("journal preflight: %v; moved to %s", checkErr, dest)
	return res, nil
}

func check(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf("pragma busy_timeout=%d", timeout.Milliseconds())); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "pragma wal_checkpoint(TRUNCATE)"); err != nil {
		return err
	}
	rows, err := db.QueryContext(ctx, "pragma quick_check")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		if err := rows.Scan(&status); err != nil {
			return err
		}
		if strings.TrimSpace(status) != "ok" {
			return fmt.Errorf("quick_check reported %q", status)
		}
	}
	return rows.Err()
}

func quarantine(path string) (string, error) {
	suffix := ".bad-" + time.Now().UTC().Format("20060102T150405Z")
	for _, p := range []string{path, path + "-wal", path + "-shm", path + "-journal"} {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := os.Rename(p, p+suffix); err != nil {
			return "", err
		}
	}
	return path + suffix, nil
}
