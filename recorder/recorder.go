// Package recorder journals a bounded number of dial lookups per profile to
// SQLite for offline calibration review without slowing the replay loop.
package recorder

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one journaled lookup. Inputs, Points and Output are the rendered
// text of the readings, the dial points and the selected output.
type Entry struct {
	Profile    string
	Inputs     string
	Points     string
	Output     string
	Hit        bool
	ObservedAt time.Time
}

// Recorder persists a limited number of lookups per profile into SQLite.
type Recorder struct {
	db               *sql.DB
	perProfileLimit  int
	mu               sync.Mutex
	perProfileCounts map[string]int
	wg               sync.WaitGroup
}

// NewRecorder opens (or creates) the SQLite database at path and ensures schema exists.
// A journal that fails its integrity check is moved aside first.
func NewRecorder(path string, perProfileLimit int) (*Recorder, error) {
	if perProfileLimit <= 0 {
		return nil, errors.New("recorder: per-profile limit must be > 0")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("recorder: path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure dir: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := Preflight(path, time.Second, log.Printf); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: schema: %w", err)
	}
	return &Recorder{
		db:               db,
		perProfileLimit:  perProfileLimit,
		perProfileCounts: make(map[string]int),
	}, nil
}

func initSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS lookup_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    profile TEXT,
    inputs TEXT,
    points TEXT,
    output TEXT,
    hit INTEGER,
    observed_at INTEGER
);
CREATE INDEX IF NOT EXISTS lookup_records_profile ON lookup_records(profile);`
	_, err := db.Exec(schema)
	return err
}

// Close waits for pending inserts and closes the underlying database.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	r.wg.Wait()
	return r.db.Close()
}

// Record inserts the entry if the per-profile limit has not been reached.
func (r *Recorder) Record(e Entry) {
	if r == nil || r.db == nil {
		return
	}
	profile := strings.ToLower(strings.TrimSpace(e.Profile))
	if profile == "" {
		profile = "unknown"
	}
	if e.ObservedAt.IsZero() {
		e.ObservedAt = time.Now()
	}

	r.mu.Lock()
	count := r.perProfileCounts[profile]
	if count >= r.perProfileLimit {
		r.mu.Unlock()
		return
	}
	r.perProfileCounts[profile] = count + 1
	r.wg.Add(1)
	r.mu.Unlock()

	go r.insert(profile, e)
}

func (r *Recorder) insert(profile string, e Entry) {
	defer r.wg.Done()
	_, err := r.db.Exec(`
INSERT INTO lookup_records (profile, inputs, points, output, hit, observed_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		profile,
		e.Inputs,
		e.Points,
		e.Output,
		boolToInt(e.Hit),
		e.ObservedAt.UTC().UnixMilli(),
	)
	if err != nil {
		log.Printf("Recorder: failed to insert lookup: %v", err)
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
