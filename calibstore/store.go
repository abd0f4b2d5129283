// Package calibstore persists observed axis bounds per profile in a Pebble
// key/value store so a dial keeps its calibration across runs.
package calibstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
)

const (
	keyPrefix       = "calib|"
	boundsValueSize = 16
	defaultCache    = int64(4 << 20)
)

var (
	errStoreClosed   = errors.New("calibstore: store is closed")
	errInvalidBounds = errors.New("calibstore: invalid bounds encoding")
)

// Bounds is the observed [Lo, Hi] range of one axis.
type Bounds struct {
	Lo float64
	Hi float64
}

// Store manages the Pebble database holding calibration bounds.
type Store struct {
	db    *pebble.DB
	cache *pebble.Cache

	mu     sync.Mutex
	closed bool
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("calibstore: path is empty")
	}
	cache := pebble.NewCache(defaultCache)
	db, err := pebble.Open(path, &pebble.Options{Cache: cache})
	if err != nil {
		cache.Unref()
		return nil, fmt.Errorf("calibstore: open: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

// Close flushes and releases Pebble resources. Safe to call twice.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if s.cache != nil {
		s.cache.Unref()
	}
	if err != nil {
		return fmt.Errorf("calibstore: close: %w", err)
	}
	return nil
}

// Save records the bounds of one axis of profile.
func (s *Store) Save(profile string, axis int, lo, hi float64) error {
	return s.SaveAll(profile, []Bounds{{Lo: lo, Hi: hi}}, axis)
}

// SaveAll records bounds for consecutive axes of profile starting at first,
// committed as one batch.
func (s *Store) SaveAll(profile string, bounds []Bounds, first int) error {
	if err := s.ready(); err != nil {
		return err
	}
	profile = normalizeProfile(profile)
	if profile == "" {
		return errors.New("calibstore: profile is empty")
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	for i, b := range bounds {
		if !finite(b.Lo) || !finite(b.Hi) || b.Lo > b.Hi {
			return fmt.Errorf("calibstore: %s axis %d: bounds [%v,%v] not a finite ordered pair", profile, first+i, b.Lo, b.Hi)
		}
		if err := batch.Set(boundsKey(profile, first+i), encodeBounds(b), nil); err != nil {
			return fmt.Errorf("calibstore: batch set %s: %w", profile, err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("calibstore: batch commit: %w", err)
	}
	return nil
}

// Load returns the stored bounds of one axis of profile; ok is false when
// nothing was saved.
func (s *Store) Load(profile string, axis int) (lo, hi float64, ok bool, err error) {
	if err := s.ready(); err != nil {
		return 0, 0, false, err
	}
	profile = normalizeProfile(profile)
	value, closer, err := s.db.Get(boundsKey(profile, axis))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("calibstore: get %s/%d: %w", profile, axis, err)
	}
	defer closer.Close()
	b, err := decodeBounds(value)
	if err != nil {
		return 0, 0, false, fmt.Errorf("calibstore: decode %s/%d: %w", profile, axis, err)
	}
	return b.Lo, b.Hi, true, nil
}

// Delete drops every stored axis of profile.
func (s *Store) Delete(profile string) error {
	if err := s.ready(); err != nil {
		return err
	}
	prefix := profilePrefix(normalizeProfile(profile))
	if err := s.db.DeleteRange(prefix, prefixUpperBound(prefix), pebble.Sync); err != nil {
		return fmt.Errorf("calibstore: delete %s: %w", profile, err)
	}
	return nil
}

// Profiles lists the profiles with at least one stored axis, in key order.
func (s *Store) Profiles() ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	prefix := []byte(keyPrefix)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("calibstore: iterator: %w", err)
	}
	defer iter.Close()
	var out []string
	for iter.First(); iter.Valid(); iter.Next() {
		rest := string(iter.Key()[len(keyPrefix):])
		idx := strings.LastIndexByte(rest, '|')
		if idx <= 0 {
			continue
		}
		name := rest[:idx]
		if len(out) == 0 || out[len(out)-1] != name {
			out = append(out, name)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("calibstore: iterate: %w", err)
	}
	return out, nil
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return errors.New("calibstore: store is not initialized")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func normalizeProfile(profile string) string {
	return strings.ToLower(strings.TrimSpace(profile))
}

func profilePrefix(profile string) []byte {
	return []byte(keyPrefix + profile + "|")
}

func boundsKey(profile string, axis int) []byte {
	return strconv.AppendInt(profilePrefix(profile), int64(axis), 10)
}

func prefixUpperBound(prefix []byte) []byte {
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++
	return upper
}

func encodeBounds(b Bounds) []byte {
	buf := make([]byte, boundsValueSize)
	binary.BigEndian.PutUint64(buf[0:8], math.Float64bits(b.Lo))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(b.Hi))
	return buf
}

func decodeBounds(value []byte) (Bounds, error) {
	if len(value) != boundsValueSize {
		return Bounds{}, errInvalidBounds
	}
	return Bounds{
		Lo: math.Float64frombits(binary.BigEndian.Uint64(value[0:8])),
		Hi: math.Float64frombits(binary.BigEndian.Uint64(value[8:16])),
	}, nil
}
