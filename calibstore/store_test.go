package calibstore

import (
	"errors"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

func openTestStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	return s
}

func TestStoreRoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration")
	s := openTestStore(t, path)
	if err := s.Save("Gear", 0, -50, 50); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := s.SaveAll("stick", []Bounds{{-1, 1}, {0.25, 0.75}}, 0); err != nil {
		t.Fatalf("SaveAll() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	s = openTestStore(t, path)
	defer s.Close()
	lo, hi, ok, err := s.Load("gear", 0)
	if err != nil || !ok {
		t.Fatalf("Load(gear) ok=%v err=%v", ok, err)
	}
	if lo != -50 || hi != 50 {
		t.Fatalf("expected [-50,50], got [%v,%v]", lo, hi)
	}
	lo, hi, ok, err = s.Load("stick", 1)
	if err != nil || !ok || lo != 0.25 || hi != 0.75 {
		t.Fatalf("Load(stick,1) = [%v,%v] ok=%v err=%v", lo, hi, ok, err)
	}
	if _, _, ok, err := s.Load("stick", 2); ok || err != nil {
		t.Fatalf("expected missing axis, ok=%v err=%v", ok, err)
	}
}

func TestStoreProfilesAndDelete(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "calibration"))
	defer s.Close()
	for _, name := range []string{"volume", "gear", "stick"} {
		if err := s.SaveAll(name, []Bounds{{0, 1}, {0, 2}}, 0); err != nil {
			t.Fatalf("SaveAll(%s) error: %v", name, err)
		}
	}
	got, err := s.Profiles()
	if err != nil {
		t.Fatalf("Profiles() error: %v", err)
	}
	if !slices.Equal(got, []string{"gear", "stick", "volume"}) {
		t.Fatalf("unexpected profiles %v", got)
	}
	if err := s.Delete("stick"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, _, ok, _ := s.Load("stick", 0); ok {
		t.Fatalf("expected stick bounds to be deleted")
	}
	if _, _, ok, _ := s.Load("gear", 1); !ok {
		t.Fatalf("expected gear bounds to survive delete of stick")
	}
}

func TestStoreRejectsBadInput(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("expected error for empty path")
	}
	s := openTestStore(t, filepath.Join(t.TempDir(), "calibration"))
	if err := s.Save("gear", 0, 5, 1); err == nil {
		t.Fatalf("expected error for inverted bounds")
	}
	for _, b := range []Bounds{{-50, math.Inf(1)}, {math.Inf(-1), 0}, {math.NaN(), 1}} {
		if err := s.Save("gear", 0, b.Lo, b.Hi); err == nil {
			t.Fatalf("expected error for non-finite bounds %+v", b)
		}
	}
	if _, _, ok, _ := s.Load("gear", 0); ok {
		t.Fatalf("expected rejected bounds to leave nothing stored")
	}
	if err := s.Save("", 0, 0, 1); err == nil {
		t.Fatalf("expected error for empty profile")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
	if err := s.Save("gear", 0, 0, 1); !errors.Is(err, errStoreClosed) {
		t.Fatalf("expected errStoreClosed, got %v", err)
	}
}

func TestDecodeBoundsRejectsShortValue(t *testing.T) {
	if _, err := decodeBounds([]byte{1, 2, 3}); !errors.Is(err, errInvalidBounds) {
		t.Fatalf("expected errInvalidBounds, got %v", err)
	}
	b, err := decodeBounds(encodeBounds(Bounds{Lo: -3.5, Hi: 12}))
	if err != nil || b.Lo != -3.5 || b.Hi != 12 {
		t.Fatalf("unexpected decode %+v err=%v", b, err)
	}
}
