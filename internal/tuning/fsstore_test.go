package tuning

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/guildfordia/the-library/internal/scoring"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore: %v", err)
	}
	return s
}

func TestFSStore_PutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	cfg := scoring.DefaultConfig()
	cfg.PhraseBonus = 5.5
	in := &Profile{Name: "aggressive", Description: "phrase-heavy", Config: cfg}

	if err := s.Put(in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	out, err := s.Get("aggressive")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch: put %+v, got %+v", in, out)
	}
}

func TestFSStore_PutOverwrites(t *testing.T) {
	s := newTestStore(t)

	p := &Profile{Name: "p", Config: scoring.DefaultConfig()}
	if err := s.Put(p); err != nil {
		t.Fatalf("Put: %v", err)
	}
	p.Description = "second write"
	if err := s.Put(p); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	out, err := s.Get("p")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out.Description != "second write" {
		t.Errorf("Description = %q, want overwrite to win", out.Description)
	}
}

func TestFSStore_ListSorted(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Put(&Profile{Name: name}); err != nil {
			t.Fatalf("Put(%s): %v", name, err)
		}
	}
	// Non-profile files are ignored.
	if err := os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	names, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"alpha", "mid", "zeta"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Get("nope"); err == nil {
		t.Error("expected error for missing profile")
	}
}

func TestFSStore_GetCorrupt(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path("broken"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("broken"); err == nil {
		t.Error("expected error for corrupt profile")
	}
}

func TestFSStore_RejectsUnsafeNames(t *testing.T) {
	s := newTestStore(t)

	for _, name := range []string{"", "../escape", "a/b", `a\b`, ".hidden"} {
		if err := s.Put(&Profile{Name: name}); err == nil {
			t.Errorf("Put(%q): expected rejection", name)
		}
		if _, err := s.Get(name); err == nil {
			t.Errorf("Get(%q): expected rejection", name)
		}
	}
}
