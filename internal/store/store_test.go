package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func openBackends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	bs, err := NewBoltStore(filepath.Join(dir, "state.db"))
	if err != nil {
		t.Fatalf("NewBoltStore error: %v", err)
	}
	t.Cleanup(func() { bs.Close() })

	return map[string]Store{
		"bolt":            bs,
		"file":            NewFileStore(filepath.Join(dir, "files"), false),
		"file compressed": NewFileStore(filepath.Join(dir, "gz"), true),
		"memory":          NewMemoryStore(),
	}
}

func TestStore_SetGet(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			value := []byte(`{"cursor":3,"next_key":"https://example.com/d"}`)
			if err := s.Set("frontier_state", value); err != nil {
				t.Fatalf("Set error: %v", err)
			}

			got, err := s.Get("frontier_state")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if !bytes.Equal(got, value) {
				t.Errorf("Get = %q, want %q", got, value)
			}
		})
	}
}

func TestStore_GetAbsent(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			got, err := s.Get("never_written")
			if err != nil {
				t.Fatalf("Get error: %v", err)
			}
			if got != nil {
				t.Errorf("Get absent key = %q, want nil", got)
			}
		})
	}
}

func TestStore_Overwrite(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.Set("k", []byte("first")); err != nil {
				t.Fatal(err)
			}
			if err := s.Set("k", []byte("second")); err != nil {
				t.Fatal(err)
			}
			got, err := s.Get("k")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "second" {
				t.Errorf("Get = %q, want second", got)
			}
		})
	}
}

func TestStore_ValueIsolation(t *testing.T) {
	for name, s := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			value := []byte("original")
			if err := s.Set("k", value); err != nil {
				t.Fatal(err)
			}
			value[0] = 'X'

			got, err := s.Get("k")
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != "original" {
				t.Errorf("stored value aliased the caller's buffer: %q", got)
			}

			got[0] = 'Y'
			again, _ := s.Get("k")
			if string(again) != "original" {
				t.Errorf("returned value aliased store memory: %q", again)
			}
		})
	}
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	s, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set("k", []byte("persisted")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewBoltStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, err := reopened.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "persisted" {
		t.Errorf("Get after reopen = %q, want persisted", got)
	}
}

func TestFileStore_KeyEscaping(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, false)

	// A key that looks like a path must not escape the store directory.
	key := "../outside/https://example.com/state"
	if err := s.Set(key, []byte("v")); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want v", got)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "outside")); !os.IsNotExist(err) {
		t.Error("key escaped the store directory")
	}
}

func TestFileStore_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir, false)

	if err := s.Set("k", []byte("v")); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
