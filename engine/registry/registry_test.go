package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddThenGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(Channel{ChannelID: 1, Username: "news", Enabled: true}); err != nil {
		t.Fatal(err)
	}
	ch, ok := r.Get(1)
	if !ok {
		t.Fatal("expected channel present")
	}
	if ch.Username != "news" {
		t.Fatalf("username = %q", ch.Username)
	}
}

func TestOpenMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.List()) != 0 {
		t.Fatalf("expected empty registry, got %v", r.List())
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(Channel{ChannelID: 5, Title: "Tech"}); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	ch, ok := reopened.Get(5)
	if !ok || ch.Title != "Tech" {
		t.Fatalf("expected channel 5 to survive reopen, got %v, ok=%v", ch, ok)
	}
}

func TestSetEnabledTogglesFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, _ := Open(path)
	r.Add(Channel{ChannelID: 1, Enabled: false})

	ok, err := r.SetEnabled(1, true)
	if err != nil || !ok {
		t.Fatalf("expected success, ok=%v err=%v", ok, err)
	}
	ch, _ := r.Get(1)
	if !ch.Enabled {
		t.Fatal("expected channel enabled")
	}
}

func TestSetEnabledUnknownChannelReturnsFalse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, _ := Open(path)

	ok, err := r.SetEnabled(99, true)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected false for unknown channel")
	}
}

func TestRemoveDeletesChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, _ := Open(path)
	r.Add(Channel{ChannelID: 1})

	ok, err := r.Remove(1)
	if err != nil || !ok {
		t.Fatalf("expected success, ok=%v err=%v", ok, err)
	}
	if _, ok := r.Get(1); ok {
		t.Fatal("expected channel removed")
	}
}

func TestPersistWritesValidJSONViaTempRename(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.json")
	r, _ := Open(path)
	r.Add(Channel{ChannelID: 1, Username: "x"})

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("expected no leftover temp file, found %s", e.Name())
		}
	}
}
