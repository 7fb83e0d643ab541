package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/quick"
)

func TestLoadAbsent(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "checkpoint.json"), "/var/db/santa/log.ndjson")

	_, found, err := store.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Fatalf("expected absent checkpoint on fresh host")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	want := Position{Identity: Identity{Device: 16777220, Inode: 4242}, Offset: 9001, Generation: 3}

	if err := New(path, "src").Save(want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	// Fresh store simulates process restart
	got, found, err := New(path, "src").Load()
	if err != nil || !found {
		t.Fatalf("load failed: found=%v err=%v", found, err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestLoadCorruptAndStaleTemp(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		leaveTemp   bool
		expectFound bool
		expectErr   error
	}{
		{"garbage", "{not json", false, false, ErrCorrupt},
		{"wrong version", `{"version":99,"offset":1}`, false, false, ErrCorrupt},
		{"negative offset", `{"version":1,"offset":-5}`, false, false, ErrCorrupt},
		{"valid with torn temp beside it", `{"version":1,"device":1,"inode":2,"offset":10}`, true, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "checkpoint.json")
			if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
				t.Fatalf("setup: %v", err)
			}
			if tt.leaveTemp {
				if err := os.WriteFile(path+".tmp", []byte(`{"version":1,"off`), 0600); err != nil {
					t.Fatalf("setup: %v", err)
				}
			}

			pos, found, err := New(path, "src").Load()
			if tt.expectErr != nil {
				if !errors.Is(err, tt.expectErr) {
					t.Fatalf("expected %v, got %v", tt.expectErr, err)
				}
				return
			}
			if err != nil || found != tt.expectFound {
				t.Fatalf("unexpected result found=%v err=%v", found, err)
			}
			if pos.Offset != 10 {
				t.Fatalf("expected committed offset 10, got %d", pos.Offset)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Fatalf("stale temp file not cleaned")
			}
		})
	}
}

func TestSaveRefusesRegression(t *testing.T) {
	store := New(filepath.Join(t.TempDir(), "checkpoint.json"), "src")
	id := Identity{Device: 1, Inode: 7}

	tests := []struct {
		name      string
		pos       Position
		expectErr bool
	}{
		{"first", Position{Identity: id, Offset: 100}, false},
		{"forward", Position{Identity: id, Offset: 200}, false},
		{"same is no-op", Position{Identity: id, Offset: 200}, false},
		{"backwards", Position{Identity: id, Offset: 150}, true},
		{"new generation lower offset", Position{Identity: Identity{Device: 1, Inode: 8}, Offset: 5, Generation: 1}, false},
		{"older generation", Position{Identity: id, Offset: 999, Generation: 0}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Save(tt.pos)
			if tt.expectErr {
				if !errors.Is(err, ErrRegression) {
					t.Fatalf("expected regression error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	locked := filepath.Join(dir, "locked")
	if err := os.Mkdir(locked, 0500); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := New(filepath.Join(locked, "checkpoint.json"), "src").Check(); err == nil {
		t.Fatalf("expected error for read-only directory")
	}
	if err := New(filepath.Join(dir, "ok", "checkpoint.json"), "src").Check(); err != nil {
		t.Fatalf("unexpected error for writable directory: %v", err)
	}
}

// Whatever order saves are attempted in, the persisted position never decreases
func TestPersistedPositionIsMonotonic(t *testing.T) {
	property := func(offsets []uint16, generations []uint8) bool {
		path := filepath.Join(t.TempDir(), "checkpoint.json")
		store := New(path, "src")

		var persisted []Position
		for i, off := range offsets {
			gen := uint64(0)
			if i < len(generations) {
				gen = uint64(generations[i] % 4)
			}
			_ = store.Save(Position{Offset: int64(off), Generation: gen})

			pos, found, err := New(path, "src").Load()
			if err != nil {
				return false
			}
			if found {
				persisted = append(persisted, pos)
			}
		}

		return isNonDecreasing(persisted)
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 50}); err != nil {
		t.Fatal(err)
	}
}

func isNonDecreasing(list []Position) bool {
	for i := 1; i < len(list); i++ {
		if list[i].Less(list[i-1]) {
			return false
		}
	}
	return true
}
