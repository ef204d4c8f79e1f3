package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/civicwatch/herald/internal/identity"
)

func TestLoadIsStableAcrossCalls(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := identity.Load(dir, nil)
	second := identity.Load(dir, nil)

	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("expected a valid UUID, got %q", first)
	}
	if first != second {
		t.Errorf("expected a stable identity, got %q then %q", first, second)
	}
}

func TestLoadReplacesCorruptID(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "device_id"), []byte("not-a-uuid"), 0o644); err != nil {
		t.Fatal(err)
	}

	id := identity.Load(dir, nil)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected a fresh valid UUID, got %q", id)
	}

	// The replacement is persisted.
	if again := identity.Load(dir, nil); again != id {
		t.Errorf("expected replacement to persist, got %q then %q", id, again)
	}
}

func TestLoadUnwritableDirStillYieldsID(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "missing", "deep")
	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Chmod(parent, 0o755)
	})

	id := identity.Load(dir, nil)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("expected an ephemeral UUID despite storage failure, got %q", id)
	}
}
