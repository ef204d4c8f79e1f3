package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/civicwatch/herald/internal/config"
)

// testConfig writes a config rooted in tmpDir so commands never touch
// the real home directory or the production backend.
func testConfig(t *testing.T, baseDir string) *config.Config {
	t.Helper()

	// Neutralise environment overrides inherited from the test host.
	t.Setenv("HERALD_SERVER_URL", "")
	t.Setenv("HERALD_RELAY_URL", "")
	t.Setenv("HERALD_STORAGE_DIR", "")
	t.Setenv("HERALD_STORAGE_ENGINE", "")

	cfg := config.Default()
	cfg.Storage.Dir = filepath.Join(baseDir, "state")
	cfg.Storage.Engine = "json"
	cfg.Server.BaseURL = "http://127.0.0.1:1"
	cfg.Poll.Schedule = ""
	if err := config.Save(baseDir, cfg); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}
	return cfg
}

func TestRunStatus(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testConfig(t, tmpDir)

	if err := RunStatus(StatusOptions{BaseDir: tmpDir}); err != nil {
		t.Fatalf("RunStatus() returned error: %v", err)
	}

	// The device identity is minted on first use.
	if _, err := os.Stat(filepath.Join(cfg.Storage.Dir, "device_id")); err != nil {
		t.Errorf("expected device identity file: %v", err)
	}
}

func TestRunStatusIsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := testConfig(t, tmpDir)

	if err := RunStatus(StatusOptions{BaseDir: tmpDir}); err != nil {
		t.Fatalf("first RunStatus() returned error: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(cfg.Storage.Dir, "device_id"))
	if err != nil {
		t.Fatalf("Failed to read device id: %v", err)
	}

	if err := RunStatus(StatusOptions{BaseDir: tmpDir}); err != nil {
		t.Fatalf("second RunStatus() returned error: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(cfg.Storage.Dir, "device_id"))
	if err != nil {
		t.Fatalf("Failed to read device id: %v", err)
	}

	if string(first) != string(second) {
		t.Error("device identity changed between runs")
	}
}

func TestRunStatusBadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	cfgDir := filepath.Join(tmpDir, ".herald")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte("sound: [broken"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	err := RunStatus(StatusOptions{BaseDir: tmpDir})
	if err == nil {
		t.Fatal("Expected error for malformed config")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got %v", err)
	}
}
