// Package identity manages the stable anonymous device identity that
// links backend subscriptions and engagement data to this install.
package identity

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/civicwatch/herald/internal/logging"
)

const idFile = "device_id"

// Load returns the persisted device ID, creating one on first run. A
// storage failure falls back to an ephemeral ID rather than an error:
// the backend treats an unknown ID as a fresh anonymous identity.
func Load(dir string, log *logging.Logger) string {
	if log == nil {
		log = logging.Discard()
	}

	path := filepath.Join(dir, idFile)
	if data, err := os.ReadFile(path); err == nil {
		id := strings.TrimSpace(string(data))
		if _, err := uuid.Parse(id); err == nil {
			return id
		}
		log.Debug("device id corrupt, generating a new one")
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Debug("device id not persisted", "error", err)
		return id
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		log.Debug("device id not persisted", "error", err)
	}
	return id
}
