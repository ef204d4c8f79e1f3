package cmd

import (
	"fmt"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/identity"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/platform"
)

// StatusOptions contains configuration for the status command.
type StatusOptions struct {
	BaseDir string
}

// RunStatus prints the notification state of this device without
// launching the TUI. It reads only local state and never touches the
// network.
func RunStatus(opts StatusOptions) error {
	if opts.BaseDir == "" {
		opts.BaseDir = defaultBaseDir()
	}

	cfg, err := config.Load(opts.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stateDir := cfg.StateDir()
	log := headlessLogger(cfg)

	deviceID := identity.Load(stateDir, log)
	store := ledger.Open(cfg.Storage.Engine, stateDir, log)
	defer store.Close()

	pushPlatform := platform.NewRelayPush(cfg.Push.RelayURL, stateDir, deviceID, nil, log.WithComponent("relay"))
	defer pushPlatform.Close()

	pushState := "unsubscribed"
	if !pushPlatform.Supported() {
		pushState = "unsupported (no relay configured)"
	} else if sub, err := pushPlatform.Existing(); err == nil && sub != nil {
		pushState = "subscribed"
	}

	sound := "off"
	if cfg.Sound.Enabled {
		sound = "on"
	}
	schedule := cfg.Poll.Schedule
	if schedule == "" {
		schedule = "off"
	}
	serverURL := cfg.Server.BaseURL
	if serverURL == "" {
		serverURL = api.DefaultBaseURL
	}

	fmt.Println("Herald status")
	fmt.Printf("  Push:       %s\n", pushState)
	fmt.Printf("  Permission: %s\n", pushPlatform.Permission())
	fmt.Printf("  Sound:      %s\n", sound)
	fmt.Printf("  Notified:   %d badge(s)\n", len(store.LoadAll()))
	fmt.Printf("  Device:     %s\n", deviceID)
	fmt.Printf("  Server:     %s\n", serverURL)
	fmt.Printf("  Poll:       %s\n", schedule)
	return nil
}
