package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/identity"
	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
)

// PushOptions contains configuration for the push command.
type PushOptions struct {
	BaseDir string
	Enable  bool          // true for "push on", false for "push off"
	Timeout time.Duration // Overall deadline (default: 60s)
}

// RunPush enables or disables push notifications from the command
// line. Enabling walks the same pipeline as the TUI flow, with the
// consent prompt answered on stdin.
func RunPush(opts PushOptions) error {
	if opts.BaseDir == "" {
		opts.BaseDir = defaultBaseDir()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}

	cfg, err := config.Load(opts.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stateDir := cfg.StateDir()
	log := headlessLogger(cfg)

	deviceID := identity.Load(stateDir, log)
	pushPlatform := platform.NewRelayPush(cfg.Push.RelayURL, stateDir, deviceID, terminalConsent, log.WithComponent("relay"))
	defer pushPlatform.Close()
	if !pushPlatform.Supported() {
		return fmt.Errorf("push is not available: no relay URL configured")
	}

	location := platform.NewLocation(cfg.Location.Mode, cfg.Location.URL, cfg.Location.Lat, cfg.Location.Lng, log.WithComponent("location"))
	client := api.NewClient(cfg.Server.BaseURL, deviceID, log.WithComponent("api"))
	mgr := push.NewManager(pushPlatform, location, client, printNotifier{}, log.WithComponent("push"))

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	// The manager reports the outcome through the notifier; the exit
	// code comes from the state it lands in.
	if opts.Enable {
		mgr.Subscribe(ctx)
		if mgr.State() != push.StateSubscribed {
			return fmt.Errorf("subscribe did not complete")
		}
		return nil
	}

	mgr.Unsubscribe(ctx)
	if mgr.State() != push.StateUnsubscribed {
		return fmt.Errorf("unsubscribe did not complete")
	}
	return nil
}

// terminalConsent is the stdin flavor of the permission prompt. Only
// an explicit yes grants.
func terminalConsent(ctx context.Context) (bool, error) {
	fmt.Print("Allow CivicWatch to send push notifications to this device? [y/N] ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
