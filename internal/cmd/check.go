package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/engine"
	"github.com/civicwatch/herald/internal/identity"
	"github.com/civicwatch/herald/internal/ledger"
)

// CheckOptions contains configuration for the check command.
type CheckOptions struct {
	BaseDir string
	Timeout time.Duration // Overall deadline (default: 30s)
}

// RunCheck polls the backend for freshly obtained badges once and
// prints any it finds. Badges already recorded in the ledger stay
// silent, so running it repeatedly never repeats an announcement.
func RunCheck(opts CheckOptions) error {
	if opts.BaseDir == "" {
		opts.BaseDir = defaultBaseDir()
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
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

	client := api.NewClient(cfg.Server.BaseURL, deviceID, log.WithComponent("api"))
	eventBus := bus.New(func() {
		client.InvalidatePrefix(api.EngagementPrefix)
	})
	eng := engine.New(client, store, printNotifier{}, nil, eventBus, log.WithComponent("engine"))

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	// Surface connectivity problems directly; the engine itself only
	// logs them. The summary lands in the client cache, so the check
	// below does not refetch.
	if _, err := client.EngagementSummary(ctx); err != nil {
		return fmt.Errorf("failed to reach %s: %w", client.BaseURL, err)
	}

	before := len(store.LoadAll())
	eng.Check(ctx, nil)
	if len(store.LoadAll()) == before {
		fmt.Println("No new badges.")
	}
	return nil
}

// printNotifier sends toast text to stdout for headless commands.
type printNotifier struct{}

func (printNotifier) Success(message string, _ time.Duration) {
	fmt.Println(message)
}

func (printNotifier) Error(message string) {
	fmt.Println(message)
}
