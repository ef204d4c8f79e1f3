package cmd

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/engine"
	"github.com/civicwatch/herald/internal/identity"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
	"github.com/civicwatch/herald/internal/server"
	"github.com/civicwatch/herald/internal/toast"
)

// ServeOptions contains configuration for the serve command.
type ServeOptions struct {
	Addr    string // Listen address (default: ":7381")
	BaseDir string
}

// RunServe starts the local control API without the TUI and keeps the
// poll schedule running. Badges it detects are written to the ledger
// and the log; a Herald TUI watching the same ledger picks them up.
func RunServe(opts ServeOptions) error {
	if opts.Addr == "" {
		opts.Addr = ":7381"
	}
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

	client := api.NewClient(cfg.Server.BaseURL, deviceID, log.WithComponent("api"))
	eventBus := bus.New(func() {
		client.InvalidatePrefix(api.EngagementPrefix)
	})

	// No consent prompt here: a headless server cannot ask, so the
	// status endpoint only ever reports existing push state.
	pushPlatform := platform.NewRelayPush(cfg.Push.RelayURL, stateDir, deviceID, nil, log.WithComponent("relay"))
	defer pushPlatform.Close()
	location := platform.NewLocation(cfg.Location.Mode, cfg.Location.URL, cfg.Location.Lat, cfg.Location.Lng, log.WithComponent("location"))
	pushMgr := push.NewManager(pushPlatform, location, client, toast.NewLogNotifier(log), log.WithComponent("push"))

	// The chime never unlocks without a key press, so headless runs
	// stay silent by construction.
	sound := chime.NewManager(nil, cfg.Sound.Enabled, log.WithComponent("chime"))

	eng := engine.New(client, store, toast.NewLogNotifier(log), sound, eventBus, log.WithComponent("engine"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Mount(ctx)
	defer eng.Unmount()
	go func() {
		pushMgr.Init(ctx)
		pushMgr.Run(ctx)
	}()

	if cfg.Poll.Schedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Poll.Schedule, func() {
			eventBus.Trigger(nil)
		}); err != nil {
			log.Warn("invalid poll schedule", "schedule", cfg.Poll.Schedule, "error", err)
		} else {
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	srv := server.NewServer(opts.Addr, store, eventBus, pushMgr, sound, log)
	fmt.Printf("Herald control API listening on %s\n", opts.Addr)
	return srv.Start()
}
