// Package cmd provides CLI command implementations for Herald.
// This includes the full-screen app plus headless status, check,
// push, and serve commands that run without a TUI.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robfig/cron/v3"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/engine"
	"github.com/civicwatch/herald/internal/identity"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
	"github.com/civicwatch/herald/internal/server"
	"github.com/civicwatch/herald/internal/tui"
)

// AppOptions contains configuration for the interactive app.
type AppOptions struct {
	BaseDir   string // Directory holding .herald/ (default: user home)
	ServeAddr string // When set, also expose the control API on this address
}

// RunApp launches the full-screen Herald client: it wires the push
// manager, the badge engine, and the chime pipeline into the TUI and
// blocks until the user quits.
func RunApp(opts AppOptions) error {
	if opts.BaseDir == "" {
		opts.BaseDir = defaultBaseDir()
	}

	cfg, err := config.Load(opts.BaseDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	stateDir := cfg.StateDir()

	// The TUI owns the terminal, so logs always go to a file.
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(stateDir, "herald.log")
	}
	logOut, err := logging.FileOutput(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logOut.Close()
	log := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: logOut,
	})

	deviceID := identity.Load(stateDir, log)
	store := ledger.Open(cfg.Storage.Engine, stateDir, log)
	defer store.Close()

	client := api.NewClient(cfg.Server.BaseURL, deviceID, log.WithComponent("api"))
	eventBus := bus.New(func() {
		client.InvalidatePrefix(api.EngagementPrefix)
	})

	notifier := tui.NewNotifier()
	consent := tui.NewConsentPrompt()

	pushPlatform := platform.NewRelayPush(cfg.Push.RelayURL, stateDir, deviceID, consent.Ask, log.WithComponent("relay"))
	defer pushPlatform.Close()
	location := platform.NewLocation(cfg.Location.Mode, cfg.Location.URL, cfg.Location.Lat, cfg.Location.Lng, log.WithComponent("location"))
	pushMgr := push.NewManager(pushPlatform, location, client, notifier, log.WithComponent("push"))

	sound := chime.NewManager(platform.NewAudio(), cfg.Sound.Enabled, log.WithComponent("chime"))
	sound.Arm()

	eng := engine.New(client, store, notifier, sound, eventBus, log.WithComponent("engine"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.NewApp(ctx, tui.AppOptions{
		Client:   client,
		Store:    store,
		Bus:      eventBus,
		Push:     pushMgr,
		Sound:    sound,
		Config:   cfg,
		BaseDir:  opts.BaseDir,
		DeviceID: deviceID,
		Log:      log,
	})
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Background work reaches the event loop only through program.Send,
	// attached before anything can fire.
	notifier.Attach(program.Send)
	consent.Attach(program.Send)
	tui.WireStages(pushMgr, program.Send)

	if jsonStore, ok := store.(*ledger.JSONStore); ok {
		stopWatch, err := tui.WatchLedger(jsonStore, program.Send, log.WithComponent("watch"))
		if err != nil {
			log.Debug("ledger watch unavailable", "error", err)
		} else {
			defer stopWatch()
		}
	}

	eng.Mount(ctx)
	defer eng.Unmount()
	go pushMgr.Run(ctx)

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

	if opts.ServeAddr != "" {
		srv := server.NewServer(opts.ServeAddr, store, eventBus, pushMgr, sound, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Warn("control API stopped", "error", err)
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run app: %w", err)
	}
	return nil
}

// defaultBaseDir resolves where .herald/ lives when no directory is
// given: the user's home, falling back to the working directory.
func defaultBaseDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return home
	}
	cwd, _ := os.Getwd()
	return cwd
}

// headlessLogger writes to stderr so command output on stdout stays
// parseable.
func headlessLogger(cfg *config.Config) *logging.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
}
