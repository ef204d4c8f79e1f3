package tui

import (
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/logging"
)

// ledgerChangedMsg reports that another herald instance wrote the
// ledger file.
type ledgerChangedMsg struct{}

// WatchLedger watches the JSON ledger file for writes by other herald
// instances, reloading the store and posting a ledgerChangedMsg into
// the program for each one. The returned stop func releases the
// watcher.
func WatchLedger(store *ledger.JSONStore, send func(tea.Msg), log *logging.Logger) (func(), error) {
	if log == nil {
		log = logging.Discard()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory, not the file: a rename-over write would drop
	// a watch set on the file itself.
	if err := watcher.Add(filepath.Dir(store.Path())); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != store.Path() {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				log.Debug("ledger changed on disk", "op", ev.Op.String())
				store.Reload()
				send(ledgerChangedMsg{})
			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug("ledger watch error", "error", werr)
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
