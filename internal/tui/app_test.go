package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/platform"
	"github.com/civicwatch/herald/internal/push"
)

type appFixture struct {
	app         *App
	store       *ledger.MemoryStore
	baseDir     string
	invalidated *atomic.Int32
}

func newTestApp(t *testing.T) *appFixture {
	t.Helper()

	var invalidated atomic.Int32
	store := ledger.NewMemoryStore()
	b := bus.New(func() { invalidated.Add(1) })
	pp := platform.NewRelayPush("", t.TempDir(), "device-1", nil, nil)
	mgr := push.NewManager(pp, nil, nil, NewNotifier(), nil)
	mgr.Init(context.Background())
	sound := chime.NewManager(nil, true, nil)
	baseDir := t.TempDir()

	app := NewApp(context.Background(), AppOptions{
		Client:   api.NewClient("http://127.0.0.1:0", "device-1", nil),
		Store:    store,
		Bus:      b,
		Push:     mgr,
		Sound:    sound,
		Config:   config.Default(),
		BaseDir:  baseDir,
		DeviceID: "device-1",
	})
	app.setSize(100, 40)

	return &appFixture{app: app, store: store, baseDir: baseDir, invalidated: &invalidated}
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestAppTabSwitching(t *testing.T) {
	f := newTestApp(t)

	if f.app.ActiveTab() != TabStatus {
		t.Errorf("expected initial tab Status, got %v", f.app.ActiveTab())
	}

	f.app.Update(keyMsg("tab"))
	if f.app.ActiveTab() != TabBadges {
		t.Errorf("expected Badges after tab, got %v", f.app.ActiveTab())
	}

	f.app.Update(keyMsg("shift+tab"))
	if f.app.ActiveTab() != TabStatus {
		t.Errorf("expected Status after shift+tab, got %v", f.app.ActiveTab())
	}

	f.app.Update(keyMsg("shift+tab"))
	if f.app.ActiveTab() != TabInspector {
		t.Errorf("expected wrap-around to Inspector, got %v", f.app.ActiveTab())
	}

	f.app.Update(keyMsg("3"))
	if f.app.ActiveTab() != TabHistory {
		t.Errorf("expected History after pressing 3, got %v", f.app.ActiveTab())
	}
}

func TestAppQuitKey(t *testing.T) {
	f := newTestApp(t)

	_, cmd := f.app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestAppCheckKeyTriggersBus(t *testing.T) {
	f := newTestApp(t)

	f.app.Update(keyMsg("c"))

	if got := f.invalidated.Load(); got != 1 {
		t.Errorf("expected one cache invalidation, got %d", got)
	}
	if !f.app.toasts.Active() {
		t.Error("expected a feedback toast")
	}
}

func TestAppSoundToggle(t *testing.T) {
	f := newTestApp(t)

	f.app.Update(keyMsg("m"))

	if f.app.sound.IsEnabled() {
		t.Error("expected sound muted after m")
	}
	if f.app.cfg.Sound.Enabled {
		t.Error("expected config to track the toggle")
	}
	if _, err := os.Stat(filepath.Join(f.baseDir, ".herald", "config.yaml")); err != nil {
		t.Errorf("expected config file to be written: %v", err)
	}

	f.app.Update(keyMsg("m"))
	if !f.app.sound.IsEnabled() {
		t.Error("expected sound back on after second m")
	}
}

func TestAppSubscribeUnsupportedShowsToast(t *testing.T) {
	f := newTestApp(t)

	_, cmd := f.app.Update(keyMsg("s"))

	if f.app.overlay != overlayNone {
		t.Error("expected no flow overlay on unsupported platform")
	}
	if !f.app.toasts.Active() {
		t.Error("expected an error toast")
	}
	if cmd == nil {
		t.Error("expected a toast expiry command")
	}
}

func TestAppConsentRoundTrip(t *testing.T) {
	f := newTestApp(t)

	reply := make(chan ConsentOption, 1)
	f.app.Update(consentRequestMsg{reply: reply})

	if f.app.overlay != overlayConsent {
		t.Fatal("expected consent overlay")
	}

	view := f.app.View()
	if !strings.Contains(view, "Enable Push Notifications?") {
		t.Errorf("expected consent dialog in view, got: %s", view)
	}

	f.app.Update(keyMsg("enter"))

	select {
	case got := <-reply:
		if got != ConsentAllow {
			t.Errorf("expected ConsentAllow, got %v", got)
		}
	default:
		t.Fatal("expected an answer on the reply channel")
	}
	if f.app.overlay != overlayNone {
		t.Error("expected overlay closed after answering")
	}
}

func TestAppConsentEscDismisses(t *testing.T) {
	f := newTestApp(t)

	reply := make(chan ConsentOption, 1)
	f.app.Update(consentRequestMsg{reply: reply})
	f.app.Update(keyMsg("esc"))

	select {
	case got := <-reply:
		if got != ConsentDismiss {
			t.Errorf("expected ConsentDismiss, got %v", got)
		}
	default:
		t.Fatal("expected an answer on the reply channel")
	}
}

func TestAppFlowOverlayEscHides(t *testing.T) {
	f := newTestApp(t)

	f.app.flow.Configure(true)
	f.app.overlay = overlayFlow

	f.app.Update(keyMsg("esc"))

	if f.app.overlay != overlayNone {
		t.Error("expected esc to hide the flow overlay")
	}
}

func TestAppSummaryUpdatesViews(t *testing.T) {
	f := newTestApp(t)

	f.app.Update(summaryMsg{summary: testSummary()})

	view := f.app.View()
	if !strings.Contains(view, "[2]") {
		t.Errorf("expected badge count in tab bar, got: %s", view)
	}

	f.app.Update(keyMsg("2"))
	if got := f.app.View(); !strings.Contains(got, "2 of 3 unlocked") {
		t.Errorf("expected badge list content, got: %s", got)
	}
}

func TestAppSummaryErrorSurfaces(t *testing.T) {
	f := newTestApp(t)

	f.app.applySummary(summaryMsg{err: errStub("boom")})

	f.app.Update(keyMsg("2"))
	if got := f.app.View(); !strings.Contains(got, "boom") {
		t.Errorf("expected summary error in badge view, got: %s", got)
	}
}

type errStub string

func (e errStub) Error() string { return string(e) }

func TestAppLedgerChangeRefreshesHistory(t *testing.T) {
	f := newTestApp(t)

	f.store.Add("first-report")
	f.store.AppendHistory(ledger.Entry{Code: "first-report", Name: "First Report"})

	f.app.Update(ledgerChangedMsg{})

	f.app.Update(keyMsg("3"))
	if got := f.app.View(); !strings.Contains(got, "First Report") {
		t.Errorf("expected history row, got: %s", got)
	}
}

func TestAppToastMsgShowsAndExpires(t *testing.T) {
	f := newTestApp(t)

	_, cmd := f.app.Update(toastMsg{level: toastSuccess, message: "Badge unlocked: First Report", duration: 1})
	if !f.app.toasts.Active() {
		t.Fatal("expected toast to be visible")
	}
	if cmd == nil {
		t.Fatal("expected expiry command")
	}

	if got := f.app.View(); !strings.Contains(got, "Badge unlocked: First Report") {
		t.Errorf("expected toast in view, got: %s", got)
	}

	f.app.Update(toastExpiredMsg{id: 1})
	if f.app.toasts.Active() {
		t.Error("expected toast expired")
	}
}

func TestAppFooterHintsFollowState(t *testing.T) {
	f := newTestApp(t)

	view := f.app.View()
	if strings.Contains(view, "s: Enable push") {
		t.Errorf("expected no push hint on unsupported platform, got: %s", view)
	}
	if !strings.Contains(view, "m: Mute") {
		t.Errorf("expected mute hint, got: %s", view)
	}

	f.app.Update(keyMsg("m"))
	if got := f.app.View(); !strings.Contains(got, "m: Unmute") {
		t.Errorf("expected unmute hint after muting, got: %s", got)
	}
}
