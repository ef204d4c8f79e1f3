package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/civicwatch/herald/internal/api"
	"github.com/civicwatch/herald/internal/badge"
	"github.com/civicwatch/herald/internal/bus"
	"github.com/civicwatch/herald/internal/chime"
	"github.com/civicwatch/herald/internal/config"
	"github.com/civicwatch/herald/internal/ledger"
	"github.com/civicwatch/herald/internal/logging"
	"github.com/civicwatch/herald/internal/push"
	"github.com/civicwatch/herald/internal/toast"
)

// spinnerInterval is the animation frame rate of the flow overlay.
const spinnerInterval = 120 * time.Millisecond

// historyLimit caps how many ledger entries the history tab loads.
const historyLimit = 200

type tickMsg time.Time

// pushInitDoneMsg reports that the push manager resolved its starting
// state.
type pushInitDoneMsg struct{}

// summaryMsg carries a fetched engagement summary, or the fetch error.
type summaryMsg struct {
	summary *badge.Summary
	err     error
}

// summaryRefreshMsg asks for a fresh summary fetch.
type summaryRefreshMsg struct{}

// pushFlowDoneMsg reports that a subscribe or unsubscribe run returned.
type pushFlowDoneMsg struct {
	enabling bool
	ok       bool
}

// pushStageMsg reports subscribe pipeline progress.
type pushStageMsg struct {
	stage push.Stage
}

// flowCloseMsg hides the flow overlay after its success frame.
type flowCloseMsg struct{}

// AppOptions wires the app to the rest of the process. Everything is
// constructed by the caller; the app only consumes.
type AppOptions struct {
	Client   *api.Client
	Store    ledger.Store
	Bus      *bus.Bus
	Push     *push.Manager
	Sound    *chime.Manager
	Config   *config.Config
	BaseDir  string
	DeviceID string
	Log      *logging.Logger
}

// App is the root model: tab routing, overlay routing, and the glue
// between user input and the notification subsystem.
type App struct {
	ctx context.Context

	client   *api.Client
	store    ledger.Store
	bus      *bus.Bus
	push     *push.Manager
	sound    *chime.Manager
	cfg      *config.Config
	baseDir  string
	deviceID string
	log      *logging.Logger

	width  int
	height int

	activeTab Tab
	overlay   overlay

	tabBar      *TabBar
	statusPanel *StatusPanel
	badgeList   *BadgeList
	history     *HistoryView
	inspector   *Inspector
	toasts      *Toasts
	consent     *ConsentDialog
	flow        *SubscribeFlow

	consentReply chan ConsentOption

	summary       *badge.Summary
	summaryErr    string
	summaryLoaded bool
}

// NewApp builds the root model.
func NewApp(ctx context.Context, opts AppOptions) *App {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}
	a := &App{
		ctx:         ctx,
		client:      opts.Client,
		store:       opts.Store,
		bus:         opts.Bus,
		push:        opts.Push,
		sound:       opts.Sound,
		cfg:         opts.Config,
		baseDir:     opts.BaseDir,
		deviceID:    opts.DeviceID,
		log:         log.WithComponent("tui"),
		activeTab:   TabStatus,
		tabBar:      NewTabBar(),
		statusPanel: NewStatusPanel(),
		badgeList:   NewBadgeList(),
		history:     NewHistoryView(),
		inspector:   NewInspector(),
		toasts:      NewToasts(),
		consent:     NewConsentDialog(),
		flow:        NewSubscribeFlow(),
	}
	a.refreshHistory()
	a.syncTabs()
	a.refreshStatus()
	return a
}

// Init kicks off the background state resolution.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.initPushCmd(), a.fetchSummaryCmd())
}

func (a *App) initPushCmd() tea.Cmd {
	return func() tea.Msg {
		a.push.Init(a.ctx)
		return pushInitDoneMsg{}
	}
}

func (a *App) fetchSummaryCmd() tea.Cmd {
	return func() tea.Msg {
		summary, err := a.client.EngagementSummary(a.ctx)
		return summaryMsg{summary: summary, err: err}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update routes messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.setSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Any keypress is the arming gesture for audio.
		a.sound.Gesture()
		a.refreshStatus()
		switch a.overlay {
		case overlayConsent:
			return a, a.handleConsentKey(msg)
		case overlayFlow:
			return a, a.handleFlowKey(msg)
		}
		return a.handleKey(msg)

	case tea.MouseMsg:
		a.sound.Gesture()
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.scrollActive(-1)
		case tea.MouseButtonWheelDown:
			a.scrollActive(1)
		}
		return a, nil

	case tickMsg:
		if a.overlay == overlayFlow && !a.flow.IsDone() && !a.flow.HasError() {
			a.flow.Tick()
			return a, a.tickCmd()
		}
		return a, nil

	case pushInitDoneMsg:
		a.refreshStatus()
		return a, nil

	case summaryMsg:
		a.applySummary(msg)
		return a, nil

	case summaryRefreshMsg:
		return a, a.fetchSummaryCmd()

	case toastMsg:
		id := a.toasts.Push(msg.level, msg.message)
		a.refreshHistory()
		a.syncTabs()
		a.refreshStatus()
		return a, tea.Tick(msg.duration, func(time.Time) tea.Msg {
			return toastExpiredMsg{id: id}
		})

	case toastExpiredMsg:
		a.toasts.Expire(msg.id)
		return a, nil

	case consentRequestMsg:
		a.consentReply = msg.reply
		a.consent.Reset()
		a.consent.SetSize(a.width, a.height)
		a.overlay = overlayConsent
		return a, nil

	case pushStageMsg:
		a.flow.SetStage(msg.stage)
		return a, nil

	case pushFlowDoneMsg:
		a.refreshStatus()
		if a.overlay != overlayFlow {
			return a, nil
		}
		if msg.ok {
			a.flow.Finish()
			return a, tea.Tick(900*time.Millisecond, func(time.Time) tea.Msg {
				return flowCloseMsg{}
			})
		}
		a.flow.SetError("did not complete")
		return a, nil

	case flowCloseMsg:
		if a.overlay == overlayFlow {
			a.overlay = overlayNone
		}
		return a, nil

	case ledgerChangedMsg:
		a.refreshHistory()
		a.syncTabs()
		a.refreshStatus()
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "tab":
		a.activeTab = (a.activeTab + 1) % tabCount
		a.syncTabs()

	case "shift+tab":
		a.activeTab = (a.activeTab + tabCount - 1) % tabCount
		a.syncTabs()

	case "1", "2", "3", "4":
		a.activeTab = Tab(msg.String()[0] - '1')
		a.syncTabs()

	case "s":
		return a, a.startSubscribe()

	case "S":
		return a, a.startUnsubscribe()

	case "c":
		a.bus.Trigger(nil)
		return a, tea.Batch(
			a.showToast(toastSuccess, "Checking for new badges"),
			tea.Tick(2500*time.Millisecond, func(time.Time) tea.Msg {
				return summaryRefreshMsg{}
			}),
		)

	case "m":
		return a, a.toggleSound()

	case "up", "k":
		a.scrollActive(-1)
	case "down", "j":
		a.scrollActive(1)
	case "pgup":
		a.pageActive(-1)
	case "pgdown":
		a.pageActive(1)
	}

	return a, nil
}

func (a *App) handleConsentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		a.consent.MoveUp()
	case "down", "j":
		a.consent.MoveDown()
	case "enter":
		a.answerConsent(a.consent.GetSelectedOption())
	case "esc":
		a.answerConsent(ConsentDismiss)
	}
	return nil
}

func (a *App) handleFlowKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		// Hiding the overlay does not stop the run; its outcome still
		// arrives as a toast.
		a.overlay = overlayNone
	}
	return nil
}

func (a *App) answerConsent(choice ConsentOption) {
	if a.consentReply != nil {
		a.consentReply <- choice
		a.consentReply = nil
	}
	if a.push.Loading() {
		a.overlay = overlayFlow
	} else {
		a.overlay = overlayNone
	}
}

func (a *App) startSubscribe() tea.Cmd {
	switch {
	case a.push.State() == push.StateUnsupported:
		return a.showToast(toastError, "Push is not available on this platform")
	case a.push.State() == push.StateUnknown:
		return a.showToast(toastError, "Still starting up, try again in a moment")
	case a.push.Loading():
		return nil
	case a.push.State() == push.StateSubscribed:
		return a.showToast(toastSuccess, "Push notifications already enabled")
	}

	a.flow.Configure(true)
	a.flow.SetSize(a.width, a.height)
	a.overlay = overlayFlow
	return tea.Batch(a.tickCmd(), func() tea.Msg {
		a.push.Subscribe(a.ctx)
		return pushFlowDoneMsg{enabling: true, ok: a.push.State() == push.StateSubscribed}
	})
}

func (a *App) startUnsubscribe() tea.Cmd {
	switch {
	case a.push.State() == push.StateUnsupported:
		return a.showToast(toastError, "Push is not available on this platform")
	case a.push.Loading():
		return nil
	case a.push.State() != push.StateSubscribed:
		return a.showToast(toastSuccess, "Push notifications are not enabled")
	}

	a.flow.Configure(false)
	a.flow.SetSize(a.width, a.height)
	a.overlay = overlayFlow
	return tea.Batch(a.tickCmd(), func() tea.Msg {
		a.push.Unsubscribe(a.ctx)
		return pushFlowDoneMsg{enabling: false, ok: a.push.State() == push.StateUnsubscribed}
	})
}

func (a *App) toggleSound() tea.Cmd {
	enabled := !a.sound.IsEnabled()
	a.sound.SetEnabled(enabled)
	a.cfg.Sound.Enabled = enabled
	if err := config.Save(a.baseDir, a.cfg); err != nil {
		a.log.Warn("config save failed", "error", err)
	}
	a.refreshStatus()
	if enabled {
		return a.showToast(toastSuccess, "Chime on")
	}
	return a.showToast(toastSuccess, "Chime muted")
}

func (a *App) showToast(level toastLevel, message string) tea.Cmd {
	id := a.toasts.Push(level, message)
	return tea.Tick(toast.DefaultDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func (a *App) scrollActive(delta int) {
	switch a.activeTab {
	case TabBadges:
		if delta < 0 {
			a.badgeList.ScrollUp()
		} else {
			a.badgeList.ScrollDown()
		}
	case TabHistory:
		if delta < 0 {
			a.history.ScrollUp()
		} else {
			a.history.ScrollDown()
		}
	case TabInspector:
		if delta < 0 {
			a.inspector.ScrollUp()
		} else {
			a.inspector.ScrollDown()
		}
	}
}

func (a *App) pageActive(dir int) {
	switch a.activeTab {
	case TabBadges:
		if dir < 0 {
			a.badgeList.PageUp()
		} else {
			a.badgeList.PageDown()
		}
	case TabHistory:
		if dir < 0 {
			a.history.PageUp()
		} else {
			a.history.PageDown()
		}
	case TabInspector:
		if dir < 0 {
			a.inspector.PageUp()
		} else {
			a.inspector.PageDown()
		}
	}
}

func (a *App) setSize(width, height int) {
	a.width = width
	a.height = height

	contentHeight := height - 4
	if contentHeight < 1 {
		contentHeight = 1
	}

	a.tabBar.SetWidth(width)
	a.toasts.SetWidth(width)
	a.statusPanel.SetSize(width, contentHeight)
	a.badgeList.SetSize(width, contentHeight)
	a.history.SetSize(width, contentHeight)
	a.inspector.SetSize(width, contentHeight)
	a.consent.SetSize(width, height)
	a.flow.SetSize(width, height)
}

func (a *App) applySummary(msg summaryMsg) {
	a.summaryLoaded = true
	if msg.err != nil {
		a.summaryErr = msg.err.Error()
		a.badgeList.SetError(a.summaryErr)
		a.inspector.SetError(a.summaryErr)
	} else {
		a.summaryErr = ""
		a.summary = msg.summary
		a.badgeList.SetSummary(msg.summary)
		a.inspector.SetSummary(msg.summary)
	}
	a.syncTabs()
	a.refreshStatus()
}

func (a *App) refreshHistory() {
	a.history.SetEntries(a.store.History(historyLimit))
}

func (a *App) syncTabs() {
	obtained := 0
	if a.summary != nil {
		for _, b := range a.summary.Badges {
			if b.Obtained {
				obtained++
			}
		}
	}
	notified := len(a.store.LoadAll())

	a.tabBar.SetTabs([]TabEntry{
		{Title: TabStatus.String(), IsActive: a.activeTab == TabStatus},
		{Title: TabBadges.String(), Count: obtained, IsActive: a.activeTab == TabBadges},
		{Title: TabHistory.String(), Count: notified, IsActive: a.activeTab == TabHistory},
		{Title: TabInspector.String(), IsActive: a.activeTab == TabInspector},
	})
}

func (a *App) refreshStatus() {
	data := StatusData{
		PushState:     a.push.State(),
		Permission:    a.push.Permission(),
		Subscribing:   a.push.Loading(),
		SoundEnabled:  a.sound.IsEnabled(),
		SoundUnlocked: a.sound.Unlocked(),
		Notified:      len(a.store.LoadAll()),
		SummaryLoaded: a.summaryLoaded,
		SummaryErr:    a.summaryErr,
		DeviceID:      a.deviceID,
		Server:        a.client.BaseURL,
		Schedule:      a.cfg.Poll.Schedule,
	}
	if a.summary != nil {
		data.Points = a.summary.Points
		data.Level = a.summary.Level
		data.Reports = a.summary.Reports
		data.Comments = a.summary.Comments
	}
	a.statusPanel.SetData(data)
}

// View renders the full screen.
func (a *App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	switch a.overlay {
	case overlayConsent:
		return a.consent.Render()
	case overlayFlow:
		return a.flow.Render()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render("Herald"))
	b.WriteString("  ")
	b.WriteString(FooterStyle.Render("CivicWatch companion"))
	b.WriteString("\n")

	b.WriteString(a.tabBar.Render())
	b.WriteString("\n")

	if a.toasts.Active() {
		b.WriteString(a.toasts.Render())
		b.WriteString("\n")
	}

	b.WriteString(a.contentView())
	b.WriteString("\n")
	b.WriteString(a.footerView())

	return b.String()
}

func (a *App) contentView() string {
	switch a.activeTab {
	case TabBadges:
		return a.badgeList.Render()
	case TabHistory:
		return a.history.Render()
	case TabInspector:
		return a.inspector.Render()
	default:
		return a.statusPanel.Render()
	}
}

func (a *App) footerView() string {
	hints := []string{"tab: Switch", "1-4: Tabs"}

	switch a.push.State() {
	case push.StateUnsubscribed:
		hints = append(hints, "s: Enable push")
	case push.StateSubscribed:
		hints = append(hints, "S: Disable push")
	}

	hints = append(hints, "c: Check now")
	if a.sound.IsEnabled() {
		hints = append(hints, "m: Mute")
	} else {
		hints = append(hints, "m: Unmute")
	}
	if a.activeTab != TabStatus {
		hints = append(hints, "↑/↓: Scroll")
	}
	hints = append(hints, "q: Quit")

	return FooterStyle.Render(strings.Join(hints, "  "))
}

// ActiveTab returns the currently selected tab.
func (a *App) ActiveTab() Tab {
	return a.activeTab
}

// WireStages forwards subscribe pipeline progress into the program so
// the flow overlay can track it.
func WireStages(mgr *push.Manager, send func(tea.Msg)) {
	mgr.OnStage(func(s push.Stage) {
		send(pushStageMsg{stage: s})
	})
}
