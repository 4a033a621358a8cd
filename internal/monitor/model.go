package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/npulab/nputop/internal/config"
	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/hostproc"
	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/telemetry"
)

// spinnerInterval controls the refresh spinner animation speed.
const spinnerInterval = 150 * time.Millisecond

// noticeTTL is how long a notice stays visible before expiring.
const noticeTTL = 5 * time.Second

// maxNotices bounds the notice queue.
const maxNotices = 3

// tickMsg triggers a scheduled collection cycle.
type tickMsg time.Time

// spinnerTickMsg advances the refresh spinner animation.
type spinnerTickMsg time.Time

// snapshotMsg carries the outcome of a collection cycle.
type snapshotMsg struct {
	result Result
	forced bool
}

// terminateDoneMsg carries the outcome of a signal delivery.
type terminateDoneMsg struct {
	pid   int32
	force bool
	err   error
}

// noticeExpireMsg prunes notices past their TTL.
type noticeExpireMsg time.Time

// noticeLevel classifies a notice for styling.
type noticeLevel int

const (
	noticeInfo noticeLevel = iota
	noticeError
)

// notice is a transient status line shown under the header.
type notice struct {
	text  string
	level noticeLevel
	at    time.Time
}

// pendingTerminate holds the state of an unconfirmed terminate request.
type pendingTerminate struct {
	pid   int32
	name  string
	force bool
}

// Model is the Bubble Tea model for the dashboard.
type Model struct {
	collector  *Collector
	interval   time.Duration
	thresholds config.ThresholdConfig
	history    *History
	log        logger.Logger

	// Snapshot state. devices is the sorted view of snapshot.Devices.
	// errDismissed suppresses the full-screen error overlay after the
	// user closes it, until a collection succeeds again.
	snapshot     *telemetry.Snapshot
	devices      []telemetry.DeviceRecord
	lastErr      error
	errDismissed bool
	lastUpdate   time.Time

	// Refresh state machine: at most one collection cycle in flight.
	refreshing   bool
	spinnerFrame int

	// Selection and navigation.
	selected     int
	procSelected int
	focus        FocusPanel
	sortOrder    SortOrder
	viewMode     ViewMode

	// Terminal geometry. compact caps the layout at the single-row
	// card style regardless of width.
	width   int
	height  int
	layout  LayoutMode
	compact bool

	// Detail view scrolling.
	viewport      viewport.Model
	viewportReady bool

	// Terminate flow.
	confirm     *pendingTerminate
	terminating map[int32]bool

	notices  []notice
	showHelp bool
	quitting bool

	now func() time.Time
}

// NewModel creates a dashboard model.
func NewModel(collector *Collector, interval time.Duration, thresholds config.ThresholdConfig, log logger.Logger) Model {
	if log == nil {
		log = logger.Noop()
	}
	return Model{
		collector:   collector,
		interval:    interval,
		thresholds:  thresholds,
		history:     NewHistory(DefaultHistorySize),
		log:         log,
		terminating: make(map[int32]bool),
		// Init issues the first collection, so the model starts with a
		// cycle already in flight.
		refreshing: true,
		now:        time.Now,
	}
}

// Init starts the polling loop, the first collection, and the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.collectCmd(false), m.spinnerTickCmd())
}

// tickCmd schedules the next collection cycle.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// spinnerTickCmd schedules the next spinner frame.
func (m Model) spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg(t)
	})
}

// collectCmd runs one collection cycle off the UI goroutine. forced
// bypasses the snapshot cache for the manual refresh key.
func (m Model) collectCmd(forced bool) tea.Cmd {
	collector := m.collector
	return func() tea.Msg {
		var res Result
		if forced {
			res = collector.Refresh(context.Background())
		} else {
			res = collector.Collect(context.Background())
		}
		return snapshotMsg{result: res, forced: forced}
	}
}

// terminateCmd delivers a signal off the UI goroutine.
func (m Model) terminateCmd(pid int32, force bool) tea.Cmd {
	collector := m.collector
	return func() tea.Msg {
		err := collector.Terminate(pid, force)
		return terminateDoneMsg{pid: pid, force: force, err: err}
	}
}

// noticeExpireCmd schedules a prune of expired notices.
func (m Model) noticeExpireCmd() tea.Cmd {
	return tea.Tick(noticeTTL, func(t time.Time) tea.Msg {
		return noticeExpireMsg(t)
	})
}

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}
		// Unhandled keys scroll the detail viewport.
		if m.viewMode == ViewDetail && m.viewportReady {
			var vpCmd tea.Cmd
			m.viewport, vpCmd = m.viewport.Update(msg)
			return m, vpCmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout = m.layoutFor(msg.Width)
		m.resizeViewport()
		return m, nil

	case tickMsg:
		cmds := []tea.Cmd{m.tickCmd()}
		if !m.refreshing {
			m.refreshing = true
			cmds = append(cmds, m.collectCmd(false))
		}
		return m, tea.Batch(cmds...)

	case spinnerTickMsg:
		m.spinnerFrame++
		return m, m.spinnerTickCmd()

	case snapshotMsg:
		return m.updateSnapshot(msg)

	case terminateDoneMsg:
		return m.updateTerminateDone(msg)

	case noticeExpireMsg:
		m.pruneNotices()
		return m, nil
	}

	return m, nil
}

// updateSnapshot applies a completed collection cycle.
func (m Model) updateSnapshot(msg snapshotMsg) (tea.Model, tea.Cmd) {
	m.refreshing = false

	var cmd tea.Cmd
	if msg.result.Err != nil {
		m.lastErr = msg.result.Err
		// Keep rendering the previous snapshot under an error notice.
		cmd = m.pushNotice(errorNoticeText(msg.result.Err), noticeError)
		m.log.Debug("snapshot failed: %v", msg.result.Err)
		return m, cmd
	}

	m.lastErr = nil
	m.errDismissed = false
	m.snapshot = msg.result.Snapshot
	m.lastUpdate = m.now()
	m.history.Push(m.snapshot)
	m.applySort()
	m.clampSelection()
	m.pruneTerminating()
	if msg.forced {
		cmd = m.pushNotice("refreshed", noticeInfo)
	}
	if m.viewMode == ViewDetail {
		m.syncViewport()
	}
	return m, cmd
}

// updateTerminateDone applies the outcome of a signal delivery. On
// success the terminating mark stays until a later snapshot no longer
// lists the process; on failure it is cleared so the user can retry.
func (m Model) updateTerminateDone(msg terminateDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		delete(m.terminating, msg.pid)
	}

	var text string
	level := noticeInfo
	switch {
	case msg.err == nil && msg.force:
		text = formatPIDNotice("killed", msg.pid)
	case msg.err == nil:
		text = formatPIDNotice("terminated", msg.pid)
	case errors.IsCode(msg.err, errors.ErrPermission):
		text = formatPIDNotice("permission denied for", msg.pid)
		level = noticeError
	case hostproc.IsNotFound(msg.err):
		text = formatPIDNotice("no such process", msg.pid)
		level = noticeError
	default:
		text = formatPIDNotice("failed to signal", msg.pid)
		level = noticeError
	}

	// A successful signal changes the process table; refresh promptly.
	cmds := []tea.Cmd{m.pushNotice(text, level)}
	if msg.err == nil && !m.refreshing {
		m.refreshing = true
		cmds = append(cmds, m.collectCmd(true))
	}
	return m, tea.Batch(cmds...)
}

// pushNotice appends a notice, evicting the oldest past maxNotices.
func (m *Model) pushNotice(text string, level noticeLevel) tea.Cmd {
	m.notices = append(m.notices, notice{text: text, level: level, at: m.now()})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
	return m.noticeExpireCmd()
}

// pruneNotices drops notices older than noticeTTL.
func (m *Model) pruneNotices() {
	cutoff := m.now().Add(-noticeTTL)
	kept := m.notices[:0]
	for _, n := range m.notices {
		if n.at.After(cutoff) {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

// pruneTerminating clears terminating marks for PIDs the current
// snapshot no longer lists as live.
func (m *Model) pruneTerminating() {
	if m.snapshot == nil || len(m.terminating) == 0 {
		return
	}
	live := make(map[int32]bool, len(m.snapshot.Processes))
	for _, p := range m.snapshot.Processes {
		if !p.Stale {
			live[p.PID] = true
		}
	}
	for pid := range m.terminating {
		if !live[pid] {
			delete(m.terminating, pid)
		}
	}
}

// applySort rebuilds the sorted device view, preserving the selected
// device across reorders.
func (m *Model) applySort() {
	if m.snapshot == nil {
		m.devices = nil
		return
	}

	var selectedIndex = -1
	if m.selected >= 0 && m.selected < len(m.devices) {
		selectedIndex = m.devices[m.selected].Index
	}

	m.devices = make([]telemetry.DeviceRecord, len(m.snapshot.Devices))
	copy(m.devices, m.snapshot.Devices)

	less := m.deviceLess()
	sort.SliceStable(m.devices, less)

	if selectedIndex >= 0 {
		for i := range m.devices {
			if m.devices[i].Index == selectedIndex {
				m.selected = i
				break
			}
		}
	}
}

// deviceLess returns the comparator for the active sort order. Devices
// with unknown values for the sort key order last.
func (m *Model) deviceLess() func(i, j int) bool {
	devs := m.devices
	switch m.sortOrder {
	case SortByUtil:
		return func(i, j int) bool {
			a, b := devs[i], devs[j]
			if a.AICoreKnown != b.AICoreKnown {
				return a.AICoreKnown
			}
			if a.AICorePercent != b.AICorePercent {
				return a.AICorePercent > b.AICorePercent
			}
			return a.Index < b.Index
		}
	case SortByMemory:
		return func(i, j int) bool {
			a, b := devs[i], devs[j]
			if a.MemKnown != b.MemKnown {
				return a.MemKnown
			}
			if a.MemPercent != b.MemPercent {
				return a.MemPercent > b.MemPercent
			}
			return a.Index < b.Index
		}
	case SortByPower:
		return func(i, j int) bool {
			a, b := devs[i], devs[j]
			if a.Power.Known != b.Power.Known {
				return a.Power.Known
			}
			if a.Power.Milliwatts != b.Power.Milliwatts {
				return a.Power.Milliwatts > b.Power.Milliwatts
			}
			return a.Index < b.Index
		}
	case SortByTemp:
		return func(i, j int) bool {
			a, b := devs[i], devs[j]
			if a.TempKnown != b.TempKnown {
				return a.TempKnown
			}
			if a.TemperatureC != b.TemperatureC {
				return a.TemperatureC > b.TemperatureC
			}
			return a.Index < b.Index
		}
	default:
		return func(i, j int) bool {
			return devs[i].Index < devs[j].Index
		}
	}
}

// clampSelection keeps the device and process cursors inside the
// current snapshot.
func (m *Model) clampSelection() {
	if m.selected >= len(m.devices) {
		m.selected = len(m.devices) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}

	procs := m.visibleProcesses()
	if m.procSelected >= len(procs) {
		m.procSelected = len(procs) - 1
	}
	if m.procSelected < 0 {
		m.procSelected = 0
	}
}

// SelectedDevice returns the currently selected device, or nil.
func (m Model) SelectedDevice() *telemetry.DeviceRecord {
	if m.selected < 0 || m.selected >= len(m.devices) {
		return nil
	}
	return &m.devices[m.selected]
}

// SelectedProcess returns the currently selected process, or nil.
func (m Model) SelectedProcess() *telemetry.ProcessRecord {
	procs := m.visibleProcesses()
	if m.procSelected < 0 || m.procSelected >= len(procs) {
		return nil
	}
	return &procs[m.procSelected]
}

// visibleProcesses returns the process rows shown in the process panel:
// all processes in list view, the selected device's in detail view.
func (m Model) visibleProcesses() []telemetry.ProcessRecord {
	if m.snapshot == nil {
		return nil
	}
	if m.viewMode == ViewDetail {
		if dev := m.SelectedDevice(); dev != nil {
			return m.snapshot.ProcessesFor(dev.Index)
		}
		return nil
	}
	return m.snapshot.Processes
}

// SetCompact caps the layout at the compact card style. Wired to the
// --compact flag; the c key toggles it at runtime.
func (m *Model) SetCompact(compact bool) {
	m.compact = compact
	if m.width > 0 {
		m.layout = m.layoutFor(m.width)
	}
}

// layoutFor resolves the layout for a terminal width, honoring the
// compact cap.
func (m Model) layoutFor(width int) LayoutMode {
	layout := layoutForWidth(width)
	if m.compact && layout > LayoutCompact {
		layout = LayoutCompact
	}
	return layout
}

// SecondsSinceUpdate returns whole seconds since the last good snapshot.
func (m Model) SecondsSinceUpdate() int {
	if m.lastUpdate.IsZero() {
		return 0
	}
	return int(m.now().Sub(m.lastUpdate).Seconds())
}

// resizeViewport sizes the detail viewport to the current terminal.
func (m *Model) resizeViewport() {
	headerHeight := 3
	footerHeight := 2
	vpHeight := m.height - headerHeight - footerHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.viewportReady {
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewportReady = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}

	if m.viewMode == ViewDetail {
		m.syncViewport()
	}
}

// syncViewport re-renders the detail content into the viewport.
func (m *Model) syncViewport() {
	if !m.viewportReady {
		return
	}
	m.viewport.SetContent(m.renderDetailContent())
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	// No data yet and collection failing: the error is the whole story.
	if m.snapshot == nil && m.lastErr != nil && !m.errDismissed {
		return m.renderErrorOverlay()
	}

	var base string
	if m.viewMode == ViewDetail {
		base = m.renderDetailView()
	} else {
		base = m.renderDashboard()
	}

	if m.confirm != nil {
		return m.renderConfirmOverlay()
	}
	if m.showHelp {
		return m.renderHelpOverlay(base)
	}
	return base
}
