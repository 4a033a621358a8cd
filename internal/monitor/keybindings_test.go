package monitor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyMsg(s string) tea.KeyMsg {
	if s == "ctrl+c" {
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	if s == "up" {
		return tea.KeyMsg{Type: tea.KeyUp}
	}
	if s == "down" {
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	if s == "esc" {
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	if s == "tab" {
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHandleKeyMsg_Quit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			m := loadedModel(t, testSnapshot())

			handled, cmd := m.HandleKeyMsg(keyMsg(key))

			assert.True(t, handled)
			assert.True(t, m.quitting)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestHandleKeyMsg_Refresh(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	handled, cmd := m.HandleKeyMsg(keyMsg("r"))

	assert.True(t, handled)
	assert.True(t, m.refreshing)
	assert.NotNil(t, cmd)
}

func TestHandleKeyMsg_Refresh_NoopWhileRefreshing(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.refreshing = true

	handled, cmd := m.HandleKeyMsg(keyMsg("r"))

	assert.True(t, handled)
	assert.Nil(t, cmd)
}

func TestHandleKeyMsg_CycleSort(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	handled, _ := m.HandleKeyMsg(keyMsg("s"))

	assert.True(t, handled)
	assert.Equal(t, SortByUtil, m.sortOrder)
	// Devices re-sorted immediately: highest utilization first.
	assert.Equal(t, 1, m.devices[0].Index)
}

func TestHandleKeyMsg_Navigation(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	assert.Equal(t, 0, m.selected)

	m.HandleKeyMsg(keyMsg("j"))
	assert.Equal(t, 1, m.selected)

	// Clamped at the last device.
	m.HandleKeyMsg(keyMsg("down"))
	assert.Equal(t, 1, m.selected)

	m.HandleKeyMsg(keyMsg("k"))
	assert.Equal(t, 0, m.selected)

	// Clamped at the first device.
	m.HandleKeyMsg(keyMsg("up"))
	assert.Equal(t, 0, m.selected)
}

func TestHandleKeyMsg_TabSwitchesPanel(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	assert.Equal(t, FocusDevices, m.focus)

	m.HandleKeyMsg(keyMsg("tab"))
	assert.Equal(t, FocusProcesses, m.focus)

	// Navigation now moves the process cursor, not the device cursor.
	m.HandleKeyMsg(keyMsg("j"))
	assert.Equal(t, 0, m.selected)

	m.HandleKeyMsg(keyMsg("tab"))
	assert.Equal(t, FocusDevices, m.focus)
}

func TestHandleKeyMsg_DetailView(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	m.HandleKeyMsg(keyMsg("enter"))
	assert.Equal(t, ViewDetail, m.viewMode)

	m.HandleKeyMsg(keyMsg("esc"))
	assert.Equal(t, ViewList, m.viewMode)
}

func TestHandleKeyMsg_HelpToggle(t *testing.T) {
	m := loadedModel(t, testSnapshot())

	m.HandleKeyMsg(keyMsg("?"))
	assert.True(t, m.showHelp)

	// Esc closes help without leaving the view.
	m.HandleKeyMsg(keyMsg("esc"))
	assert.False(t, m.showHelp)
	assert.Equal(t, ViewList, m.viewMode)
}

func TestHandleKeyMsg_EscDismissesNotices(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.pushNotice("terminated process 12074", noticeInfo)
	require.NotEmpty(t, m.notices)

	handled, _ := m.HandleKeyMsg(keyMsg("esc"))

	assert.True(t, handled)
	assert.Empty(t, m.notices)
	// The view itself is untouched.
	assert.Equal(t, ViewList, m.viewMode)
}

func TestHandleKeyMsg_EscDismissesStartupError(t *testing.T) {
	m := newTestModel(&fakeSource{}, nil)
	m.lastErr = assert.AnError

	handled, _ := m.HandleKeyMsg(keyMsg("esc"))

	assert.True(t, handled)
	assert.True(t, m.errDismissed)
}

func TestHandleKeyMsg_TerminateFlow(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.focus = FocusProcesses

	// t opens the confirmation for the selected process.
	handled, cmd := m.HandleKeyMsg(keyMsg("t"))
	assert.True(t, handled)
	assert.Nil(t, cmd)
	require.NotNil(t, m.confirm)
	assert.Equal(t, int32(12074), m.confirm.pid)
	assert.False(t, m.confirm.force)

	// y confirms and dispatches the signal.
	handled, cmd = m.HandleKeyMsg(keyMsg("y"))
	assert.True(t, handled)
	assert.Nil(t, m.confirm)
	assert.True(t, m.terminating[12074])
	require.NotNil(t, cmd)

	msg := cmd()
	done, ok := msg.(terminateDoneMsg)
	require.True(t, ok)
	assert.Equal(t, int32(12074), done.pid)
	assert.NoError(t, done.err)
}

func TestHandleKeyMsg_TerminateCancel(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.focus = FocusProcesses

	m.HandleKeyMsg(keyMsg("t"))
	require.NotNil(t, m.confirm)

	handled, cmd := m.HandleKeyMsg(keyMsg("n"))
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.Nil(t, m.confirm)
	assert.False(t, m.terminating[12074])
}

func TestHandleKeyMsg_KillUsesForce(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.focus = FocusProcesses

	m.HandleKeyMsg(keyMsg("K"))
	require.NotNil(t, m.confirm)
	assert.True(t, m.confirm.force)
}

func TestHandleKeyMsg_TerminateWithoutSelection(t *testing.T) {
	snap := testSnapshot()
	snap.Processes = nil
	m := loadedModel(t, snap)
	m.focus = FocusProcesses

	handled, cmd := m.HandleKeyMsg(keyMsg("t"))

	assert.True(t, handled)
	assert.Nil(t, m.confirm)
	// A notice explains why nothing happened.
	require.NotNil(t, cmd)
	assert.Contains(t, m.notices[0].text, "no process selected")
}

func TestHandleKeyMsg_TerminateStaleProcess(t *testing.T) {
	snap := testSnapshot()
	snap.Processes[0].Stale = true
	m := loadedModel(t, snap)
	m.focus = FocusProcesses

	m.HandleKeyMsg(keyMsg("t"))

	assert.Nil(t, m.confirm)
	assert.Contains(t, m.notices[0].text, "already exited")
}

func TestHandleKeyMsg_ConfirmCapturesInput(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.focus = FocusProcesses
	m.HandleKeyMsg(keyMsg("t"))
	require.NotNil(t, m.confirm)

	// Unrelated keys are swallowed while the prompt is open.
	handled, cmd := m.HandleKeyMsg(keyMsg("s"))
	assert.True(t, handled)
	assert.Nil(t, cmd)
	assert.NotNil(t, m.confirm)
	assert.Equal(t, SortByIndex, m.sortOrder)
}

func TestHandleKeyMsg_HomeEnd(t *testing.T) {
	snap := testSnapshot()
	m := loadedModel(t, snap)

	m.HandleKeyMsg(keyMsg("end"))
	assert.Equal(t, 1, m.selected)

	m.HandleKeyMsg(keyMsg("home"))
	assert.Equal(t, 0, m.selected)
}

func TestSortOrder_StringAndNext(t *testing.T) {
	tests := []struct {
		order  SortOrder
		expect string
	}{
		{SortByIndex, "index"},
		{SortByUtil, "util"},
		{SortByMemory, "mem"},
		{SortByPower, "power"},
		{SortByTemp, "temp"},
		{SortOrder(99), "index"},
	}

	for _, tt := range tests {
		t.Run(tt.expect, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.order.String())
		})
	}

	// Next wraps around.
	assert.Equal(t, SortByUtil, SortByIndex.Next())
	assert.Equal(t, SortByIndex, SortByTemp.Next())
}

func TestLayoutForWidth(t *testing.T) {
	assert.Equal(t, LayoutMinimal, layoutForWidth(79))
	assert.Equal(t, LayoutCompact, layoutForWidth(80))
	assert.Equal(t, LayoutStandard, layoutForWidth(120))
	assert.Equal(t, LayoutWide, layoutForWidth(160))
}

func TestHandleKey_CompactToggle(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.width = 160
	m.layout = layoutForWidth(160)

	handled, _ := m.HandleKeyMsg(keyMsg("c"))
	assert.True(t, handled)
	assert.True(t, m.compact)
	// A wide terminal is capped at the compact card style.
	assert.Equal(t, LayoutCompact, m.layout)

	m.HandleKeyMsg(keyMsg("c"))
	assert.False(t, m.compact)
	assert.Equal(t, LayoutWide, m.layout)
}

func TestSetCompact_NarrowTerminalUnaffected(t *testing.T) {
	m := loadedModel(t, testSnapshot())
	m.width = 70
	m.layout = layoutForWidth(70)

	m.SetCompact(true)

	// Minimal layout is already below the compact cap.
	assert.Equal(t, LayoutMinimal, m.layout)
}
