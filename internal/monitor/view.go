package monitor

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/telemetry"
)

// renderDashboard renders the complete list view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if notices := m.renderNotices(); notices != "" {
		b.WriteString(notices)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.renderDeviceCards())

	if m.layout >= LayoutStandard {
		if table := m.renderProcessPanel(); table != "" {
			b.WriteString("\n")
			b.WriteString(table)
		}
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the title bar with summary stats.
func (m Model) renderHeader() string {
	title := lipgloss.NewStyle().
		Foreground(ColorAccent).
		Bold(true).
		Render("nputop")

	var parts []string
	if m.snapshot != nil {
		parts = append(parts, fmt.Sprintf("%d devices", len(m.snapshot.Devices)))
		parts = append(parts, fmt.Sprintf("%d procs", len(m.snapshot.Processes)))

		lastUpdate := m.SecondsSinceUpdate()
		switch lastUpdate {
		case 0:
			parts = append(parts, "updated just now")
		case 1:
			parts = append(parts, "updated 1s ago")
		default:
			parts = append(parts, fmt.Sprintf("updated %ds ago", lastUpdate))
		}
	} else {
		parts = append(parts, "waiting for first reading")
	}
	parts = append(parts, fmt.Sprintf("sort: %s", m.sortOrder))

	stats := lipgloss.NewStyle().
		Foreground(ColorTextSecondary).
		Render(" | " + strings.Join(parts, " | "))

	line := title + stats

	if m.snapshot != nil && m.snapshot.Partial {
		line += " " + HealthWarnStyle.Render("⚠ partial")
	}
	if m.refreshing {
		char, style := GetRefreshSpinner(m.spinnerFrame)
		line += " " + style.Render(char)
	}

	return HeaderStyle.Render(line)
}

// renderNotices renders the transient notice lines under the header.
func (m Model) renderNotices() string {
	if len(m.notices) == 0 && m.lastErr == nil {
		return ""
	}

	var lines []string
	if m.lastErr != nil {
		lines = append(lines, NoticeErrorStyle.Render("✗ "+errorNoticeText(m.lastErr)))
	}
	for _, n := range m.notices {
		style := NoticeInfoStyle
		if n.level == noticeError {
			style = NoticeErrorStyle
		}
		lines = append(lines, style.Render(n.text))
	}
	return strings.Join(lines, "\n")
}

// renderDeviceCards renders the grid of device cards.
func (m Model) renderDeviceCards() string {
	if m.snapshot == nil {
		if m.lastErr != nil {
			return LabelStyle.Render("No devices available")
		}
		return LabelStyle.Render("Collecting device data...")
	}
	if len(m.devices) == 0 {
		return LabelStyle.Render("No visible devices")
	}

	cardWidth := m.calculateCardWidth()

	var cards []string
	for i, dev := range m.devices {
		isSelected := i == m.selected && m.focus == FocusDevices
		var card string
		switch m.layout {
		case LayoutMinimal:
			card = m.renderMinimalCard(dev, cardWidth, isSelected)
		case LayoutCompact:
			card = m.renderCompactCard(dev, cardWidth, isSelected)
		default:
			card = m.renderDeviceCard(dev, cardWidth, isSelected)
		}
		cards = append(cards, card)
	}

	return m.layoutCards(cards, cardWidth)
}

// calculateCardWidth determines the card width for the terminal size.
func (m Model) calculateCardWidth() int {
	if m.width == 0 {
		return 40
	}
	if m.width >= BreakpointCompact {
		return 38
	}
	return m.width - 4
}

// layoutCards arranges cards into rows based on terminal width.
func (m Model) layoutCards(cards []string, cardWidth int) string {
	if len(cards) == 0 {
		return ""
	}

	cardsPerRow := 1
	if m.width > 0 {
		effectiveCardWidth := cardWidth + 3 // margin + border
		cardsPerRow = m.width / effectiveCardWidth
		if cardsPerRow < 1 {
			cardsPerRow = 1
		}
	}

	var rows []string
	for i := 0; i < len(cards); i += cardsPerRow {
		end := i + cardsPerRow
		if end > len(cards) {
			end = len(cards)
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cards[i:end]...))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderProcessPanel renders the process table section.
func (m Model) renderProcessPanel() string {
	procs := m.visibleProcesses()

	panelWidth := m.width
	if panelWidth < 40 {
		panelWidth = 40
	}

	count := fmt.Sprintf("%d", len(procs))
	var lines []string
	lines = append(lines, SectionHeader("Processes", count, panelWidth))

	if len(procs) == 0 {
		lines = append(lines, SectionContentLine(MutedStyle.Render("No running processes found"), panelWidth))
		lines = append(lines, SectionFooter(panelWidth))
		return strings.Join(lines, "\n")
	}

	header := fmt.Sprintf("%-8s %-10s %-5s %10s %10s  %s", "PID", "USER", "NPU", "DEV MEM", "HOST MEM", "COMMAND")
	lines = append(lines, SectionContentLine(MutedStyle.Render(header), panelWidth))

	for i, p := range procs {
		row := m.renderProcessRow(p, i == m.procSelected && m.focus == FocusProcesses, panelWidth-4)
		lines = append(lines, SectionContentLine(row, panelWidth))
	}

	lines = append(lines, SectionFooter(panelWidth))
	return strings.Join(lines, "\n")
}

// renderProcessRow renders one process table row.
func (m Model) renderProcessRow(p telemetry.ProcessRecord, selected bool, width int) string {
	user := p.Username
	if !p.HostKnown {
		user = "-"
	}

	hostMem := "-"
	if p.HostKnown {
		hostMem = formatBytes(p.HostRSSBytes)
	}

	command := p.Cmdline
	if command == "" {
		command = p.Name
	}
	maxCmd := width - 50
	if maxCmd < 10 {
		maxCmd = 10
	}
	if len(command) > maxCmd {
		command = command[:maxCmd-3] + "..."
	}

	row := fmt.Sprintf("%-8d %-10s %-5d %10s %10s  %s",
		p.PID, user, p.DeviceIndex, formatBytes(p.DeviceMemoryBytes), hostMem, command)

	switch {
	case m.terminating[p.PID]:
		return HealthWarnStyle.Render(row + " (terminating)")
	case p.Stale:
		return MutedStyle.Render(row + " (exited)")
	case selected:
		return lipgloss.NewStyle().Foreground(ColorAccent).Bold(true).Render(row)
	default:
		return ValueStyle.Render(row)
	}
}

// renderFooter renders the keyboard hint footer.
func (m Model) renderFooter() string {
	hints := []string{
		"q quit",
		"r refresh",
		"s sort",
		"↑↓ select",
		"tab panel",
		"enter detail",
		"t term",
		"? help",
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// renderConfirmOverlay renders a centered terminate confirmation box.
func (m Model) renderConfirmOverlay() string {
	verb := "Terminate"
	if m.confirm.force {
		verb = "Kill"
	}

	title := lipgloss.NewStyle().Foreground(ColorCritical).Bold(true).
		Render(fmt.Sprintf("%s process %d?", verb, m.confirm.pid))

	var lines []string
	lines = append(lines, title)
	if m.confirm.name != "" {
		lines = append(lines, "")
		lines = append(lines, LabelStyle.Render(m.confirm.name))
	}
	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("y confirm · n cancel"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorCritical).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// renderErrorOverlay renders a centered full-screen error box, shown
// when collection fails before any snapshot has arrived.
func (m Model) renderErrorOverlay() string {
	title := lipgloss.NewStyle().Foreground(ColorCritical).Bold(true).
		Render("✗ " + errorNoticeText(m.lastErr))

	lines := []string{title}

	var coded *errors.Error
	if stderrors.As(m.lastErr, &coded) && coded.Suggestion != "" {
		lines = append(lines, "")
		lines = append(lines, LabelStyle.Render(coded.Suggestion))
	}

	lines = append(lines, "")
	lines = append(lines, MutedStyle.Render("esc dismiss · r retry · q quit"))

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorCritical).
		Padding(1, 2).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// errorNoticeText condenses a collection error for the notice line.
func errorNoticeText(err error) string {
	var coded *errors.Error
	if stderrors.As(err, &coded) {
		return coded.Message
	}
	return err.Error()
}

// formatPIDNotice renders a notice about one PID.
func formatPIDNotice(action string, pid int32) string {
	return fmt.Sprintf("%s process %d", action, pid)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(bytes)/float64(div), units[exp])
}
