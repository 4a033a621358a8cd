package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Detail view styles
var (
	detailContainerStyle = lipgloss.NewStyle().
				Padding(1, 2)

	detailSectionStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorder).
				Padding(0, 1).
				MarginBottom(1)

	detailTitleStyle = lipgloss.NewStyle().
				Foreground(ColorAccent).
				Bold(true)
)

// renderDetailView renders the expanded single-device view inside the
// scrolling viewport.
func (m Model) renderDetailView() string {
	dev := m.SelectedDevice()
	if dev == nil {
		return LabelStyle.Render("No device selected")
	}

	var b strings.Builder
	b.WriteString(m.renderDetailHeader())
	b.WriteString("\n")

	if m.viewportReady {
		b.WriteString(m.viewport.View())
	} else {
		b.WriteString(m.renderDetailContent())
	}

	b.WriteString("\n")
	b.WriteString(m.renderDetailFooter())
	return b.String()
}

// renderDetailHeader renders the device identity line.
func (m Model) renderDetailHeader() string {
	dev := m.SelectedDevice()
	if dev == nil {
		return ""
	}

	glyph, glyphStyle := deviceHealthIndicator(*dev)
	title := detailTitleStyle.Render(fmt.Sprintf("NPU%d", dev.Index))
	model := LabelStyle.Render(dev.Model)

	parts := []string{glyphStyle.Render(glyph), title, model}
	if dev.BusID != "" && dev.BusID != "NA" {
		parts = append(parts, MutedStyle.Render("bus "+dev.BusID))
	}
	if dev.Health != "" {
		parts = append(parts, MutedStyle.Render("health "+dev.Health))
	}

	return HeaderStyle.Render(strings.Join(parts, " "))
}

// renderDetailContent renders the scrollable section stack.
func (m Model) renderDetailContent() string {
	dev := m.SelectedDevice()
	if dev == nil {
		return LabelStyle.Render("No device selected")
	}

	contentWidth := m.width - 6
	if contentWidth < 40 {
		contentWidth = 40
	}

	var b strings.Builder

	b.WriteString(m.renderDetailUtilSection(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderDetailMemSection(contentWidth))
	b.WriteString("\n")
	b.WriteString(m.renderDetailPowerSection(contentWidth))
	b.WriteString("\n")

	if degraded := m.renderDetailDegradedSection(contentWidth); degraded != "" {
		b.WriteString(degraded)
		b.WriteString("\n")
	}

	b.WriteString(m.renderDetailProcessSection(contentWidth))

	return detailContainerStyle.Render(b.String())
}

// renderDetailUtilSection renders utilization rates with history.
func (m Model) renderDetailUtilSection(width int) string {
	dev := m.SelectedDevice()
	warning, critical := m.utilThresholds()

	var lines []string
	lines = append(lines, detailTitleStyle.Render("Utilization"))
	lines = append(lines, "")

	barWidth := width - 24
	if barWidth < 20 {
		barWidth = 20
	}

	if dev.AICoreKnown {
		bar := ProgressBarWithThresholds(barWidth, float64(dev.AICorePercent), warning, critical)
		pct := MetricStyleWithThresholds(float64(dev.AICorePercent), warning, critical).
			Render(fmt.Sprintf("%3d%%", dev.AICorePercent))
		lines = append(lines, fmt.Sprintf("  AI Core:   %s %s", bar, pct))
	} else {
		lines = append(lines, "  AI Core:   "+naText())
	}

	if dev.AICPUKnown {
		bar := ProgressBarWithThresholds(barWidth, float64(dev.AICPUPercent), warning, critical)
		pct := MetricStyleWithThresholds(float64(dev.AICPUPercent), warning, critical).
			Render(fmt.Sprintf("%3d%%", dev.AICPUPercent))
		lines = append(lines, fmt.Sprintf("  AI CPU:    %s %s", bar, pct))
	}

	if dev.BandwidthKnown {
		bar := ProgressBarWithThresholds(barWidth, float64(dev.BandwidthPercent), warning, critical)
		pct := MetricStyleWithThresholds(float64(dev.BandwidthPercent), warning, critical).
			Render(fmt.Sprintf("%3d%%", dev.BandwidthPercent))
		lines = append(lines, fmt.Sprintf("  Bandwidth: %s %s", bar, pct))
	}

	history := m.history.UtilHistory(dev.Index, 30)
	if len(history) > 0 {
		lines = append(lines, "")
		lines = append(lines, "  "+RenderMiniSparkline(history, width-4, warning, critical))
		lines = append(lines, MutedStyle.Render("  AI core history (30 samples)"))
	}

	return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderDetailMemSection renders memory usage with breakdown.
func (m Model) renderDetailMemSection(width int) string {
	dev := m.SelectedDevice()
	warning, critical := m.memThresholds()

	var lines []string
	lines = append(lines, detailTitleStyle.Render("Memory"))
	lines = append(lines, "")

	if !dev.MemKnown {
		lines = append(lines, "  Usage: "+naText())
		return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
	}

	barWidth := width - 20
	if barWidth < 20 {
		barWidth = 20
	}
	bar := ProgressBarWithThresholds(barWidth, dev.MemPercent, warning, critical)
	pct := MetricStyleWithThresholds(dev.MemPercent, warning, critical).
		Render(fmt.Sprintf("%5.1f%%", dev.MemPercent))
	lines = append(lines, fmt.Sprintf("  Usage: %s %s", bar, pct))

	lines = append(lines, LabelStyle.Render(fmt.Sprintf("  Used:  %s", formatBytes(dev.MemUsedBytes))))
	lines = append(lines, LabelStyle.Render(fmt.Sprintf("  Total: %s", formatBytes(dev.MemTotalBytes))))

	history := m.history.MemHistory(dev.Index, 30)
	if len(history) > 0 {
		lines = append(lines, "")
		lines = append(lines, "  "+RenderMiniSparkline(history, width-4, warning, critical))
		lines = append(lines, MutedStyle.Render("  Memory history (30 samples)"))
	}

	return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderDetailPowerSection renders power draw, limit and temperature.
func (m Model) renderDetailPowerSection(width int) string {
	dev := m.SelectedDevice()

	var lines []string
	lines = append(lines, detailTitleStyle.Render("Power & Thermal"))
	lines = append(lines, "")

	if dev.Power.Known {
		draw := fmt.Sprintf("  Draw:  %.1f W", dev.Power.Watts())
		lines = append(lines, ValueStyle.Render(draw))
	} else {
		lines = append(lines, "  Draw:  "+naText())
	}

	if dev.PowerLimit.Known {
		limit := fmt.Sprintf("  Limit: %.0f W", dev.PowerLimit.Watts())
		if dev.PowerLimit.Estimated {
			limit += " (estimated from model)"
		}
		lines = append(lines, LabelStyle.Render(limit))
	}

	if dev.TempKnown {
		tempColor := ColorHealthy
		if dev.TemperatureC >= 90 {
			tempColor = ColorCritical
		} else if dev.TemperatureC >= 75 {
			tempColor = ColorWarning
		}
		temp := lipgloss.NewStyle().Foreground(tempColor).
			Render(fmt.Sprintf("%d°C", dev.TemperatureC))
		lines = append(lines, "  Temp:  "+temp)
	} else {
		lines = append(lines, "  Temp:  "+naText())
	}

	return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderDetailDegradedSection lists fields that failed to read this cycle.
func (m Model) renderDetailDegradedSection(width int) string {
	dev := m.SelectedDevice()
	if !dev.IsDegraded() {
		return ""
	}

	var lines []string
	lines = append(lines, detailTitleStyle.Render("Degraded Fields"))
	lines = append(lines, "")
	lines = append(lines, HealthWarnStyle.Render("  "+strings.Join(dev.Degraded, ", ")))
	lines = append(lines, MutedStyle.Render("  These fields could not be read this cycle."))

	return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderDetailProcessSection lists this device's compute processes.
func (m Model) renderDetailProcessSection(width int) string {
	dev := m.SelectedDevice()
	procs := m.snapshot.ProcessesFor(dev.Index)

	var lines []string
	lines = append(lines, detailTitleStyle.Render("Processes"))
	lines = append(lines, "")

	if len(procs) == 0 {
		lines = append(lines, MutedStyle.Render(fmt.Sprintf("  No running processes found in NPU %d", dev.NPUID)))
		return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
	}

	header := fmt.Sprintf("  %-8s %-10s %10s %10s  %s", "PID", "USER", "DEV MEM", "HOST MEM", "COMMAND")
	lines = append(lines, MutedStyle.Render(header))

	for i, p := range procs {
		selected := i == m.procSelected && m.focus == FocusProcesses
		lines = append(lines, "  "+m.renderProcessRow(p, selected, width-4))
	}

	return detailSectionStyle.Width(width).Render(strings.Join(lines, "\n"))
}

// renderDetailFooter renders navigation hints for the detail view.
func (m Model) renderDetailFooter() string {
	hints := []string{"esc back", "↑↓ device", "tab procs", "t term", "r refresh", "q quit"}
	return FooterStyle.Render(strings.Join(hints, " | "))
}
