package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/npulab/nputop/internal/telemetry"
)

// Card layout constants
const (
	cardGraphHeight = 2  // braille graph rows
	cardMinBarWidth = 10 // minimum graph width
)

// cardDividerStyle creates a subtle divider line.
var cardDividerStyle = lipgloss.NewStyle().Foreground(ColorBorder)

// renderCardDivider creates a thin divider line.
func renderCardDivider(width int) string {
	return cardDividerStyle.Render(strings.Repeat("─", width))
}

// renderCardLine pads a text line to the card's inner width.
func renderCardLine(content string, width int) string {
	contentWidth := lipgloss.Width(content)
	if width > contentWidth {
		return content + strings.Repeat(" ", width-contentWidth)
	}
	return content
}

// naText renders the placeholder for a field the driver failed to report.
func naText() string {
	return MutedStyle.Render("N/A")
}

// utilThresholds returns the configured utilization color thresholds.
func (m Model) utilThresholds() (warning, critical int) {
	return m.thresholds.NPULight, m.thresholds.NPUHeavy
}

// memThresholds returns the configured memory color thresholds.
func (m Model) memThresholds() (warning, critical int) {
	return m.thresholds.MemLight, m.thresholds.MemHeavy
}

// renderDeviceCard renders a single device card with metrics and graphs.
func (m Model) renderDeviceCard(dev telemetry.DeviceRecord, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}

	// Inner width for content (account for card padding).
	innerWidth := width - 4

	var lines []string

	lines = append(lines, renderCardLine(m.renderDeviceTitle(dev), innerWidth))
	lines = append(lines, renderCardDivider(innerWidth))

	lines = append(lines, m.renderCardUtilSection(dev, innerWidth, cardGraphHeight)...)
	lines = append(lines, renderCardDivider(innerWidth))

	lines = append(lines, m.renderCardMemSection(dev, innerWidth, cardGraphHeight)...)
	lines = append(lines, renderCardDivider(innerWidth))

	lines = append(lines, renderCardLine(m.renderCardPowerLine(dev, innerWidth), innerWidth))
	lines = append(lines, renderCardLine(m.renderCardTempLine(dev, innerWidth), innerWidth))

	if procs := m.snapshotProcessCount(dev.Index); procs > 0 {
		lines = append(lines, renderCardDivider(innerWidth))
		lines = append(lines, renderCardLine(m.renderCardProcLine(procs, innerWidth), innerWidth))
	}

	return style.Render(strings.Join(lines, "\n"))
}

// renderDeviceTitle renders the health glyph, device name and model.
func (m Model) renderDeviceTitle(dev telemetry.DeviceRecord) string {
	glyph, glyphStyle := deviceHealthIndicator(dev)
	name := DeviceNameStyle.Render(fmt.Sprintf("NPU%d", dev.Index))
	model := LabelStyle.Render(dev.Model)
	return glyphStyle.Render(glyph) + " " + name + " " + model
}

// deviceHealthIndicator maps a device's health to a glyph and style.
func deviceHealthIndicator(dev telemetry.DeviceRecord) (string, lipgloss.Style) {
	switch {
	case strings.EqualFold(dev.Health, "OK") && !dev.IsDegraded():
		return HealthOKGlyph, HealthOKStyle
	case strings.EqualFold(dev.Health, "OK"):
		return HealthWarnGlyph, HealthWarnStyle
	case dev.Health == "":
		return HealthUnknownGlyph, MutedStyle
	default:
		return HealthFaultGlyph, HealthFaultStyle
	}
}

// renderCardUtilSection renders AI core utilization with a history graph.
func (m Model) renderCardUtilSection(dev telemetry.DeviceRecord, lineWidth, graphHeight int) []string {
	var lines []string
	warning, critical := m.utilThresholds()

	label := LabelStyle.Render("NPU")
	var right string
	if dev.AICoreKnown {
		right = MetricStyleWithThresholds(float64(dev.AICorePercent), warning, critical).
			Render(fmt.Sprintf("%3d%%", dev.AICorePercent))
	} else {
		right = naText()
	}
	lines = append(lines, renderCardLine(alignRight(label, right, lineWidth), lineWidth))

	graphWidth := lineWidth
	if graphWidth < cardMinBarWidth {
		graphWidth = cardMinBarWidth
	}

	history := m.history.UtilHistory(dev.Index, DefaultHistorySize)
	if len(history) > 0 {
		graph := RenderBrailleSparkline(history, graphWidth, graphHeight, warning, critical, ColorGraph)
		for _, gl := range strings.Split(graph, "\n") {
			lines = append(lines, renderCardLine(gl, lineWidth))
		}
	} else if dev.AICoreKnown {
		bar := RenderGradientBar(graphWidth, float64(dev.AICorePercent), warning, critical)
		lines = append(lines, renderCardLine(bar, lineWidth))
	}

	return lines
}

// renderCardMemSection renders memory usage with a history graph.
func (m Model) renderCardMemSection(dev telemetry.DeviceRecord, lineWidth, graphHeight int) []string {
	var lines []string
	warning, critical := m.memThresholds()

	label := LabelStyle.Render("MEM")
	var right string
	if dev.MemKnown {
		pctText := MetricStyleWithThresholds(dev.MemPercent, warning, critical).
			Render(fmt.Sprintf("%.1f%%", dev.MemPercent))
		detail := LabelStyle.Render(fmt.Sprintf("%s/%s", formatBytes(dev.MemUsedBytes), formatBytes(dev.MemTotalBytes)))
		right = detail + " " + pctText
	} else {
		right = naText()
	}
	lines = append(lines, renderCardLine(alignRight(label, right, lineWidth), lineWidth))

	graphWidth := lineWidth
	if graphWidth < cardMinBarWidth {
		graphWidth = cardMinBarWidth
	}

	history := m.history.MemHistory(dev.Index, DefaultHistorySize)
	if len(history) > 0 {
		graph := RenderBrailleSparkline(history, graphWidth, graphHeight, warning, critical, ColorGraph)
		for _, gl := range strings.Split(graph, "\n") {
			lines = append(lines, renderCardLine(gl, lineWidth))
		}
	} else if dev.MemKnown {
		bar := RenderGradientBar(graphWidth, dev.MemPercent, warning, critical)
		lines = append(lines, renderCardLine(bar, lineWidth))
	}

	return lines
}

// renderCardPowerLine renders draw against the (possibly estimated) limit.
func (m Model) renderCardPowerLine(dev telemetry.DeviceRecord, lineWidth int) string {
	label := LabelStyle.Render("PWR")

	if !dev.Power.Known {
		return alignRight(label, naText(), lineWidth)
	}

	drawText := fmt.Sprintf("%.1fW", dev.Power.Watts())
	var right string
	if dev.PowerLimit.Known {
		limitText := fmt.Sprintf("%.0fW", dev.PowerLimit.Watts())
		if dev.PowerLimit.Estimated {
			limitText = "~" + limitText
		}
		pct := dev.Power.Watts() / dev.PowerLimit.Watts() * 100
		styled := MetricStyle(pct).Render(drawText)
		right = styled + LabelStyle.Render(" / "+limitText)
	} else {
		right = ValueStyle.Render(drawText)
	}

	return alignRight(label, right, lineWidth)
}

// renderCardTempLine renders the chip temperature.
func (m Model) renderCardTempLine(dev telemetry.DeviceRecord, lineWidth int) string {
	label := LabelStyle.Render("TMP")

	if !dev.TempKnown {
		return alignRight(label, naText(), lineWidth)
	}

	tempColor := ColorHealthy
	if dev.TemperatureC >= 90 {
		tempColor = ColorCritical
	} else if dev.TemperatureC >= 75 {
		tempColor = ColorWarning
	}
	right := lipgloss.NewStyle().Foreground(tempColor).Render(fmt.Sprintf("%d°C", dev.TemperatureC))

	return alignRight(label, right, lineWidth)
}

// renderCardProcLine summarizes the device's compute processes.
func (m Model) renderCardProcLine(count, lineWidth int) string {
	label := LabelStyle.Render("PRC")
	word := "procs"
	if count == 1 {
		word = "proc"
	}
	right := ValueStyle.Render(fmt.Sprintf("%d %s", count, word))
	return alignRight(label, right, lineWidth)
}

// snapshotProcessCount counts non-stale processes attached to a device.
func (m Model) snapshotProcessCount(index int) int {
	if m.snapshot == nil {
		return 0
	}
	count := 0
	for _, p := range m.snapshot.Processes {
		if p.DeviceIndex == index && !p.Stale {
			count++
		}
	}
	return count
}

// renderCompactCard renders a card with single-row graphs for 80-120
// column terminals.
func (m Model) renderCompactCard(dev telemetry.DeviceRecord, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}

	innerWidth := width - 4
	var lines []string

	lines = append(lines, renderCardLine(m.renderDeviceTitle(dev), innerWidth))
	lines = append(lines, renderCardDivider(innerWidth))
	lines = append(lines, m.renderCardUtilSection(dev, innerWidth, 1)...)
	lines = append(lines, renderCardDivider(innerWidth))
	lines = append(lines, m.renderCardMemSection(dev, innerWidth, 1)...)
	lines = append(lines, renderCardLine(m.renderCardPowerLine(dev, innerWidth), innerWidth))

	return style.Render(strings.Join(lines, "\n"))
}

// renderMinimalCard renders a text-only card for terminals under 80
// columns.
func (m Model) renderMinimalCard(dev telemetry.DeviceRecord, width int, selected bool) string {
	style := CardStyle.Width(width)
	if selected {
		style = CardSelectedStyle.Width(width)
	}

	innerWidth := width - 4
	var lines []string

	lines = append(lines, renderCardLine(m.renderDeviceTitle(dev), innerWidth))
	lines = append(lines, renderCardDivider(innerWidth))
	lines = append(lines, renderCardLine(m.renderMinimalMetricsLine(dev, innerWidth), innerWidth))

	return style.Render(strings.Join(lines, "\n"))
}

// renderMinimalMetricsLine renders a single line with utilization and
// memory percentages.
func (m Model) renderMinimalMetricsLine(dev telemetry.DeviceRecord, width int) string {
	utilWarn, utilCrit := m.utilThresholds()
	memWarn, memCrit := m.memThresholds()

	utilText := naText()
	if dev.AICoreKnown {
		utilText = MetricStyleWithThresholds(float64(dev.AICorePercent), utilWarn, utilCrit).
			Render(fmt.Sprintf("%d%%", dev.AICorePercent))
	}
	memText := naText()
	if dev.MemKnown {
		memText = MetricStyleWithThresholds(dev.MemPercent, memWarn, memCrit).
			Render(fmt.Sprintf("%.0f%%", dev.MemPercent))
	}

	if width >= 30 {
		return fmt.Sprintf("%s %s  %s %s",
			LabelStyle.Render("NPU:"), utilText,
			LabelStyle.Render("MEM:"), memText)
	}
	return fmt.Sprintf("N:%s M:%s", utilText, memText)
}

// alignRight places label on the left and content on the right edge.
func alignRight(label, right string, width int) string {
	padding := ""
	used := lipgloss.Width(label) + lipgloss.Width(right)
	if width > used {
		padding = strings.Repeat(" ", width-used)
	}
	return label + padding + right
}
