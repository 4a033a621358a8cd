package monitor

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Dashboard color palette
const (
	ColorDarkBg    = lipgloss.Color("#0A0A0F")
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	// Semantic colors for metrics
	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	// Text colors
	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	// Accent colors
	ColorAccent    = lipgloss.Color("#FF2E97")
	ColorAccentDim = lipgloss.Color("#BF40FF")

	// Graph colors
	ColorGraph = lipgloss.Color("#00FFFF")
)

// Default metric severity thresholds, overridable via config.
const (
	WarningThreshold  = 70
	CriticalThreshold = 90
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	// Card styles
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1).
			MarginBottom(1)

	CardSelectedStyle = CardStyle.
				BorderForeground(ColorAccent)

	// Text styles
	DeviceNameStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted)

	// Device health indicator styles
	HealthOKStyle = lipgloss.NewStyle().
			Foreground(ColorHealthy)

	HealthWarnStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)

	HealthFaultStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)

	// Notice styles
	NoticeInfoStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	NoticeErrorStyle = lipgloss.NewStyle().
				Foreground(ColorCritical)
)

// Device health indicator characters
const (
	HealthOKGlyph      = "◉" // healthy, reporting normally
	HealthWarnGlyph    = "◔" // degraded fields this cycle
	HealthFaultGlyph   = "◌" // driver reports unhealthy
	HealthUnknownGlyph = "◐"
)

// RefreshSpinnerFrames are the animation frames shown while a collection
// cycle is in flight.
var RefreshSpinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// SpinnerColorFrames cycles the spinner through amber shades.
var SpinnerColorFrames = []lipgloss.Color{
	lipgloss.Color("#FFAA00"),
	lipgloss.Color("#FF8800"),
	lipgloss.Color("#FFCC00"),
	lipgloss.Color("#FFAA00"),
	lipgloss.Color("#FF9900"),
	lipgloss.Color("#FFBB00"),
	lipgloss.Color("#FFAA00"),
	lipgloss.Color("#FF7700"),
}

// GetRefreshSpinner returns the spinner character and style for the
// in-flight collection state.
func GetRefreshSpinner(frameIndex int) (string, lipgloss.Style) {
	char := RefreshSpinnerFrames[frameIndex%len(RefreshSpinnerFrames)]
	color := SpinnerColorFrames[frameIndex%len(SpinnerColorFrames)]
	return char, lipgloss.NewStyle().Foreground(color)
}

// MetricColor returns the appropriate color for a percentage-based metric
// using the default thresholds.
func MetricColor(percent float64) lipgloss.Color {
	return MetricColorWithThresholds(percent, WarningThreshold, CriticalThreshold)
}

// MetricColorWithThresholds returns the appropriate color for a
// percentage-based metric using the provided warning and critical values.
func MetricColorWithThresholds(percent float64, warning, critical int) lipgloss.Color {
	switch {
	case percent >= float64(critical):
		return ColorCritical
	case percent >= float64(warning):
		return ColorWarning
	default:
		return ColorHealthy
	}
}

// MetricStyle returns a style with the appropriate foreground color.
func MetricStyle(percent float64) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColor(percent))
}

// MetricStyleWithThresholds returns a style colored by custom thresholds.
func MetricStyleWithThresholds(percent float64, warning, critical int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, warning, critical))
}

// ProgressBar renders a bracketless progress bar with threshold coloring.
func ProgressBar(width int, percent float64) string {
	return ProgressBarWithThresholds(width, percent, WarningThreshold, CriticalThreshold)
}

// ProgressBarWithThresholds renders a progress bar using custom thresholds.
func ProgressBarWithThresholds(width int, percent float64, warning, critical int) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("▰")
		} else {
			bar.WriteString("▱")
		}
	}

	style := lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, warning, critical))
	return style.Render(bar.String())
}

// ThinProgressBar renders a minimal line-based bar using thin characters.
func ThinProgressBar(width int, percent float64, warning, critical int) string {
	if width < 1 {
		width = 1
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	filled := int(percent / 100.0 * float64(width))
	if filled > width {
		filled = width
	}

	var bar strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			bar.WriteString("━")
		} else {
			bar.WriteString("─")
		}
	}

	return lipgloss.NewStyle().Foreground(MetricColorWithThresholds(percent, warning, critical)).Render(bar.String())
}

// SectionHeader renders a section header with the title on the left and
// value on the right.
// Format: ╭─ Title ────────────────────────────────────── Value ╮
func SectionHeader(title, value string, width int) string {
	if width < 10 {
		width = 10
	}

	leftWidth := 3 + lipgloss.Width(title) + 1
	rightWidth := 1 + lipgloss.Width(value) + 2

	fillWidth := width - leftWidth - rightWidth
	if fillWidth < 1 {
		fillWidth = 1
	}

	middle := strings.Repeat("─", fillWidth)

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(ColorGraph).Bold(true)

	return borderStyle.Render("╭─ ") +
		titleStyle.Render(title) +
		borderStyle.Render(" "+middle+" ") +
		valueStyle.Render(value) +
		borderStyle.Render(" ╮")
}

// SectionFooter renders the bottom border of a section.
func SectionFooter(width int) string {
	if width < 2 {
		width = 2
	}
	middle := strings.Repeat("─", width-2)
	return lipgloss.NewStyle().Foreground(ColorBorder).Render("╰" + middle + "╯")
}

// SectionContentLine renders a content line with side borders padded to width.
func SectionContentLine(content string, width int) string {
	if width < 4 {
		width = 4
	}

	borderStyle := lipgloss.NewStyle().Foreground(ColorBorder)
	contentWidth := lipgloss.Width(content)

	innerWidth := width - 4
	padding := innerWidth - contentWidth
	if padding < 0 {
		padding = 0
	}

	return borderStyle.Render("│") + " " + content + strings.Repeat(" ", padding) + " " + borderStyle.Render("│")
}
