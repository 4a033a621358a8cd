package monitor

// SortOrder defines how device cards are ordered in the dashboard.
type SortOrder int

const (
	SortByIndex SortOrder = iota
	SortByUtil
	SortByMemory
	SortByPower
	SortByTemp
)

// String returns a human-readable label for the sort order.
func (s SortOrder) String() string {
	switch s {
	case SortByIndex:
		return "index"
	case SortByUtil:
		return "util"
	case SortByMemory:
		return "mem"
	case SortByPower:
		return "power"
	case SortByTemp:
		return "temp"
	default:
		return "index"
	}
}

// Next cycles to the next sort order.
func (s SortOrder) Next() SortOrder {
	return SortOrder((int(s) + 1) % 5)
}

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// FocusPanel identifies which panel receives navigation keys.
type FocusPanel int

const (
	FocusDevices FocusPanel = iota
	FocusProcesses
)

// LayoutMode selects the card density based on terminal width.
type LayoutMode int

const (
	LayoutMinimal LayoutMode = iota
	LayoutCompact
	LayoutStandard
	LayoutWide
)

// Width breakpoints for layout selection.
const (
	BreakpointCompact  = 80
	BreakpointStandard = 120
	BreakpointWide     = 160
)

// layoutForWidth maps a terminal width to a layout mode.
func layoutForWidth(width int) LayoutMode {
	switch {
	case width >= BreakpointWide:
		return LayoutWide
	case width >= BreakpointStandard:
		return LayoutStandard
	case width >= BreakpointCompact:
		return LayoutCompact
	default:
		return LayoutMinimal
	}
}
