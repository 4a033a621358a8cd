package monitor

import (
	"sync"

	"github.com/npulab/nputop/internal/telemetry"
)

// DefaultHistorySize is the default number of samples retained per metric.
const DefaultHistorySize = 60

// History tracks per-device metric history in fixed-size ring buffers for
// sparkline rendering. Safe for concurrent use.
type History struct {
	mu      sync.RWMutex
	size    int
	devices map[int]*deviceHistory
}

// deviceHistory holds the ring buffers for a single device index.
type deviceHistory struct {
	util  *ringBuffer
	mem   *ringBuffer
	power *ringBuffer
	temp  *ringBuffer
}

// ringBuffer is a fixed-size circular buffer for float64 values.
type ringBuffer struct {
	data  []float64
	head  int
	count int
	size  int
}

// NewHistory creates a history tracker with the specified buffer size.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size:    size,
		devices: make(map[int]*deviceHistory),
	}
}

// Push records one sample per device from the snapshot. Unknown fields
// are skipped so a degraded cycle leaves a gap instead of a zero spike.
func (h *History) Push(snap *telemetry.Snapshot) {
	if snap == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for i := range snap.Devices {
		dev := &snap.Devices[i]
		hist := h.getOrCreateDevice(dev.Index)

		if dev.AICoreKnown {
			hist.util.push(float64(dev.AICorePercent))
		}
		if dev.MemKnown {
			hist.mem.push(dev.MemPercent)
		}
		if dev.Power.Known {
			hist.power.push(dev.Power.Watts())
		}
		if dev.TempKnown {
			hist.temp.push(float64(dev.TemperatureC))
		}
	}
}

// UtilHistory returns the last count AI core utilization samples for a device.
func (h *History) UtilHistory(index, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[index]
	if !ok {
		return nil
	}
	return hist.util.getLast(count)
}

// MemHistory returns the last count memory percentage samples for a device.
func (h *History) MemHistory(index, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[index]
	if !ok {
		return nil
	}
	return hist.mem.getLast(count)
}

// PowerHistory returns the last count power draw samples in watts.
func (h *History) PowerHistory(index, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[index]
	if !ok {
		return nil
	}
	return hist.power.getLast(count)
}

// TempHistory returns the last count temperature samples in Celsius.
func (h *History) TempHistory(index, count int) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[index]
	if !ok {
		return nil
	}
	return hist.temp.getLast(count)
}

// Count returns the number of utilization samples stored for a device.
func (h *History) Count(index int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	hist, ok := h.devices[index]
	if !ok {
		return 0
	}
	return hist.util.count
}

// Clear removes all history for one device.
func (h *History) Clear(index int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.devices, index)
}

// ClearAll removes all history.
func (h *History) ClearAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = make(map[int]*deviceHistory)
}

// getOrCreateDevice returns the history for a device, creating it if
// needed. Must be called with h.mu held.
func (h *History) getOrCreateDevice(index int) *deviceHistory {
	hist, ok := h.devices[index]
	if !ok {
		hist = &deviceHistory{
			util:  newRingBuffer(h.size),
			mem:   newRingBuffer(h.size),
			power: newRingBuffer(h.size),
			temp:  newRingBuffer(h.size),
		}
		h.devices[index] = hist
	}
	return hist
}

// newRingBuffer creates a ring buffer with the specified capacity.
func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]float64, size),
		size: size,
	}
}

// push adds a value to the ring buffer.
func (r *ringBuffer) push(value float64) {
	r.data[r.head] = value
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// getLast returns the last count values in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []float64 {
	if count <= 0 || r.count == 0 {
		return nil
	}

	if count > r.count {
		count = r.count
	}

	result := make([]float64, count)

	// head points to the next write position, so the most recent value
	// is at head-1; take count values ending there.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}

	return result
}
