package telemetry

import (
	"sort"
	"sync"

	"github.com/npulab/nputop/internal/logger"
	"github.com/npulab/nputop/internal/smi"
)

// ProcessRegistry tracks the device process table across refresh cycles.
// A PID the device stops reporting is kept for exactly one more cycle,
// marked stale, then dropped. A device-reported PID that does not
// resolve on the host follows the same discipline: stale on the cycle
// the lookup first fails, suppressed afterwards while it stays
// unresolvable. Host-side details are refreshed every cycle so RSS
// stays current.
type ProcessRegistry struct {
	mu     sync.Mutex
	lookup HostLookup
	log    logger.Logger

	cycle   uint64
	entries map[procKey]*procEntry
}

// procKey is (pid, device): the same PID can legitimately appear on two
// devices when the hardware reports it on both.
type procKey struct {
	pid    int32
	device int
}

type procEntry struct {
	record   ProcessRecord
	lastSeen uint64

	// unresolvedSince is the first cycle the host lookup failed for this
	// PID; zero while it resolves normally.
	unresolvedSince uint64
}

// NewProcessRegistry creates a registry. lookup may be nil, in which case
// records carry only device-side data.
func NewProcessRegistry(lookup HostLookup, log logger.Logger) *ProcessRegistry {
	if log == nil {
		log = logger.Noop()
	}
	return &ProcessRegistry{
		lookup:  lookup,
		log:     log,
		entries: make(map[procKey]*procEntry),
	}
}

// Reconcile ingests one cycle of device reports and returns the full
// process list: live records first-class, plus records from the previous
// cycle marked stale. Ordering is by device index then PID.
func (r *ProcessRegistry) Reconcile(devices []smi.DeviceInfo) []ProcessRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cycle++

	for _, dev := range devices {
		for _, proc := range dev.Processes {
			key := procKey{pid: proc.PID, device: dev.Index}
			entry, ok := r.entries[key]
			if !ok {
				entry = &procEntry{}
				r.entries[key] = entry
			}
			entry.lastSeen = r.cycle
			entry.record = ProcessRecord{
				PID:               proc.PID,
				DeviceIndex:       dev.Index,
				Name:              proc.Name,
				DeviceMemoryBytes: proc.MemoryBytes,
			}
			if r.enrich(&entry.record) {
				entry.unresolvedSince = 0
			} else {
				// Likely exited between the device query and now:
				// surface as stale, same as a device disappearance.
				entry.record.Stale = true
				if entry.unresolvedSince == 0 {
					entry.unresolvedSince = r.cycle
				}
			}
		}
	}

	records := make([]ProcessRecord, 0, len(r.entries))
	for key, entry := range r.entries {
		switch {
		case entry.lastSeen == r.cycle:
			if entry.unresolvedSince != 0 && r.cycle > entry.unresolvedSince {
				// Still unresolvable past its stale cycle: suppressed
				// until the host lookup succeeds or the device drops it.
				continue
			}
			records = append(records, entry.record)
		case entry.lastSeen == r.cycle-1:
			if entry.unresolvedSince != 0 {
				// Already had its stale cycle while unresolvable.
				continue
			}
			// Gone from the device report: surface once as stale.
			stale := entry.record
			stale.Stale = true
			records = append(records, stale)
		default:
			r.log.Debug("dropping stale process %d on device %d", key.pid, key.device)
			delete(r.entries, key)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].DeviceIndex != records[j].DeviceIndex {
			return records[i].DeviceIndex < records[j].DeviceIndex
		}
		return records[i].PID < records[j].PID
	})
	return records
}

// enrich fills host-side fields, reporting whether the PID resolved.
// With no lookup configured every record counts as resolved and carries
// only device-side data.
func (r *ProcessRegistry) enrich(record *ProcessRecord) bool {
	if r.lookup == nil {
		return true
	}
	host, err := r.lookup.Lookup(record.PID)
	if err != nil {
		r.log.Debug("pid %d not resolvable on host: %v", record.PID, err)
		record.HostKnown = false
		return false
	}
	record.Cmdline = host.Cmdline
	record.Username = host.Username
	record.HostRSSBytes = host.RSSBytes
	record.HostKnown = true
	return true
}

// Reset clears all tracked processes, e.g. after a manual refresh of a
// failed interface.
func (r *ProcessRegistry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cycle = 0
	r.entries = make(map[procKey]*procEntry)
}
