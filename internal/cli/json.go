package cli

import (
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/npulab/nputop/internal/errors"
	"github.com/npulab/nputop/internal/telemetry"
)

// JSONEnvelope wraps command output in a consistent structure for machine
// parsing. All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeDeviceUnavailable = "DEVICE_UNAVAILABLE"
	ErrCodeSMITimeout        = "SMI_TIMEOUT"
	ErrCodeSMIParseFailed    = "SMI_PARSE_FAILED"
	ErrCodePermissionDenied  = "PERMISSION_DENIED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// SnapshotPayload is the --json shape of one telemetry snapshot.
// Unknown fields marshal as null so consumers can tell "zero" from
// "not reported".
type SnapshotPayload struct {
	Taken     time.Time        `json:"taken"`
	Partial   bool             `json:"partial"`
	Devices   []DevicePayload  `json:"devices"`
	Processes []ProcessPayload `json:"processes"`
}

// DevicePayload is the --json shape of one device record.
type DevicePayload struct {
	Index               int      `json:"index"`
	NPUID               int      `json:"npu_id"`
	ChipID              int      `json:"chip_id"`
	Model               string   `json:"model"`
	Health              string   `json:"health,omitempty"`
	BusID               string   `json:"bus_id,omitempty"`
	UtilPercent         *int     `json:"util_percent"`
	MemUsedBytes        *int64   `json:"mem_used_bytes"`
	MemTotalBytes       *int64   `json:"mem_total_bytes"`
	MemPercent          *float64 `json:"mem_percent"`
	PowerW              *float64 `json:"power_w"`
	PowerLimitW         *float64 `json:"power_limit_w"`
	PowerLimitEstimated bool     `json:"power_limit_estimated,omitempty"`
	TempC               *int     `json:"temp_c"`
	Degraded            []string `json:"degraded,omitempty"`
}

// ProcessPayload is the --json shape of one process record.
type ProcessPayload struct {
	PID            int32  `json:"pid"`
	DeviceIndex    int    `json:"device_index"`
	Name           string `json:"name,omitempty"`
	DeviceMemBytes int64  `json:"device_mem_bytes"`
	Username       string `json:"username,omitempty"`
	Cmdline        string `json:"cmdline,omitempty"`
	HostRSSBytes   *int64 `json:"host_rss_bytes"`
	Stale          bool   `json:"stale,omitempty"`
}

// snapshotPayload converts a telemetry snapshot to its JSON shape.
func snapshotPayload(snap *telemetry.Snapshot) SnapshotPayload {
	payload := SnapshotPayload{
		Taken:     snap.Taken,
		Partial:   snap.Partial,
		Devices:   make([]DevicePayload, 0, len(snap.Devices)),
		Processes: make([]ProcessPayload, 0, len(snap.Processes)),
	}

	for i := range snap.Devices {
		dev := &snap.Devices[i]
		d := DevicePayload{
			Index:    dev.Index,
			NPUID:    dev.NPUID,
			ChipID:   dev.ChipID,
			Model:    dev.Model,
			Health:   dev.Health,
			BusID:    dev.BusID,
			Degraded: dev.Degraded,
		}
		if dev.AICoreKnown {
			d.UtilPercent = intPtr(dev.AICorePercent)
		}
		if dev.MemKnown {
			d.MemUsedBytes = int64Ptr(dev.MemUsedBytes)
			d.MemTotalBytes = int64Ptr(dev.MemTotalBytes)
			d.MemPercent = float64Ptr(dev.MemPercent)
		}
		if dev.Power.Known {
			d.PowerW = float64Ptr(dev.Power.Watts())
		}
		if dev.PowerLimit.Known {
			d.PowerLimitW = float64Ptr(dev.PowerLimit.Watts())
			d.PowerLimitEstimated = dev.PowerLimit.Estimated
		}
		if dev.TempKnown {
			d.TempC = intPtr(dev.TemperatureC)
		}
		payload.Devices = append(payload.Devices, d)
	}

	for _, proc := range snap.Processes {
		p := ProcessPayload{
			PID:            proc.PID,
			DeviceIndex:    proc.DeviceIndex,
			Name:           proc.Name,
			DeviceMemBytes: proc.DeviceMemoryBytes,
			Stale:          proc.Stale,
		}
		if proc.HostKnown {
			p.Username = proc.Username
			p.Cmdline = proc.Cmdline
			p.HostRSSBytes = int64Ptr(proc.HostRSSBytes)
		}
		payload.Processes = append(payload.Processes, p)
	}

	return payload
}

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: true, Data: data})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{Success: false, Error: ErrorToJSON(err)})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code
// mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	if coded, ok := err.(*errors.Error); ok {
		return &JSONError{
			Code:       mapErrorCode(coded.Code, coded.Message),
			Message:    coded.Message,
			Suggestion: coded.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(internalCode, message string) string {
	switch internalCode {
	case errors.ErrConfig:
		// Distinguish between not found and invalid
		if strings.Contains(strings.ToLower(message), "not found") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrUnavailable:
		return ErrCodeDeviceUnavailable
	case errors.ErrTimeout:
		return ErrCodeSMITimeout
	case errors.ErrParse:
		return ErrCodeSMIParseFailed
	case errors.ErrPermission:
		return ErrCodePermissionDenied
	case errors.ErrExec:
		return ErrCodeCommandFailed
	}
	return ErrCodeUnknown
}

func intPtr(v int) *int             { return &v }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
