// Package power estimates device power limits for NPU models whose driver
// does not report one. Estimates are derived from static model metadata
// (AI core count and frequency class), so the same model string always
// produces the same result. Values produced here are estimates and must
// be labeled as such wherever they are displayed.
package power

import "strings"

// FrequencyClass groups models by the clock envelope their cores run in.
type FrequencyClass int

const (
	// FreqEco covers low-power edge parts.
	FreqEco FrequencyClass = iota
	// FreqStandard covers datacenter inference parts.
	FreqStandard
	// FreqPerformance covers training parts running boosted clocks.
	FreqPerformance
)

func (c FrequencyClass) String() string {
	switch c {
	case FreqEco:
		return "eco"
	case FreqStandard:
		return "standard"
	case FreqPerformance:
		return "performance"
	default:
		return "unknown"
	}
}

// ModelSpec is the static metadata an estimate is computed from.
type ModelSpec struct {
	AICores int
	Class   FrequencyClass
}

// wattsPerCore maps a frequency class to the per-core power budget.
var wattsPerCore = map[FrequencyClass]int64{
	FreqEco:         8,
	FreqStandard:    10,
	FreqPerformance: 16,
}

// modelTable lists the known Ascend models. Keys are normalized with
// normalizeModel before lookup.
var modelTable = map[string]ModelSpec{
	"910":    {AICores: 32, Class: FreqStandard},
	"910A":   {AICores: 32, Class: FreqStandard},
	"910B1":  {AICores: 25, Class: FreqPerformance},
	"910B2":  {AICores: 24, Class: FreqPerformance},
	"910B2C": {AICores: 24, Class: FreqPerformance},
	"910B3":  {AICores: 20, Class: FreqPerformance},
	"910B4":  {AICores: 20, Class: FreqStandard},
	"310":    {AICores: 2, Class: FreqEco},
	"310B1":  {AICores: 2, Class: FreqEco},
	"310B4":  {AICores: 2, Class: FreqEco},
	"310P1":  {AICores: 8, Class: FreqStandard},
	"310P3":  {AICores: 8, Class: FreqStandard},
}

// LookupModel returns the static metadata for a model string as reported
// by npu-smi (with or without the "Ascend" prefix). ok is false for
// models the table does not know.
func LookupModel(model string) (ModelSpec, bool) {
	spec, ok := modelTable[normalizeModel(model)]
	return spec, ok
}

// EstimateLimit computes an estimated power limit in milliwatts for the
// given model. Returns ok=false when the model is not recognized; callers
// must then render the limit as unknown rather than guessing.
func EstimateLimit(model string) (int64, bool) {
	spec, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	return int64(spec.AICores) * wattsPerCore[spec.Class] * 1000, true
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "Ascend")
	model = strings.TrimPrefix(model, "ascend")
	return strings.ToUpper(strings.TrimSpace(model))
}
