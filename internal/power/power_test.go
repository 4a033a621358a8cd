package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateLimit(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		wantMW int64
		wantOK bool
	}{
		{name: "training part", model: "910B2C", wantMW: 24 * 16 * 1000, wantOK: true},
		{name: "Ascend prefix stripped", model: "Ascend910", wantMW: 32 * 10 * 1000, wantOK: true},
		{name: "lowercase prefix", model: "ascend310P3", wantMW: 8 * 10 * 1000, wantOK: true},
		{name: "edge part", model: "310B4", wantMW: 2 * 8 * 1000, wantOK: true},
		{name: "surrounding whitespace", model: "  910B3  ", wantMW: 20 * 16 * 1000, wantOK: true},
		{name: "unrecognized model", model: "920Z", wantOK: false},
		{name: "empty model", model: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw, ok := EstimateLimit(tt.model)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantMW, mw)
			} else {
				assert.Zero(t, mw)
			}
		})
	}
}

func TestEstimateLimit_Deterministic(t *testing.T) {
	first, ok := EstimateLimit("910B2C")
	require.True(t, ok)

	for i := 0; i < 100; i++ {
		mw, ok := EstimateLimit("910B2C")
		require.True(t, ok)
		assert.Equal(t, first, mw)
	}
}

func TestLookupModel(t *testing.T) {
	spec, ok := LookupModel("Ascend910B1")
	require.True(t, ok)
	assert.Equal(t, 25, spec.AICores)
	assert.Equal(t, FreqPerformance, spec.Class)

	_, ok = LookupModel("H100")
	assert.False(t, ok)
}

func TestFrequencyClassString(t *testing.T) {
	assert.Equal(t, "eco", FreqEco.String())
	assert.Equal(t, "standard", FreqStandard.String())
	assert.Equal(t, "performance", FreqPerformance.String())
	assert.Equal(t, "unknown", FrequencyClass(99).String())
}
