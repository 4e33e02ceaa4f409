package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedFractionSizer_Qty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		pct    float64
		equity float64
		entry  float64
		stop   float64
		want   float64
	}{
		{"half percent of 10k over 2", 0.5, 10000, 100, 98, 25},
		{"short side distance", 0.5, 10000, 100, 102, 25},
		{"stop at entry skips", 0.5, 10000, 100, 100, 0},
		{"zero equity skips", 0.5, 0, 100, 98, 0},
		{"negative equity skips", 0.5, -50, 100, 98, 0},
		{"rounds to two decimals", 1, 1000, 1.2345, 1.2000, 289.86},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewFixedFractionSizer(tt.pct)
			assert.InDelta(t, tt.want, s.Qty(tt.equity, tt.entry, tt.stop), 1e-9)
		})
	}
}

func TestRiskAmount(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 50.0, RiskAmount(10000, 0.5), 1e-12)
	assert.InDelta(t, 0.0, RiskAmount(10000, 0), 1e-12)
}

func TestCalcHelpers(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 50.0, PlannedRisk(-25, 100, 98), 1e-12)
	assert.InDelta(t, 2.0, RR(100, 98, 104), 1e-12)
	assert.Equal(t, 0.0, RR(100, 100, 104))
	assert.InDelta(t, 0.005, RiskPct(50, 10000), 1e-12)
}
