package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

func TestRounding(t *testing.T) {
	assert.Equal(t, "191242.52", Money(191242.5189958989))
	assert.Equal(t, "-478.11", Money(-478.10629748974725))
	assert.Equal(t, "-534.90", Money(-534.8950364294354))
	assert.Equal(t, "0.00", Money(0))
	assert.Equal(t, "8.0000", Unit(8))
	assert.Equal(t, "0.3333", Unit(1.0/3))
}

func TestWriterReport(t *testing.T) {
	fd := -534.9053
	r := &models.RiskReport{
		SwapID: "irs-5y",
		Price: &models.PriceResult{
			SwapPV:     191242.5189958989,
			PV01:       -478.10629748974725,
			FixedLegPV: 239053.14874487362,
			FloatLegPV: 47810.62974897472,
		},
		TangentPV01:         -478.10629748974725,
		TangentDiscountRisk: -56.79908407271656,
		TangentDV01:         -534.9053815624638,
		Adjoint: &models.AdjointResult{
			SwapPV:       191242.5189958989,
			PV01Risk:     -478.10629748974725,
			DiscountRisk: -56.788738939688166,
			DV01:         -534.8950364294354,
		},
		Ladder:               []models.ForwardBucket{{Period: 1, Time: 1, PV01: -98.5112}},
		FiniteDifferenceDV01: &fd,
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Report(r)
	require.NoError(t, w.Flush())

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Swap irs-5y"))
	assert.Contains(t, out, "191242.52")
	assert.Contains(t, out, "-56.79")
	assert.Contains(t, out, "-534.91")
	assert.Contains(t, out, "-534.90")
	assert.Contains(t, out, "Forward 1 (t=1)")
	assert.Contains(t, out, "Bumped DV01")
}

func TestWriterValues(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Values("df/dx", 8, 3)
	require.NoError(t, w.Flush())

	assert.Contains(t, buf.String(), "df/dx[1]")
	assert.Contains(t, buf.String(), "8.0000")
	assert.Contains(t, buf.String(), "3.0000")
}
