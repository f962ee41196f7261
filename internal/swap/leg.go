package swap

import (
	"github.com/rzzdr/swap-aad-risk/internal/curve"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

// Leg is one side of a swap flattened to per-period rates
type Leg struct {
	Notional float64
	Rates    []float64
	Accruals []float64
	Times    []float64
}

// PV returns sum(notional * rate_i * accrual_i * df_i)
func (l Leg) PV(m curve.DiscountModel) float64 {
	var pv float64
	for i := range l.Times {
		pv += l.Notional * l.Rates[i] * l.Accruals[i] * m.DF(l.Times[i])
	}
	return pv
}

// Annuity returns sum(notional * accrual_i * df_i)
func (l Leg) Annuity(m curve.DiscountModel) float64 {
	var a float64
	for i := range l.Times {
		a += l.Notional * l.Accruals[i] * m.DF(l.Times[i])
	}
	return a
}

// FixedLeg expands the fixed rate over every fixed period
func FixedLeg(spec *models.SwapSpec) Leg {
	rates := make([]float64, len(spec.FixedTimes))
	for i := range rates {
		rates[i] = spec.FixedRate
	}
	return Leg{Notional: spec.Notional, Rates: rates, Accruals: spec.FixedAccruals, Times: spec.FixedTimes}
}

// FloatLeg adds the spread to every forward rate
func FloatLeg(spec *models.SwapSpec) Leg {
	rates := make([]float64, len(spec.FloatTimes))
	for i := range rates {
		rates[i] = spec.FloatForwardRates[i] + spec.FloatSpread
	}
	return Leg{Notional: spec.Notional, Rates: rates, Accruals: spec.FloatAccruals, Times: spec.FloatTimes}
}
