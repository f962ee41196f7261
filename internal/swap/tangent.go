package swap

import (
	"gonum.org/v1/gonum/num/dual"

	"github.com/rzzdr/swap-aad-risk/internal/ad"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

// TangentRisk re-runs the valuation in dual arithmetic and returns the swap PV
// together with its derivative along the given input shifts. Each forward rate
// dot is the shift of the matching float period; zeroRateDot shifts the zero rate.
func (e *Engine) TangentRisk(spec *models.SwapSpec, forwardRateDots []float64, zeroRateDot float64) (*models.TangentResult, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}
	if err := validateRiskInput(spec, forwardRateDots); err != nil {
		return nil, err
	}

	m := e.newCurve(spec.ZeroRate)
	z := ad.Seed(spec.ZeroRate, zeroRateDot)
	n := spec.Notional

	var fixedPV dual.Number
	for i, t := range spec.FixedTimes {
		df := m.DualDF(z, t)
		fixedPV = dual.Add(fixedPV, dual.Scale(n*spec.FixedRate*spec.FixedAccruals[i], df))
	}

	var floatPV dual.Number
	for j, t := range spec.FloatTimes {
		df := m.DualDF(z, t)
		rate := ad.Seed(spec.FloatForwardRates[j]+spec.FloatSpread, forwardRateDots[j])
		floatPV = dual.Add(floatPV, dual.Scale(n*spec.FloatAccruals[j], dual.Mul(rate, df)))
	}

	swapPV := dual.Scale(e.sign(spec.PayReceive), dual.Sub(fixedPV, floatPV))

	e.log.Debugf("Tangent risk for swap %s: pv=%.2f dot=%.4f", spec.ID, swapPV.Real, ad.Tangent(swapPV))
	return &models.TangentResult{
		SwapPV:    swapPV.Real,
		SwapPVDot: ad.Tangent(swapPV),
	}, nil
}

// UniformForwardShift returns a forward rate dot vector shifting every float period by shift
func UniformForwardShift(spec *models.SwapSpec, shift float64) []float64 {
	dots := make([]float64, len(spec.FloatForwardRates))
	for i := range dots {
		dots[i] = shift
	}
	return dots
}
