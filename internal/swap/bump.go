package swap

import (
	"gonum.org/v1/gonum/diff/fd"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

// BumpRisk estimates the same directional derivative as TangentRisk by
// re-pricing the swap with the inputs moved by ±step along the direction
// (central differences). With step=1 the bumps are exactly the given dots.
func (e *Engine) BumpRisk(spec *models.SwapSpec, forwardRateDots []float64, zeroRateDot, step float64) (float64, error) {
	if err := Validate(spec); err != nil {
		return 0, err
	}
	if err := validateRiskInput(spec, forwardRateDots); err != nil {
		return 0, err
	}
	if step <= 0 {
		step = 1
	}

	bumped := spec.Clone()
	reprice := func(h float64) float64 {
		bumped.ZeroRate = spec.ZeroRate + h*zeroRateDot
		for j := range bumped.FloatForwardRates {
			bumped.FloatForwardRates[j] = spec.FloatForwardRates[j] + h*forwardRateDots[j]
		}
		return e.pv(bumped)
	}

	d := fd.Derivative(reprice, 0, &fd.Settings{
		Formula: fd.Central,
		Step:    step,
	})

	e.log.Debugf("Bump risk for swap %s: %.4f (step=%g)", spec.ID, d, step)
	return d, nil
}

// pv prices an already validated swap
func (e *Engine) pv(spec *models.SwapSpec) float64 {
	m := e.newCurve(spec.ZeroRate)
	return e.sign(spec.PayReceive) * (FixedLeg(spec).PV(m) - FloatLeg(spec).PV(m))
}
