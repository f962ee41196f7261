package swap

import (
	"github.com/rzzdr/swap-aad-risk/pkg/models"
)

// Price values the swap and returns the closed-form PV01 from the fixed leg annuity
func (e *Engine) Price(spec *models.SwapSpec) (*models.PriceResult, error) {
	if err := Validate(spec); err != nil {
		return nil, err
	}

	m := e.newCurve(spec.ZeroRate)
	sign := e.sign(spec.PayReceive)

	fixed := FixedLeg(spec)
	fixedPV := fixed.PV(m)
	floatPV := FloatLeg(spec).PV(m)
	annuity := fixed.Annuity(m)

	result := &models.PriceResult{
		SwapPV:       sign * (fixedPV - floatPV),
		PV01:         -sign * annuity * e.cfg.ForwardShift,
		FixedLegPV:   fixedPV,
		FloatLegPV:   floatPV,
		FixedAnnuity: annuity,
	}

	e.log.Debugf("Priced swap %s: pv=%.2f pv01=%.2f", spec.ID, result.SwapPV, result.PV01)
	return result, nil
}
