package curve

import (
	"math"

	"gonum.org/v1/gonum/num/dual"
)

// DiscountModel maps a payment time in years to a discount factor
type DiscountModel interface {
	// DF returns the discount factor at t
	DF(t float64) float64
	// ShiftedDF returns the discount factor at t after a parallel zero-rate shift
	ShiftedDF(t, shift float64) float64
	// DFDerivative returns d DF(t) / dz
	DFDerivative(t float64) float64
	// DualDF evaluates the discount factor on a dual-valued zero rate
	DualDF(z dual.Number, t float64) dual.Number
}

// FlatCurve discounts every cash flow with the same continuously compounded zero rate
type FlatCurve struct {
	ZeroRate float64
}

func NewFlatCurve(zeroRate float64) *FlatCurve {
	return &FlatCurve{ZeroRate: zeroRate}
}

func (c *FlatCurve) DF(t float64) float64 {
	return math.Exp(-c.ZeroRate * t)
}

func (c *FlatCurve) ShiftedDF(t, shift float64) float64 {
	return math.Exp(-(c.ZeroRate + shift) * t)
}

func (c *FlatCurve) DFDerivative(t float64) float64 {
	return -t * c.DF(t)
}

func (c *FlatCurve) DualDF(z dual.Number, t float64) dual.Number {
	return dual.Exp(dual.Scale(-t, z))
}

// ShiftDelta returns ShiftedDF(t, shift) - DF(t), the finite discount factor move
// used to scale discount adjoints to a per-shift risk
func ShiftDelta(m DiscountModel, t, shift float64) float64 {
	return m.ShiftedDF(t, shift) - m.DF(t)
}
