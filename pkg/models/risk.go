package models

import "time"

// PriceResult is the outcome of a plain valuation
type PriceResult struct {
	SwapPV       float64 `json:"swap_pv"`
	PV01         float64 `json:"pv01"`
	FixedLegPV   float64 `json:"fixed_leg_pv"`
	FloatLegPV   float64 `json:"float_leg_pv"`
	FixedAnnuity float64 `json:"fixed_annuity"`
}

// TangentResult is one directional derivative of the swap PV
type TangentResult struct {
	SwapPV    float64 `json:"swap_pv"`
	SwapPVDot float64 `json:"swap_pv_dot"`
}

// AdjointResult holds every risk constituent produced by one backward sweep.
// PV01Risk, DiscountRisk and DV01 are already scaled to a one basis point shift.
type AdjointResult struct {
	SwapPV       float64 `json:"swap_pv"`
	PV01Risk     float64 `json:"pv01_risk"`
	DiscountRisk float64 `json:"discount_risk"`
	DV01         float64 `json:"dv01"`

	// ZeroRateBar is the running zero-rate accumulator of the backward pass
	ZeroRateBar float64 `json:"zero_rate_bar"`
	// ZeroRateSensitivity is the unscaled partial derivative dPV/dz
	ZeroRateSensitivity float64 `json:"zero_rate_sensitivity"`
}

// ForwardBucket is the PV change for a shift of a single forward rate
type ForwardBucket struct {
	Period int     `json:"period"`
	Time   float64 `json:"time"`
	PV01   float64 `json:"pv01"`
}

// RiskReport bundles pricing, tangent scenarios and adjoint constituents for one swap
type RiskReport struct {
	SwapID    string    `json:"swap_id"`
	Timestamp time.Time `json:"timestamp"`

	Price *PriceResult `json:"price"`

	TangentPV01         float64 `json:"tangent_pv01"`
	TangentDiscountRisk float64 `json:"tangent_discount_risk"`
	TangentDV01         float64 `json:"tangent_dv01"`

	Adjoint *AdjointResult  `json:"adjoint"`
	Ladder  []ForwardBucket `json:"ladder"`

	// Set only when finite-difference validation is enabled
	FiniteDifferenceDV01 *float64 `json:"finite_difference_dv01,omitempty"`
}

// RiskResult is the message published for every consumed swap request.
// Exactly one of Report and Error is set.
type RiskResult struct {
	SwapID    string      `json:"swap_id"`
	Report    *RiskReport `json:"report,omitempty"`
	Error     string      `json:"error,omitempty"`
	ErrorType string      `json:"error_type,omitempty"`
}
