package models

import "fmt"

// PayReceive is the direction of the fixed leg of a swap
type PayReceive int

const (
	// ReceiveFixed receives the fixed leg and pays the floating leg
	ReceiveFixed PayReceive = 1
	// PayFixed pays the fixed leg and receives the floating leg
	PayFixed PayReceive = -1
)

// Sign returns the direction as a multiplier for leg PVs
func (p PayReceive) Sign() float64 {
	return float64(p)
}

// Valid reports whether p is one of ReceiveFixed or PayFixed
func (p PayReceive) Valid() bool {
	return p == ReceiveFixed || p == PayFixed
}

func (p PayReceive) String() string {
	switch p {
	case ReceiveFixed:
		return "receive_fixed"
	case PayFixed:
		return "pay_fixed"
	default:
		return fmt.Sprintf("pay_receive(%d)", int(p))
	}
}

// SwapSpec describes a fixed-for-floating interest rate swap and the flat
// zero rate it is discounted with. Leg schedules are parallel sequences:
// entry i of every slice of a leg belongs to the same coupon period.
type SwapSpec struct {
	ID         string     `json:"id,omitempty" yaml:"id" mapstructure:"id"`
	PayReceive PayReceive `json:"pay_receive" yaml:"pay_receive" mapstructure:"pay_receive"`
	Notional   float64    `json:"notional" yaml:"notional" mapstructure:"notional"`

	// Fixed leg
	FixedRate     float64   `json:"fixed_rate" yaml:"fixed_rate" mapstructure:"fixed_rate"`
	FixedAccruals []float64 `json:"fixed_accruals" yaml:"fixed_accruals" mapstructure:"fixed_accruals"`
	FixedTimes    []float64 `json:"fixed_times" yaml:"fixed_times" mapstructure:"fixed_times"`

	// Floating leg
	FloatSpread       float64   `json:"float_spread" yaml:"float_spread" mapstructure:"float_spread"`
	FloatAccruals     []float64 `json:"float_accruals" yaml:"float_accruals" mapstructure:"float_accruals"`
	FloatTimes        []float64 `json:"float_times" yaml:"float_times" mapstructure:"float_times"`
	FloatForwardRates []float64 `json:"float_forward_rates" yaml:"float_forward_rates" mapstructure:"float_forward_rates"`

	// Discounting: df(t) = exp(-ZeroRate*t)
	ZeroRate float64 `json:"zero_rate" yaml:"zero_rate" mapstructure:"zero_rate"`
}

// Clone returns a deep copy so callers can bump inputs without touching the original
func (s *SwapSpec) Clone() *SwapSpec {
	c := *s
	c.FixedAccruals = append([]float64(nil), s.FixedAccruals...)
	c.FixedTimes = append([]float64(nil), s.FixedTimes...)
	c.FloatAccruals = append([]float64(nil), s.FloatAccruals...)
	c.FloatTimes = append([]float64(nil), s.FloatTimes...)
	c.FloatForwardRates = append([]float64(nil), s.FloatForwardRates...)
	return &c
}
