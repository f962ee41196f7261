// Package swap values fixed-for-floating interest rate swaps and computes
// their rate risk with tangent (forward) and adjoint (reverse) mode
// algorithmic differentiation.
package swap

import (
	"fmt"

	"github.com/rzzdr/swap-aad-risk/internal/curve"
	"github.com/rzzdr/swap-aad-risk/pkg/models"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// BasisPoint is the default size of both risk shifts
const BasisPoint = 0.0001

// SignConvention decides which side of the swap has a positive PV
type SignConvention string

const (
	// ReceiveFixedPositive treats PayReceive=1 as receiving the fixed leg
	ReceiveFixedPositive SignConvention = "receive_fixed_positive"
	// PayFixedPositive flips the caller's sign so PayReceive=1 pays fixed
	PayFixedPositive SignConvention = "pay_fixed_positive"
)

// ParseSignConvention maps a configuration string to a SignConvention
func ParseSignConvention(s string) (SignConvention, error) {
	switch SignConvention(s) {
	case "", ReceiveFixedPositive:
		return ReceiveFixedPositive, nil
	case PayFixedPositive:
		return PayFixedPositive, nil
	default:
		return "", fmt.Errorf("unknown pay/receive convention %q", s)
	}
}

// Config holds the shift sizes used to scale adjoint risk
type Config struct {
	ForwardShift   float64
	ZeroShift      float64
	SignConvention SignConvention
}

func DefaultConfig() Config {
	return Config{
		ForwardShift:   BasisPoint,
		ZeroShift:      BasisPoint,
		SignConvention: ReceiveFixedPositive,
	}
}

// CurveFactory builds the discount model for a swap's zero rate
type CurveFactory func(zeroRate float64) curve.DiscountModel

// Option customises an Engine
type Option func(*Engine)

// WithCurveFactory replaces the flat-curve discount model
func WithCurveFactory(f CurveFactory) Option {
	return func(e *Engine) {
		e.newCurve = f
	}
}

// WithLogger sets the engine logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

// Engine prices swaps and computes their risk. Every call owns its own
// intermediates, so an Engine is safe for concurrent use.
type Engine struct {
	cfg      Config
	newCurve CurveFactory
	log      *logger.Logger
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	defaults := DefaultConfig()
	if cfg.ForwardShift == 0 {
		cfg.ForwardShift = defaults.ForwardShift
	}
	if cfg.ZeroShift == 0 {
		cfg.ZeroShift = defaults.ZeroShift
	}
	if cfg.SignConvention == "" {
		cfg.SignConvention = defaults.SignConvention
	}

	e := &Engine{
		cfg: cfg,
		newCurve: func(zeroRate float64) curve.DiscountModel {
			return curve.NewFlatCurve(zeroRate)
		},
		log: logger.GetLogger("swap.engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config {
	return e.cfg
}

// sign returns the PV multiplier for the swap direction under the configured convention
func (e *Engine) sign(p models.PayReceive) float64 {
	s := p.Sign()
	if e.cfg.SignConvention == PayFixedPositive {
		s = -s
	}
	return s
}
