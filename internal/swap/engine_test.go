package swap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	apperrors "github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// referenceSwap is a 5Y annual receive-fixed swap at 5% against flat 1% forwards, z=1.5%
func referenceSwap() *models.SwapSpec {
	return &models.SwapSpec{
		ID:                "irs-5y",
		PayReceive:        models.ReceiveFixed,
		Notional:          1_000_000,
		FixedRate:         0.05,
		FixedAccruals:     []float64{1, 1, 1, 1, 1},
		FixedTimes:        []float64{1, 2, 3, 4, 5},
		FloatSpread:       0,
		FloatAccruals:     []float64{1, 1, 1, 1, 1},
		FloatTimes:        []float64{1, 2, 3, 4, 5},
		FloatForwardRates: []float64{0.01, 0.01, 0.01, 0.01, 0.01},
		ZeroRate:          0.015,
	}
}

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), WithLogger(logger.NewNop()))
}

func TestPriceReferenceSwap(t *testing.T) {
	e := newTestEngine()

	res, err := e.Price(referenceSwap())
	require.NoError(t, err)

	assert.InDelta(t, 239_053.1487, res.FixedLegPV, 1e-3)
	assert.InDelta(t, 47_810.6297, res.FloatLegPV, 1e-3)
	assert.InDelta(t, 191_242.5190, res.SwapPV, 1e-3)
	assert.InDelta(t, 4_781_062.9749, res.FixedAnnuity, 1e-3)
	assert.InDelta(t, -478.1063, res.PV01, 1e-4)
}

func TestPricePayFixedFlipsSign(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()
	spec.PayReceive = models.PayFixed

	res, err := e.Price(spec)
	require.NoError(t, err)
	assert.InDelta(t, -191_242.5190, res.SwapPV, 1e-3)
	assert.InDelta(t, 478.1063, res.PV01, 1e-4)

	// The pay-fixed-positive convention reads +1 as paying fixed
	flipped := NewEngine(Config{SignConvention: PayFixedPositive}, WithLogger(logger.NewNop()))
	res, err = flipped.Price(referenceSwap())
	require.NoError(t, err)
	assert.InDelta(t, -191_242.5190, res.SwapPV, 1e-3)
}

func TestTangentScenarios(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()
	zero := make([]float64, 5)

	pv01, err := e.TangentRisk(spec, UniformForwardShift(spec, BasisPoint), 0)
	require.NoError(t, err)
	assert.InDelta(t, 191_242.5190, pv01.SwapPV, 1e-3)
	assert.InDelta(t, -478.1063, pv01.SwapPVDot, 1e-4)

	discount, err := e.TangentRisk(spec, zero, BasisPoint)
	require.NoError(t, err)
	assert.InDelta(t, -56.7991, discount.SwapPVDot, 1e-4)

	dv01, err := e.TangentRisk(spec, UniformForwardShift(spec, BasisPoint), BasisPoint)
	require.NoError(t, err)
	assert.InDelta(t, -534.9054, dv01.SwapPVDot, 1e-4)
}

func TestTangentSingleBucket(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()

	dots := make([]float64, 5)
	dots[4] = BasisPoint
	res, err := e.TangentRisk(spec, dots, 0)
	require.NoError(t, err)

	// Only the last float coupon moves: -N * tau * df(5) * 1bp
	m := e.newCurve(spec.ZeroRate)
	assert.InDelta(t, -1_000_000*m.DF(5)*BasisPoint, res.SwapPVDot, 1e-9)
}

func TestTangentIsLinearInDirection(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()

	d1 := []float64{0.0001, 0, 0.0002, 0, 0}
	d2 := []float64{0, 0.0003, 0, 0, -0.0001}
	z1, z2 := 0.0001, -0.0002
	a, b := 2.0, -0.5

	r1, err := e.TangentRisk(spec, d1, z1)
	require.NoError(t, err)
	r2, err := e.TangentRisk(spec, d2, z2)
	require.NoError(t, err)

	combined := make([]float64, 5)
	for i := range combined {
		combined[i] = a*d1[i] + b*d2[i]
	}
	rc, err := e.TangentRisk(spec, combined, a*z1+b*z2)
	require.NoError(t, err)

	assert.InDelta(t, a*r1.SwapPVDot+b*r2.SwapPVDot, rc.SwapPVDot, 1e-9)
}

func TestTangentZeroDirection(t *testing.T) {
	e := newTestEngine()
	res, err := e.TangentRisk(referenceSwap(), make([]float64, 5), 0)
	require.NoError(t, err)
	assert.Zero(t, res.SwapPVDot)
}

func TestAdjointReferenceSwap(t *testing.T) {
	e := newTestEngine()

	res, err := e.AdjointRisk(referenceSwap(), 1)
	require.NoError(t, err)

	assert.InDelta(t, 191_242.5190, res.SwapPV, 1e-3)
	assert.InDelta(t, -478.1063, res.PV01Risk, 1e-4)
	assert.InDelta(t, -56.7887, res.DiscountRisk, 1e-4)
	assert.InDelta(t, -534.8950, res.DV01, 1e-4)
	assert.InDelta(t, 298.9057, res.ZeroRateBar, 1e-3)
	assert.InDelta(t, -567_990.8407, res.ZeroRateSensitivity, 1e-3)
}

func TestAdjointMatchesTangent(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()
	spec.FloatSpread = 0.0025
	spec.FloatForwardRates = []float64{0.011, 0.013, 0.016, 0.018, 0.02}

	adj, err := e.AdjointRisk(spec, 1)
	require.NoError(t, err)

	pv01, err := e.TangentRisk(spec, UniformForwardShift(spec, BasisPoint), 0)
	require.NoError(t, err)
	dv01, err := e.TangentRisk(spec, UniformForwardShift(spec, BasisPoint), BasisPoint)
	require.NoError(t, err)

	assert.InDelta(t, pv01.SwapPV, adj.SwapPV, 1e-9)
	assert.InEpsilon(t, pv01.SwapPVDot, adj.PV01Risk, 1e-9)
	// The discount part uses the finite df move, so totals agree to first order
	assert.InEpsilon(t, dv01.SwapPVDot, adj.DV01, 1e-4)

	// The pure tape sensitivity is the exact derivative
	zeroOnly, err := e.TangentRisk(spec, make([]float64, 5), 1)
	require.NoError(t, err)
	assert.InEpsilon(t, zeroOnly.SwapPVDot, adj.ZeroRateSensitivity, 1e-12)
}

func TestAdjointSeedScales(t *testing.T) {
	e := newTestEngine()
	one, err := e.AdjointRisk(referenceSwap(), 1)
	require.NoError(t, err)
	two, err := e.AdjointRisk(referenceSwap(), 2)
	require.NoError(t, err)

	assert.InDelta(t, 2*one.DV01, two.DV01, 1e-9)
	assert.Equal(t, one.SwapPV, two.SwapPV)
}

func TestAdjointUsesConfiguredShifts(t *testing.T) {
	e := NewEngine(Config{ForwardShift: 0.0010, ZeroShift: 0.0001}, WithLogger(logger.NewNop()))

	res, err := e.AdjointRisk(referenceSwap(), 1)
	require.NoError(t, err)
	assert.InDelta(t, -4781.0630, res.PV01Risk, 1e-3)
	assert.InDelta(t, -56.7887, res.DiscountRisk, 1e-4)
}

func TestBumpRiskAgreesWithTangent(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()

	fd, err := e.BumpRisk(spec, make([]float64, 5), BasisPoint, 1)
	require.NoError(t, err)
	tan, err := e.TangentRisk(spec, make([]float64, 5), BasisPoint)
	require.NoError(t, err)
	assert.InEpsilon(t, tan.SwapPVDot, fd, 1e-6)

	fd, err = e.BumpRisk(spec, UniformForwardShift(spec, BasisPoint), BasisPoint, 0)
	require.NoError(t, err)
	assert.InDelta(t, -534.9054, fd, 1e-3)

	// The caller's spec is left untouched
	assert.Equal(t, 0.015, spec.ZeroRate)
	assert.Equal(t, 0.01, spec.FloatForwardRates[0])
}

func TestScheduleMismatchFailsEveryMode(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()
	spec.FixedTimes = []float64{1, 2, 3, 4}

	check := func(t *testing.T, err error) {
		t.Helper()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrSchedule)
		assert.Equal(t, apperrors.ErrorTypeSchedule, apperrors.TypeOf(err))

		var se *ScheduleError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, LegFixed, se.Leg)
		assert.Equal(t, SeqFixedAccruals, se.Sequence)
		assert.Equal(t, 4, se.Expected)
		assert.Equal(t, 5, se.Got)
		assert.Equal(t, "fixed schedule error: wrong size of fixed accruals: expected 4, got 5", se.Error())
	}

	price, err := e.Price(spec)
	check(t, err)
	assert.Nil(t, price)

	tan, err := e.TangentRisk(spec, UniformForwardShift(spec, BasisPoint), 0)
	check(t, err)
	assert.Nil(t, tan)

	adj, err := e.AdjointRisk(spec, 1)
	check(t, err)
	assert.Nil(t, adj)

	_, err = e.BumpRisk(spec, UniformForwardShift(spec, BasisPoint), 0, 1)
	check(t, err)
}

func TestFloatScheduleMismatch(t *testing.T) {
	e := newTestEngine()

	spec := referenceSwap()
	spec.FloatAccruals = spec.FloatAccruals[:3]
	_, err := e.Price(spec)
	var se *ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, LegFloat, se.Leg)
	assert.Equal(t, SeqFloatAccruals, se.Sequence)

	spec = referenceSwap()
	spec.FloatForwardRates = append(spec.FloatForwardRates, 0.02)
	_, err = e.AdjointRisk(spec, 1)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, SeqFloatForwardRates, se.Sequence)
}

func TestRiskInputMismatch(t *testing.T) {
	e := newTestEngine()

	_, err := e.TangentRisk(referenceSwap(), []float64{BasisPoint}, 0)
	var se *ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, LegRiskInput, se.Leg)
	assert.Equal(t, "risk input error: wrong size of float forward rate dots: expected 5, got 1", err.Error())
}

func TestInvalidPayReceive(t *testing.T) {
	e := newTestEngine()
	spec := referenceSwap()
	spec.PayReceive = 0

	_, err := e.Price(spec)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInvalidArgument, apperrors.TypeOf(err))
	assert.NotErrorIs(t, err, ErrSchedule)

	_, err = e.Price(nil)
	assert.Equal(t, apperrors.ErrorTypeInvalidArgument, apperrors.TypeOf(err))
}

func TestParseSignConvention(t *testing.T) {
	c, err := ParseSignConvention("")
	require.NoError(t, err)
	assert.Equal(t, ReceiveFixedPositive, c)

	c, err = ParseSignConvention("pay_fixed_positive")
	require.NoError(t, err)
	assert.Equal(t, PayFixedPositive, c)

	_, err = ParseSignConvention("sideways")
	assert.Error(t, err)
}
