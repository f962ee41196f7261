package swap

import (
	"fmt"

	"github.com/rzzdr/swap-aad-risk/pkg/models"
	apperrors "github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
)

// Validate checks the structure of a swap before any numeric work. Payment
// times are the reference length of each leg.
func Validate(spec *models.SwapSpec) error {
	if spec == nil {
		return apperrors.InvalidArgument("swap spec is required")
	}
	if len(spec.FixedAccruals) != len(spec.FixedTimes) {
		return mismatch(LegFixed, SeqFixedAccruals, len(spec.FixedTimes), len(spec.FixedAccruals))
	}
	if len(spec.FloatAccruals) != len(spec.FloatTimes) {
		return mismatch(LegFloat, SeqFloatAccruals, len(spec.FloatTimes), len(spec.FloatAccruals))
	}
	if len(spec.FloatForwardRates) != len(spec.FloatTimes) {
		return mismatch(LegFloat, SeqFloatForwardRates, len(spec.FloatTimes), len(spec.FloatForwardRates))
	}
	if !spec.PayReceive.Valid() {
		return apperrors.InvalidArgument(fmt.Sprintf("pay_receive must be 1 or -1, got %d", int(spec.PayReceive)))
	}
	return nil
}

func validateRiskInput(spec *models.SwapSpec, forwardRateDots []float64) error {
	if len(forwardRateDots) != len(spec.FloatForwardRates) {
		return mismatch(LegRiskInput, SeqForwardRateDots, len(spec.FloatForwardRates), len(forwardRateDots))
	}
	return nil
}
