package swap

import (
	"errors"
	"fmt"

	apperrors "github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
)

// Leg labels used in schedule errors
const (
	LegFixed     = "fixed"
	LegFloat     = "float"
	LegRiskInput = "risk input"
)

// Sequence labels used in schedule errors
const (
	SeqFixedAccruals     = "fixed accruals"
	SeqFloatAccruals     = "float accruals"
	SeqFloatForwardRates = "float forward rates"
	SeqForwardRateDots   = "float forward rate dots"
)

// ErrSchedule matches every ScheduleError through errors.Is
var ErrSchedule = errors.New("schedule error")

// ScheduleError reports parallel sequences of a leg (or a risk vector and its
// leg) whose lengths disagree. Nothing is valued when it is returned.
type ScheduleError struct {
	Leg      string
	Sequence string
	Expected int
	Got      int
}

func (e *ScheduleError) Error() string {
	if e.Leg == LegRiskInput {
		return fmt.Sprintf("risk input error: wrong size of %s: expected %d, got %d", e.Sequence, e.Expected, e.Got)
	}
	return fmt.Sprintf("%s schedule error: wrong size of %s: expected %d, got %d", e.Leg, e.Sequence, e.Expected, e.Got)
}

// Type makes ScheduleError visible to apperrors.TypeOf
func (e *ScheduleError) Type() apperrors.ErrorType {
	return apperrors.ErrorTypeSchedule
}

func (e *ScheduleError) Is(target error) bool {
	return target == ErrSchedule
}

func mismatch(leg, sequence string, expected, got int) error {
	return &ScheduleError{Leg: leg, Sequence: sequence, Expected: expected, Got: got}
}
