package usecase

import (
	"context"

	"cardkey-service/internal/domain/model"
)

// OutcomeKind is the closed set of verification results.
type OutcomeKind int

const (
	OutcomeSystemError OutcomeKind = iota
	OutcomeActivated
	OutcomeReverified
	OutcomeRebound
	OutcomeInvalidOrBound
	OutcomeDisabledByAdmin
	OutcomeReverifyNotAllowed
	OutcomeCountExhausted
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeActivated:
		return "activated"
	case OutcomeReverified:
		return "reverified"
	case OutcomeRebound:
		return "rebound"
	case OutcomeInvalidOrBound:
		return "invalid_or_bound"
	case OutcomeDisabledByAdmin:
		return "disabled_by_admin"
	case OutcomeReverifyNotAllowed:
		return "reverify_not_allowed"
	case OutcomeCountExhausted:
		return "count_exhausted"
	default:
		return "system_error"
	}
}

// Code is the public response code of the outcome.
func (k OutcomeKind) Code() int {
	switch k {
	case OutcomeActivated, OutcomeReverified, OutcomeRebound:
		return 0
	case OutcomeInvalidOrBound:
		return 1
	case OutcomeDisabledByAdmin:
		return 5
	case OutcomeReverifyNotAllowed:
		return 6
	case OutcomeCountExhausted:
		return 7
	default:
		return 3
	}
}

func (k OutcomeKind) Success() bool { return k.Code() == 0 }

// Outcome is the result of one verification. Card is the post-operation
// snapshot and is set only on success. Err carries the internal cause of a
// system error and is never shown to callers.
type Outcome struct {
	Kind OutcomeKind
	Card *model.Card
	Err  error
}

// Verifier runs the card verification state machine.
type Verifier interface {
	Verify(ctx context.Context, plainKey, deviceID string, method model.VerifyMethod) Outcome
}
