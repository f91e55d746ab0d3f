package billing

import (
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// A failed payment may be retried; a paid one is final.
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed},
	StatusFailed:  {StatusPending},
	StatusPaid:    nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) CanTransition(to Status) error {
	if !to.Valid() {
		return apperrors.Validation("invalid payment status %q", to)
	}
	if s == StatusPaid {
		return apperrors.InvalidTransition("booking is already paid")
	}
	for _, next := range transitions[s] {
		if next == to {
			return nil
		}
	}
	return apperrors.InvalidTransition("cannot move booking from %s to %s", s, to)
}
