package scheduling

import (
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusCancelled: nil,
	StatusCompleted: nil,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal statuses accept no further change.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransition checks a status change against the appointment lifecycle.
// Re-asserting a non-terminal status is allowed and changes nothing.
func (s Status) CanTransition(to Status) error {
	if !to.Valid() {
		return apperrors.Validation("invalid status %q", to)
	}
	if s.Terminal() {
		return apperrors.InvalidTransition("appointment is %s and cannot change", s)
	}
	if s == to {
		return nil
	}
	for _, next := range transitions[s] {
		if next == to {
			return nil
		}
	}
	return apperrors.InvalidTransition("cannot move appointment from %s to %s", s, to)
}
