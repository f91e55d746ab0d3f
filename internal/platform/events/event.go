// Package events carries domain notifications (appointment booked, status
// changed, reminder due, payment updated) out of the request path.
package events

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	AppointmentCreated       Type = "appointment.created"
	AppointmentStatusChanged Type = "appointment.status_changed"
	AppointmentReminder      Type = "appointment.reminder"
	BookingCreated           Type = "booking.created"
	BookingStatusChanged     Type = "booking.status_changed"
)

type Event struct {
	ID          string                 `json:"id"`
	Type        Type                   `json:"type"`
	AggregateID string                 `json:"aggregateId"`
	OccurredAt  time.Time              `json:"occurredAt"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
}

func New(t Type, aggregateID string, payload map[string]interface{}) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

// Channel is the pub/sub channel an event type is published on.
func Channel(t Type) string {
	return "kaga:" + string(t)
}
