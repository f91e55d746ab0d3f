package billing

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/scheduling"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// Appointments resolves the appointment a booking pays for.
// *scheduling.Service satisfies it.
type Appointments interface {
	Get(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error)
}

type Service struct {
	bookings     BookingRepository
	appointments Appointments
	events       *events.Emitter
	logger       zerolog.Logger
}

func NewService(bookings BookingRepository, appts Appointments, emitter *events.Emitter, logger zerolog.Logger) *Service {
	return &Service{
		bookings: bookings, appointments: appts, events: emitter,
		logger: logger.With().Str("component", "billing").Logger(),
	}
}

type CreateBookingInput struct {
	AppointmentID uuid.UUID       `json:"appointmentId" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Method        Method          `json:"method" validate:"omitempty,oneof=card mobile_money"`
	PayerPhone    *string         `json:"payerPhone" validate:"omitempty,max=32"`
}

// Create opens a pending payment for an appointment. Each appointment has at
// most one booking.
func (s *Service) Create(ctx context.Context, in CreateBookingInput) (*Booking, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.Validation("amount must be greater than zero")
	}
	method := in.Method
	if method == "" {
		method = MethodMobileMoney
	}
	if !method.Valid() {
		return nil, apperrors.Validation("method must be card or mobile_money")
	}
	if _, err := s.Appointment(ctx, in.AppointmentID); err != nil {
		return nil, err
	}

	b := &Booking{
		AppointmentID: in.AppointmentID,
		Amount:        in.Amount.Round(2),
		Method:        method,
		Status:        StatusPending,
		PayerPhone:    trimmed(in.PayerPhone),
	}
	if err := s.bookings.Create(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("appointment_id", b.AppointmentID.String()).
		Str("amount", b.Amount.StringFixed(2)).
		Msg("booking created")
	s.events.Emit(ctx, events.New(events.BookingCreated, b.ID.String(), bookingPayload(b)))
	return b, nil
}

// Appointment returns the appointment a booking may be taken for: it must
// exist and not be cancelled.
func (s *Service) Appointment(ctx context.Context, id uuid.UUID) (*scheduling.Appointment, error) {
	a, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == scheduling.StatusCancelled {
		return nil, apperrors.Validation("appointment %s is cancelled", id)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f BookingFilter, limit, offset int) ([]*Booking, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperrors.Validation("invalid payment status %q", f.Status)
	}
	if f.Method != "" && !f.Method.Valid() {
		return nil, 0, apperrors.Validation("invalid payment method %q", f.Method)
	}
	return s.bookings.List(ctx, f, limit, offset)
}

type UpdateBookingInput struct {
	Amount     *decimal.Decimal `json:"amount"`
	Method     *Method          `json:"method" validate:"omitempty,oneof=card mobile_money"`
	PayerPhone *string          `json:"payerPhone" validate:"omitempty,max=32"`
	Status     *Status          `json:"status"`
}

// Update changes the amount or method of a pending booking, or moves it
// along the payment lifecycle.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateBookingInput) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := b.Status

	if in.Amount != nil || in.Method != nil {
		if from != StatusPending {
			return nil, apperrors.Validation("amount and method can only change while the booking is Pending, it is %s", from)
		}
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.Validation("amount must be greater than zero")
		}
		b.Amount = in.Amount.Round(2)
	}
	if in.Method != nil {
		if !in.Method.Valid() {
			return nil, apperrors.Validation("method must be card or mobile_money")
		}
		b.Method = *in.Method
	}
	if in.PayerPhone != nil {
		b.PayerPhone = trimmed(in.PayerPhone)
	}
	if in.Status != nil && *in.Status != from {
		if err := from.CanTransition(*in.Status); err != nil {
			return nil, err
		}
		b.Status = *in.Status
	}

	if err := s.save(ctx, b, from); err != nil {
		return nil, err
	}
	if b.Status != from {
		s.statusChanged(ctx, b, from)
	}
	return b, nil
}

// Transition moves a booking to another payment status.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := b.Status
	if err := from.CanTransition(to); err != nil {
		return nil, err
	}
	b.Status = to
	if err := s.save(ctx, b, from); err != nil {
		return nil, err
	}
	s.statusChanged(ctx, b, from)
	return b, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.bookings.Delete(ctx, id)
}

func (s *Service) save(ctx context.Context, b *Booking, from Status) error {
	err := s.bookings.Update(ctx, b, from)
	if apperrors.IsKind(err, apperrors.KindNotFound) {
		return apperrors.Conflict("booking was modified concurrently, reload and retry")
	}
	return err
}

func (s *Service) statusChanged(ctx context.Context, b *Booking, from Status) {
	s.logger.Info().
		Str("booking_id", b.ID.String()).
		Str("from", string(from)).Str("to", string(b.Status)).
		Msg("booking status changed")
	payload := bookingPayload(b)
	payload["from"] = string(from)
	s.events.Emit(ctx, events.New(events.BookingStatusChanged, b.ID.String(), payload))
}

func bookingPayload(b *Booking) map[string]interface{} {
	return map[string]interface{}{
		"appointmentId": b.AppointmentID.String(),
		"amount":        b.Amount.StringFixed(2),
		"method":        string(b.Method),
		"status":        string(b.Status),
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
