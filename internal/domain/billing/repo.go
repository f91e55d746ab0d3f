package billing

import (
	"context"

	"github.com/google/uuid"
)

type BookingRepository interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// Update writes b only while the stored status is still from.
	Update(ctx context.Context, b *Booking, from Status) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f BookingFilter, limit, offset int) ([]*Booking, int, error)
}
