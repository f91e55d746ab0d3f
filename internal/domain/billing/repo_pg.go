package billing

import (
	"context"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/db"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

var billingConflicts = map[string]string{
	"bookings_appointment_id_key": "appointment already has a booking",
}

type bookingRepoPG struct{ pool *pgxpool.Pool }

func NewBookingRepoPG(pool *pgxpool.Pool) BookingRepository { return &bookingRepoPG{pool: pool} }

func (r *bookingRepoPG) conn(ctx context.Context) db.Querier { return db.Conn(ctx, r.pool) }

// amount is read as text so it round-trips through decimal exactly.
var bookingCols = []interface{}{
	goqu.I("id"), goqu.I("appointment_id"), goqu.L("amount::text"), goqu.I("method"),
	goqu.I("status"), goqu.I("payer_phone"), goqu.I("created_at"), goqu.I("updated_at"),
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var amount string
	if err := row.Scan(&b.ID, &b.AppointmentID, &amount, &b.Method,
		&b.Status, &b.PayerPhone, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, apperrors.Internal("decode amount", err)
	}
	b.Amount = d
	return &b, nil
}

func (r *bookingRepoPG) Create(ctx context.Context, b *Booking) error {
	b.ID = uuid.New()
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	ds := db.Insert("bookings").Rows(goqu.Record{
		"id": b.ID, "appointment_id": b.AppointmentID, "amount": b.Amount.String(),
		"method": b.Method, "status": b.Status, "payer_phone": b.PayerPhone,
		"created_at": now, "updated_at": now,
	})
	return db.ExecOne(ctx, r.conn(ctx), "booking", ds, billingConflicts)
}

func (r *bookingRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	query, args, err := db.Build("booking", db.From("bookings").Select(bookingCols...).Where(goqu.Ex{"id": id}))
	if err != nil {
		return nil, apperrors.Internal("build query", err)
	}
	b, err := scanBooking(r.conn(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, db.Translate(err, "booking", billingConflicts)
	}
	return b, nil
}

func (r *bookingRepoPG) Update(ctx context.Context, b *Booking, from Status) error {
	b.UpdatedAt = time.Now().UTC()
	ds := db.Update("bookings").Set(goqu.Record{
		"amount": b.Amount.String(), "method": b.Method, "status": b.Status,
		"payer_phone": b.PayerPhone, "updated_at": b.UpdatedAt,
	}).Where(goqu.Ex{"id": b.ID, "status": from})
	return db.ExecOne(ctx, r.conn(ctx), "booking", ds, billingConflicts)
}

func (r *bookingRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExecOne(ctx, r.conn(ctx), "booking", db.Delete("bookings").Where(goqu.Ex{"id": id}), billingConflicts)
}

func (r *bookingRepoPG) List(ctx context.Context, f BookingFilter, limit, offset int) ([]*Booking, int, error) {
	ex := goqu.Ex{}
	if f.AppointmentID != nil {
		ex["appointment_id"] = *f.AppointmentID
	}
	if f.Status != "" {
		ex["status"] = f.Status
	}
	if f.Method != "" {
		ex["method"] = f.Method
	}
	ds := db.From("bookings").Where(ex)
	total, err := db.Count(ctx, r.conn(ctx), "bookings", ds)
	if err != nil {
		return nil, 0, err
	}

	query, args, err := db.Build("bookings", ds.Select(bookingCols...).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Asc()).
		Limit(uint(limit)).Offset(uint(offset)))
	if err != nil {
		return nil, 0, apperrors.Internal("build query", err)
	}
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, db.Translate(err, "bookings", billingConflicts)
	}
	defer rows.Close()
	var items []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, db.Translate(err, "bookings", billingConflicts)
		}
		items = append(items, b)
	}
	return items, total, db.Translate(rows.Err(), "bookings", billingConflicts)
}
