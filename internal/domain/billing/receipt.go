package billing

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/pdf"
)

var methodLabels = map[Method]string{
	MethodCard:        "Card",
	MethodMobileMoney: "Mobile money",
}

// WriteReceipt renders booking id as a PDF receipt. Receipts for unpaid
// bookings are marked as payment due.
func (s *Service) WriteReceipt(ctx context.Context, id uuid.UUID, w io.Writer) error {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return err
	}
	a, err := s.appointments.Get(ctx, b.AppointmentID)
	if err != nil {
		return err
	}

	title := "Payment Receipt"
	if b.Status != StatusPaid {
		title = "Payment Due"
	}
	doc := pdf.New(title)
	doc.Section("Appointment")
	doc.Detail("Department", a.Department)
	doc.Detail("Date", a.Date())
	doc.Detail("Time", a.Slot)
	doc.Section("Payment")
	doc.Detail("Booking", b.ID.String())
	doc.Detail("Amount (UGX)", b.Amount.StringFixed(2))
	doc.Detail("Method", methodLabels[b.Method])
	doc.Detail("Status", string(b.Status))
	if b.PayerPhone != nil {
		doc.Detail("Paid from", *b.PayerPhone)
	}
	doc.Detail("Updated", b.UpdatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	if b.Status != StatusPaid {
		doc.Paragraph("Please complete payment before your appointment to confirm your booking.")
	} else {
		doc.Paragraph("Thank you for choosing Kaga Hospital.")
	}
	return doc.Write(w)
}
