package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/notification"
)

func TestService_StatusChangesNotifyPatient(t *testing.T) {
	sms, email := &notification.MemorySender{}, &notification.MemorySender{}
	env := newTestEnvWith(time.UTC, func(env *testEnv) events.Publisher {
		return notification.NewNotifier(env.pub, env.dir, notification.NewTemplateEngine(), sms, email, zerolog.Nop())
	})
	ctx := context.Background()
	doc := env.dir.addDoctor("Okello", "Cardiology")
	patient := env.dir.addPatient("Amina")
	patient.Email = "amina@example.com"

	a := env.book(t, patient, doc, "2024-10-15", "09:30")
	if n := len(email.Messages()); n != 0 {
		t.Fatalf("booking alone must not message the patient, got %d", n)
	}

	if _, err := env.svc.Transition(ctx, a.ID, StatusConfirmed, ""); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := env.svc.Cancel(ctx, a.ID, "travelling"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	msgs := email.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 emails, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].Subject != "Appointment confirmed" || msgs[1].Subject != "Appointment cancelled" {
		t.Errorf("unexpected subjects %q, %q", msgs[0].Subject, msgs[1].Subject)
	}
	if msgs[0].To != "amina@example.com" {
		t.Errorf("to = %q", msgs[0].To)
	}
	if len(sms.Messages()) != 0 {
		t.Error("no sms expected without a phone number")
	}
	if n := len(env.pub.OfType(events.AppointmentStatusChanged)); n != 2 {
		t.Errorf("expected 2 forwarded status events, got %d", n)
	}

	env.svc.Remind(ctx, a)
	if n := len(email.Messages()); n != 3 {
		t.Errorf("expected the reminder email as well, got %d", n)
	}
}
