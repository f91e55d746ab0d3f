package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gomail/gomail"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

type fakeTwilio struct {
	params []*twilioapi.CreateMessageParams
	err    error
}

func (f *fakeTwilio) CreateMessage(p *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.params = append(f.params, p)
	return &twilioapi.ApiV2010Message{}, f.err
}

func TestTwilioSender_Send(t *testing.T) {
	api := &fakeTwilio{}
	s := &TwilioSender{api: api, from: "+256700000000"}

	if err := s.Send(context.Background(), "+256700000001", "ignored", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.params) != 1 {
		t.Fatalf("expected 1 message, got %d", len(api.params))
	}
	p := api.params[0]
	if p.To == nil || *p.To != "+256700000001" {
		t.Errorf("to = %v", p.To)
	}
	if p.From == nil || *p.From != "+256700000000" {
		t.Errorf("from = %v", p.From)
	}
	if p.Body == nil || *p.Body != "hello" {
		t.Errorf("body = %v", p.Body)
	}
}

func TestTwilioSender_Error(t *testing.T) {
	s := &TwilioSender{api: &fakeTwilio{err: errors.New("401")}, from: "+256700000000"}
	if err := s.Send(context.Background(), "+256700000001", "", "hello"); err == nil {
		t.Error("expected error")
	}
}

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSMTPSender_Send(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTPSender{dialer: d, from: "noreply@kagahospital.com"}

	if err := s.Send(context.Background(), "amina@example.com", "Appointment confirmed", "See you soon"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(d.sent))
	}
	m := d.sent[0]
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "amina@example.com" {
		t.Errorf("To = %v", got)
	}
	if got := m.GetHeader("Subject"); len(got) != 1 || got[0] != "Appointment confirmed" {
		t.Errorf("Subject = %v", got)
	}
}

func TestSMTPSender_Error(t *testing.T) {
	s := &SMTPSender{dialer: &fakeDialer{err: errors.New("connection refused")}, from: "noreply@kagahospital.com"}
	if err := s.Send(context.Background(), "amina@example.com", "s", "b"); err == nil {
		t.Error("expected error")
	}
}
