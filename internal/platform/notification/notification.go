// Package notification tells patients about their appointments. It sits in
// front of the event publisher and turns appointment events into SMS or
// email messages rendered from templates.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/internal/platform/events"
)

type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Sender delivers one rendered message. SMS senders ignore subject.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Template is a message with {{key}} placeholders.
type Template struct {
	ID      string
	Subject string
	Body    string
}

const (
	TemplateReminder  = "appointment-reminder"
	TemplateConfirmed = "appointment-confirmed"
	TemplateCancelled = "appointment-cancelled"
)

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{
			ID:      TemplateReminder,
			Subject: "Appointment reminder",
			Body:    "Dear {{patient_name}}, this is a reminder of your {{department}} appointment on {{date}} at {{time}} with {{doctor}}.",
		},
		{
			ID:      TemplateConfirmed,
			Subject: "Appointment confirmed",
			Body:    "Dear {{patient_name}}, your {{department}} appointment on {{date}} at {{time}} with {{doctor}} is confirmed.",
		},
		{
			ID:      TemplateCancelled,
			Subject: "Appointment cancelled",
			Body:    "Dear {{patient_name}}, your appointment on {{date}} at {{time}} with {{doctor}} has been cancelled.",
		},
	} {
		e.templates[t.ID] = t
	}
	return e
}

// Register adds or replaces a template.
func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render fills the placeholders of templateID. Placeholders missing from
// data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject, body = t.Subject, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Directory resolves the people named in an appointment event.
type Directory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.Patient, error)
	GetStaff(ctx context.Context, id uuid.UUID) (*identity.MedicalStaff, error)
}

// Notifier is an events.Publisher that forwards every event to next and
// messages the patient for reminders, confirmations and cancellations.
// Delivery failures are logged and never fail the publish.
type Notifier struct {
	next      events.Publisher
	directory Directory
	templates *TemplateEngine
	senders   map[Channel]Sender
	logger    zerolog.Logger
}

func NewNotifier(next events.Publisher, directory Directory, templates *TemplateEngine, sms, email Sender, logger zerolog.Logger) *Notifier {
	return &Notifier{
		next:      next,
		directory: directory,
		templates: templates,
		senders:   map[Channel]Sender{ChannelSMS: sms, ChannelEmail: email},
		logger:    logger.With().Str("component", "notification").Logger(),
	}
}

func (n *Notifier) Publish(ctx context.Context, evt events.Event) error {
	err := n.next.Publish(ctx, evt)
	if templateID := templateFor(evt); templateID != "" {
		if nerr := n.notify(ctx, templateID, evt); nerr != nil {
			n.logger.Warn().Err(nerr).
				Str("event_id", evt.ID).
				Str("type", string(evt.Type)).
				Msg("patient notification failed")
		}
	}
	return err
}

func templateFor(evt events.Event) string {
	switch evt.Type {
	case events.AppointmentReminder:
		return TemplateReminder
	case events.AppointmentStatusChanged:
		// Statuses travel as the appointment stores them ("Confirmed").
		status := payloadString(evt, "status")
		switch {
		case strings.EqualFold(status, "confirmed"):
			return TemplateConfirmed
		case strings.EqualFold(status, "cancelled"):
			return TemplateCancelled
		}
	}
	return ""
}

func (n *Notifier) notify(ctx context.Context, templateID string, evt events.Event) error {
	patientID, err := uuid.Parse(payloadString(evt, "patientId"))
	if err != nil {
		return fmt.Errorf("event has no patient: %w", err)
	}
	patient, err := n.directory.GetPatient(ctx, patientID)
	if err != nil {
		return fmt.Errorf("load patient: %w", err)
	}

	doctor := "your doctor"
	if doctorID, err := uuid.Parse(payloadString(evt, "doctorId")); err == nil {
		if st, err := n.directory.GetStaff(ctx, doctorID); err == nil {
			doctor = "Dr. " + st.Name
		}
	}

	subject, body, err := n.templates.Render(templateID, map[string]string{
		"patient_name": patient.Name,
		"department":   payloadString(evt, "department"),
		"date":         payloadString(evt, "date"),
		"time":         payloadString(evt, "slot"),
		"doctor":       doctor,
	})
	if err != nil {
		return err
	}

	channel, to := recipient(patient)
	if to == "" {
		return fmt.Errorf("patient %s has no contact details", patient.ID)
	}
	sender := n.senders[channel]
	if sender == nil {
		return fmt.Errorf("no %s sender configured", channel)
	}
	if err := sender.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send %s: %w", channel, err)
	}
	n.logger.Info().
		Str("event_id", evt.ID).
		Str("template", templateID).
		Str("channel", string(channel)).
		Msg("patient notified")
	return nil
}

// recipient prefers the patient's phone; most patients book from mobile.
func recipient(p *identity.Patient) (Channel, string) {
	if p.PhoneNumber != nil && strings.TrimSpace(*p.PhoneNumber) != "" {
		return ChannelSMS, strings.TrimSpace(*p.PhoneNumber)
	}
	return ChannelEmail, p.Email
}

func payloadString(evt events.Event, key string) string {
	v, _ := evt.Payload[key].(string)
	return v
}

// LogSender writes messages to the log instead of a gateway.
type LogSender struct {
	channel Channel
	logger  zerolog.Logger
}

func NewLogSender(channel Channel, logger zerolog.Logger) *LogSender {
	return &LogSender{channel: channel, logger: logger}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.logger.Info().
		Str("channel", string(s.channel)).
		Str("to", to).
		Str("subject", subject).
		Str("body", body).
		Msg("notification")
	return nil
}

// Message is one delivery recorded by MemorySender.
type Message struct {
	To      string
	Subject string
	Body    string
}

// MemorySender records messages in memory.
type MemorySender struct {
	mu       sync.Mutex
	messages []Message
	Err      error
}

func (s *MemorySender) Send(_ context.Context, to, subject, body string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, Message{To: to, Subject: subject, Body: body})
	return nil
}

func (s *MemorySender) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
