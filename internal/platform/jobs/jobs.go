// Package jobs runs the background work of the booking service on a gocron
// scheduler: appointment reminders and expiry of stale pending bookings.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/scheduling"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

const defaultBatch = 200

// Appointments is the slice of the scheduling service the jobs drive.
// *scheduling.Service satisfies it.
type Appointments interface {
	ListDue(ctx context.Context, status scheduling.Status, from, to time.Time, limit int) ([]*scheduling.Appointment, error)
	Remind(ctx context.Context, a *scheduling.Appointment)
	Transition(ctx context.Context, id uuid.UUID, to scheduling.Status, reason string) (*scheduling.Appointment, error)
}

// Job is one unit of periodic work. Run reports how many items it handled.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// ReminderJob announces confirmed appointments starting about Lead from now.
// Each run covers a window of Interval centred on now+Lead, so consecutive
// runs tile the timeline and each appointment is reminded once.
type ReminderJob struct {
	appts    Appointments
	lead     time.Duration
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewReminderJob(appts Appointments, lead, interval time.Duration) *ReminderJob {
	return &ReminderJob{appts: appts, lead: lead, interval: interval, batch: defaultBatch, now: time.Now}
}

func (j *ReminderJob) Name() string { return "appointment-reminders" }

func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	target := j.now().Add(j.lead)
	from, to := target.Add(-j.interval/2), target.Add(j.interval/2)
	due, err := j.appts.ListDue(ctx, scheduling.StatusConfirmed, from, to, j.batch)
	if err != nil {
		return 0, fmt.Errorf("list confirmed appointments: %w", err)
	}
	for _, a := range due {
		j.appts.Remind(ctx, a)
	}
	return len(due), nil
}

// ExpiryJob cancels pending appointments whose slot has already started.
type ExpiryJob struct {
	appts  Appointments
	batch  int
	now    func() time.Time
	logger zerolog.Logger
}

func NewExpiryJob(appts Appointments, logger zerolog.Logger) *ExpiryJob {
	return &ExpiryJob{appts: appts, batch: defaultBatch, now: time.Now, logger: logger}
}

func (j *ExpiryJob) Name() string { return "appointment-expiry" }

func (j *ExpiryJob) Run(ctx context.Context) (int, error) {
	stale, err := j.appts.ListDue(ctx, scheduling.StatusPending, time.Time{}, j.now(), j.batch)
	if err != nil {
		return 0, fmt.Errorf("list pending appointments: %w", err)
	}
	expired := 0
	for _, a := range stale {
		_, err := j.appts.Transition(ctx, a.ID, scheduling.StatusCancelled, "expired")
		switch {
		case err == nil:
			expired++
		case apperrors.IsKind(err, apperrors.KindInvalidTransition), apperrors.IsKind(err, apperrors.KindConflict):
			// Someone else moved it first.
		default:
			j.logger.Error().Err(err).Str("appointment_id", a.ID.String()).Msg("failed to expire appointment")
		}
	}
	return expired, nil
}

// Runner schedules jobs on a gocron scheduler.
type Runner struct {
	sched  *gocron.Scheduler
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(loc *time.Location, logger zerolog.Logger) *Runner {
	if loc == nil {
		loc = time.UTC
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := gocron.NewScheduler(loc)
	s.SingletonModeAll()
	return &Runner{sched: s, logger: logger.With().Str("component", "jobs").Logger(), ctx: ctx, cancel: cancel}
}

// Every registers job to run each interval, starting immediately.
func (r *Runner) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name())
	}
	_, err := r.sched.Every(interval).Tag(job.Name()).Do(func() {
		r.runOnce(interval, job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name(), err)
	}
	return nil
}

func (r *Runner) runOnce(timeout time.Duration, job Job) {
	ctx, cancel := context.WithTimeout(r.ctx, timeout)
	defer cancel()
	start := time.Now()
	n, err := job.Run(ctx)
	if err != nil {
		r.logger.Error().Err(err).Str("job", job.Name()).Msg("job failed")
		return
	}
	r.logger.Debug().Str("job", job.Name()).Int("items", n).Dur("took", time.Since(start)).Msg("job finished")
}

func (r *Runner) Start() {
	r.sched.StartAsync()
	r.logger.Info().Int("jobs", len(r.sched.Jobs())).Msg("background jobs started")
}

// Stop cancels in-flight runs and waits for the scheduler to halt.
func (r *Runner) Stop() {
	r.cancel()
	r.sched.Stop()
}
