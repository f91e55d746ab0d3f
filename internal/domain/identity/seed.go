package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

const (
	SeedPassword = "123456"
	seedPhone    = "+256700000000"
	seedDomain   = "kagahospital.com"
)

// SeedDoctor describes one of the hospital's standing doctors.
type SeedDoctor struct {
	First, Last string
	Department  string
	// Days the doctor holds clinics. Used to seed work schedules.
	Days []time.Weekday
}

func (d SeedDoctor) Name() string { return fmt.Sprintf("Dr. %s %s", d.First, d.Last) }

func (d SeedDoctor) Email() string {
	return strings.ToLower(d.First + "." + d.Last + "@" + seedDomain)
}

var (
	weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}
	mwf      = []time.Weekday{time.Monday, time.Wednesday, time.Friday}
	tts      = []time.Weekday{time.Tuesday, time.Thursday, time.Saturday}
)

// HospitalDoctors is the standing roster, two or so per department.
var HospitalDoctors = []SeedDoctor{
	{"Ben", "Mitchell", "General Medicine", weekdays},
	{"Sarah", "Johnson", "Cardiology", weekdays},
	{"Robert", "Miller", "Cardiology", mwf},
	{"Michael", "Chen", "General Medicine", weekdays},
	{"Lisa", "Wang", "General Medicine", tts},
	{"Emily", "Rodriguez", "Dental", weekdays},
	{"David", "Kim", "Dental", []time.Weekday{time.Monday, time.Wednesday, time.Thursday, time.Friday}},
	{"Jennifer", "Lee", "Pediatrics", weekdays},
	{"Mark", "Thompson", "Pediatrics", tts},
	{"James", "Wilson", "Orthopedics", weekdays},
	{"Maria", "Garcia", "Orthopedics", mwf},
	{"Amanda", "Davis", "Dermatology", []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday}},
	{"Kevin", "Brown", "Dermatology", []time.Weekday{time.Tuesday, time.Wednesday, time.Thursday, time.Friday}},
	{"Rachel", "Adams", "Neurology", []time.Weekday{time.Monday, time.Tuesday, time.Thursday, time.Friday}},
	{"Thomas", "Clark", "Neurology", []time.Weekday{time.Monday, time.Wednesday, time.Thursday, time.Friday}},
	{"Susan", "Martinez", "Gynecology", weekdays},
	{"Laura", "Anderson", "Gynecology", []time.Weekday{time.Tuesday, time.Thursday, time.Friday, time.Saturday}},
}

// SeededStaff pairs a seed entry with its stored profile.
type SeededStaff struct {
	Doctor  SeedDoctor
	Staff   *MedicalStaff
	Created bool
}

// Seed creates any of the given doctors that do not exist yet, matched by
// email. Running it twice changes nothing.
func (s *Service) Seed(ctx context.Context, doctors []SeedDoctor, password string) ([]SeededStaff, error) {
	out := make([]SeededStaff, 0, len(doctors))
	for _, d := range doctors {
		u, err := s.users.GetByEmail(ctx, d.Email())
		switch {
		case err == nil:
			st, err := s.staff.GetByUserID(ctx, u.ID)
			if apperrors.IsKind(err, apperrors.KindNotFound) {
				st, err = s.CreateStaff(ctx, CreateStaffInput{
					UserID: &u.ID, Department: d.Department, PhoneNumber: seedPhone,
				})
				if err != nil {
					return out, fmt.Errorf("seed %s: %w", d.Name(), err)
				}
				out = append(out, SeededStaff{Doctor: d, Staff: st, Created: true})
				continue
			}
			if err != nil {
				return out, err
			}
			out = append(out, SeededStaff{Doctor: d, Staff: st})
		case apperrors.IsKind(err, apperrors.KindNotFound):
			st, err := s.CreateStaff(ctx, CreateStaffInput{
				Name: d.Name(), Email: d.Email(), Password: password,
				Department: d.Department, PhoneNumber: seedPhone,
			})
			if err != nil {
				return out, fmt.Errorf("seed %s: %w", d.Name(), err)
			}
			s.logger.Info().Str("doctor", d.Name()).Str("department", d.Department).Msg("seeded doctor")
			out = append(out, SeededStaff{Doctor: d, Staff: st, Created: true})
		default:
			return out, err
		}
	}
	return out, nil
}

// SeedDoctors seeds the standing roster.
func (s *Service) SeedDoctors(ctx context.Context, password string) ([]SeededStaff, error) {
	if password == "" {
		password = SeedPassword
	}
	return s.Seed(ctx, HospitalDoctors, password)
}
