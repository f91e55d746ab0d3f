package scheduling

import (
	"context"

	"github.com/tshakameya123/Kaga-Hospital/internal/domain/identity"
	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

// SeedSchedules gives each seeded doctor without a schedule the default
// clinic day on their roster days. Existing schedules are left alone.
func (s *Service) SeedSchedules(ctx context.Context, seeded []identity.SeededStaff) (int, error) {
	created := 0
	for _, st := range seeded {
		if st.Staff == nil {
			continue
		}
		_, err := s.availability.GetByDoctor(ctx, st.Staff.ID)
		if err == nil {
			continue
		}
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return created, err
		}
		if err := s.availability.Upsert(ctx, ScheduleFor(st.Staff.ID, st.Doctor.Days)); err != nil {
			return created, err
		}
		created++
	}
	if created > 0 {
		s.logger.Info().Int("schedules", created).Msg("seeded work schedules")
	}
	return created, nil
}
