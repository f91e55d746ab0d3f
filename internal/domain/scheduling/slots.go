package scheduling

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tshakameya123/Kaga-Hospital/pkg/apperrors"
)

const (
	dateLayout = "2006-01-02"
	slotLayout = "15:04"
	slotStep   = 30 * time.Minute
)

var slotLabel = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

func ValidSlot(label string) bool { return slotLabel.MatchString(label) }

// weekOrder is Monday first, the order schedules are stored and shown in.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// ParseDay accepts a weekday name in any case.
func ParseDay(name string) (time.Weekday, bool) {
	for _, d := range weekOrder {
		if strings.EqualFold(d.String(), strings.TrimSpace(name)) {
			return d, true
		}
	}
	return 0, false
}

func dayIndex(d time.Weekday) int {
	for i, w := range weekOrder {
		if w == d {
			return i
		}
	}
	return len(weekOrder)
}

// DefaultDay is the hospital's standard clinic day: two sessions of
// half-hour slots.
func DefaultDay() []string {
	var out []string
	for _, session := range [][2]string{{"09:00", "12:00"}, {"14:00", "17:00"}} {
		start, _ := time.Parse(slotLayout, session[0])
		end, _ := time.Parse(slotLayout, session[1])
		for t := start; t.Before(end); t = t.Add(slotStep) {
			out = append(out, t.Format(slotLayout))
		}
	}
	return out
}

// ScheduleFor builds a schedule offering the default day on each of days.
func ScheduleFor(doctorID uuid.UUID, days []time.Weekday) *WorkSchedule {
	ws := &WorkSchedule{DoctorID: doctorID}
	for _, d := range days {
		ws.AvailableSlots = append(ws.AvailableSlots, DaySlots{Day: d.String(), Slots: DefaultDay()})
	}
	ws.AvailableSlots, _ = NormalizeDays(ws.AvailableSlots)
	return ws
}

// DefaultSchedule is what doctors without declared hours offer: the default
// day, Monday to Friday.
func DefaultSchedule(doctorID uuid.UUID) *WorkSchedule {
	ws := ScheduleFor(doctorID, weekOrder[:5])
	ws.Default = true
	return ws
}

// NormalizeDays validates declared availability and returns it with days in
// week order and each day's slots sorted and de-duplicated.
func NormalizeDays(days []DaySlots) ([]DaySlots, error) {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]DaySlots, 0, len(days))
	for _, d := range days {
		wd, ok := ParseDay(d.Day)
		if !ok {
			return nil, apperrors.Validation("unknown day %q", d.Day)
		}
		if seen[wd] {
			return nil, apperrors.Validation("%s is listed more than once", wd)
		}
		seen[wd] = true

		set := make(map[string]bool, len(d.Slots))
		slots := make([]string, 0, len(d.Slots))
		for _, s := range d.Slots {
			s = strings.TrimSpace(s)
			if !ValidSlot(s) {
				return nil, apperrors.Validation("invalid slot %q on %s, expected HH:MM", s, wd)
			}
			if !set[s] {
				set[s] = true
				slots = append(slots, s)
			}
		}
		sort.Strings(slots)
		out = append(out, DaySlots{Day: wd.String(), Slots: slots})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := ParseDay(out[i].Day)
		b, _ := ParseDay(out[j].Day)
		return dayIndex(a) < dayIndex(b)
	})
	return out, nil
}

// SlotsOn returns the slots offered on a weekday.
func (ws *WorkSchedule) SlotsOn(day time.Weekday) []string {
	for _, d := range ws.AvailableSlots {
		if wd, ok := ParseDay(d.Day); ok && wd == day {
			return d.Slots
		}
	}
	return nil
}

// Offers reports whether the schedule lists slot on date's weekday.
func (ws *WorkSchedule) Offers(date time.Time, slot string) bool {
	for _, s := range ws.SlotsOn(date.Weekday()) {
		if s == slot {
			return true
		}
	}
	return false
}

// ParseDate reads a calendar day, returned at midnight UTC.
func ParseDate(v string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(v))
	if err != nil {
		return time.Time{}, apperrors.Validation("date must be YYYY-MM-DD")
	}
	return d, nil
}

// ResolveSlot turns a requested date and slot into the booking identity
// (calendar day, slot label). date may be a plain day, a zone-less local
// datetime or an RFC 3339 timestamp; a timestamp's time of day, read in loc,
// supplies the slot when none is given and must match it otherwise.
func ResolveSlot(date, slot string, loc *time.Location) (time.Time, string, error) {
	date, slot = strings.TrimSpace(date), strings.TrimSpace(slot)
	if date == "" {
		return time.Time{}, "", apperrors.Validation("appointmentDate is required")
	}
	if slot != "" && !ValidSlot(slot) {
		return time.Time{}, "", apperrors.Validation("slot must be HH:MM, got %q", slot)
	}

	if day, err := time.Parse(dateLayout, date); err == nil {
		if slot == "" {
			return time.Time{}, "", apperrors.Validation("slot is required")
		}
		return day, slot, nil
	}

	ts, err := parseTimestamp(date, loc)
	if err != nil {
		return time.Time{}, "", apperrors.Validation("appointmentDate must be YYYY-MM-DD, a local YYYY-MM-DDTHH:MM[:SS] or an RFC 3339 timestamp")
	}
	derived := ts.Format(slotLayout)
	if slot == "" {
		slot = derived
	} else if slot != derived {
		return time.Time{}, "", apperrors.Validation("slot %s does not match appointmentDate time %s", slot, derived)
	}
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), slot, nil
}

// localLayouts are zone-less datetimes, read as hospital wall-clock time.
var localLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

// parseTimestamp returns date in loc. Zone-less forms are taken to be in loc
// already; RFC 3339 timestamps are converted.
func parseTimestamp(date string, loc *time.Location) (time.Time, error) {
	for _, layout := range localLayouts {
		if ts, err := time.ParseInLocation(layout, date, loc); err == nil {
			return ts, nil
		}
	}
	ts, err := time.Parse(time.RFC3339, date)
	if err != nil {
		return time.Time{}, err
	}
	return ts.In(loc), nil
}

// StartsAt is the instant a slot begins in the hospital's time zone.
func StartsAt(day time.Time, slot string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot %q: %w", slot, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}
