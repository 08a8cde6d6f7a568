package businessflow

import (
	"fmt"
	"time"

	"github.com/amirphl/tariff-storefront/app/dto"
)

// Installation scheduling window
const (
	slotDayStartHour   = 6
	slotDayEndHour     = 21
	slotMorningEndHour = 12
	slotStep           = 15 * time.Minute
	minSameDaySlots    = 8
)

// GenerateSlots lists the installation slots offered at now, in now's location.
// Same-day slots start at the next quarter hour; with fewer than eight left, or after
// business hours, the next morning is offered. Before opening the same morning is offered.
func GenerateSlots(now time.Time) []dto.TimeSlot {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	open := day.Add(slotDayStartHour * time.Hour)
	closing := day.Add(slotDayEndHour * time.Hour)

	if now.Before(open) {
		return slotsBetween(open, day.Add(slotMorningEndHour*time.Hour))
	}

	if now.Before(closing) {
		first := now.Truncate(slotStep)
		if !first.After(now) {
			first = first.Add(slotStep)
		}
		today := slotsBetween(first, closing)
		if len(today) >= minSameDaySlots {
			return today
		}
	}

	next := day.AddDate(0, 0, 1)
	return slotsBetween(next.Add(slotDayStartHour*time.Hour), next.Add(slotMorningEndHour*time.Hour))
}

// slotsBetween emits back-to-back slots whose end does not pass until
func slotsBetween(from, until time.Time) []dto.TimeSlot {
	var out []dto.TimeSlot
	for start := from; !start.Add(slotStep).After(until); start = start.Add(slotStep) {
		end := start.Add(slotStep)
		out = append(out, dto.TimeSlot{
			ID:    start.Format("2006-01-02T15:04"),
			Date:  start.Format("2006-01-02"),
			Start: start.Format("15:04"),
			End:   end.Format("15:04"),
			Label: fmt.Sprintf("%s %s-%s", start.Format("02.01"), start.Format("15:04"), end.Format("15:04")),
		})
	}
	return out
}

func findSlot(slots []dto.TimeSlot, id string) (dto.TimeSlot, bool) {
	for _, s := range slots {
		if s.ID == id {
			return s, true
		}
	}
	return dto.TimeSlot{}, false
}
