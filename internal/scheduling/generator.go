package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// GenerateSlots expands a provider's templates into concrete slots over the
// inclusive [from, to] date range. Dates contribute no slots when no active
// template covers their weekday. Emitted slots are available with no bound
// appointment. The generator performs no de-duplication against persisted
// slots; the ledger's unique index on (provider, date, start) owns that.
func GenerateSlots(templates []ScheduleTemplate, providerID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	for i := range templates {
		if err := templates[i].Validate(); err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "date_range", Reason: "end date before start date"}
	}

	from = truncateToDate(from)
	to = truncateToDate(to)

	var slots []AvailabilitySlot
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		tpl := templateFor(templates, providerID, date.Weekday())
		if tpl == nil {
			continue
		}
		slots = append(slots, expandTemplate(tpl, date)...)
	}
	return slots, nil
}

// templateFor picks the single active template for a provider/weekday.
// Duplicate active templates are rejected at write time, so first match is
// the only match.
func templateFor(templates []ScheduleTemplate, providerID uuid.UUID, weekday time.Weekday) *ScheduleTemplate {
	for i := range templates {
		t := &templates[i]
		if t.Active && t.ProviderID == providerID && t.Weekday == weekday {
			return t
		}
	}
	return nil
}

// expandTemplate walks the template window emitting fixed-size slots. The
// cursor advances by duration+buffer and a slot is emitted only while its
// end stays within the template end: a final partial fit is dropped.
func expandTemplate(tpl *ScheduleTemplate, date time.Time) []AvailabilitySlot {
	start, _ := ParseTimeOfDay(tpl.StartTime)
	end, _ := ParseTimeOfDay(tpl.EndTime)

	step := TimeOfDay(tpl.SlotDurationMins + tpl.BufferMins)
	duration := TimeOfDay(tpl.SlotDurationMins)

	var slots []AvailabilitySlot
	for cursor := start; cursor+duration <= end; cursor += step {
		slots = append(slots, AvailabilitySlot{
			ID:         uuid.New(),
			TenantID:   tpl.TenantID,
			ProviderID: tpl.ProviderID,
			Date:       date,
			StartTime:  cursor.At(date),
			EndTime:    (cursor + duration).At(date),
			Available:  true,
		})
	}
	return slots
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
