package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleTemplate is a provider's recurring weekly availability rule.
// Times of day use 24-hour "HH:MM" strings, interpreted in UTC when slots
// are generated.
type ScheduleTemplate struct {
	ID               uuid.UUID    `json:"id"`
	TenantID         string       `json:"tenant_id"`
	ProviderID       uuid.UUID    `json:"provider_id"`
	Weekday          time.Weekday `json:"weekday"`
	StartTime        string       `json:"start_time"`
	EndTime          string       `json:"end_time"`
	SlotDurationMins int          `json:"slot_duration_mins"`
	BufferMins       int          `json:"buffer_mins"`
	Active           bool         `json:"active"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Validate enforces the template invariants: parseable times, start before
// end, positive duration, non-negative buffer, weekday in range.
func (t *ScheduleTemplate) Validate() error {
	if t.Weekday < time.Sunday || t.Weekday > time.Saturday {
		return &ValidationError{Field: "weekday", Reason: "must be 0-6"}
	}
	start, err := ParseTimeOfDay(t.StartTime)
	if err != nil {
		return &ValidationError{Field: "start_time", Reason: err.Error()}
	}
	end, err := ParseTimeOfDay(t.EndTime)
	if err != nil {
		return &ValidationError{Field: "end_time", Reason: err.Error()}
	}
	if start >= end {
		return &ValidationError{Field: "start_time", Reason: "must be before end_time"}
	}
	if t.SlotDurationMins <= 0 {
		return &ValidationError{Field: "slot_duration_mins", Reason: "must be positive"}
	}
	if t.BufferMins < 0 {
		return &ValidationError{Field: "buffer_mins", Reason: "must not be negative"}
	}
	return nil
}

// AvailabilitySlot is a concrete bookable (or booked) time window.
// Booked ⇔ unavailable ⇔ has appointment id; all mutation goes through the
// ledger so that invariant stays centrally enforced.
type AvailabilitySlot struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	Date          time.Time  `json:"date"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	Available     bool       `json:"available"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TimeOfDay is minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses a 24-hour "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%2d:%2d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("not a HH:MM time: %q", s)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return TimeOfDay(hh*60 + mm), nil
}

// At anchors the time of day on a calendar date, preserving its location.
func (t TimeOfDay) At(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(t)/60, int(t)%60, 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}
