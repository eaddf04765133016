package realtime

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried on the slot change feed.
const (
	EventSlotBooked     = "slot.booked"
	EventSlotReleased   = "slot.released"
	EventSlotsGenerated = "slots.generated"
)

// SlotEvent is the envelope broadcast to calendar subscribers whenever the
// ledger mutates slot state.
type SlotEvent struct {
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	TenantID      string     `json:"tenant_id"`
	ProviderID    uuid.UUID  `json:"provider_id"`
	SlotID        uuid.UUID  `json:"slot_id,omitempty"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	SlotCount     int        `json:"slot_count,omitempty"`
	OccurredAt    time.Time  `json:"occurred_at"`
}

// NewSlotEvent stamps identity and time on an event.
func NewSlotEvent(eventType, tenantID string, providerID uuid.UUID) SlotEvent {
	return SlotEvent{
		EventID:    uuid.New(),
		EventType:  eventType,
		TenantID:   tenantID,
		ProviderID: providerID,
		OccurredAt: time.Now().UTC(),
	}
}
