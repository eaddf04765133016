package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks the delivery lifecycle of one reminder.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Channel specifies how the reminder is delivered.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// Notification is one scheduled outbound reminder tied to an appointment.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	AppointmentID uuid.UUID  `json:"appointment_id"`
	Channel       Channel    `json:"channel"`
	Recipient     string     `json:"recipient"`
	Body          string     `json:"body"`
	ScheduledFor  time.Time  `json:"scheduled_for"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Status        Status     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
