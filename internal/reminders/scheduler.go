package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// DefaultOffsets are the before-appointment marks reminders fire at.
var DefaultOffsets = []time.Duration{24 * time.Hour, 2 * time.Hour}

// Scheduler derives reminder rows from booked appointments and persists
// them. Dispatch belongs to the Worker; nothing is sent from here.
type Scheduler struct {
	store   *Store
	offsets []time.Duration
	logger  *logging.Logger
}

// NewScheduler creates a reminder scheduler. Offsets default to 24h and 2h.
func NewScheduler(store *Store, offsets []time.Duration, logger *logging.Logger) *Scheduler {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{store: store, offsets: offsets, logger: logger.Component("reminders")}
}

// Booking carries the appointment facts reminders are derived from.
type Booking struct {
	TenantID        string
	AppointmentID   uuid.UUID
	AppointmentTime time.Time
	PatientName     string
	PatientEmail    string
	PatientPhone    string
	ClinicName      string
}

// BuildReminders is the pure core: per offset, one email reminder when an
// email address was supplied and one SMS reminder when a phone number was.
// Callers gate channels by blanking the recipient they do not want. Offsets
// whose scheduled time would not land strictly before the appointment are
// skipped.
func BuildReminders(b Booking, offsets []time.Duration) []Notification {
	if len(offsets) == 0 {
		offsets = DefaultOffsets
	}
	var out []Notification
	for _, offset := range offsets {
		if offset <= 0 {
			continue
		}
		at := b.AppointmentTime.Add(-offset)
		if b.PatientEmail != "" {
			out = append(out, Notification{
				ID:            uuid.New(),
				TenantID:      b.TenantID,
				AppointmentID: b.AppointmentID,
				Channel:       ChannelEmail,
				Recipient:     b.PatientEmail,
				Body:          EmailBody(b, offset),
				ScheduledFor:  at,
				Status:        StatusPending,
			})
		}
		if b.PatientPhone != "" {
			out = append(out, Notification{
				ID:            uuid.New(),
				TenantID:      b.TenantID,
				AppointmentID: b.AppointmentID,
				Channel:       ChannelSMS,
				Recipient:     b.PatientPhone,
				Body:          SMSBody(b, offset),
				ScheduledFor:  at,
				Status:        StatusPending,
			})
		}
	}
	return out
}

// ScheduleForBooking builds and persists the reminder batch for a booking.
// At least one recipient channel must be present.
func (s *Scheduler) ScheduleForBooking(ctx context.Context, b Booking) ([]Notification, error) {
	if b.PatientEmail == "" && b.PatientPhone == "" {
		return nil, fmt.Errorf("reminders: at least one of patient email or phone is required")
	}
	batch := BuildReminders(b, s.offsets)
	if len(batch) == 0 {
		return nil, nil
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("reminders: schedule for booking: %w", err)
	}
	s.logger.Info("reminders scheduled",
		"appointment_id", b.AppointmentID,
		"tenant_id", b.TenantID,
		"count", len(batch),
		"email", b.PatientEmail != "",
		"sms", b.PatientPhone != "",
	)
	return batch, nil
}

// CancelForAppointment voids all still-pending reminders of an appointment,
// used when its slot is released.
func (s *Scheduler) CancelForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error) {
	n, err := s.store.CancelForAppointment(ctx, tenantID, appointmentID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("reminders cancelled", "appointment_id", appointmentID, "count", n)
	}
	return n, nil
}
