package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/flowiq/scheduling-platform/internal/observability/metrics"
	"github.com/flowiq/scheduling-platform/internal/realtime"
	"github.com/flowiq/scheduling-platform/internal/reminders"
	"github.com/flowiq/scheduling-platform/internal/tenancy"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("flowiq.internal.scheduling")

// TemplateDirectory is the template read surface the service consumes.
type TemplateDirectory interface {
	ListActiveForProvider(ctx context.Context, tenantID string, providerID uuid.UUID) ([]ScheduleTemplate, error)
}

// SlotLedger is the slot mutation surface; *SlotStore implements it.
type SlotLedger interface {
	BulkInsert(ctx context.Context, slots []AvailabilitySlot) (int, error)
	Get(ctx context.Context, tenantID string, slotID uuid.UUID) (*AvailabilitySlot, error)
	ListForProvider(ctx context.Context, tenantID string, providerID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error)
	Book(ctx context.Context, tenantID string, slotID, appointmentID uuid.UUID) (*AvailabilitySlot, error)
	Release(ctx context.Context, tenantID string, slotID uuid.UUID) (*AvailabilitySlot, *uuid.UUID, error)
}

// ReminderPlanner schedules and cancels reminder batches.
type ReminderPlanner interface {
	ScheduleForBooking(ctx context.Context, b reminders.Booking) ([]reminders.Notification, error)
	CancelForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error)
}

// ChangeFeed broadcasts slot mutations to calendar subscribers.
type ChangeFeed interface {
	PublishSlotChange(ctx context.Context, ev realtime.SlotEvent)
}

// Service ties generation, the ledger, reminders and the change feed into
// the booking flows the API exposes.
type Service struct {
	templates TemplateDirectory
	slots     SlotLedger
	reminders ReminderPlanner
	feed      ChangeFeed
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// NewService constructs a scheduling service. Reminders, feed and metrics
// are optional.
func NewService(templates TemplateDirectory, slots SlotLedger, logger *logging.Logger) *Service {
	if templates == nil || slots == nil {
		panic("scheduling: template directory and slot ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		templates: templates,
		slots:     slots,
		logger:    logger.Component("scheduling"),
	}
}

func (s *Service) WithReminders(r ReminderPlanner) *Service {
	s.reminders = r
	return s
}

func (s *Service) WithChangeFeed(feed ChangeFeed) *Service {
	s.feed = feed
	return s
}

func (s *Service) WithMetrics(m *metrics.SchedulingMetrics) *Service {
	s.metrics = m
	return s
}

// GenerateWindow expands a provider's active templates over [from, to] and
// persists the result. Re-running over an overlapping window only inserts
// the slots that did not exist yet.
func (s *Service) GenerateWindow(ctx context.Context, tenantID string, providerID uuid.UUID, from, to time.Time) (int, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.generate_window")
	defer span.End()
	span.SetAttributes(
		attribute.String("flowiq.tenant_id", tenantID),
		attribute.String("flowiq.provider_id", providerID.String()),
	)

	templates, err := s.templates.ListActiveForProvider(ctx, tenantID, providerID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	slots, err := GenerateSlots(templates, providerID, from, to)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	if len(slots) == 0 {
		return 0, nil
	}
	inserted, err := s.slots.BulkInsert(ctx, slots)
	if err != nil {
		span.RecordError(err)
		return inserted, err
	}
	s.metrics.ObserveSlotsGenerated(tenantID, inserted)
	if inserted > 0 && s.feed != nil {
		ev := realtime.NewSlotEvent(realtime.EventSlotsGenerated, tenantID, providerID)
		ev.SlotCount = inserted
		s.feed.PublishSlotChange(ctx, ev)
	}
	s.logger.Info("slots generated",
		"tenant_id", tenantID, "provider_id", providerID,
		"from", from.Format(time.DateOnly), "to", to.Format(time.DateOnly),
		"candidates", len(slots), "inserted", inserted,
	)
	return inserted, nil
}

// ListAvailability returns a provider's slots whose start falls in [from, to).
func (s *Service) ListAvailability(ctx context.Context, tenantID string, providerID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	return s.slots.ListForProvider(ctx, tenantID, providerID, from, to)
}

// BookingRequest carries the appointment facts for a booking.
type BookingRequest struct {
	AppointmentID uuid.UUID
	PatientName   string
	PatientEmail  string
	PatientPhone  string
}

// Book atomically claims the slot, then schedules reminders. The two steps
// are deliberately not a transaction: a held slot is the user-visible
// outcome, so a reminder failure degrades to "none scheduled" and is left
// to the backfill job rather than rolling the booking back.
func (s *Service) Book(ctx context.Context, tc tenancy.Context, slotID uuid.UUID, req BookingRequest) (*AvailabilitySlot, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("flowiq.tenant_id", tc.TenantID),
		attribute.String("flowiq.slot_id", slotID.String()),
	)

	if req.AppointmentID == uuid.Nil {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}
	if req.PatientEmail == "" {
		return nil, &ValidationError{Field: "patient_email", Reason: "is required"}
	}

	start := time.Now()
	slot, err := s.slots.Book(ctx, tc.TenantID, slotID, req.AppointmentID)
	s.metrics.ObserveBookingLatency("book", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("book", bookingOutcome(err))
		return nil, err
	}
	s.metrics.ObserveBooking("book", "ok")

	if s.feed != nil {
		ev := realtime.NewSlotEvent(realtime.EventSlotBooked, tc.TenantID, slot.ProviderID)
		ev.SlotID = slot.ID
		ev.AppointmentID = slot.AppointmentID
		s.feed.PublishSlotChange(ctx, ev)
	}

	// Each reminder channel is gated by its own feature flag; a blanked
	// recipient drops that channel from the batch.
	email := req.PatientEmail
	if !tc.Features.EmailReminders {
		email = ""
	}
	phone := req.PatientPhone
	if !tc.Features.SMSReminders {
		phone = ""
	}
	if s.reminders != nil && (email != "" || phone != "") {
		_, err := s.reminders.ScheduleForBooking(ctx, reminders.Booking{
			TenantID:        tc.TenantID,
			AppointmentID:   req.AppointmentID,
			AppointmentTime: slot.StartTime,
			PatientName:     req.PatientName,
			PatientEmail:    email,
			PatientPhone:    phone,
			ClinicName:      tc.Branding.DisplayName,
		})
		if err != nil {
			// Accepted partial failure: the slot stays booked.
			s.logger.Error("reminder scheduling failed after booking",
				"slot_id", slot.ID, "appointment_id", req.AppointmentID, "error", err)
		}
	}

	s.logger.Info("slot booked",
		"tenant_id", tc.TenantID, "slot_id", slot.ID,
		"appointment_id", req.AppointmentID, "start", slot.StartTime,
	)
	return slot, nil
}

// Release returns a slot to the pool and cancels the released appointment's
// pending reminders. Releasing an already-available slot succeeds without
// side effects.
func (s *Service) Release(ctx context.Context, tc tenancy.Context, slotID uuid.UUID) (*AvailabilitySlot, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.release")
	defer span.End()
	span.SetAttributes(
		attribute.String("flowiq.tenant_id", tc.TenantID),
		attribute.String("flowiq.slot_id", slotID.String()),
	)

	start := time.Now()
	slot, released, err := s.slots.Release(ctx, tc.TenantID, slotID)
	s.metrics.ObserveBookingLatency("release", time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		s.metrics.ObserveBooking("release", bookingOutcome(err))
		return nil, err
	}
	s.metrics.ObserveBooking("release", "ok")

	if released == nil {
		// Idempotent no-op: nothing was bound, nothing to announce.
		return slot, nil
	}

	if s.feed != nil {
		ev := realtime.NewSlotEvent(realtime.EventSlotReleased, tc.TenantID, slot.ProviderID)
		ev.SlotID = slot.ID
		ev.AppointmentID = released
		s.feed.PublishSlotChange(ctx, ev)
	}
	if s.reminders != nil {
		if _, err := s.reminders.CancelForAppointment(ctx, tc.TenantID, *released); err != nil {
			s.logger.Error("reminder cancellation failed after release",
				"slot_id", slot.ID, "appointment_id", *released, "error", err)
		}
	}

	s.logger.Info("slot released",
		"tenant_id", tc.TenantID, "slot_id", slot.ID, "appointment_id", *released)
	return slot, nil
}

func bookingOutcome(err error) string {
	switch {
	case errors.Is(err, ErrSlotConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

// GetSlot loads one slot for display.
func (s *Service) GetSlot(ctx context.Context, tenantID string, slotID uuid.UUID) (*AvailabilitySlot, error) {
	slot, err := s.slots.Get(ctx, tenantID, slotID)
	if err != nil {
		return nil, err
	}
	return slot, nil
}
