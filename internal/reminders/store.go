package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const notificationColumns = `id, tenant_id, appointment_id, channel, recipient, body, scheduled_for, sent_at, status, retry_count, next_attempt_at, last_error, created_at, updated_at`

// Store provides persistence for reminder_notifications.
type Store struct {
	db DB
}

// NewStore creates a new reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// CreateBatch inserts all reminders of a booking.
func (s *Store) CreateBatch(ctx context.Context, batch []Notification) error {
	now := time.Now().UTC()
	for i := range batch {
		n := &batch[i]
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if n.Status == "" {
			n.Status = StatusPending
		}
		n.CreatedAt = now
		n.UpdatedAt = now
		_, err := s.db.Exec(ctx, `
			INSERT INTO reminder_notifications (id, tenant_id, appointment_id, channel, recipient, body, scheduled_for, status, retry_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			n.ID, n.TenantID, n.AppointmentID, string(n.Channel), n.Recipient, n.Body,
			n.ScheduledFor, string(n.Status), n.RetryCount, n.CreatedAt, n.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("reminders: insert notification: %w", err)
		}
	}
	return nil
}

// ListDue returns pending reminders whose scheduled time has passed and
// whose retry backoff (if any) has elapsed.
func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit, maxAttempts int) ([]Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM reminder_notifications
		WHERE status = 'pending' AND scheduled_for <= $1
			AND retry_count < $2
			AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
		ORDER BY scheduled_for ASC
		LIMIT $3`, asOf, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: list due: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// ListForAppointment returns all reminders of one appointment.
func (s *Store) ListForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) ([]Notification, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM reminder_notifications
		WHERE tenant_id = $1 AND appointment_id = $2
		ORDER BY scheduled_for ASC, channel ASC`, tenantID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("reminders: list for appointment: %w", err)
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkSent transitions a reminder from pending to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminder_notifications
		SET status = 'sent', sent_at = $1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, now, id)
	if err != nil {
		return fmt.Errorf("reminders: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("reminders: mark sent: no pending notification with id %s", id)
	}
	return nil
}

// RecordFailure bumps the retry count and schedules the next attempt; once
// attempts are exhausted the reminder flips to failed for the backfill job
// to inspect.
func (s *Store) RecordFailure(ctx context.Context, id uuid.UUID, cause string, nextAttempt time.Time, maxAttempts int) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `
		UPDATE reminder_notifications
		SET retry_count = retry_count + 1,
			last_error = $1,
			next_attempt_at = $2,
			status = CASE WHEN retry_count + 1 >= $3 THEN 'failed' ELSE status END,
			updated_at = $4
		WHERE id = $5 AND status = 'pending'`, cause, nextAttempt, maxAttempts, now, id)
	if err != nil {
		return fmt.Errorf("reminders: record failure: %w", err)
	}
	return nil
}

// CancelForAppointment voids all pending reminders for an appointment.
func (s *Store) CancelForAppointment(ctx context.Context, tenantID string, appointmentID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE reminder_notifications
		SET status = 'cancelled', updated_at = $1
		WHERE tenant_id = $2 AND appointment_id = $3 AND status = 'pending'`, now, tenantID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel for appointment: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotifications(rows pgx.Rows) ([]Notification, error) {
	var result []Notification
	for rows.Next() {
		var n Notification
		var channel, status string
		var lastError *string
		err := rows.Scan(
			&n.ID, &n.TenantID, &n.AppointmentID, &channel, &n.Recipient, &n.Body,
			&n.ScheduledFor, &n.SentAt, &status, &n.RetryCount, &n.NextAttemptAt,
			&lastError, &n.CreatedAt, &n.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan notification: %w", err)
		}
		n.Channel = Channel(channel)
		n.Status = Status(status)
		if lastError != nil {
			n.LastError = *lastError
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
