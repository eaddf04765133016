package scheduling

import (
	"context"
	"errors"
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

// TemplateStore provides CRUD operations for schedule_templates.
type TemplateStore struct {
	db DB
}

// NewTemplateStore creates a new template store.
func NewTemplateStore(db DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Create inserts a new template after validating it. At most one active
// template may exist per provider/weekday; a second is rejected here (and
// raced inserts are caught by the partial unique index).
func (s *TemplateStore) Create(ctx context.Context, t *ScheduleTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if t.Active {
		dup, err := s.hasActiveTemplate(ctx, t.TenantID, t.ProviderID, t.Weekday, uuid.Nil)
		if err != nil {
			return err
		}
		if dup {
			return &ValidationError{Field: "weekday", Reason: "an active template already exists for this provider and weekday"}
		}
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO schedule_templates (id, tenant_id, provider_id, weekday, start_time, end_time, slot_duration_mins, buffer_mins, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TenantID, t.ProviderID, int(t.Weekday), t.StartTime, t.EndTime,
		t.SlotDurationMins, t.BufferMins, t.Active, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &ValidationError{Field: "weekday", Reason: "an active template already exists for this provider and weekday"}
		}
		return fmt.Errorf("scheduling: create template: %w", err)
	}
	return nil
}

// Update rewrites a template's rule fields. The same duplicate-active check
// applies when activating.
func (s *TemplateStore) Update(ctx context.Context, t *ScheduleTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t.Active {
		dup, err := s.hasActiveTemplate(ctx, t.TenantID, t.ProviderID, t.Weekday, t.ID)
		if err != nil {
			return err
		}
		if dup {
			return &ValidationError{Field: "weekday", Reason: "an active template already exists for this provider and weekday"}
		}
	}
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE schedule_templates
		SET weekday = $1, start_time = $2, end_time = $3, slot_duration_mins = $4, buffer_mins = $5, active = $6, updated_at = $7
		WHERE id = $8 AND tenant_id = $9`,
		int(t.Weekday), t.StartTime, t.EndTime, t.SlotDurationMins, t.BufferMins, t.Active, now, t.ID, t.TenantID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &ValidationError{Field: "weekday", Reason: "an active template already exists for this provider and weekday"}
		}
		return fmt.Errorf("scheduling: update template: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	t.UpdatedAt = now
	return nil
}

// ListForProvider returns a provider's templates, active ones first.
func (s *TemplateStore) ListForProvider(ctx context.Context, tenantID string, providerID uuid.UUID) ([]ScheduleTemplate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, provider_id, weekday, start_time, end_time, slot_duration_mins, buffer_mins, active, created_at, updated_at
		FROM schedule_templates
		WHERE tenant_id = $1 AND provider_id = $2
		ORDER BY active DESC, weekday ASC, start_time ASC`, tenantID, providerID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list templates: %w", err)
	}
	defer rows.Close()
	return scanTemplates(rows)
}

// ListActiveForProvider returns only the templates the generator consumes.
func (s *TemplateStore) ListActiveForProvider(ctx context.Context, tenantID string, providerID uuid.UUID) ([]ScheduleTemplate, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id, provider_id, weekday, start_time, end_time, slot_duration_mins, buffer_mins, active, created_at, updated_at
		FROM schedule_templates
		WHERE tenant_id = $1 AND provider_id = $2 AND active
		ORDER BY weekday ASC, start_time ASC`, tenantID, providerID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list active templates: %w", err)
	}
	defer rows.Close()
	return scanTemplates(rows)
}

func (s *TemplateStore) hasActiveTemplate(ctx context.Context, tenantID string, providerID uuid.UUID, weekday time.Weekday, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM schedule_templates
			WHERE tenant_id = $1 AND provider_id = $2 AND weekday = $3 AND active AND id <> $4
		)`, tenantID, providerID, int(weekday), excludeID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("scheduling: check duplicate template: %w", err)
	}
	return exists, nil
}

func scanTemplates(rows pgx.Rows) ([]ScheduleTemplate, error) {
	var result []ScheduleTemplate
	for rows.Next() {
		var t ScheduleTemplate
		var weekday int
		err := rows.Scan(
			&t.ID, &t.TenantID, &t.ProviderID, &weekday, &t.StartTime, &t.EndTime,
			&t.SlotDurationMins, &t.BufferMins, &t.Active, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan template: %w", err)
		}
		t.Weekday = time.Weekday(weekday)
		result = append(result, t)
	}
	return result, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
