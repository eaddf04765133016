package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const slotColumns = `id, tenant_id, provider_id, date, start_time, end_time, is_available, appointment_id, created_at, updated_at`

// SlotStore is the availability ledger: the only writer of slot booking
// state. Book is a conditional update so two racing callers resolve to
// exactly one winner at the database, not in Go.
type SlotStore struct {
	db DB
}

// NewSlotStore creates a new slot store.
func NewSlotStore(db DB) *SlotStore {
	return &SlotStore{db: db}
}

// BulkInsert persists generated slots, skipping any that already exist for
// the same provider/date/start. Returns the number actually inserted, which
// makes overlapping generation runs harmless.
func (s *SlotStore) BulkInsert(ctx context.Context, slots []AvailabilitySlot) (int, error) {
	inserted := 0
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == uuid.Nil {
			slot.ID = uuid.New()
		}
		tag, err := s.db.Exec(ctx, `
			INSERT INTO availability_slots (id, tenant_id, provider_id, date, start_time, end_time, is_available, appointment_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NULL, $8, $8)
			ON CONFLICT (provider_id, date, start_time) DO NOTHING`,
			slot.ID, slot.TenantID, slot.ProviderID, slot.Date, slot.StartTime, slot.EndTime, slot.Available, now,
		)
		if err != nil {
			return inserted, fmt.Errorf("scheduling: insert slot: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// Get loads one slot scoped to a tenant.
func (s *SlotStore) Get(ctx context.Context, tenantID string, slotID uuid.UUID) (*AvailabilitySlot, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1 AND tenant_id = $2`, slotID, tenantID)
	slot, err := scanSlot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduling: get slot: %w", err)
	}
	return slot, nil
}

// ListForProvider returns a provider's slots whose start falls in [from, to).
func (s *SlotStore) ListForProvider(ctx context.Context, tenantID string, providerID uuid.UUID, from, to time.Time) ([]AvailabilitySlot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE tenant_id = $1 AND provider_id = $2 AND start_time >= $3 AND start_time < $4
		ORDER BY start_time ASC`, tenantID, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: list slots: %w", err)
	}
	defer rows.Close()

	var result []AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan slot: %w", err)
		}
		result = append(result, *slot)
	}
	return result, rows.Err()
}

// Book transitions a slot from available to booked, binding the appointment
// id. The update is conditional on is_available so concurrent bookings of
// the same slot produce exactly one success; the loser gets ErrSlotConflict.
func (s *SlotStore) Book(ctx context.Context, tenantID string, slotID, appointmentID uuid.UUID) (*AvailabilitySlot, error) {
	if appointmentID == uuid.Nil {
		return nil, &ValidationError{Field: "appointment_id", Reason: "is required"}
	}
	row := s.db.QueryRow(ctx, `
		UPDATE availability_slots
		SET is_available = false, appointment_id = $1, updated_at = now()
		WHERE id = $2 AND tenant_id = $3 AND is_available
		RETURNING `+slotColumns, appointmentID, slotID, tenantID)
	slot, err := scanSlot(row)
	if err == nil {
		return slot, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("scheduling: book slot: %w", err)
	}
	// No row updated: distinguish "already booked" from "does not exist".
	if _, getErr := s.Get(ctx, tenantID, slotID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrSlotConflict
}

// Release returns a slot to available, clearing its appointment binding.
// Releasing an already-available slot is a no-op success; only a missing
// slot is an error. The previously bound appointment id (nil when the slot
// was already free) is returned so callers can cancel its reminders.
func (s *SlotStore) Release(ctx context.Context, tenantID string, slotID uuid.UUID) (*AvailabilitySlot, *uuid.UUID, error) {
	// The self-join exposes the pre-update row so the released appointment
	// id survives the UPDATE.
	row := s.db.QueryRow(ctx, `
		UPDATE availability_slots s
		SET is_available = true, appointment_id = NULL, updated_at = now()
		FROM availability_slots prev
		WHERE s.id = $1 AND s.tenant_id = $2 AND prev.id = s.id
		RETURNING s.id, s.tenant_id, s.provider_id, s.date, s.start_time, s.end_time,
			s.is_available, s.appointment_id, s.created_at, s.updated_at, prev.appointment_id`, slotID, tenantID)

	var slot AvailabilitySlot
	var released *uuid.UUID
	err := row.Scan(
		&slot.ID, &slot.TenantID, &slot.ProviderID, &slot.Date,
		&slot.StartTime, &slot.EndTime, &slot.Available, &slot.AppointmentID,
		&slot.CreatedAt, &slot.UpdatedAt, &released,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("scheduling: release slot: %w", err)
	}
	return &slot, released, nil
}

func scanSlot(row pgx.Row) (*AvailabilitySlot, error) {
	var slot AvailabilitySlot
	err := row.Scan(
		&slot.ID, &slot.TenantID, &slot.ProviderID, &slot.Date,
		&slot.StartTime, &slot.EndTime, &slot.Available, &slot.AppointmentID,
		&slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}
