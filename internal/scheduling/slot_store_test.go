package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotCols = []string{
	"id", "tenant_id", "provider_id", "date", "start_time", "end_time",
	"is_available", "appointment_id", "created_at", "updated_at",
}

func newSlotMock(t *testing.T) (pgxmock.PgxPoolIface, *SlotStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewSlotStore(mock)
}

func sampleSlot(providerID uuid.UUID, start time.Time) AvailabilitySlot {
	return AvailabilitySlot{
		ID:         uuid.New(),
		TenantID:   "midwest-dental-sleep",
		ProviderID: providerID,
		Date:       start.Truncate(24 * time.Hour),
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
		Available:  true,
	}
}

func TestSlotStoreBulkInsertSkipsExisting(t *testing.T) {
	mock, store := newSlotMock(t)
	providerID := uuid.New()
	first := sampleSlot(providerID, testMonday.Add(9*time.Hour))
	second := sampleSlot(providerID, testMonday.Add(10*time.Hour))

	mock.ExpectExec("INSERT INTO availability_slots").
		WithArgs(first.ID, first.TenantID, providerID, first.Date, first.StartTime, first.EndTime, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// Second slot hits ON CONFLICT DO NOTHING.
	mock.ExpectExec("INSERT INTO availability_slots").
		WithArgs(second.ID, second.TenantID, providerID, second.Date, second.StartTime, second.EndTime, true, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := store.BulkInsert(context.Background(), []AvailabilitySlot{first, second})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreBookWinner(t *testing.T) {
	mock, store := newSlotMock(t)
	providerID := uuid.New()
	slot := sampleSlot(providerID, testMonday.Add(9*time.Hour))
	apptID := uuid.New()
	now := time.Now().UTC()

	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(apptID, slot.ID, slot.TenantID).
		WillReturnRows(pgxmock.NewRows(slotCols).
			AddRow(slot.ID, slot.TenantID, providerID, slot.Date, slot.StartTime, slot.EndTime, false, &apptID, now, now))

	booked, err := store.Book(context.Background(), slot.TenantID, slot.ID, apptID)
	require.NoError(t, err)
	assert.False(t, booked.Available)
	require.NotNil(t, booked.AppointmentID)
	assert.Equal(t, apptID, *booked.AppointmentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreBookConflict(t *testing.T) {
	mock, store := newSlotMock(t)
	providerID := uuid.New()
	slot := sampleSlot(providerID, testMonday.Add(9*time.Hour))
	existingAppt := uuid.New()
	apptID := uuid.New()
	now := time.Now().UTC()

	// Conditional update touches nothing: the slot is already booked.
	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(apptID, slot.ID, slot.TenantID).
		WillReturnRows(pgxmock.NewRows(slotCols))
	mock.ExpectQuery("SELECT").
		WithArgs(slot.ID, slot.TenantID).
		WillReturnRows(pgxmock.NewRows(slotCols).
			AddRow(slot.ID, slot.TenantID, providerID, slot.Date, slot.StartTime, slot.EndTime, false, &existingAppt, now, now))

	_, err := store.Book(context.Background(), slot.TenantID, slot.ID, apptID)
	assert.ErrorIs(t, err, ErrSlotConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreBookMissingSlot(t *testing.T) {
	mock, store := newSlotMock(t)
	slotID := uuid.New()
	apptID := uuid.New()

	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(apptID, slotID, "midwest-dental-sleep").
		WillReturnRows(pgxmock.NewRows(slotCols))
	mock.ExpectQuery("SELECT").
		WithArgs(slotID, "midwest-dental-sleep").
		WillReturnRows(pgxmock.NewRows(slotCols))

	_, err := store.Book(context.Background(), "midwest-dental-sleep", slotID, apptID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreBookRequiresAppointmentID(t *testing.T) {
	_, store := newSlotMock(t)
	_, err := store.Book(context.Background(), "midwest-dental-sleep", uuid.New(), uuid.Nil)
	assert.True(t, IsValidation(err))
}

func TestSlotStoreReleaseReturnsPriorAppointment(t *testing.T) {
	mock, store := newSlotMock(t)
	providerID := uuid.New()
	slot := sampleSlot(providerID, testMonday.Add(9*time.Hour))
	priorAppt := uuid.New()
	now := time.Now().UTC()

	cols := append(append([]string{}, slotCols...), "prev_appointment_id")
	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(slot.ID, slot.TenantID).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(slot.ID, slot.TenantID, providerID, slot.Date, slot.StartTime, slot.EndTime, true, nil, now, now, &priorAppt))

	released, prior, err := store.Release(context.Background(), slot.TenantID, slot.ID)
	require.NoError(t, err)
	assert.True(t, released.Available)
	assert.Nil(t, released.AppointmentID)
	require.NotNil(t, prior)
	assert.Equal(t, priorAppt, *prior)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreReleaseAlreadyAvailable(t *testing.T) {
	mock, store := newSlotMock(t)
	providerID := uuid.New()
	slot := sampleSlot(providerID, testMonday.Add(9*time.Hour))
	now := time.Now().UTC()

	cols := append(append([]string{}, slotCols...), "prev_appointment_id")
	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(slot.ID, slot.TenantID).
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow(slot.ID, slot.TenantID, providerID, slot.Date, slot.StartTime, slot.EndTime, true, nil, now, now, nil))

	released, prior, err := store.Release(context.Background(), slot.TenantID, slot.ID)
	require.NoError(t, err)
	assert.True(t, released.Available)
	assert.Nil(t, prior, "no appointment was bound")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreReleaseNotFound(t *testing.T) {
	mock, store := newSlotMock(t)
	slotID := uuid.New()

	cols := append(append([]string{}, slotCols...), "prev_appointment_id")
	mock.ExpectQuery("UPDATE availability_slots").
		WithArgs(slotID, "midwest-dental-sleep").
		WillReturnRows(pgxmock.NewRows(cols))

	_, _, err := store.Release(context.Background(), "midwest-dental-sleep", slotID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSlotStoreGetNotFound(t *testing.T) {
	mock, store := newSlotMock(t)
	slotID := uuid.New()

	mock.ExpectQuery("SELECT").
		WithArgs(slotID, "midwest-dental-sleep").
		WillReturnRows(pgxmock.NewRows(slotCols))

	_, err := store.Get(context.Background(), "midwest-dental-sleep", slotID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
