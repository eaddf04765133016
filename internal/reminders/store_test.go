package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreMarkSentRequiresPendingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectExec("UPDATE reminder_notifications").
		WithArgs(pgxmock.AnyArg(), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewStore(mock).MarkSent(context.Background(), id)
	assert.Error(t, err, "already-cancelled reminders cannot be marked sent")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListForAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	apptID := uuid.New()
	now := time.Now().UTC()
	lastErr := "timeout"
	rows := pgxmock.NewRows(notificationCols).
		AddRow(uuid.New(), "midwest-dental-sleep", apptID, "email", "dana@example.com",
			"body", now.Add(-24*time.Hour), nil, "sent", 0, nil, nil, now, now).
		AddRow(uuid.New(), "midwest-dental-sleep", apptID, "sms", "+15551234567",
			"body", now.Add(-2*time.Hour), nil, "failed", 5, nil, &lastErr, now, now)

	mock.ExpectQuery("SELECT").
		WithArgs("midwest-dental-sleep", apptID).
		WillReturnRows(rows)

	got, err := NewStore(mock).ListForAppointment(context.Background(), "midwest-dental-sleep", apptID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, StatusSent, got[0].Status)
	assert.Equal(t, ChannelSMS, got[1].Channel)
	assert.Equal(t, "timeout", got[1].LastError)
	assert.NoError(t, mock.ExpectationsWereMet())
}
