package scheduling

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-09-07 is a Monday.
var testMonday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

func mondayTemplate(providerID uuid.UUID, start, end string, duration, buffer int) ScheduleTemplate {
	return ScheduleTemplate{
		ID:               uuid.New(),
		TenantID:         "midwest-dental-sleep",
		ProviderID:       providerID,
		Weekday:          time.Monday,
		StartTime:        start,
		EndTime:          end,
		SlotDurationMins: duration,
		BufferMins:       buffer,
		Active:           true,
	}
}

func TestGenerateMondayWithBuffer(t *testing.T) {
	providerID := uuid.New()
	tpl := mondayTemplate(providerID, "09:00", "12:00", 30, 10)

	slots, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday)
	require.NoError(t, err)
	require.Len(t, slots, 5)

	wantStarts := []string{"09:00", "09:40", "10:20", "11:00", "11:40"}
	for i, slot := range slots {
		assert.Equal(t, wantStarts[i], slot.StartTime.Format("15:04"))
		assert.Equal(t, 30*time.Minute, slot.EndTime.Sub(slot.StartTime))
		assert.True(t, slot.Available)
		assert.Nil(t, slot.AppointmentID)
		assert.Equal(t, providerID, slot.ProviderID)
	}
}

func TestGenerateCutoffDropsPartialFit(t *testing.T) {
	providerID := uuid.New()
	// 09:00-09:50 with 30-minute slots: the 09:30-10:00 slot would
	// overrun 09:50 and must not be emitted.
	tpl := mondayTemplate(providerID, "09:00", "09:50", 30, 0)

	slots, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "09:00", slots[0].StartTime.Format("15:04"))
	assert.Equal(t, "09:30", slots[0].EndTime.Format("15:04"))
}

func TestGenerateNonOverlap(t *testing.T) {
	providerID := uuid.New()
	templates := []ScheduleTemplate{
		mondayTemplate(providerID, "08:00", "17:00", 45, 0),
	}
	tue := templates[0]
	tue.ID = uuid.New()
	tue.Weekday = time.Tuesday
	tue.SlotDurationMins = 20
	tue.BufferMins = 5
	templates = append(templates, tue)

	slots, err := GenerateSlots(templates, providerID, testMonday, testMonday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.NotEmpty(t, slots)

	byDate := map[string][]AvailabilitySlot{}
	for _, s := range slots {
		key := s.Date.Format(time.DateOnly)
		byDate[key] = append(byDate[key], s)
	}
	for date, daySlots := range byDate {
		for i := 0; i < len(daySlots); i++ {
			for j := i + 1; j < len(daySlots); j++ {
				a, b := daySlots[i], daySlots[j]
				overlap := a.StartTime.Before(b.EndTime) && b.StartTime.Before(a.EndTime)
				assert.False(t, overlap, "overlapping slots on %s: %v and %v", date, a.StartTime, b.StartTime)
			}
		}
	}
}

func TestGenerateSkipsDaysWithoutTemplate(t *testing.T) {
	providerID := uuid.New()
	tpl := mondayTemplate(providerID, "09:00", "10:00", 30, 0)

	// A full week starting Monday: only Monday contributes.
	slots, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	for _, s := range slots {
		assert.Equal(t, time.Monday, s.Date.Weekday())
	}
}

func TestGenerateIgnoresInactiveAndForeignTemplates(t *testing.T) {
	providerID := uuid.New()
	inactive := mondayTemplate(providerID, "09:00", "10:00", 30, 0)
	inactive.Active = false
	foreign := mondayTemplate(uuid.New(), "09:00", "10:00", 30, 0)

	slots, err := GenerateSlots([]ScheduleTemplate{inactive, foreign}, providerID, testMonday, testMonday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGenerateMultiDayRangeInclusive(t *testing.T) {
	providerID := uuid.New()
	tpl := mondayTemplate(providerID, "09:00", "10:00", 60, 0)

	// Range ending on the following Monday includes both Mondays.
	slots, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday.AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestGenerateRejectsInvalidTemplates(t *testing.T) {
	providerID := uuid.New()

	cases := []struct {
		name  string
		mut   func(*ScheduleTemplate)
		field string
	}{
		{"start after end", func(t *ScheduleTemplate) { t.StartTime, t.EndTime = "12:00", "09:00" }, "start_time"},
		{"start equals end", func(t *ScheduleTemplate) { t.StartTime, t.EndTime = "09:00", "09:00" }, "start_time"},
		{"zero duration", func(t *ScheduleTemplate) { t.SlotDurationMins = 0 }, "slot_duration_mins"},
		{"negative buffer", func(t *ScheduleTemplate) { t.BufferMins = -1 }, "buffer_mins"},
		{"garbage start", func(t *ScheduleTemplate) { t.StartTime = "morning" }, "start_time"},
		{"out of range", func(t *ScheduleTemplate) { t.StartTime = "25:00" }, "start_time"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tpl := mondayTemplate(providerID, "09:00", "12:00", 30, 0)
			tc.mut(&tpl)
			_, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday)
			require.Error(t, err)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestGenerateRejectsInvertedRange(t *testing.T) {
	providerID := uuid.New()
	tpl := mondayTemplate(providerID, "09:00", "12:00", 30, 0)

	_, err := GenerateSlots([]ScheduleTemplate{tpl}, providerID, testMonday, testMonday.AddDate(0, 0, -1))
	assert.True(t, IsValidation(err))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("09:40")
	require.NoError(t, err)
	assert.Equal(t, "09:40", tod.String())

	anchored := tod.At(testMonday)
	assert.Equal(t, 9, anchored.Hour())
	assert.Equal(t, 40, anchored.Minute())

	_, err = ParseTimeOfDay("9am")
	assert.Error(t, err)
}
