package scheduling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowiq/scheduling-platform/internal/tenancy"
)

func newTestRouter(h *Handler, tc tenancy.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(tenancy.WithTenant(req.Context(), tc)))
		})
	})
	r.Get("/calendar/slots", h.ListSlots)
	r.Get("/calendar/slots/{slotID}", h.GetSlot)
	r.Post("/calendar/slots/{slotID}/book", h.BookSlot)
	r.Post("/calendar/slots/{slotID}/release", h.ReleaseSlot)
	r.Post("/admin/providers/{providerID}/templates", h.CreateTemplate)
	r.Get("/admin/providers/{providerID}/templates", h.ListTemplates)
	r.Put("/admin/providers/{providerID}/templates/{templateID}", h.UpdateTemplate)
	r.Post("/admin/providers/{providerID}/slots/generate", h.GenerateSlots)
	return r
}

func handlerFixture(t *testing.T, providerID uuid.UUID) (*Handler, *memLedger, pgxmock.PgxPoolIface) {
	t.Helper()
	ledger := newMemLedger()
	dir := &memTemplates{templates: []ScheduleTemplate{
		mondayTemplate(providerID, "09:00", "12:00", 30, 10),
	}}
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	svc := NewService(dir, ledger, nil)
	h := NewHandler(HandlerConfig{
		Service:   svc,
		Templates: NewTemplateStore(mock),
	})
	return h, ledger, mock
}

func seedSlots(t *testing.T, h *Handler, router http.Handler, providerID uuid.UUID) []AvailabilitySlot {
	t.Helper()
	body := fmt.Sprintf(`{"from": %q, "to": %q}`,
		testMonday.Format("2006-01-02"), testMonday.Format("2006-01-02"))
	req := httptest.NewRequest(http.MethodPost,
		"/admin/providers/"+providerID.String()+"/slots/generate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	slots, err := h.service.ListAvailability(context.Background(), "midwest-dental-sleep",
		providerID, testMonday, testMonday.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.NotEmpty(t, slots)
	return slots
}

func TestHandlerGenerateAndListSlots(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())

	body := fmt.Sprintf(`{"from": %q, "to": %q}`,
		testMonday.Format("2006-01-02"), testMonday.Format("2006-01-02"))
	req := httptest.NewRequest(http.MethodPost,
		"/admin/providers/"+providerID.String()+"/slots/generate", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var genResp struct {
		SlotsInserted int `json:"slots_inserted"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &genResp))
	assert.Equal(t, 5, genResp.SlotsInserted)

	listReq := httptest.NewRequest(http.MethodGet,
		"/calendar/slots?provider_id="+providerID.String()+
			"&from="+testMonday.Format("2006-01-02")+
			"&to="+testMonday.Format("2006-01-02"), nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var listResp struct {
		Count int                `json:"count"`
		Slots []AvailabilitySlot `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &listResp))
	assert.Equal(t, 5, listResp.Count)
	assert.True(t, listResp.Slots[0].Available)
}

func TestHandlerListSlotsRejectsBadProvider(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())

	req := httptest.NewRequest(http.MethodGet, "/calendar/slots?provider_id=not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandlerBookThenConflict(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())
	slots := seedSlots(t, h, router, providerID)

	book := func(apptID uuid.UUID) *httptest.ResponseRecorder {
		payload := fmt.Sprintf(`{"appointment_id": %q, "patient_name": "Dana", "patient_email": "dana@example.com"}`, apptID)
		req := httptest.NewRequest(http.MethodPost,
			"/calendar/slots/"+slots[0].ID.String()+"/book", bytes.NewBufferString(payload))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	first := book(uuid.New())
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	var booked AvailabilitySlot
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &booked))
	assert.False(t, booked.Available)

	second := book(uuid.New())
	assert.Equal(t, http.StatusConflict, second.Code)
}

func TestHandlerBookUnknownSlot(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())

	payload := fmt.Sprintf(`{"appointment_id": %q, "patient_email": "dana@example.com"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost,
		"/calendar/slots/"+uuid.NewString()+"/book", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerBookMissingEmail(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())
	slots := seedSlots(t, h, router, providerID)

	payload := fmt.Sprintf(`{"appointment_id": %q}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost,
		"/calendar/slots/"+slots[0].ID.String()+"/book", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "patient_email", resp.Field)
}

func TestHandlerBookRequiresOnlineBookingFeature(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	tc := testTenant()
	tc.Features.OnlineBooking = false
	router := newTestRouter(h, tc)

	payload := fmt.Sprintf(`{"appointment_id": %q, "patient_email": "dana@example.com"}`, uuid.New())
	req := httptest.NewRequest(http.MethodPost,
		"/calendar/slots/"+uuid.NewString()+"/book", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandlerReleaseIsIdempotent(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())
	slots := seedSlots(t, h, router, providerID)

	payload := fmt.Sprintf(`{"appointment_id": %q, "patient_email": "dana@example.com"}`, uuid.New())
	bookReq := httptest.NewRequest(http.MethodPost,
		"/calendar/slots/"+slots[0].ID.String()+"/book", bytes.NewBufferString(payload))
	bookRec := httptest.NewRecorder()
	router.ServeHTTP(bookRec, bookReq)
	require.Equal(t, http.StatusOK, bookRec.Code)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost,
			"/calendar/slots/"+slots[0].ID.String()+"/release", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "release attempt %d", i+1)

		var slot AvailabilitySlot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slot))
		assert.True(t, slot.Available)
		assert.Nil(t, slot.AppointmentID)
	}
}

func TestHandlerCreateTemplate(t *testing.T) {
	providerID := uuid.New()
	h, _, mock := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("midwest-dental-sleep", providerID, int(time.Tuesday), uuid.Nil).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO schedule_templates").
		WithArgs(pgxmock.AnyArg(), "midwest-dental-sleep", providerID, int(time.Tuesday),
			"10:00", "16:00", 60, 0, true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	body := `{"weekday": 2, "start_time": "10:00", "end_time": "16:00", "slot_duration_mins": 60}`
	req := httptest.NewRequest(http.MethodPost,
		"/admin/providers/"+providerID.String()+"/templates", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tpl ScheduleTemplate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tpl))
	assert.Equal(t, time.Tuesday, tpl.Weekday)
	assert.True(t, tpl.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateTemplateInvalidWeekday(t *testing.T) {
	providerID := uuid.New()
	h, _, _ := handlerFixture(t, providerID)
	router := newTestRouter(h, testTenant())

	body := `{"weekday": 9, "start_time": "10:00", "end_time": "16:00", "slot_duration_mins": 60}`
	req := httptest.NewRequest(http.MethodPost,
		"/admin/providers/"+providerID.String()+"/templates", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
