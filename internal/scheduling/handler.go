package scheduling

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/flowiq/scheduling-platform/internal/tenancy"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

// HandlerConfig wires the HTTP surface for the scheduling service.
type HandlerConfig struct {
	Service   *Service
	Templates *TemplateStore
	// DefaultWindowDays bounds slot generation when the request omits a range.
	DefaultWindowDays int
	Logger            *logging.Logger
}

// Handler serves the calendar and admin scheduling endpoints.
type Handler struct {
	service    *Service
	templates  *TemplateStore
	windowDays int
	logger     *logging.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.DefaultWindowDays <= 0 {
		cfg.DefaultWindowDays = 30
	}
	return &Handler{
		service:    cfg.Service,
		templates:  cfg.Templates,
		windowDays: cfg.DefaultWindowDays,
		logger:     cfg.Logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError maps domain errors onto HTTP statuses: booking conflicts are
// 409, unknown slots 404, rejected input 422.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrSlotConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "slot is no longer available"})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: verr.Reason, Field: verr.Field})
	default:
		h.logger.Error("scheduling request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	if raw == "" {
		return uuid.Nil, &ValidationError{Field: name, Reason: "missing " + name}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{Field: name, Reason: name + " must be a UUID"}
	}
	return id, nil
}

func parseDateQuery(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &ValidationError{Field: name, Reason: name + " must be YYYY-MM-DD"}
	}
	return d, nil
}

// ListSlots handles GET /calendar/slots?provider_id=&from=&to=.
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	rawProvider := strings.TrimSpace(r.URL.Query().Get("provider_id"))
	providerID, err := uuid.Parse(rawProvider)
	if err != nil {
		h.writeError(w, &ValidationError{Field: "provider_id", Reason: "provider_id must be a UUID"})
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from, err := parseDateQuery(r, "from", today)
	if err != nil {
		h.writeError(w, err)
		return
	}
	to, err := parseDateQuery(r, "to", from.AddDate(0, 0, h.windowDays))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if to.Before(from) {
		h.writeError(w, &ValidationError{Field: "to", Reason: "to must not precede from"})
		return
	}

	slots, err := h.service.ListAvailability(ctx, tc.TenantID, providerID, from, to.AddDate(0, 0, 1))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id": providerID,
		"slots":       slots,
		"count":       len(slots),
	})
}

// GetSlot handles GET /calendar/slots/{slotID}.
func (h *Handler) GetSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	slotID, err := parseUUIDParam(r, "slotID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	slot, err := h.service.GetSlot(ctx, tc.TenantID, slotID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

type bookSlotRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientName   string    `json:"patient_name"`
	PatientEmail  string    `json:"patient_email"`
	PatientPhone  string    `json:"patient_phone"`
}

// BookSlot handles POST /calendar/slots/{slotID}/book. Exactly one caller
// wins a contested slot; losers get 409.
func (h *Handler) BookSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)
	if !tc.Features.OnlineBooking {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "online booking is not enabled for this clinic"})
		return
	}

	slotID, err := parseUUIDParam(r, "slotID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req bookSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ValidationError{Field: "body", Reason: "invalid JSON body"})
		return
	}

	slot, err := h.service.Book(ctx, tc, slotID, BookingRequest{
		AppointmentID: req.AppointmentID,
		PatientName:   strings.TrimSpace(req.PatientName),
		PatientEmail:  strings.TrimSpace(req.PatientEmail),
		PatientPhone:  strings.TrimSpace(req.PatientPhone),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

// ReleaseSlot handles POST /calendar/slots/{slotID}/release.
func (h *Handler) ReleaseSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	slotID, err := parseUUIDParam(r, "slotID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	slot, err := h.service.Release(ctx, tc, slotID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

type templateRequest struct {
	Weekday          int    `json:"weekday"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	SlotDurationMins int    `json:"slot_duration_mins"`
	BufferMins       int    `json:"buffer_mins"`
	Active           *bool  `json:"active"`
}

// CreateTemplate handles POST /admin/providers/{providerID}/templates.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	providerID, err := parseUUIDParam(r, "providerID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ValidationError{Field: "body", Reason: "invalid JSON body"})
		return
	}

	tpl := ScheduleTemplate{
		TenantID:         tc.TenantID,
		ProviderID:       providerID,
		Weekday:          time.Weekday(req.Weekday),
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		SlotDurationMins: req.SlotDurationMins,
		BufferMins:       req.BufferMins,
		Active:           true,
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}

	if err := h.templates.Create(ctx, &tpl); err != nil {
		h.writeError(w, err)
		return
	}
	h.logger.Info("schedule template created",
		"tenant_id", tc.TenantID, "provider_id", providerID,
		"template_id", tpl.ID, "weekday", tpl.Weekday.String())
	writeJSON(w, http.StatusCreated, tpl)
}

// UpdateTemplate handles PUT /admin/providers/{providerID}/templates/{templateID}.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	providerID, err := parseUUIDParam(r, "providerID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	templateID, err := parseUUIDParam(r, "templateID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, &ValidationError{Field: "body", Reason: "invalid JSON body"})
		return
	}

	tpl := ScheduleTemplate{
		ID:               templateID,
		TenantID:         tc.TenantID,
		ProviderID:       providerID,
		Weekday:          time.Weekday(req.Weekday),
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		SlotDurationMins: req.SlotDurationMins,
		BufferMins:       req.BufferMins,
		Active:           true,
	}
	if req.Active != nil {
		tpl.Active = *req.Active
	}

	if err := h.templates.Update(ctx, &tpl); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// ListTemplates handles GET /admin/providers/{providerID}/templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	providerID, err := parseUUIDParam(r, "providerID")
	if err != nil {
		h.writeError(w, err)
		return
	}
	templates, err := h.templates.ListForProvider(ctx, tc.TenantID, providerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id": providerID,
		"templates":   templates,
		"count":       len(templates),
	})
}

type generateSlotsRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// GenerateSlots handles POST /admin/providers/{providerID}/slots/generate.
// An empty body generates the default rolling window starting today.
func (h *Handler) GenerateSlots(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tc, _ := tenancy.FromContext(ctx)

	providerID, err := parseUUIDParam(r, "providerID")
	if err != nil {
		h.writeError(w, err)
		return
	}

	// Body is optional; only a malformed one is rejected.
	var req generateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, &ValidationError{Field: "body", Reason: "invalid JSON body"})
		return
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	from := today
	to := today.AddDate(0, 0, h.windowDays-1)
	if req.From != "" {
		if from, err = time.Parse("2006-01-02", req.From); err != nil {
			h.writeError(w, &ValidationError{Field: "from", Reason: "from must be YYYY-MM-DD"})
			return
		}
	}
	if req.To != "" {
		if to, err = time.Parse("2006-01-02", req.To); err != nil {
			h.writeError(w, &ValidationError{Field: "to", Reason: "to must be YYYY-MM-DD"})
			return
		}
	}

	inserted, err := h.service.GenerateWindow(ctx, tc.TenantID, providerID, from, to)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id":    providerID,
		"from":           from.Format("2006-01-02"),
		"to":             to.Format("2006-01-02"),
		"slots_inserted": inserted,
	})
}
