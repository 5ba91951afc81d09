package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/engine"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type BookingHandler struct {
	engine   *engine.Engine
	logger   *slog.Logger
	location *time.Location
	defaults model.Constraints
}

// NewBookingHandler serves the engine over HTTP. Dates without a time are read in location;
// defaults fill constraint fields a request leaves out.
func NewBookingHandler(e *engine.Engine, logger *slog.Logger, location *time.Location, defaults model.Constraints) *BookingHandler {
	if location == nil {
		location = time.UTC
	}
	return &BookingHandler{engine: e, logger: logger, location: location, defaults: defaults}
}

type constraintsRequest struct {
	BufferBeforeMinutes *int `json:"buffer_before_minutes"`
	BufferAfterMinutes  *int `json:"buffer_after_minutes"`
	MinAdvanceHours     *int `json:"min_advance_hours"`
	MaxAdvanceDays      *int `json:"max_advance_days"`
}

type createBookingRequest struct {
	MeetingID   string              `json:"meeting_id"`
	StartTime   string              `json:"start_time"`
	EndTime     string              `json:"end_time"`
	BookerName  string              `json:"booker_name"`
	BookerEmail string              `json:"booker_email"`
	Notes       string              `json:"notes"`
	Constraints *constraintsRequest `json:"constraints"`
}

type transitionRequest struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type bookingItem struct {
	BookingID       string `json:"booking_id"`
	MeetingID       string `json:"meeting_id"`
	BookerName      string `json:"booker_name"`
	BookerEmail     string `json:"booker_email,omitempty"`
	Notes           string `json:"notes,omitempty"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
	ExternalEventID string `json:"external_event_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	StatusChangedAt string `json:"status_changed_at,omitempty"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	meetingID := strings.TrimSpace(q.Get("meeting_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if meetingID == "" || dateStr == "" {
		http.Error(w, "meeting_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, dateStr, h.location)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	c := h.defaults
	for _, p := range []struct {
		key string
		dst *int
	}{
		{"buffer_before_minutes", &c.BufferBeforeMinutes},
		{"buffer_after_minutes", &c.BufferAfterMinutes},
		{"min_advance_hours", &c.MinAdvanceHours},
		{"max_advance_days", &c.MaxAdvanceDays},
	} {
		raw := strings.TrimSpace(q.Get(p.key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid "+p.key, http.StatusBadRequest)
			return
		}
		*p.dst = v
	}

	slots, err := h.engine.GenerateSlots(r.Context(), meetingID, date, c)
	if err != nil {
		h.writeError(w, "generate slots", err)
		return
	}

	resp := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		resp = append(resp, slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.MeetingID = strings.TrimSpace(req.MeetingID)
	req.BookerName = strings.TrimSpace(req.BookerName)
	if req.MeetingID == "" || req.BookerName == "" {
		http.Error(w, "meeting_id and booker_name are required", http.StatusBadRequest)
		return
	}

	startTime, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		http.Error(w, "invalid end_time", http.StatusBadRequest)
		return
	}

	booker := model.Booker{
		Name:  req.BookerName,
		Email: strings.TrimSpace(req.BookerEmail),
		Notes: strings.TrimSpace(req.Notes),
	}
	slot := model.Slot{Start: startTime.In(h.location), End: endTime.In(h.location)}
	booking, err := h.engine.CommitBooking(r.Context(), req.MeetingID, slot, booker, h.constraints(req.Constraints))
	if err != nil {
		h.writeError(w, "commit booking", err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingItem(booking))
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	if req.BookingID == "" {
		http.Error(w, "booking_id required", http.StatusBadRequest)
		return
	}
	status, err := model.ParseStatus(strings.TrimSpace(req.Status))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, err := h.engine.TransitionBooking(r.Context(), req.BookingID, status)
	if err != nil {
		h.writeError(w, "transition booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(booking))
}

// Get serves GET /api/v1/bookings/{id}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		http.Error(w, "booking id required", http.StatusBadRequest)
		return
	}
	booking, err := h.engine.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, "get booking", err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingItem(booking))
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	meetingID := strings.TrimSpace(r.URL.Query().Get("meeting_id"))
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if meetingID == "" || dateStr == "" {
		http.Error(w, "meeting_id and date are required", http.StatusBadRequest)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, dateStr, h.location)
	if err != nil {
		http.Error(w, "invalid date (expected YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	bookings, err := h.engine.ListBookings(r.Context(), meetingID, date)
	if err != nil {
		h.writeError(w, "list bookings", err)
		return
	}
	resp := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		resp = append(resp, toBookingItem(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) constraints(req *constraintsRequest) model.Constraints {
	c := h.defaults
	if req == nil {
		return c
	}
	if req.BufferBeforeMinutes != nil {
		c.BufferBeforeMinutes = *req.BufferBeforeMinutes
	}
	if req.BufferAfterMinutes != nil {
		c.BufferAfterMinutes = *req.BufferAfterMinutes
	}
	if req.MinAdvanceHours != nil {
		c.MinAdvanceHours = *req.MinAdvanceHours
	}
	if req.MaxAdvanceDays != nil {
		c.MaxAdvanceDays = *req.MaxAdvanceDays
	}
	return c
}

func (h *BookingHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case storage.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, engine.ErrSlotNoLongerAvailable):
		http.Error(w, "slot no longer available", http.StatusConflict)
	case errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, "booking cannot make this transition", http.StatusConflict)
	case errors.Is(err, engine.ErrOutsideAvailability):
		http.Error(w, "requested time is outside availability", http.StatusUnprocessableEntity)
	case errors.Is(err, engine.ErrInvalidSlot):
		http.Error(w, "slot does not match the meeting duration", http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrInvalidConstraints):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, availability.ErrInvalidWindow):
		h.logger.Error("meeting definition is invalid", "op", op, "err", err)
		http.Error(w, "meeting definition is invalid", http.StatusUnprocessableEntity)
	default:
		h.logger.Error(op+" failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		BookingID:       b.ID,
		MeetingID:       b.MeetingID,
		BookerName:      b.Booker.Name,
		BookerEmail:     b.Booker.Email,
		Notes:           b.Booker.Notes,
		StartTime:       b.StartTime.UTC().Format(time.RFC3339),
		EndTime:         b.EndTime.UTC().Format(time.RFC3339),
		Status:          string(b.Status),
		ExternalEventID: b.ExternalEventID,
		CreatedAt:       b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.StatusChangedAt != nil {
		item.StatusChangedAt = b.StatusChangedAt.UTC().Format(time.RFC3339)
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
