package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/http/middleware"
	"github.com/lawlink/lawlink-api/internal/http/response"
	"github.com/lawlink/lawlink-api/internal/service"
	"github.com/lawlink/lawlink-api/pkg/logger"
)

type ConsultationHandler struct {
	Bookings service.BookingService
}

func NewConsultationHandler(bookings service.BookingService) *ConsultationHandler {
	return &ConsultationHandler{Bookings: bookings}
}

func (h *ConsultationHandler) Routes(authn *middleware.Authenticator) chi.Router {
	r := chi.NewRouter()
	// Booking works logged-in or anonymous; a present token attributes the
	// consultation to its user.
	r.With(authn.Optional).Post("/", h.create)
	r.With(authn.RequireAdmin).Get("/", h.list)
	r.With(authn.Require).Get("/{id}", h.get)
	r.With(authn.Require).Patch("/{id}", h.updateStatus)
	return r
}

func (h *ConsultationHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	var userID *int64
	if u := middleware.CurrentUser(r); u != nil {
		userID = &u.ID
	}

	c, summary, err := h.Bookings.CreateConsultation(r.Context(), userID, &in)
	if err != nil {
		logger.WarnContext(r.Context(), "consultation create failed", "error", err)
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"status":         "ok",
		"message":        "consultation booked",
		"consultationId": c.ID,
		"emailSummary":   summary,
	})
}

func (h *ConsultationHandler) list(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	result, err := h.Bookings.ListConsultations(r.Context(), page, size)
	if err != nil {
		logger.ErrorContext(r.Context(), "consultation list failed", "error", err)
		response.InternalError(w, "failed to list consultations")
		return
	}
	response.WriteJSON(w, http.StatusOK, result)
}

func (h *ConsultationHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	c, err := h.Bookings.GetConsultation(r.Context(), middleware.CurrentUser(r), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, c)
}

func (h *ConsultationHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in domain.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	updated, err := h.Bookings.UpdateStatus(r.Context(), middleware.CurrentUser(r), id, in.Status)
	if err != nil {
		logger.WarnContext(r.Context(), "status update failed", "error", err, "consultation_id", id)
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "status updated",
		"appointment": map[string]interface{}{
			"id":     updated.ID,
			"status": updated.Status,
		},
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
