package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lawlink/lawlink-api/internal/domain"
	"github.com/lawlink/lawlink-api/internal/http/middleware"
	"github.com/lawlink/lawlink-api/internal/http/response"
	"github.com/lawlink/lawlink-api/internal/service"
	"github.com/lawlink/lawlink-api/pkg/logger"
)

// recentAppointments caps the booking history attached to the profile.
const recentAppointments = 20

type UserHandler struct {
	Auth     service.AuthService
	Bookings service.BookingService
}

func NewUserHandler(authSvc service.AuthService, bookings service.BookingService) *UserHandler {
	return &UserHandler{Auth: authSvc, Bookings: bookings}
}

func (h *UserHandler) Routes(authn *middleware.Authenticator) chi.Router {
	r := chi.NewRouter()
	r.Use(authn.Require)
	r.Get("/me", h.me)
	r.Put("/me", h.updateMe)
	return r
}

func (h *UserHandler) me(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r)

	appointments, err := h.Bookings.ListUserConsultations(r.Context(), u.ID, recentAppointments)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to load user appointments", "error", err, "user_id", u.ID)
		response.InternalError(w, "failed to load profile")
		return
	}
	if appointments == nil {
		appointments = []domain.Consultation{}
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":         u.Sanitize(),
		"appointments": appointments,
	})
}

func (h *UserHandler) updateMe(w http.ResponseWriter, r *http.Request) {
	u := middleware.CurrentUser(r)

	var in domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	updated, err := h.Auth.UpdateProfile(r.Context(), u.ID, &in)
	if err != nil {
		logger.WarnContext(r.Context(), "profile update failed", "error", err, "user_id", u.ID)
		response.WriteDomainError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user": updated.Sanitize(),
	})
}
