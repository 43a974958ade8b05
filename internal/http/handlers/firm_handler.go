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

type FirmHandler struct {
	Catalog service.CatalogService
}

func NewFirmHandler(catalog service.CatalogService) *FirmHandler {
	return &FirmHandler{Catalog: catalog}
}

// Routes exposes public browsing; writes are admin-only.
func (h *FirmHandler) Routes(authn *middleware.Authenticator) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/services", h.listServices)
	r.With(authn.RequireAdmin).Post("/", h.create)
	r.With(authn.RequireAdmin).Put("/{id}", h.update)
	return r
}

func (h *FirmHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	firms, err := h.Catalog.ListFirms(r.Context(), limit, offset)
	if err != nil {
		logger.ErrorContext(r.Context(), "firm list failed", "error", err)
		response.InternalError(w, "failed to list firms")
		return
	}
	if firms == nil {
		firms = []domain.Firm{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": firms})
}

func (h *FirmHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	f, err := h.Catalog.GetFirm(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, f)
}

func (h *FirmHandler) listServices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	services, err := h.Catalog.ListFirmServices(r.Context(), id, limit, 0)
	if err != nil {
		logger.ErrorContext(r.Context(), "service list failed", "error", err, "firm_id", id)
		response.InternalError(w, "failed to list services")
		return
	}
	if services == nil {
		services = []domain.Service{}
	}
	response.WriteJSON(w, http.StatusOK, map[string]interface{}{"items": services})
}

func (h *FirmHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.UpsertFirmRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	f, err := h.Catalog.CreateFirm(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, f)
}

func (h *FirmHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.UpsertFirmRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	f, err := h.Catalog.UpdateFirm(r.Context(), id, &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, f)
}

type ServiceHandler struct {
	Catalog service.CatalogService
}

func NewServiceHandler(catalog service.CatalogService) *ServiceHandler {
	return &ServiceHandler{Catalog: catalog}
}

func (h *ServiceHandler) Routes(authn *middleware.Authenticator) chi.Router {
	r := chi.NewRouter()
	r.Get("/{id}", h.get)
	r.With(authn.RequireAdmin).Post("/", h.create)
	r.With(authn.RequireAdmin).Put("/{id}", h.update)
	return r
}

func (h *ServiceHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s, err := h.Catalog.GetService(r.Context(), id)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, s)
}

func (h *ServiceHandler) create(w http.ResponseWriter, r *http.Request) {
	var in domain.UpsertServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	s, err := h.Catalog.CreateService(r.Context(), &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusCreated, s)
}

func (h *ServiceHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in domain.UpsertServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	s, err := h.Catalog.UpdateService(r.Context(), id, &in)
	if err != nil {
		response.WriteDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, s)
}
