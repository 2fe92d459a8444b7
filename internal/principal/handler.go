// AngelaMos | 2026
// handler.go

package principal

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/angelamos/orderhub/internal/core"
	"github.com/angelamos/orderhub/internal/middleware"
)

type Handler struct {
	service    *Service
	reconciler *Reconciler
	validator  *validator.Validate
}

func NewHandler(service *Service, reconciler *Reconciler) *Handler {
	return &Handler{
		service:    service,
		reconciler: reconciler,
		validator:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/tenants/{tenantID}/principals", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.List)
		r.Post("/import", h.Import)
		r.Post("/delete", h.Delete)
		r.Post("/reset-passwords", h.ResetPasswords)
		r.Put("/{principalID}/email", h.SetEmail)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r)
	tenantID := chi.URLParam(r, "tenantID")

	principals, err := h.service.List(r.Context(), actor, tenantID)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, ToPrincipalListResponse(principals))
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r)
	tenantID := chi.URLParam(r, "tenantID")

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	result, err := h.reconciler.Import(r.Context(), actor, tenantID, req.Rows)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, result)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r)
	tenantID := chi.URLParam(r, "tenantID")

	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	outcome, err := h.service.Delete(r.Context(), actor, tenantID, req.IDs)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, outcome)
}

func (h *Handler) ResetPasswords(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r)
	tenantID := chi.URLParam(r, "tenantID")

	var req ResetPasswordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	outcome, err := h.service.ResetPasswords(r.Context(), actor, tenantID, req.IDs)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.OK(w, outcome)
}

func (h *Handler) SetEmail(w http.ResponseWriter, r *http.Request) {
	actor := actorFromContext(r)
	tenantID := chi.URLParam(r, "tenantID")
	principalID := chi.URLParam(r, "principalID")

	var req SetEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.SetEmail(r.Context(), actor, tenantID, principalID, req.Email)
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.NoContent(w)
}

func actorFromContext(r *http.Request) Actor {
	ctx := r.Context()
	return Actor{
		ID:       middleware.GetPrincipalID(ctx),
		Tier:     middleware.GetTier(ctx),
		TenantID: middleware.GetTenantID(ctx),
	}
}
