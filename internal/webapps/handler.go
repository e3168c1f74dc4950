package webapps

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/portico-labs/portico/internal/platform/httpx"
	"github.com/portico-labs/portico/internal/shared"
)

// Handler wires catalog endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountAppsRoutes registers the authenticated catalog view.
func (h *Handler) MountAppsRoutes(r chi.Router) {
	r.Get("/", h.listVisible)
}

// MountAdminRoutes registers catalog administration routes. Callers must gate
// them behind the admin middleware.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listWebApps)
	r.Post("/", h.createWebApp)
	r.Get("/{webappID}", h.getWebApp)
	r.Put("/{webappID}", h.updateWebApp)
	r.Delete("/{webappID}", h.deleteWebApp)
	r.Put("/{webappID}/roles", h.syncRoles)
}

// listVisible serves the caller's filtered catalog. The role claim embedded
// in the bearer token is the authority for this request.
func (h *Handler) listVisible(w http.ResponseWriter, r *http.Request) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	visible, err := h.service.ListVisible(r.Context(), identity.Roles)
	if err != nil {
		h.logger.Error("list visible apps", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, visible)
}

type createWebAppRequest struct {
	Name          string   `json:"name" validate:"required,min=3,max=100"`
	URL           string   `json:"url" validate:"required,url"`
	Description   string   `json:"description" validate:"max=500"`
	RequiredRoles []string `json:"required_roles" validate:"dive,min=2,max=50"`
}

type updateWebAppRequest struct {
	Name          *string  `json:"name" validate:"omitempty,min=3,max=100"`
	URL           *string  `json:"url" validate:"omitempty,url"`
	Description   *string  `json:"description" validate:"omitempty,max=500"`
	RequiredRoles []string `json:"required_roles" validate:"omitempty,dive,min=2,max=50"`
}

type syncRolesRequest struct {
	Roles []string `json:"roles" validate:"dive,min=2,max=50"`
}

func (h *Handler) listWebApps(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.ListWebApps(r.Context())
	if err != nil {
		h.logger.Error("list webapps", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if catalog == nil {
		catalog = []WebApp{}
	}
	httpx.JSON(w, http.StatusOK, catalog)
}

func (h *Handler) getWebApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "webappID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	app, err := h.service.GetWebApp(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) createWebApp(w http.ResponseWriter, r *http.Request) {
	var req createWebAppRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	app, err := h.service.CreateWebApp(r.Context(), CreateWebAppRequest{
		Name:          req.Name,
		URL:           req.URL,
		Description:   req.Description,
		RequiredRoles: req.RequiredRoles,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) updateWebApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "webappID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req updateWebAppRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	app, err := h.service.UpdateWebApp(r.Context(), id, UpdateWebAppRequest{
		Name:          req.Name,
		URL:           req.URL,
		Description:   req.Description,
		RequiredRoles: req.RequiredRoles,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) deleteWebApp(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "webappID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteWebApp(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) syncRoles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "webappID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req syncRolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SyncRoles(r.Context(), id, req.Roles); err != nil {
		httpx.RespondError(w, err)
		return
	}
	app, err := h.service.GetWebApp(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrNotFound
	}
	return id, nil
}
