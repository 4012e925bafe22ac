package api

import (
	"net/http"
	"strconv"

	"dineflow/internal/auth"
	"dineflow/internal/platform"
	"dineflow/internal/utils"

	"github.com/go-chi/chi/v5"
)

type tenantStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

func (h *Handler) PlatformTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.Tenants.List(r.Context())
	if err != nil {
		h.fail(w, "PlatformTenants", err)
		return
	}
	h.ok(w, tenants)
}

func (h *Handler) PlatformTenant(w http.ResponseWriter, r *http.Request) {
	st, err := h.Tenants.Settings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "PlatformTenant", err)
		return
	}
	h.ok(w, st)
}

// PlatformUpdateTenant suspends or reactivates a restaurant.
func (h *Handler) PlatformUpdateTenant(w http.ResponseWriter, r *http.Request) {
	var in tenantStatusRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "PlatformUpdateTenant", err)
		return
	}
	t, err := h.Tenants.SetActive(r.Context(), chi.URLParam(r, "id"), *in.IsActive)
	if err != nil {
		h.fail(w, "PlatformUpdateTenant", err)
		return
	}
	h.Logger.LogSecurity("TENANT_STATUS", t.Slug+" set active="+strconv.FormatBool(t.IsActive)+" by "+auth.SessionFrom(r.Context()).UserID())
	h.ok(w, t)
}

func (h *Handler) PlatformDeleteTenant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tenants.Delete(r.Context(), id); err != nil {
		h.fail(w, "PlatformDeleteTenant", err)
		return
	}
	h.Logger.LogSecurity("TENANT_DELETED", id+" by "+auth.SessionFrom(r.Context()).UserID())
	utils.SendSuccess(w, "Restaurant deleted", nil)
}

func (h *Handler) PlatformAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Platform.List(r.Context())
	if err != nil {
		h.fail(w, "PlatformAdmins", err)
		return
	}
	h.ok(w, admins)
}

func (h *Handler) PlatformCreateAdmin(w http.ResponseWriter, r *http.Request) {
	var in platform.CreateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "PlatformCreateAdmin", err)
		return
	}
	admin, err := h.Platform.Create(r.Context(), auth.SessionFrom(r.Context()), in)
	if err != nil {
		h.fail(w, "PlatformCreateAdmin", err)
		return
	}
	h.created(w, admin)
}

func (h *Handler) PlatformUpdateAdmin(w http.ResponseWriter, r *http.Request) {
	var in platform.UpdateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "PlatformUpdateAdmin", err)
		return
	}
	admin, err := h.Platform.Update(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "PlatformUpdateAdmin", err)
		return
	}
	h.ok(w, admin)
}

func (h *Handler) PlatformDeleteAdmin(w http.ResponseWriter, r *http.Request) {
	if err := h.Platform.Delete(r.Context(), auth.SessionFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "PlatformDeleteAdmin", err)
		return
	}
	utils.SendSuccess(w, "Admin removed", nil)
}

func (h *Handler) PlatformStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Platform.Stats(r.Context())
	if err != nil {
		h.fail(w, "PlatformStats", err)
		return
	}
	h.ok(w, st)
}
