package api

import (
	"errors"
	"net/http"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/menu"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/go-chi/chi/v5"
)

const maxImportBytes = 10 << 20

func (h *Handler) PublicMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.Menu.PublicMenu(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.fail(w, "PublicMenu", err)
		return
	}
	h.ok(w, m)
}

// ---------------- CATEGORIES ----------------

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFor(r)
	if tenantID == "" {
		h.fail(w, "ListCategories", apperr.NewValidation("tenantId is required"))
		return
	}
	categories, err := h.Menu.ListCategories(r.Context(), tenantID, !isStaff(r))
	if err != nil {
		h.fail(w, "ListCategories", err)
		return
	}
	h.ok(w, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in menu.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateCategory", err)
		return
	}
	c, err := h.Menu.CreateCategory(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "CreateCategory", err)
		return
	}
	h.created(w, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var in menu.CategoryInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateCategory", err)
		return
	}
	c, err := h.Menu.UpdateCategory(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "UpdateCategory", err)
		return
	}
	h.ok(w, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Menu.DeleteCategory(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "DeleteCategory", err)
		return
	}
	utils.SendSuccess(w, "Category deleted", nil)
}

// ---------------- MENU ITEMS ----------------

func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFor(r)
	if tenantID == "" {
		h.fail(w, "ListMenuItems", apperr.NewValidation("tenantId is required"))
		return
	}
	f := store.MenuItemFilter{
		CategoryID:    r.URL.Query().Get("categoryId"),
		AvailableOnly: !isStaff(r) || r.URL.Query().Get("available") == "true",
	}
	items, err := h.Menu.ListItems(r.Context(), tenantID, f)
	if err != nil {
		h.fail(w, "ListMenuItems", err)
		return
	}
	h.ok(w, items)
}

func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menu.ItemInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateMenuItem", err)
		return
	}
	item, err := h.Menu.CreateItem(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "CreateMenuItem", err)
		return
	}
	h.created(w, item)
}

func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menu.ItemInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateMenuItem", err)
		return
	}
	item, err := h.Menu.UpdateItem(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "UpdateMenuItem", err)
		return
	}
	h.ok(w, item)
}

func (h *Handler) PatchMenuItem(w http.ResponseWriter, r *http.Request) {
	var in menu.ItemPatch
	if err := decode(r, &in); err != nil {
		h.fail(w, "PatchMenuItem", err)
		return
	}
	item, err := h.Menu.PatchItem(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "PatchMenuItem", err)
		return
	}
	h.ok(w, item)
}

func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Menu.DeleteItem(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "DeleteMenuItem", err)
		return
	}
	utils.SendSuccess(w, "Menu item deleted", nil)
}

func (h *Handler) AddCustomization(w http.ResponseWriter, r *http.Request) {
	var in menu.CustomizationInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "AddCustomization", err)
		return
	}
	c, err := h.Menu.AddCustomization(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "AddCustomization", err)
		return
	}
	h.created(w, c)
}

func (h *Handler) RemoveCustomization(w http.ResponseWriter, r *http.Request) {
	err := h.Menu.RemoveCustomization(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "cid"))
	if err != nil {
		h.fail(w, "RemoveCustomization", err)
		return
	}
	utils.SendSuccess(w, "Customization removed", nil)
}

func formFileError(err error, missing string) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return apperr.NewValidation("File is too large")
	}
	return apperr.NewValidation(missing)
}

// ImportMenu takes a multipart "file" field holding an .xlsx workbook.
func (h *Handler) ImportMenu(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		h.fail(w, "ImportMenu", formFileError(err, "An Excel file is required in the \"file\" field"))
		return
	}
	defer file.Close()

	res, err := h.Menu.ImportXLSX(r.Context(), auth.TenantID(r.Context()), file)
	if err != nil {
		h.fail(w, "ImportMenu", err)
		return
	}
	h.ok(w, res)
}

// Upload stores one image from the multipart "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.Uploads.Limit()+(64<<10))
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, "Upload", formFileError(err, "An image is required in the \"file\" field"))
		return
	}
	defer file.Close()

	res, err := h.Uploads.Save(r.Context(), auth.TenantID(r.Context()), header.Filename, file)
	if err != nil {
		h.fail(w, "Upload", err)
		return
	}
	h.created(w, res)
}
