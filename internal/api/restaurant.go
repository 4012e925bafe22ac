package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/staff"
	"dineflow/internal/table"
	"dineflow/internal/tenant"
	"dineflow/internal/utils"
	"dineflow/internal/waiter"

	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ---------------- ONBOARDING & SETTINGS ----------------

func (h *Handler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var in tenant.OnboardingInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CompleteOnboarding", err)
		return
	}
	res, err := h.Tenants.CompleteOnboarding(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "CompleteOnboarding", err)
		return
	}
	h.ok(w, res)
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Tenants.Settings(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "GetSettings", err)
		return
	}
	h.ok(w, st)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in tenant.SettingsInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateSettings", err)
		return
	}
	st, err := h.Tenants.UpdateSettings(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "UpdateSettings", err)
		return
	}
	h.ok(w, st)
}

// ---------------- TABLES ----------------

func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.Tables.List(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "ListTables", err)
		return
	}
	h.ok(w, tables)
}

func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var in table.CreateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateTable", err)
		return
	}
	t, err := h.Tables.Create(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "CreateTable", err)
		return
	}
	h.created(w, t)
}

func (h *Handler) GenerateTables(w http.ResponseWriter, r *http.Request) {
	var in table.GenerateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "GenerateTables", err)
		return
	}
	tables, err := h.Tables.Generate(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "GenerateTables", err)
		return
	}
	h.created(w, tables)
}

func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	var in table.UpdateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateTable", err)
		return
	}
	t, err := h.Tables.Update(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "UpdateTable", err)
		return
	}
	h.ok(w, t)
}

func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := h.Tables.Delete(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "DeleteTable", err)
		return
	}
	utils.SendSuccess(w, "Table deactivated", nil)
}

func (h *Handler) TableQR(w http.ResponseWriter, r *http.Request) {
	png, t, err := h.Tables.QRCode(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "TableQR", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"table-%d.png\"", t.Number))
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) ResolveTable(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		h.fail(w, "ResolveTable", apperr.NewValidation("token is required"))
		return
	}
	res, err := h.Tables.Resolve(r.Context(), token)
	if err != nil {
		h.fail(w, "ResolveTable", err)
		return
	}
	h.ok(w, res)
}

// ---------------- WAITER CALLS ----------------

type waiterCallUpdate struct {
	Status string `json:"status" validate:"required,oneof=PENDING ATTENDED COMPLETED"`
}

func (h *Handler) CreateWaiterCall(w http.ResponseWriter, r *http.Request) {
	var in waiter.CreateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateWaiterCall", err)
		return
	}
	call, err := h.Waiter.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "CreateWaiterCall", err)
		return
	}
	h.created(w, call)
}

func (h *Handler) ListWaiterCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := h.Waiter.List(r.Context(), auth.TenantID(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, "ListWaiterCalls", err)
		return
	}
	h.ok(w, calls)
}

func (h *Handler) UpdateWaiterCall(w http.ResponseWriter, r *http.Request) {
	var in waiterCallUpdate
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateWaiterCall", err)
		return
	}
	claims := auth.SessionFrom(r.Context())
	call, err := h.Waiter.UpdateStatus(r.Context(), claims.TenantID, chi.URLParam(r, "id"), in.Status, claims.UserID())
	if err != nil {
		h.fail(w, "UpdateWaiterCall", err)
		return
	}
	h.ok(w, call)
}

// ---------------- INVOICES ----------------

type invoiceRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := h.Invoices.List(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "ListInvoices", err)
		return
	}
	h.ok(w, invoices)
}

func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var in invoiceRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateInvoice", err)
		return
	}
	inv, err := h.Invoices.Create(r.Context(), auth.TenantID(r.Context()), in.OrderID)
	if err != nil {
		h.fail(w, "CreateInvoice", err)
		return
	}
	h.created(w, inv)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Invoices.Get(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "GetInvoice", err)
		return
	}
	h.ok(w, inv)
}

func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	tenantID := auth.TenantID(r.Context())
	id := chi.URLParam(r, "id")
	inv, err := h.Invoices.Get(r.Context(), tenantID, id)
	if err != nil {
		h.fail(w, "InvoicePDF", err)
		return
	}
	pdf, err := h.Invoices.RenderPDF(r.Context(), tenantID, id)
	if err != nil {
		h.fail(w, "InvoicePDF", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.pdf\"", inv.InvoiceNumber))
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

// ---------------- STAFF ----------------

func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	members, err := h.Staff.List(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "ListStaff", err)
		return
	}
	h.ok(w, members)
}

func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var in staff.CreateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "CreateStaff", err)
		return
	}
	m, err := h.Staff.Create(r.Context(), auth.TenantID(r.Context()), in)
	if err != nil {
		h.fail(w, "CreateStaff", err)
		return
	}
	h.created(w, m)
}

func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	var in staff.UpdateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateStaff", err)
		return
	}
	m, err := h.Staff.Update(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "UpdateStaff", err)
		return
	}
	h.ok(w, m)
}

func (h *Handler) DeleteStaff(w http.ResponseWriter, r *http.Request) {
	if err := h.Staff.Delete(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "DeleteStaff", err)
		return
	}
	utils.SendSuccess(w, "Staff member removed", nil)
}

// ---------------- DASHBOARD ----------------

func rangeParam(r *http.Request) string {
	if v := r.URL.Query().Get("range"); v != "" {
		return v
	}
	return "today"
}

func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Analytics.Stats(r.Context(), auth.TenantID(r.Context()), rangeParam(r))
	if err != nil {
		h.fail(w, "DashboardStats", err)
		return
	}
	h.ok(w, st)
}

// DashboardExport renders into memory first so a failure can still be
// answered with a JSON error.
func (h *Handler) DashboardExport(w http.ResponseWriter, r *http.Request) {
	rangeName := rangeParam(r)
	var buf bytes.Buffer
	if err := h.Analytics.ExportXLSX(r.Context(), auth.TenantID(r.Context()), rangeName, &buf); err != nil {
		h.fail(w, "DashboardExport", err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"orders-%s.xlsx\"", strings.ToLower(rangeName)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.Customers.List(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "ListCustomers", err)
		return
	}
	h.ok(w, customers)
}
