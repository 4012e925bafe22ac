package api

import (
	"fmt"
	"net/http"

	"dineflow/internal/auth"
	"dineflow/internal/customer"
	"dineflow/internal/tenant"
	"dineflow/internal/utils"
)

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type codeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type sessionResponse struct {
	Success     bool              `json:"success"`
	User        interface{}       `json:"user"`
	Tenant      interface{}       `json:"tenant,omitempty"`
	Permissions []auth.Permission `json:"permissions,omitempty"`
}

// ---------------- REGISTRATION ----------------

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in tenant.RegisterInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "Register", err)
		return
	}
	res, err := h.Tenants.Register(r.Context(), in)
	if err != nil {
		h.fail(w, "Register", err)
		return
	}
	h.created(w, map[string]interface{}{
		"success": true,
		"message": "Check your email for a verification code",
		"tenant":  res.Tenant,
		"user":    res.Staff,
	})
}

func (h *Handler) VerifyRegistration(w http.ResponseWriter, r *http.Request) {
	var in codeRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "VerifyRegistration", err)
		return
	}
	t, err := h.Tenants.VerifyRegistration(r.Context(), in.Email, in.Code)
	if err != nil {
		h.fail(w, "VerifyRegistration", err)
		return
	}
	utils.SendSuccess(w, "Email verified", t)
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "ResendVerification", err)
		return
	}
	if err := h.Tenants.ResendVerification(r.Context(), in.Email); err != nil {
		h.fail(w, "ResendVerification", err)
		return
	}
	utils.SendSuccess(w, "A new code has been sent", nil)
}

// ---------------- STAFF ----------------

func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "StaffLogin", err)
		return
	}
	res, err := h.Staff.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, "StaffLogin", err)
		return
	}
	h.setSession(w, auth.KindStaff, res.Token, h.Config.Session.TTL)
	h.ok(w, sessionResponse{Success: true, User: res.Staff, Tenant: res.Tenant, Permissions: auth.Permissions(res.Staff.Role)})
}

func (h *Handler) StaffVerify(w http.ResponseWriter, r *http.Request) {
	res, err := h.Staff.Me(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		h.fail(w, "StaffVerify", err)
		return
	}
	h.ok(w, sessionResponse{Success: true, User: res.Staff, Tenant: res.Tenant, Permissions: auth.Permissions(res.Staff.Role)})
}

func (h *Handler) StaffLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, auth.KindStaff)
	utils.SendSuccess(w, "Signed out", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "ForgotPassword", err)
		return
	}
	if err := h.Staff.ForgotPassword(r.Context(), in.Email); err != nil {
		h.fail(w, "ForgotPassword", err)
		return
	}
	utils.SendSuccess(w, "If the address is registered, a reset code has been sent", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "ResetPassword", err)
		return
	}
	if err := h.Staff.ResetPassword(r.Context(), in.Email, in.Code, in.NewPassword); err != nil {
		h.fail(w, "ResetPassword", err)
		return
	}
	utils.SendSuccess(w, "Password updated", nil)
}

// ---------------- PLATFORM ----------------

func (h *Handler) PlatformLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		h.fail(w, "PlatformLogin", err)
		return
	}
	res, err := h.Platform.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, "PlatformLogin", err)
		return
	}
	h.setSession(w, auth.KindPlatform, res.Token, h.Config.Session.TTL)
	h.ok(w, sessionResponse{Success: true, User: res.Admin})
}

func (h *Handler) PlatformVerify(w http.ResponseWriter, r *http.Request) {
	claims := auth.SessionFrom(r.Context())
	admin, err := h.Platform.Get(r.Context(), claims.UserID())
	if err != nil {
		h.fail(w, "PlatformVerify", err)
		return
	}
	if !admin.IsActive {
		utils.SendErrorMessage(w, http.StatusUnauthorized, "Account is disabled")
		return
	}
	h.ok(w, sessionResponse{Success: true, User: admin})
}

func (h *Handler) PlatformLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSession(w, auth.KindPlatform)
	utils.SendSuccess(w, "Signed out", nil)
}

// ---------------- DINER OTP ----------------

func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var in customer.SendCodeInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "SendOTP", err)
		return
	}
	if err := h.Customers.SendCode(r.Context(), in); err != nil {
		h.fail(w, "SendOTP", err)
		return
	}
	utils.SendSuccess(w, fmt.Sprintf("Code sent to %s", in.Phone), nil)
}

func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in customer.VerifyInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "VerifyOTP", err)
		return
	}
	res, err := h.Customers.VerifyCode(r.Context(), in)
	if err != nil {
		h.fail(w, "VerifyOTP", err)
		return
	}
	h.setSession(w, auth.KindCustomer, res.Token, h.Config.Session.TTL)
	utils.SendSuccess(w, "Phone verified", res)
}
