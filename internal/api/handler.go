// Package api exposes the services over HTTP/JSON.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"dineflow/internal/analytics"
	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/config"
	"dineflow/internal/customer"
	"dineflow/internal/invoice"
	"dineflow/internal/logger"
	"dineflow/internal/menu"
	"dineflow/internal/models"
	"dineflow/internal/order"
	"dineflow/internal/payment"
	"dineflow/internal/platform"
	"dineflow/internal/sse"
	"dineflow/internal/staff"
	"dineflow/internal/store"
	"dineflow/internal/table"
	"dineflow/internal/tenant"
	"dineflow/internal/upload"
	"dineflow/internal/utils"
	"dineflow/internal/waiter"

	"github.com/go-playground/validator/v10"
)

const maxJSONBytes = 1 << 20

// Handler holds every service the routes call into.
type Handler struct {
	Config    *config.Config
	DB        *store.DB
	Codec     *auth.Codec
	Tenants   *tenant.Service
	Staff     *staff.Service
	Platform  *platform.Service
	Customers *customer.Service
	Menu      *menu.Service
	Tables    *table.Service
	Orders    *order.Service
	Payments  *payment.Service
	Invoices  *invoice.Service
	Waiter    *waiter.Service
	Analytics *analytics.Service
	Uploads   *upload.Service
	Kitchen   *sse.KitchenEventEmitter
	Logger    *logger.Logger
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := readJSON(r, dst); err != nil {
		return err
	}
	return check(dst)
}

func readJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBytes)).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewValidation("Request body is required")
		}
		return apperr.NewValidation("Invalid request body")
	}
	return nil
}

func check(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.NewValidation("Invalid request")
	}
	return apperr.NewValidation(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "numeric":
		return field + " must contain digits only"
	}
	return field + " is invalid"
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	utils.SendError(w, h.Logger, op, err)
}

func (h *Handler) ok(w http.ResponseWriter, data interface{}) {
	utils.SendJSONResponse(w, http.StatusOK, data)
}

func (h *Handler) created(w http.ResponseWriter, data interface{}) {
	utils.SendJSONResponse(w, http.StatusCreated, data)
}

func (h *Handler) setSession(w http.ResponseWriter, kind auth.Kind, token string, ttl time.Duration) {
	auth.SetSessionCookie(w, kind, token, ttl, h.Config.Session.SecureCookie)
}

func (h *Handler) clearSession(w http.ResponseWriter, kind auth.Kind) {
	auth.ClearSessionCookie(w, kind, h.Config.Session.SecureCookie)
}

// tenantFor prefers the staff session tenant and falls back to ?tenantId=
// for anonymous diner calls.
func tenantFor(r *http.Request) string {
	if c := auth.SessionFrom(r.Context()); c != nil && c.Kind == auth.KindStaff {
		return c.TenantID
	}
	return strings.TrimSpace(r.URL.Query().Get("tenantId"))
}

// diner returns the verified customer behind the request's customer
// session, provided it belongs to tenantID. An empty tenantID accepts the
// session's own tenant.
func (h *Handler) diner(r *http.Request, tenantID string) *models.Customer {
	claims := auth.SessionFrom(r.Context())
	if claims == nil || claims.Kind != auth.KindCustomer {
		return nil
	}
	if tenantID != "" && tenantID != claims.TenantID {
		return nil
	}
	c, err := h.Customers.FromSession(r.Context(), claims)
	if err != nil {
		h.Logger.Warn("CUSTOMER", fmt.Sprintf("Ignoring diner session %s: %v", claims.UserID(), err))
		return nil
	}
	return c
}

func isStaff(r *http.Request) bool {
	c := auth.SessionFrom(r.Context())
	return c != nil && c.Kind == auth.KindStaff
}
