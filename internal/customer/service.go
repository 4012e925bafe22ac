// Package customer verifies diners by phone and keeps their order history.
package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/otp"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

type Service struct {
	DB         *store.DB
	OTP        *otp.Service
	Notifier   otp.Notifier
	Codec      *auth.Codec
	CodeTTL    time.Duration
	SessionTTL time.Duration
	Logger     *logger.Logger
	Clock      utils.Clock
}

type SendCodeInput struct {
	TenantID string `json:"tenantId" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=5,max=32"`
}

type VerifyInput struct {
	TenantID string `json:"tenantId" validate:"required"`
	Phone    string `json:"phone" validate:"required,min=5,max=32"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
	Name     string `json:"name" validate:"max=120"`
}

type VerifyResult struct {
	Token    string           `json:"-"`
	Customer *models.Customer `json:"customer"`
}

// SendCode issues a phone code for a diner of an existing tenant.
func (s *Service) SendCode(ctx context.Context, in SendCodeInput) error {
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return apperr.NewValidation("Phone is required")
	}
	if _, err := s.tenant(ctx, in.TenantID); err != nil {
		return err
	}

	code, err := s.OTP.Issue(ctx, otp.PhoneKey(in.TenantID, phone), s.CodeTTL)
	if err != nil {
		return err
	}
	if s.Notifier != nil {
		subject, body := otp.CodeMessage("verification", code, int(s.CodeTTL.Minutes()))
		if err := s.Notifier.Send(ctx, phone, subject, body); err != nil {
			s.Logger.Error("CUSTOMER", fmt.Sprintf("Failed to deliver code to %s: %v", phone, err))
		}
	}
	return nil
}

// VerifyCode consumes the phone code and upserts the verified customer.
func (s *Service) VerifyCode(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	phone := strings.TrimSpace(in.Phone)
	if _, err := s.tenant(ctx, in.TenantID); err != nil {
		return nil, err
	}
	if err := s.OTP.Verify(ctx, otp.PhoneKey(in.TenantID, phone), strings.TrimSpace(in.Code)); err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	c, err := s.DB.GetCustomerByPhone(ctx, in.TenantID, phone)
	switch {
	case err == nil:
		c.IsVerified = true
		columns := []string{"is_verified", "updated_at"}
		if name := strings.TrimSpace(in.Name); name != "" {
			c.Name = name
			columns = append(columns, "name")
		}
		c.UpdatedAt = now
		if err := s.DB.UpdateCustomer(ctx, c, columns...); err != nil {
			return nil, fmt.Errorf("update customer: %w", err)
		}
	case store.IsNotFound(err):
		c = &models.Customer{
			ID:         uuid.NewString(),
			TenantID:   in.TenantID,
			Phone:      phone,
			Name:       strings.TrimSpace(in.Name),
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.DB.CreateCustomer(ctx, c); err != nil {
			return nil, fmt.Errorf("create customer: %w", err)
		}
	default:
		return nil, fmt.Errorf("load customer: %w", err)
	}

	claims := auth.Claims{TenantID: in.TenantID, Name: c.Name, Kind: auth.KindCustomer}
	claims.Subject = c.ID
	token, err := s.Codec.Encode(claims, s.SessionTTL)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Token: token, Customer: c}, nil
}

// FromSession loads the verified diner behind a customer session. It returns
// nil when claims belong to another kind of session or the diner is gone.
func (s *Service) FromSession(ctx context.Context, claims *auth.Claims) (*models.Customer, error) {
	if claims == nil || claims.Kind != auth.KindCustomer || claims.TenantID == "" {
		return nil, nil
	}
	c, err := s.DB.GetCustomer(ctx, claims.TenantID, claims.UserID())
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}
	if !c.IsVerified {
		return nil, nil
	}
	return c, nil
}

// List returns the tenant's customers, most recent diners first.
func (s *Service) List(ctx context.Context, tenantID string) ([]models.Customer, error) {
	customers, err := s.DB.ListCustomers(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	return customers, nil
}

func (s *Service) tenant(ctx context.Context, id string) (*models.Tenant, error) {
	if id == "" {
		return nil, apperr.NewValidation("Tenant is required")
	}
	t, err := s.DB.GetTenant(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return t, nil
}

// Record adds a placed order to the customer's running totals, creating an
// unverified customer on first contact. It runs on the caller's transaction.
func Record(ctx context.Context, tx *store.DB, tenantID, phone, name string, total float64, at time.Time) (*models.Customer, error) {
	c, err := tx.GetCustomerByPhone(ctx, tenantID, phone)
	if err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		c = &models.Customer{
			ID:          uuid.NewString(),
			TenantID:    tenantID,
			Phone:       phone,
			Name:        name,
			TotalOrders: 1,
			TotalSpent:  utils.RoundMoney(total),
			LastOrderAt: &at,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		return c, tx.CreateCustomer(ctx, c)
	}

	c.TotalOrders++
	c.TotalSpent = utils.RoundMoney(c.TotalSpent + total)
	c.LastOrderAt = &at
	c.UpdatedAt = at
	columns := []string{"total_orders", "total_spent", "last_order_at", "updated_at"}
	if name != "" && c.Name == "" {
		c.Name = name
		columns = append(columns, "name")
	}
	return c, tx.UpdateCustomer(ctx, c, columns...)
}
