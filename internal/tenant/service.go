// Package tenant provisions restaurants: registration, email verification,
// onboarding and settings.
package tenant

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
	"dineflow/internal/table"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

// MenuInvalidator drops cached public menus.
type MenuInvalidator interface {
	InvalidateMenu(ctx context.Context, slug string)
}

type Service struct {
	DB       *store.DB
	OTP      *otp.Service
	Notifier otp.Notifier
	Tables   *table.Service
	Menu     MenuInvalidator
	EmailTTL time.Duration
	Logger   *logger.Logger
	Clock    utils.Clock
}

type RegisterInput struct {
	RestaurantName string `json:"restaurantName" validate:"required,max=120"`
	OwnerName      string `json:"ownerName" validate:"required,max=120"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"omitempty,max=32"`
	Password       string `json:"password" validate:"required,min=8"`
}

type RegisterResult struct {
	Tenant *models.Tenant `json:"tenant"`
	Staff  *models.Staff  `json:"staff"`
}

// Register creates an inactive, unverified tenant, its brand settings, the
// OWNER account and a verification code as one unit of work.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.RestaurantName = strings.TrimSpace(in.RestaurantName)
	if in.Email == "" || in.Password == "" {
		return nil, apperr.NewValidation("Email and password are required")
	}
	if in.RestaurantName == "" {
		return nil, apperr.NewValidation("Restaurant name is required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.NewValidation("Password must be at least 8 characters")
	}

	exists, err := s.DB.StaffEmailExists(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, apperr.NewConflict("Email is already registered")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.Clock.Now().UTC()
	var result RegisterResult
	var code string

	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		slug, err := uniqueSlug(ctx, tx, in.RestaurantName)
		if err != nil {
			return fmt.Errorf("derive slug: %w", err)
		}

		t := &models.Tenant{
			ID:               uuid.NewString(),
			Name:             in.RestaurantName,
			Slug:             slug,
			Email:            in.Email,
			Phone:            in.Phone,
			Currency:         "USD",
			SubscriptionPlan: models.PlanFree,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := tx.CreateTenant(ctx, t); err != nil {
			return err
		}
		brand := models.DefaultBrand(t.ID, t.Name, now)
		if err := tx.CreateBrand(ctx, brand); err != nil {
			return err
		}
		t.Brand = brand

		owner := &models.Staff{
			ID:           uuid.NewString(),
			TenantID:     t.ID,
			Name:         strings.TrimSpace(in.OwnerName),
			Email:        in.Email,
			Phone:        in.Phone,
			PasswordHash: hash,
			Role:         models.RoleOwner,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.CreateStaff(ctx, owner); err != nil {
			return err
		}

		if code, err = s.OTP.Using(tx).Issue(ctx, otp.VerifyKey(in.Email), s.EmailTTL); err != nil {
			return err
		}

		result = RegisterResult{Tenant: t, Staff: owner}
		return nil
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict("Email or restaurant name is already registered")
		}
		return nil, fmt.Errorf("register tenant: %w", err)
	}

	s.Logger.Info("TENANT", fmt.Sprintf("Registered %s (%s)", result.Tenant.Slug, result.Tenant.ID))
	s.sendCode(ctx, in.Email, "verification", code)
	return &result, nil
}

// VerifyRegistration consumes the emailed code and marks the tenant verified.
func (s *Service) VerifyRegistration(ctx context.Context, email, code string) (*models.Tenant, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.OTP.Verify(ctx, otp.VerifyKey(email), strings.TrimSpace(code)); err != nil {
		return nil, err
	}

	t, err := s.tenantForOwnerEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	t.IsVerified = true
	t.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateTenant(ctx, t, "is_verified", "updated_at"); err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}

	s.Logger.Info("TENANT", fmt.Sprintf("Verified %s", t.Slug))
	return t, nil
}

// ResendVerification issues a new code for a tenant still awaiting verification.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	t, err := s.tenantForOwnerEmail(ctx, email)
	if err != nil {
		return err
	}
	if t.IsVerified {
		return apperr.NewValidation("Email is already verified")
	}
	code, err := s.OTP.Issue(ctx, otp.VerifyKey(email), s.EmailTTL)
	if err != nil {
		return err
	}
	s.sendCode(ctx, email, "verification", code)
	return nil
}

func (s *Service) tenantForOwnerEmail(ctx context.Context, email string) (*models.Tenant, error) {
	staff, err := s.DB.GetStaffByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Account not found")
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}
	t, err := s.DB.GetTenant(ctx, staff.TenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return t, nil
}

func (s *Service) sendCode(ctx context.Context, to, purpose, code string) {
	if s.Notifier == nil {
		return
	}
	subject, body := otp.CodeMessage(purpose, code, int(s.EmailTTL.Minutes()))
	if err := s.Notifier.Send(ctx, to, subject, body); err != nil {
		s.Logger.Error("TENANT", fmt.Sprintf("Failed to deliver %s code to %s: %v", purpose, to, err))
	}
}

func (s *Service) Get(ctx context.Context, id string) (*models.Tenant, error) {
	t, err := s.DB.GetTenant(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return t, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	t, err := s.DB.GetTenantBySlug(ctx, slug)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return t, nil
}

func (s *Service) invalidate(ctx context.Context, slug string) {
	if s.Menu != nil {
		s.Menu.InvalidateMenu(ctx, slug)
	}
}
