// Package staff signs restaurant staff in and manages their accounts.
package staff

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
)

var errBadCredentials = apperr.NewUnauthorized("Invalid email or password")

type Service struct {
	DB         *store.DB
	Codec      *auth.Codec
	OTP        *otp.Service
	Notifier   otp.Notifier
	SessionTTL time.Duration
	ResetTTL   time.Duration
	Logger     *logger.Logger
	Clock      utils.Clock
}

type LoginResult struct {
	Token  string         `json:"-"`
	Claims *auth.Claims   `json:"-"`
	Staff  *models.Staff  `json:"user"`
	Tenant *models.Tenant `json:"tenant"`
}

// Login checks the password of an active staff member. Staff of a tenant that
// finished onboarding and was later deactivated cannot sign in.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.NewValidation("Email and password are required")
	}

	member, err := s.DB.GetStaffByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			s.Logger.LogSecurity("STAFF_LOGIN_FAILED", email)
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}
	if !member.IsActive || !auth.CheckPassword(member.PasswordHash, password) {
		s.Logger.LogSecurity("STAFF_LOGIN_FAILED", email)
		return nil, errBadCredentials
	}

	tenant, err := s.DB.GetTenant(ctx, member.TenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsActive && tenant.OnboardingCompleted {
		s.Logger.LogSecurity("STAFF_LOGIN_SUSPENDED", fmt.Sprintf("%s tenant=%s", email, tenant.ID))
		return nil, apperr.NewUnauthorized("Restaurant account is suspended")
	}

	claims := auth.Claims{TenantID: tenant.ID, Name: member.Name, Role: member.Role, Kind: auth.KindStaff}
	claims.Subject = member.ID
	token, err := s.Codec.Encode(claims, s.SessionTTL)
	if err != nil {
		return nil, err
	}
	decoded, err := s.Codec.Decode(token)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	member.LastLoginAt = &now
	if err := s.DB.UpdateStaff(ctx, member, "last_login_at"); err != nil {
		s.Logger.Warn("STAFF", fmt.Sprintf("Failed to record login for %s: %v", member.ID, err))
	}

	s.Logger.Info("STAFF", fmt.Sprintf("%s signed in to %s as %s", member.Email, tenant.Slug, member.Role))
	return &LoginResult{Token: token, Claims: decoded, Staff: member, Tenant: tenant}, nil
}

// Me reloads the signed-in member for the verify endpoint.
func (s *Service) Me(ctx context.Context, claims *auth.Claims) (*LoginResult, error) {
	member, err := s.Get(ctx, claims.TenantID, claims.UserID())
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, apperr.NewUnauthorized("Account is disabled")
	}
	tenant, err := s.DB.GetTenant(ctx, claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	return &LoginResult{Claims: claims, Staff: member, Tenant: tenant}, nil
}

// ForgotPassword mails a reset code when the address belongs to an active
// account. The outcome is never revealed to the caller.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return apperr.NewValidation("Email is required")
	}

	member, err := s.DB.GetStaffByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("load staff: %w", err)
	}
	if !member.IsActive {
		return nil
	}

	code, err := s.OTP.Issue(ctx, otp.ResetKey(email), s.ResetTTL)
	if err != nil {
		if apperr.Is(err, apperr.RateLimited) {
			return nil
		}
		return err
	}
	if s.Notifier != nil {
		subject, body := otp.CodeMessage("password reset", code, int(s.ResetTTL.Minutes()))
		if err := s.Notifier.Send(ctx, email, subject, body); err != nil {
			s.Logger.Error("STAFF", fmt.Sprintf("Failed to deliver reset code to %s: %v", email, err))
		}
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(newPassword) < auth.MinPasswordLength {
		return apperr.NewValidation("Password must be at least 8 characters")
	}
	if err := s.OTP.Verify(ctx, otp.ResetKey(email), strings.TrimSpace(code)); err != nil {
		return err
	}

	member, err := s.DB.GetStaffByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			return otp.ErrInvalidOrExpired
		}
		return fmt.Errorf("load staff: %w", err)
	}
	if member.PasswordHash, err = auth.HashPassword(newPassword); err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	member.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateStaff(ctx, member, "password_hash", "updated_at"); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.Logger.LogSecurity("STAFF_PASSWORD_RESET", member.ID)
	return nil
}
