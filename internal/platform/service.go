// Package platform covers operator accounts and cross-tenant statistics.
package platform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

var errBadCredentials = apperr.NewUnauthorized("Invalid email or password")

type Service struct {
	DB         *store.DB
	Codec      *auth.Codec
	SessionTTL time.Duration
	Logger     *logger.Logger
	Clock      utils.Clock
}

type LoginResult struct {
	Token  string                `json:"-"`
	Claims *auth.Claims          `json:"-"`
	Admin  *models.PlatformAdmin `json:"user"`
}

type CreateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN SUPER_ADMIN"`
}

type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Role     *string `json:"role" validate:"omitempty,oneof=ADMIN SUPER_ADMIN"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

type Stats struct {
	Tenants store.TenantCounts        `json:"tenants"`
	Orders  store.PlatformOrderTotals `json:"orders"`
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.NewValidation("Email and password are required")
	}

	admin, err := s.DB.GetPlatformAdminByEmail(ctx, email)
	if err != nil {
		if store.IsNotFound(err) {
			s.Logger.LogSecurity("PLATFORM_LOGIN_FAILED", email)
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	if !admin.IsActive || !auth.CheckPassword(admin.PasswordHash, password) {
		s.Logger.LogSecurity("PLATFORM_LOGIN_FAILED", email)
		return nil, errBadCredentials
	}

	claims := auth.Claims{Name: admin.Name, Role: admin.Role, Kind: auth.KindPlatform}
	claims.Subject = admin.ID
	token, err := s.Codec.Encode(claims, s.SessionTTL)
	if err != nil {
		return nil, err
	}
	decoded, err := s.Codec.Decode(token)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	admin.LastLoginAt = &now
	if err := s.DB.UpdatePlatformAdmin(ctx, admin, "last_login_at"); err != nil {
		s.Logger.Warn("PLATFORM", fmt.Sprintf("Failed to record login for %s: %v", admin.ID, err))
	}

	s.Logger.Info("PLATFORM", fmt.Sprintf("%s signed in as %s", admin.Email, admin.Role))
	return &LoginResult{Token: token, Claims: decoded, Admin: admin}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.PlatformAdmin, error) {
	admin, err := s.DB.GetPlatformAdmin(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Admin not found")
		}
		return nil, fmt.Errorf("load admin: %w", err)
	}
	return admin, nil
}

func (s *Service) List(ctx context.Context) ([]models.PlatformAdmin, error) {
	admins, err := s.DB.ListPlatformAdmins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// Create adds an operator. Only a SUPER_ADMIN may call it.
func (s *Service) Create(ctx context.Context, caller *auth.Claims, in CreateInput) (*models.PlatformAdmin, error) {
	if caller == nil || caller.Role != models.RoleSuperAdmin {
		return nil, apperr.NewForbidden("Only super admins can add admins")
	}
	if in.Role == "" {
		in.Role = models.RoleAdmin
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in CreateInput) (*models.PlatformAdmin, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || in.Password == "" {
		return nil, apperr.NewValidation("Email and password are required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.NewValidation("Password must be at least 8 characters")
	}
	if in.Role != models.RoleAdmin && in.Role != models.RoleSuperAdmin {
		return nil, apperr.NewValidation("Role must be ADMIN or SUPER_ADMIN")
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := s.Clock.Now().UTC()
	admin := &models.PlatformAdmin{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreatePlatformAdmin(ctx, admin); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict("Email is already registered")
		}
		return nil, fmt.Errorf("create admin: %w", err)
	}
	s.Logger.LogSecurity("PLATFORM_ADMIN_CREATED", fmt.Sprintf("%s role=%s", admin.Email, admin.Role))
	return admin, nil
}

// Update edits an operator. SUPER_ADMIN records keep their role and stay
// active, only a SUPER_ADMIN can grant the role, and only a SUPER_ADMIN can
// edit another SUPER_ADMIN at all.
func (s *Service) Update(ctx context.Context, caller *auth.Claims, id string, in UpdateInput) (*models.PlatformAdmin, error) {
	admin, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin.Role == models.RoleSuperAdmin && (caller == nil || caller.Role != models.RoleSuperAdmin) {
		return nil, apperr.NewForbidden("Only super admins can edit a super admin")
	}

	columns := []string{"updated_at"}
	if in.Role != nil && *in.Role != admin.Role {
		if admin.Role == models.RoleSuperAdmin {
			return nil, apperr.NewForbidden("Super admins cannot be demoted")
		}
		if *in.Role == models.RoleSuperAdmin && (caller == nil || caller.Role != models.RoleSuperAdmin) {
			return nil, apperr.NewForbidden("Only super admins can grant that role")
		}
		if *in.Role != models.RoleAdmin && *in.Role != models.RoleSuperAdmin {
			return nil, apperr.NewValidation("Role must be ADMIN or SUPER_ADMIN")
		}
		admin.Role = *in.Role
		columns = append(columns, "role")
	}
	if in.IsActive != nil && *in.IsActive != admin.IsActive {
		if admin.Role == models.RoleSuperAdmin && !*in.IsActive {
			return nil, apperr.NewForbidden("Super admins cannot be deactivated")
		}
		admin.IsActive = *in.IsActive
		columns = append(columns, "is_active")
	}
	if in.Name != nil {
		admin.Name = strings.TrimSpace(*in.Name)
		columns = append(columns, "name")
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			return nil, apperr.NewValidation("Password must be at least 8 characters")
		}
		if admin.PasswordHash, err = auth.HashPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		columns = append(columns, "password_hash")
	}
	admin.UpdatedAt = s.Clock.Now().UTC()

	if err := s.DB.UpdatePlatformAdmin(ctx, admin, columns...); err != nil {
		return nil, fmt.Errorf("update admin: %w", err)
	}
	return admin, nil
}

func (s *Service) Delete(ctx context.Context, caller *auth.Claims, id string) error {
	if caller == nil || caller.Role != models.RoleSuperAdmin {
		return apperr.NewForbidden("Only super admins can remove admins")
	}
	admin, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if admin.Role == models.RoleSuperAdmin {
		return apperr.NewForbidden("Super admins cannot be removed")
	}
	if err := s.DB.DeletePlatformAdmin(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return apperr.NewNotFound("Admin not found")
		}
		return fmt.Errorf("delete admin: %w", err)
	}
	s.Logger.LogSecurity("PLATFORM_ADMIN_DELETED", admin.Email)
	return nil
}

// Bootstrap makes sure a SUPER_ADMIN with this email exists. Running it again
// leaves an existing account untouched.
func (s *Service) Bootstrap(ctx context.Context, email, password, name string) (*models.PlatformAdmin, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.DB.GetPlatformAdminByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !store.IsNotFound(err) {
		return nil, false, fmt.Errorf("load admin: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		name = "Super Admin"
	}
	admin, err := s.create(ctx, CreateInput{Name: name, Email: email, Password: password, Role: models.RoleSuperAdmin})
	if err != nil {
		return nil, false, err
	}
	return admin, true, nil
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	tenants, err := s.DB.CountTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("count tenants: %w", err)
	}
	orders, err := s.DB.PlatformOrderTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("order totals: %w", err)
	}
	orders.Revenue = utils.RoundMoney(orders.Revenue)
	return &Stats{Tenants: tenants, Orders: orders}, nil
}
