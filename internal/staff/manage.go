package staff

import (
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/models"
	"dineflow/internal/store"

	"github.com/google/uuid"
)

var errOwnerImmutable = apperr.NewForbidden("The owner account cannot be modified")

type CreateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Role     string `json:"role" validate:"required,oneof=MANAGER CHEF WAITER"`
	Password string `json:"password" validate:"required,min=8"`
}

type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Role     *string `json:"role" validate:"omitempty,oneof=MANAGER CHEF WAITER"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password" validate:"omitempty,min=8"`
}

func assignableRole(role string) bool {
	switch role {
	case models.RoleManager, models.RoleChef, models.RoleWaiter:
		return true
	}
	return false
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.Staff, error) {
	staff, err := s.DB.ListStaff(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	return staff, nil
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Staff, error) {
	member, err := s.DB.GetStaff(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Staff member not found")
		}
		return nil, fmt.Errorf("load staff: %w", err)
	}
	return member, nil
}

func (s *Service) Create(ctx context.Context, tenantID string, in CreateInput) (*models.Staff, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" || in.Name == "" {
		return nil, apperr.NewValidation("Name, email and password are required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.NewValidation("Password must be at least 8 characters")
	}
	if !assignableRole(in.Role) {
		return nil, apperr.NewValidation("Role must be one of MANAGER, CHEF or WAITER")
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
	member := &models.Staff{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.DB.CreateStaff(ctx, member); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict("Email is already registered")
		}
		return nil, fmt.Errorf("create staff: %w", err)
	}

	s.Logger.LogDatabase("INSERT", "staff", fmt.Sprintf("tenant=%s role=%s", tenantID, member.Role))
	return member, nil
}

// Update changes a non-owner record. Nobody can be promoted to OWNER.
func (s *Service) Update(ctx context.Context, tenantID, id string, in UpdateInput) (*models.Staff, error) {
	member, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if member.Role == models.RoleOwner {
		return nil, errOwnerImmutable
	}

	columns := []string{"updated_at"}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.NewValidation("Name is required")
		}
		member.Name = name
		columns = append(columns, "name")
	}
	if in.Phone != nil {
		member.Phone = strings.TrimSpace(*in.Phone)
		columns = append(columns, "phone")
	}
	if in.Role != nil {
		if !assignableRole(*in.Role) {
			return nil, apperr.NewValidation("Role must be one of MANAGER, CHEF or WAITER")
		}
		member.Role = *in.Role
		columns = append(columns, "role")
	}
	if in.IsActive != nil {
		member.IsActive = *in.IsActive
		columns = append(columns, "is_active")
	}
	if in.Password != nil {
		if len(*in.Password) < auth.MinPasswordLength {
			return nil, apperr.NewValidation("Password must be at least 8 characters")
		}
		if member.PasswordHash, err = auth.HashPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		columns = append(columns, "password_hash")
	}
	member.UpdatedAt = s.Clock.Now().UTC()

	if err := s.DB.UpdateStaff(ctx, member, columns...); err != nil {
		return nil, fmt.Errorf("update staff: %w", err)
	}
	return member, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	member, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if member.Role == models.RoleOwner {
		return errOwnerImmutable
	}
	if err := s.DB.DeleteStaff(ctx, tenantID, id); err != nil {
		if store.IsNotFound(err) {
			return apperr.NewNotFound("Staff member not found")
		}
		return fmt.Errorf("delete staff: %w", err)
	}
	s.Logger.LogDatabase("DELETE", "staff", fmt.Sprintf("tenant=%s id=%s", tenantID, id))
	return nil
}
