// Package waiter handles diners calling staff to their table.
package waiter

import (
	"context"
	"fmt"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/events"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

var errAlreadyPending = apperr.NewConflict("A waiter has already been called to this table")

var flow = map[string][]string{
	models.WaiterCallPending:   {models.WaiterCallAttended, models.WaiterCallCompleted},
	models.WaiterCallAttended:  {models.WaiterCallCompleted},
	models.WaiterCallCompleted: nil,
}

type Service struct {
	DB     *store.DB
	Events events.Publisher
	Logger *logger.Logger
	Clock  utils.Clock
}

type CreateInput struct {
	TenantID string `json:"tenantId" validate:"required"`
	TableID  string `json:"tableId" validate:"required"`
	Reason   string `json:"reason" validate:"max=200"`
}

// Create opens a call for the table unless one is already pending.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.WaiterCall, error) {
	now := s.Clock.Now().UTC()
	call := &models.WaiterCall{
		ID:        uuid.NewString(),
		TenantID:  in.TenantID,
		TableID:   in.TableID,
		Reason:    strings.TrimSpace(in.Reason),
		Status:    models.WaiterCallPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		table, err := tx.GetTable(ctx, in.TenantID, in.TableID)
		if err != nil {
			if store.IsNotFound(err) {
				return apperr.NewNotFound("Table not found")
			}
			return err
		}
		if !table.IsActive {
			return apperr.NewValidation("Table is not active")
		}
		call.Table = table

		pending, err := tx.HasPendingWaiterCall(ctx, in.TenantID, in.TableID)
		if err != nil {
			return err
		}
		if pending {
			return errAlreadyPending
		}
		return tx.InsertWaiterCall(ctx, call)
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.Internal {
			return nil, err
		}
		return nil, fmt.Errorf("create waiter call: %w", err)
	}

	s.Logger.Info("WAITER", fmt.Sprintf("Table %s called a waiter (tenant %s)", call.Table.Name, call.TenantID))
	events.PublishQuietly(ctx, s.Events, s.Logger, events.ForWaiterCall(events.WaiterCallCreated, call))
	return call, nil
}

func (s *Service) List(ctx context.Context, tenantID, status string) ([]models.WaiterCall, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := flow[status]; status != "" && !ok {
		return nil, apperr.NewValidation(fmt.Sprintf("Unknown waiter call status %q", status))
	}
	calls, err := s.DB.ListWaiterCalls(ctx, tenantID, status)
	if err != nil {
		return nil, fmt.Errorf("list waiter calls: %w", err)
	}
	return calls, nil
}

// UpdateStatus moves a call forward and records who took it.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, id, status, staffID string) (*models.WaiterCall, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if _, ok := flow[status]; !ok {
		return nil, apperr.NewValidation(fmt.Sprintf("Unknown waiter call status %q", status))
	}

	call, err := s.DB.GetWaiterCall(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Waiter call not found")
		}
		return nil, fmt.Errorf("load waiter call: %w", err)
	}
	if call.Status == status {
		return call, nil
	}
	if !allowed(call.Status, status) {
		return nil, apperr.NewValidation(fmt.Sprintf("Cannot move waiter call from %s to %s", call.Status, status))
	}

	call.Status = status
	call.UpdatedAt = s.Clock.Now().UTC()
	columns := []string{"status", "updated_at"}
	if staffID != "" && call.AttendedBy == "" {
		call.AttendedBy = staffID
		columns = append(columns, "attended_by")
	}
	if err := s.DB.UpdateWaiterCall(ctx, call, columns...); err != nil {
		return nil, fmt.Errorf("update waiter call: %w", err)
	}

	events.PublishQuietly(ctx, s.Events, s.Logger, events.ForWaiterCall(events.WaiterCallUpdated, call))
	return call, nil
}

func allowed(from, to string) bool {
	for _, next := range flow[from] {
		if next == to {
			return true
		}
	}
	return false
}
