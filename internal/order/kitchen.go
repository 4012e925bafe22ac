package order

import (
	"context"
	"fmt"
	"math"

	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"
)

type KitchenStats struct {
	Pending        int `json:"pending"`
	Confirmed      int `json:"confirmed"`
	Preparing      int `json:"preparing"`
	Ready          int `json:"ready"`
	TotalActive    int `json:"totalActive"`
	AvgPrepMinutes int `json:"avgPrepMinutes"`
}

type KitchenView struct {
	Orders []models.Order `json:"orders"`
	Stats  KitchenStats   `json:"stats"`
}

// KitchenQueue returns the tenant's open tickets oldest first with per-state
// counts and today's average preparation time.
func (s *Service) KitchenQueue(ctx context.Context, tenantID string) (*KitchenView, error) {
	orders, err := s.DB.ListOrders(ctx, tenantID, store.OrderFilter{
		Statuses:    ActiveStatuses,
		OldestFirst: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list kitchen orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}

	view := &KitchenView{Orders: orders}
	for _, o := range orders {
		switch o.Status {
		case models.OrderPending:
			view.Stats.Pending++
		case models.OrderConfirmed:
			view.Stats.Confirmed++
		case models.OrderPreparing:
			view.Stats.Preparing++
		case models.OrderReady:
			view.Stats.Ready++
		}
	}
	view.Stats.TotalActive = len(orders)

	midnight := utils.StartOfDay(s.Clock.Now(), s.location())
	done, err := s.DB.CompletedOrdersSince(ctx, tenantID, midnight.UTC())
	if err != nil {
		return nil, fmt.Errorf("list completed orders: %w", err)
	}
	view.Stats.AvgPrepMinutes = averagePrep(done)
	return view, nil
}

func averagePrep(orders []models.Order) int {
	if len(orders) == 0 {
		return 0
	}
	var sum float64
	for _, o := range orders {
		sum += math.Floor(o.UpdatedAt.Sub(o.CreatedAt).Minutes())
	}
	return int(math.Round(sum / float64(len(orders))))
}
