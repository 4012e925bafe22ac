// Package analytics aggregates a tenant's orders for the dashboard.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/store"
	"dineflow/internal/utils"
)

const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeAll   = "all"

	topItemsLimit = 5
)

// Service handles dashboard aggregation
type Service struct {
	DB       *store.DB
	Location *time.Location
	Logger   *logger.Logger
	Clock    utils.Clock
}

func NewService(db *store.DB, log *logger.Logger) *Service {
	return &Service{DB: db, Location: time.UTC, Logger: log}
}

// TopItem is one row of the best sellers ranking
type TopItem struct {
	MenuItemID string  `json:"menuItemId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Revenue    float64 `json:"revenue"`
}

// DailySales contains metrics for a single local day
type DailySales struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type Stats struct {
	Range             string       `json:"range"`
	TotalOrders       int          `json:"totalOrders"`
	TodayOrders       int          `json:"todayOrders"`
	TotalRevenue      float64      `json:"totalRevenue"`
	TodayRevenue      float64      `json:"todayRevenue"`
	PendingOrders     int          `json:"pendingOrders"`
	CompletedOrders   int          `json:"completedOrders"`
	CancelledOrders   int          `json:"cancelledOrders"`
	AverageOrderValue float64      `json:"averageOrderValue"`
	TopItems          []TopItem    `json:"topItems"`
	DailySales        []DailySales `json:"dailySales"`
	ActiveTables      int          `json:"activeTables"`
	MenuItems         int          `json:"menuItems"`
}

// Since maps a range name to the start of its window. The zero time means
// no lower bound.
func (s *Service) Since(rangeName string) (time.Time, error) {
	now := s.Clock.Now()
	switch strings.ToLower(rangeName) {
	case RangeToday, "":
		return utils.StartOfDay(now, s.location()), nil
	case RangeWeek:
		return now.Add(-7 * 24 * time.Hour), nil
	case RangeMonth:
		return now.Add(-30 * 24 * time.Hour), nil
	case RangeAll:
		return time.Time{}, nil
	}
	return time.Time{}, apperr.NewValidation(fmt.Sprintf("Unknown range %q", rangeName))
}

// Stats computes the dashboard figures for the range.
func (s *Service) Stats(ctx context.Context, tenantID, rangeName string) (*Stats, error) {
	if rangeName == "" {
		rangeName = RangeToday
	}
	since, err := s.Since(rangeName)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	midnight := utils.StartOfDay(s.Clock.Now(), s.location())
	st := &Stats{Range: strings.ToLower(rangeName), TotalOrders: len(orders)}
	var billable int
	for _, o := range orders {
		cancelled := o.Status == models.OrderCancelled
		if !o.CreatedAt.Before(midnight) {
			st.TodayOrders++
			if !cancelled {
				st.TodayRevenue += o.Total
			}
		}
		switch o.Status {
		case models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady:
			st.PendingOrders++
		case models.OrderServed, models.OrderCompleted:
			st.CompletedOrders++
		case models.OrderCancelled:
			st.CancelledOrders++
		}
		if !cancelled {
			billable++
			st.TotalRevenue += o.Total
		}
	}
	st.TotalRevenue = utils.RoundMoney(st.TotalRevenue)
	st.TodayRevenue = utils.RoundMoney(st.TodayRevenue)
	if billable > 0 {
		st.AverageOrderValue = utils.RoundMoney(st.TotalRevenue / float64(billable))
	}
	st.TopItems = topItems(orders, topItemsLimit)
	st.DailySales = dailySales(orders, s.location())

	if st.ActiveTables, err = s.DB.CountActiveTables(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("count tables: %w", err)
	}
	if st.MenuItems, err = s.DB.CountMenuItems(ctx, tenantID); err != nil {
		return nil, fmt.Errorf("count menu items: %w", err)
	}
	return st, nil
}

func (s *Service) orders(ctx context.Context, tenantID string, since time.Time) ([]models.Order, error) {
	f := store.OrderFilter{OldestFirst: true}
	if !since.IsZero() {
		f.Since = since.UTC()
	}
	orders, err := s.DB.ListOrders(ctx, tenantID, f)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// topItems ranks items of non-cancelled orders by quantity, then name.
// A limit of zero keeps every item.
func topItems(orders []models.Order, limit int) []TopItem {
	byID := map[string]*TopItem{}
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		for _, it := range o.Items {
			t, ok := byID[it.MenuItemID]
			if !ok {
				t = &TopItem{MenuItemID: it.MenuItemID, Name: it.Name}
				byID[it.MenuItemID] = t
			}
			t.Quantity += it.Quantity
			t.Revenue += it.LineTotal
		}
	}

	out := make([]TopItem, 0, len(byID))
	for _, t := range byID {
		t.Revenue = utils.RoundMoney(t.Revenue)
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].MenuItemID < out[j].MenuItemID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func dailySales(orders []models.Order, loc *time.Location) []DailySales {
	out := []DailySales{}
	index := map[string]int{}
	for _, o := range orders {
		if o.Status == models.OrderCancelled {
			continue
		}
		day := o.CreatedAt.In(loc).Format("2006-01-02")
		i, ok := index[day]
		if !ok {
			i = len(out)
			index[day] = i
			out = append(out, DailySales{Date: day})
		}
		out[i].Orders++
		out[i].Revenue = utils.RoundMoney(out[i].Revenue + o.Total)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
