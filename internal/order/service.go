// Package order places diner orders and moves them through the kitchen.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/customer"
	"dineflow/internal/events"
	"dineflow/internal/logger"
	"dineflow/internal/metrics"
	"dineflow/internal/models"
	"dineflow/internal/sequence"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

const (
	DefaultItemPrepMinutes = 10
	MaxPrepMinutes         = 90
	NumberPrefix           = "ORD"
)

type Service struct {
	DB        *store.DB
	Sequencer sequence.Sequencer
	Events    events.Publisher
	Strict    bool
	Location  *time.Location
	Logger    *logger.Logger
	Clock     utils.Clock
}

func NewService(db *store.DB, seq sequence.Sequencer, pub events.Publisher, log *logger.Logger) *Service {
	return &Service{DB: db, Sequencer: seq, Events: pub, Strict: true, Location: time.UTC, Logger: log}
}

type ItemInput struct {
	MenuItemID       string   `json:"menuItemId" validate:"required"`
	Quantity         int      `json:"quantity" validate:"required,min=1,max=99"`
	CustomizationIDs []string `json:"customizationIds"`
	Notes            string   `json:"notes" validate:"max=300"`
}

type CustomerInput struct {
	Name  string `json:"name" validate:"max=120"`
	Phone string `json:"phone" validate:"omitempty,min=5,max=32"`
}

type CreateInput struct {
	TenantID        string         `json:"tenantId" validate:"required"`
	TableID         string         `json:"tableId"`
	Customer        *CustomerInput `json:"customer"`
	Items           []ItemInput    `json:"items" validate:"required,min=1,dive"`
	SpecialRequests string         `json:"specialRequests" validate:"max=500"`
}

type UpdateInput struct {
	Status        *string  `json:"status"`
	PaymentStatus *string  `json:"paymentStatus"`
	PaymentMethod *string  `json:"paymentMethod" validate:"omitempty,max=40"`
	Tip           *float64 `json:"tip" validate:"omitempty,min=0"`
}

type ListFilter struct {
	Status        string
	PaymentStatus string
	TableID       string
	Since         time.Time
	Limit         int
}

// Create validates the cart against the live menu, prices it and stores the
// order with its number and the customer's running totals in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if len(in.Items) == 0 {
		return nil, apperr.NewValidation("Order must contain at least one item")
	}

	tenant, err := s.DB.GetTenant(ctx, in.TenantID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Restaurant not found")
		}
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	if !tenant.IsActive {
		return nil, apperr.NewValidation("Restaurant is not accepting orders")
	}

	var table *models.Table
	if in.TableID != "" {
		table, err = s.DB.GetTable(ctx, tenant.ID, in.TableID)
		if err != nil {
			if store.IsNotFound(err) {
				return nil, apperr.NewNotFound("Table not found")
			}
			return nil, fmt.Errorf("load table: %w", err)
		}
		if !table.IsActive {
			return nil, apperr.NewValidation("Table is not active")
		}
	}

	ids := make([]string, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.MenuItemID)
	}
	menu, err := s.DB.GetMenuItems(ctx, tenant.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}

	now := s.Clock.Now().UTC()
	o := &models.Order{
		ID:              uuid.NewString(),
		TenantID:        tenant.ID,
		Status:          models.OrderConfirmed,
		PaymentStatus:   models.PaymentPending,
		SpecialRequests: strings.TrimSpace(in.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
		Table:           table,
	}
	if table != nil {
		o.TableID = &table.ID
	}
	if in.Customer != nil {
		o.CustomerName = strings.TrimSpace(in.Customer.Name)
		o.CustomerPhone = strings.TrimSpace(in.Customer.Phone)
	}

	var subtotal float64
	maxPrep, totalQty := 0, 0
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, apperr.NewValidation("Quantity must be at least 1")
		}
		mi, ok := menu[it.MenuItemID]
		if !ok {
			return nil, apperr.NewNotFound(fmt.Sprintf("Menu item %s not found", it.MenuItemID))
		}
		if !mi.IsAvailable {
			return nil, apperr.NewValidation(fmt.Sprintf("%s is not available", mi.Name))
		}

		line, err := priceLine(o.ID, mi, it)
		if err != nil {
			return nil, err
		}
		o.Items = append(o.Items, line)
		subtotal += line.LineTotal
		totalQty += it.Quantity

		prep := mi.PrepTimeMinutes
		if prep <= 0 {
			prep = DefaultItemPrepMinutes
		}
		if prep > maxPrep {
			maxPrep = prep
		}
	}
	o.Subtotal = utils.RoundMoney(subtotal)
	o.EstimatedPrepMinutes = EstimatePrep(maxPrep, totalQty)

	if !tenant.TaxInclusive {
		taxes, err := s.DB.ListTaxSettings(ctx, tenant.ID, true)
		if err != nil {
			return nil, fmt.Errorf("load taxes: %w", err)
		}
		o.Tax = TotalTax(o.Subtotal, taxes)
	}
	o.Total = utils.RoundMoney(o.Subtotal + o.Tax)

	day := utils.DayKey(now.In(s.location()))
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		n, err := s.Sequencer.Next(ctx, tx, tenant.ID, sequence.ScopeOrder, day)
		if err != nil {
			return err
		}
		o.OrderNumber = utils.FormatSequence(NumberPrefix, now.In(s.location()), n)

		if o.CustomerPhone != "" {
			c, err := customer.Record(ctx, tx, tenant.ID, o.CustomerPhone, o.CustomerName, o.Total, now)
			if err != nil {
				return fmt.Errorf("record customer: %w", err)
			}
			o.CustomerID = &c.ID
		}
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, apperr.NewConflict("Order number collided, please retry")
		}
		return nil, fmt.Errorf("create order: %w", err)
	}

	metrics.OrdersCreated.Inc()
	s.Logger.LogOrder("CREATED", o.OrderNumber, fmt.Sprintf("tenant=%s items=%d total=%.2f", tenant.ID, totalQty, o.Total))
	events.PublishQuietly(ctx, s.Events, s.Logger, events.ForOrder(events.OrderCreated, o))
	return o, nil
}

func priceLine(orderID string, mi *models.MenuItem, in ItemInput) (*models.OrderItem, error) {
	byID := make(map[string]*models.Customization, len(mi.Customizations))
	for _, c := range mi.Customizations {
		byID[c.ID] = c
	}

	unit := mi.Price
	selected := make([]models.SelectedCustomization, 0, len(in.CustomizationIDs))
	for _, id := range in.CustomizationIDs {
		c, ok := byID[id]
		if !ok {
			return nil, apperr.NewValidation(fmt.Sprintf("Customization %s does not belong to %s", id, mi.Name))
		}
		if !c.IsAvailable {
			return nil, apperr.NewValidation(fmt.Sprintf("%s is not available", c.Name))
		}
		unit += c.PriceDelta
		selected = append(selected, models.SelectedCustomization{ID: c.ID, Name: c.Name, PriceDelta: c.PriceDelta})
	}
	unit = utils.RoundMoney(unit)

	return &models.OrderItem{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		MenuItemID:     mi.ID,
		Name:           mi.Name,
		Quantity:       in.Quantity,
		UnitPrice:      unit,
		Customizations: selected,
		Notes:          strings.TrimSpace(in.Notes),
		LineTotal:      utils.RoundMoney(unit * float64(in.Quantity)),
	}, nil
}

// EstimatePrep is the slowest item plus two minutes per extra portion,
// capped at MaxPrepMinutes.
func EstimatePrep(maxItemPrep, totalQty int) int {
	if maxItemPrep <= 0 {
		maxItemPrep = DefaultItemPrepMinutes
	}
	est := maxItemPrep
	if totalQty > 1 {
		est += 2 * (totalQty - 1)
	}
	if est > MaxPrepMinutes {
		est = MaxPrepMinutes
	}
	return est
}

// TotalTax applies each rate to subtotal, rounding per line.
func TotalTax(subtotal float64, taxes []models.TaxSetting) float64 {
	var total float64
	for _, t := range taxes {
		total += utils.RoundMoney(subtotal * t.Rate / 100)
	}
	return utils.RoundMoney(total)
}

// Get looks the order up by id first, then by order number.
func (s *Service) Get(ctx context.Context, tenantID, idOrNumber string) (*models.Order, error) {
	o, err := s.DB.GetOrder(ctx, tenantID, idOrNumber)
	if err == nil {
		return o, nil
	}
	if !store.IsNotFound(err) {
		return nil, fmt.Errorf("load order: %w", err)
	}
	o, err = s.DB.GetOrderByNumber(ctx, tenantID, idOrNumber)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, tenantID string, f ListFilter) ([]models.Order, error) {
	filter := store.OrderFilter{
		PaymentStatus: f.PaymentStatus,
		TableID:       f.TableID,
		Since:         f.Since,
		Limit:         f.Limit,
	}
	if f.Status != "" {
		for _, st := range strings.Split(f.Status, ",") {
			st = strings.ToUpper(strings.TrimSpace(st))
			if !ValidStatus(st) {
				return nil, apperr.NewValidation(fmt.Sprintf("Unknown order status %q", st))
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	orders, err := s.DB.ListOrders(ctx, tenantID, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies the supplied fields. Concurrent updates are last write
// wins.
func (s *Service) UpdateStatus(ctx context.Context, tenantID, idOrNumber string, in UpdateInput) (*models.Order, error) {
	o, err := s.Get(ctx, tenantID, idOrNumber)
	if err != nil {
		return nil, err
	}

	columns := []string{"updated_at"}
	if in.Status != nil {
		to := strings.ToUpper(strings.TrimSpace(*in.Status))
		if err := checkStatus(o.Status, to, s.Strict); err != nil {
			return nil, err
		}
		if to != o.Status {
			o.Status = to
			columns = append(columns, "status")
		}
	}
	if in.PaymentStatus != nil {
		to := strings.ToUpper(strings.TrimSpace(*in.PaymentStatus))
		if err := checkPayment(o.PaymentStatus, to, s.Strict); err != nil {
			return nil, err
		}
		if to != o.PaymentStatus {
			o.PaymentStatus = to
			columns = append(columns, "payment_status")
		}
	}
	if in.PaymentMethod != nil {
		o.PaymentMethod = strings.TrimSpace(*in.PaymentMethod)
		columns = append(columns, "payment_method")
	}
	if in.Tip != nil {
		if *in.Tip < 0 {
			return nil, apperr.NewValidation("Tip cannot be negative")
		}
		o.Tip = utils.RoundMoney(*in.Tip)
		o.Total = utils.RoundMoney(o.Subtotal + o.Tax + o.Tip)
		columns = append(columns, "tip", "total")
	}
	if len(columns) == 1 {
		return o, nil
	}

	o.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateOrder(ctx, o, columns...); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}

	metrics.OrderStatusChanges.WithLabelValues(o.Status).Inc()
	s.Logger.LogOrder("UPDATED", o.OrderNumber, fmt.Sprintf("status=%s payment=%s", o.Status, o.PaymentStatus))
	events.PublishQuietly(ctx, s.Events, s.Logger, events.ForOrder(events.OrderUpdated, o))
	return o, nil
}

// SetPaymentReference stores the payment provider's id on the order.
func (s *Service) SetPaymentReference(ctx context.Context, o *models.Order, ref string) error {
	o.PaymentReference = ref
	o.UpdatedAt = s.Clock.Now().UTC()
	if err := s.DB.UpdateOrder(ctx, o, "payment_reference", "updated_at"); err != nil {
		return fmt.Errorf("store payment reference: %w", err)
	}
	return nil
}

// FindByPaymentReference resolves a provider callback to its order.
func (s *Service) FindByPaymentReference(ctx context.Context, ref string) (*models.Order, error) {
	o, err := s.DB.FindOrderByPaymentReference(ctx, ref)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return o, nil
}

type TrackedItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Tracking is the diner-facing view of an order.
type Tracking struct {
	OrderNumber          string           `json:"orderNumber"`
	Status               string           `json:"status"`
	PaymentStatus        string           `json:"paymentStatus"`
	EstimatedPrepMinutes int              `json:"estimatedPrepMinutes"`
	TableName            string           `json:"tableName,omitempty"`
	Items                []TrackedItem    `json:"items"`
	Total                float64          `json:"total"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	Customer             *TrackedCustomer `json:"customer,omitempty"`
}

type TrackedCustomer struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (s *Service) Track(ctx context.Context, tenantID, number string) (*Tracking, error) {
	return s.TrackFor(ctx, tenantID, number, "")
}

// TrackFor is Track for a signed-in diner. The diner's contact details are
// included only on their own orders.
func (s *Service) TrackFor(ctx context.Context, tenantID, number, customerID string) (*Tracking, error) {
	o, err := s.DB.GetOrderByNumber(ctx, tenantID, number)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	t := &Tracking{
		OrderNumber:          o.OrderNumber,
		Status:               o.Status,
		PaymentStatus:        o.PaymentStatus,
		EstimatedPrepMinutes: o.EstimatedPrepMinutes,
		Total:                o.Total,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
		Items:                make([]TrackedItem, 0, len(o.Items)),
	}
	if o.Table != nil {
		t.TableName = o.Table.Name
	}
	if customerID != "" && o.CustomerID != nil && *o.CustomerID == customerID {
		t.Customer = &TrackedCustomer{Name: o.CustomerName, Phone: o.CustomerPhone}
	}
	for _, it := range o.Items {
		t.Items = append(t.Items, TrackedItem{Name: it.Name, Quantity: it.Quantity})
	}
	return t, nil
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
