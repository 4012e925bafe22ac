package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderPreparing = "PREPARING"
	OrderReady     = "READY"
	OrderServed    = "SERVED"
	OrderCompleted = "COMPLETED"
	OrderCancelled = "CANCELLED"

	PaymentPending  = "PENDING"
	PaymentPaid     = "PAID"
	PaymentFailed   = "FAILED"
	PaymentRefunded = "REFUNDED"
)

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                   string    `bun:"id,pk" json:"id"`
	TenantID             string    `bun:"tenant_id,notnull,unique:orders_tenant_number" json:"tenantId"`
	OrderNumber          string    `bun:"order_number,notnull,unique:orders_tenant_number" json:"orderNumber"`
	TableID              *string   `bun:"table_id" json:"tableId,omitempty"`
	CustomerID           *string   `bun:"customer_id" json:"customerId,omitempty"`
	CustomerName         string    `bun:"customer_name" json:"customerName"`
	CustomerPhone        string    `bun:"customer_phone" json:"customerPhone"`
	Status               string    `bun:"status,notnull" json:"status"`
	PaymentStatus        string    `bun:"payment_status,notnull" json:"paymentStatus"`
	PaymentMethod        string    `bun:"payment_method" json:"paymentMethod"`
	PaymentReference     string    `bun:"payment_reference" json:"paymentReference,omitempty"`
	Subtotal             float64   `bun:"subtotal,notnull" json:"subtotal"`
	Tax                  float64   `bun:"tax,notnull" json:"tax"`
	Tip                  float64   `bun:"tip,notnull" json:"tip"`
	Total                float64   `bun:"total,notnull" json:"total"`
	SpecialRequests      string    `bun:"special_requests" json:"specialRequests"`
	EstimatedPrepMinutes int       `bun:"estimated_prep_minutes,notnull" json:"estimatedPrepMinutes"`
	CreatedAt            time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt            time.Time `bun:"updated_at,notnull" json:"updatedAt"`

	Items []*OrderItem `bun:"rel:has-many,join:id=order_id" json:"items"`
	Table *Table       `bun:"rel:belongs-to,join:table_id=id" json:"table,omitempty"`
}

type SelectedCustomization struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	PriceDelta float64 `json:"priceDelta"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID             string                  `bun:"id,pk" json:"id"`
	OrderID        string                  `bun:"order_id,notnull" json:"orderId"`
	MenuItemID     string                  `bun:"menu_item_id,notnull" json:"menuItemId"`
	Name           string                  `bun:"name,notnull" json:"name"`
	Quantity       int                     `bun:"quantity,notnull" json:"quantity"`
	UnitPrice      float64                 `bun:"unit_price,notnull" json:"unitPrice"`
	Customizations []SelectedCustomization `bun:"customizations" json:"customizations"`
	Notes          string                  `bun:"notes" json:"notes"`
	LineTotal      float64                 `bun:"line_total,notnull" json:"lineTotal"`
}

type TaxLine struct {
	Name   string  `json:"name"`
	Rate   float64 `json:"rate"`
	Amount float64 `json:"amount"`
}

type Invoice struct {
	bun.BaseModel `bun:"table:invoices"`

	ID            string    `bun:"id,pk" json:"id"`
	TenantID      string    `bun:"tenant_id,notnull,unique:invoices_tenant_number" json:"tenantId"`
	OrderID       string    `bun:"order_id,notnull,unique" json:"orderId"`
	InvoiceNumber string    `bun:"invoice_number,notnull,unique:invoices_tenant_number" json:"invoiceNumber"`
	Subtotal      float64   `bun:"subtotal,notnull" json:"subtotal"`
	TaxBreakdown  []TaxLine `bun:"tax_breakdown" json:"taxBreakdown"`
	TotalTax      float64   `bun:"total_tax,notnull" json:"totalTax"`
	Tip           float64   `bun:"tip,notnull" json:"tip"`
	Total         float64   `bun:"total,notnull" json:"total"`
	Currency      string    `bun:"currency,notnull" json:"currency"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"createdAt"`
}

const (
	WaiterCallPending   = "PENDING"
	WaiterCallAttended  = "ATTENDED"
	WaiterCallCompleted = "COMPLETED"
)

type WaiterCall struct {
	bun.BaseModel `bun:"table:waiter_calls"`

	ID         string    `bun:"id,pk" json:"id"`
	TenantID   string    `bun:"tenant_id,notnull" json:"tenantId"`
	TableID    string    `bun:"table_id,notnull" json:"tableId"`
	Reason     string    `bun:"reason" json:"reason"`
	Status     string    `bun:"status,notnull" json:"status"`
	AttendedBy string    `bun:"attended_by" json:"attendedBy,omitempty"`
	CreatedAt  time.Time `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt  time.Time `bun:"updated_at,notnull" json:"updatedAt"`

	Table *Table `bun:"rel:belongs-to,join:table_id=id" json:"table,omitempty"`
}

// Sequence is a per-tenant, per-scope, per-day counter row.
type Sequence struct {
	bun.BaseModel `bun:"table:sequences"`

	TenantID  string `bun:"tenant_id,pk"`
	Scope     string `bun:"scope,pk"`
	Day       string `bun:"day,pk"`
	LastValue int64  `bun:"last_value,notnull"`
}
