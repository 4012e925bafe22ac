// Package invoice issues numbered invoices for settled orders.
package invoice

import (
	"context"
	"fmt"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/metrics"
	"dineflow/internal/models"
	"dineflow/internal/sequence"
	"dineflow/internal/store"
	"dineflow/internal/utils"

	"github.com/google/uuid"
)

const NumberPrefix = "INV"

type Service struct {
	DB        *store.DB
	Sequencer sequence.Sequencer
	Location  *time.Location
	FontPath  string
	Logger    *logger.Logger
	Clock     utils.Clock
}

func NewService(db *store.DB, seq sequence.Sequencer, fontPath string, log *logger.Logger) *Service {
	return &Service{DB: db, Sequencer: seq, Location: time.UTC, FontPath: fontPath, Logger: log}
}

// Create returns the order's invoice, issuing it on first call. The order
// must be completed or paid.
func (s *Service) Create(ctx context.Context, tenantID, orderID string) (*models.Invoice, error) {
	if existing, err := s.DB.GetInvoiceByOrder(ctx, tenantID, orderID); err == nil {
		return existing, nil
	} else if !store.IsNotFound(err) {
		return nil, fmt.Errorf("load invoice: %w", err)
	}

	o, err := s.DB.GetOrder(ctx, tenantID, orderID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Order not found")
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	if o.Status != models.OrderCompleted && o.PaymentStatus != models.PaymentPaid {
		return nil, apperr.NewValidation("Invoice requires a completed or paid order")
	}

	tenant, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}
	var lines []models.TaxLine
	if !tenant.TaxInclusive {
		taxes, err := s.DB.ListTaxSettings(ctx, tenantID, true)
		if err != nil {
			return nil, fmt.Errorf("load taxes: %w", err)
		}
		lines = Breakdown(o.Subtotal, taxes)
	}

	now := s.Clock.Now().UTC()
	inv := &models.Invoice{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		OrderID:      o.ID,
		Subtotal:     o.Subtotal,
		TaxBreakdown: lines,
		Tip:          o.Tip,
		Currency:     tenant.Currency,
		CreatedAt:    now,
	}
	for _, l := range lines {
		inv.TotalTax += l.Amount
	}
	inv.TotalTax = utils.RoundMoney(inv.TotalTax)
	inv.Total = utils.RoundMoney(inv.Subtotal + inv.TotalTax + inv.Tip)

	local := now.In(s.location())
	err = s.DB.RunInTx(ctx, func(ctx context.Context, tx *store.DB) error {
		n, err := s.Sequencer.Next(ctx, tx, tenantID, sequence.ScopeInvoice, utils.DayKey(local))
		if err != nil {
			return err
		}
		inv.InvoiceNumber = utils.FormatSequence(NumberPrefix, local, n)
		return tx.InsertInvoice(ctx, inv)
	})
	if err != nil {
		if store.IsUniqueViolation(err) {
			// Lost a race with another request for the same order.
			if stored, getErr := s.DB.GetInvoiceByOrder(ctx, tenantID, o.ID); getErr == nil {
				return stored, nil
			}
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	metrics.InvoicesCreated.Inc()
	s.Logger.LogOrder("INVOICED", o.OrderNumber, fmt.Sprintf("invoice=%s total=%.2f %s", inv.InvoiceNumber, inv.Total, inv.Currency))
	return inv, nil
}

// Breakdown applies each tax to subtotal, rounding every line to cents.
func Breakdown(subtotal float64, taxes []models.TaxSetting) []models.TaxLine {
	lines := make([]models.TaxLine, 0, len(taxes))
	for _, t := range taxes {
		lines = append(lines, models.TaxLine{
			Name:   t.Name,
			Rate:   t.Rate,
			Amount: utils.RoundMoney(subtotal * t.Rate / 100),
		})
	}
	return lines
}

func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Invoice, error) {
	inv, err := s.DB.GetInvoice(ctx, tenantID, id)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, apperr.NewNotFound("Invoice not found")
		}
		return nil, fmt.Errorf("load invoice: %w", err)
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]models.Invoice, error) {
	invoices, err := s.DB.ListInvoices(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *Service) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}
