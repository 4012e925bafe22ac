// Package payment takes card payments for orders through Stripe.
package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"dineflow/internal/apperr"
	"dineflow/internal/logger"
	"dineflow/internal/models"
	"dineflow/internal/order"
	"dineflow/internal/store"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const MethodCard = "card"

type IntentParams struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Reusable reports whether the intent can still be confirmed by the diner.
func (i *Intent) Reusable() bool {
	return i.Status != string(stripe.PaymentIntentStatusCanceled) &&
		i.Status != string(stripe.PaymentIntentStatusSucceeded)
}

// Gateway is the slice of the payment provider the service needs.
type Gateway interface {
	CreateIntent(ctx context.Context, p IntentParams) (*Intent, error)
	GetIntent(ctx context.Context, id string) (*Intent, error)
	// UpdateIntentAmount re-prices an intent the diner has not paid yet.
	UpdateIntentAmount(ctx context.Context, id string, amountCents int64) (*Intent, error)
	CancelIntent(ctx context.Context, id string) error
}

type Service struct {
	DB            *store.DB
	Orders        *order.Service
	Gateway       Gateway
	WebhookSecret string
	Logger        *logger.Logger
}

// CreatePaymentIntent starts a card payment for the order total. An order
// that already has an open intent gets that intent back, re-priced when the
// total changed since it was created.
func (s *Service) CreatePaymentIntent(ctx context.Context, tenantID, idOrNumber string) (*Intent, error) {
	if s.Gateway == nil {
		return nil, apperr.NewValidation("Card payments are not configured")
	}
	o, err := s.Orders.Get(ctx, tenantID, idOrNumber)
	if err != nil {
		return nil, err
	}
	switch {
	case o.PaymentStatus == models.PaymentPaid || o.PaymentStatus == models.PaymentRefunded:
		return nil, apperr.NewConflict("Order is already paid")
	case o.Status == models.OrderCancelled:
		return nil, apperr.NewValidation("Order is cancelled")
	}

	amount := int64(math.Round(o.Total * 100))

	if o.PaymentReference != "" {
		existing, err := s.Gateway.GetIntent(ctx, o.PaymentReference)
		if err != nil {
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to fetch intent %s for order %s: %v", o.PaymentReference, o.OrderNumber, err))
		} else if existing.Reusable() {
			if existing.AmountCents == amount {
				return existing, nil
			}
			updated, err := s.Gateway.UpdateIntentAmount(ctx, existing.ID, amount)
			if err == nil {
				s.Logger.LogOrder("PAYMENT_INTENT", o.OrderNumber, fmt.Sprintf("intent=%s re-priced %d -> %d", existing.ID, existing.AmountCents, amount))
				return updated, nil
			}
			// The old intent must not stay payable at the stale amount.
			s.Logger.Warn("PAYMENT", fmt.Sprintf("Failed to re-price intent %s for order %s: %v", existing.ID, o.OrderNumber, err))
			if err := s.Gateway.CancelIntent(ctx, existing.ID); err != nil {
				s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to cancel stale intent %s: %v", existing.ID, err))
				return nil, fmt.Errorf("cancel stale payment intent: %w", err)
			}
		}
	}

	tenant, err := s.DB.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load tenant: %w", err)
	}

	intent, err := s.Gateway.CreateIntent(ctx, IntentParams{
		AmountCents: amount,
		Currency:    strings.ToLower(tenant.Currency),
		Metadata: map[string]string{
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
			"tenant_id":    tenantID,
		},
	})
	if err != nil {
		s.Logger.Error("PAYMENT", fmt.Sprintf("Failed to create intent for order %s: %v", o.OrderNumber, err))
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	if err := s.Orders.SetPaymentReference(ctx, o, intent.ID); err != nil {
		return nil, err
	}

	s.Logger.LogOrder("PAYMENT_INTENT", o.OrderNumber, fmt.Sprintf("intent=%s amount=%d %s", intent.ID, intent.AmountCents, intent.Currency))
	return intent, nil
}

// HandleWebhook verifies a Stripe event and settles the matching order.
// Events for unknown orders and stale transitions are logged and accepted so
// Stripe stops retrying them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.WebhookSecret == "" {
		return fmt.Errorf("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		s.Logger.LogSecurity("WEBHOOK_REJECTED", err.Error())
		return apperr.NewValidation("Invalid webhook signature")
	}

	var status string
	switch event.Type {
	case "payment_intent.succeeded":
		status = models.PaymentPaid
	case "payment_intent.payment_failed":
		status = models.PaymentFailed
	default:
		s.Logger.Info("WEBHOOK", fmt.Sprintf("Ignoring event type %s", event.Type))
		return nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return apperr.NewValidation("Invalid event data")
	}

	o, err := s.resolveOrder(ctx, &pi)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			s.Logger.Warn("WEBHOOK", fmt.Sprintf("No order for intent %s", pi.ID))
			return nil
		}
		return err
	}

	method := MethodCard
	_, err = s.Orders.UpdateStatus(ctx, o.TenantID, o.ID, order.UpdateInput{PaymentStatus: &status, PaymentMethod: &method})
	if err != nil {
		if apperr.Is(err, apperr.Validation) {
			s.Logger.Warn("WEBHOOK", fmt.Sprintf("Order %s: %v", o.OrderNumber, err))
			return nil
		}
		return err
	}
	s.Logger.Info("WEBHOOK", fmt.Sprintf("Order %s payment %s via %s", o.OrderNumber, status, pi.ID))
	return nil
}

func (s *Service) resolveOrder(ctx context.Context, pi *stripe.PaymentIntent) (*models.Order, error) {
	o, err := s.Orders.FindByPaymentReference(ctx, pi.ID)
	if err == nil || !apperr.Is(err, apperr.NotFound) {
		return o, err
	}
	orderID, tenantID := pi.Metadata["order_id"], pi.Metadata["tenant_id"]
	if orderID == "" || tenantID == "" {
		return nil, err
	}
	return s.Orders.Get(ctx, tenantID, orderID)
}
