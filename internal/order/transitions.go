package order

import (
	"fmt"

	"dineflow/internal/apperr"
	"dineflow/internal/models"
)

var statusFlow = map[string][]string{
	models.OrderPending:   {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed: {models.OrderPreparing, models.OrderCancelled},
	models.OrderPreparing: {models.OrderReady, models.OrderCancelled},
	models.OrderReady:     {models.OrderServed, models.OrderCancelled},
	models.OrderServed:    {models.OrderCompleted, models.OrderCancelled},
	models.OrderCompleted: nil,
	models.OrderCancelled: nil,
}

var paymentFlow = map[string][]string{
	models.PaymentPending:  {models.PaymentPaid, models.PaymentFailed},
	models.PaymentFailed:   {models.PaymentPaid},
	models.PaymentPaid:     {models.PaymentRefunded},
	models.PaymentRefunded: nil,
}

// ActiveStatuses are the states a kitchen still has to act on.
var ActiveStatuses = []string{models.OrderPending, models.OrderConfirmed, models.OrderPreparing, models.OrderReady}

func ValidStatus(s string) bool {
	_, ok := statusFlow[s]
	return ok
}

func ValidPaymentStatus(s string) bool {
	_, ok := paymentFlow[s]
	return ok
}

func IsTerminal(status string) bool {
	return status == models.OrderCompleted || status == models.OrderCancelled
}

func allowed(flow map[string][]string, from, to string) bool {
	for _, next := range flow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkStatus validates from -> to. Staying put is always fine.
func checkStatus(from, to string, strict bool) error {
	if !ValidStatus(to) {
		return apperr.NewValidation(fmt.Sprintf("Unknown order status %q", to))
	}
	if from == to || !strict {
		return nil
	}
	if !allowed(statusFlow, from, to) {
		return apperr.NewValidation(fmt.Sprintf("Cannot move order from %s to %s", from, to))
	}
	return nil
}

func checkPayment(from, to string, strict bool) error {
	if !ValidPaymentStatus(to) {
		return apperr.NewValidation(fmt.Sprintf("Unknown payment status %q", to))
	}
	if from == to || !strict {
		return nil
	}
	if !allowed(paymentFlow, from, to) {
		return apperr.NewValidation(fmt.Sprintf("Cannot move payment from %s to %s", from, to))
	}
	return nil
}
