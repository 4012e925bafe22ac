package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dineflow/internal/apperr"
	"dineflow/internal/auth"
	"dineflow/internal/metrics"
	"dineflow/internal/order"

	"github.com/go-chi/chi/v5"
)

const (
	maxWebhookBytes  = 64 << 10
	kitchenHeartbeat = 25 * time.Second
)

// CreateOrder places a diner order. Staff placing an order on a guest's
// behalf always order for their own tenant. A verified diner orders under
// their verified phone, which links the order to their customer record.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in order.CreateInput
	if err := readJSON(r, &in); err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	if isStaff(r) {
		in.TenantID = auth.TenantID(r.Context())
	} else if c := h.diner(r, strings.TrimSpace(in.TenantID)); c != nil {
		in.TenantID = c.TenantID
		name := c.Name
		if in.Customer != nil && strings.TrimSpace(in.Customer.Name) != "" {
			name = in.Customer.Name
		}
		in.Customer = &order.CustomerInput{Name: name, Phone: c.Phone}
	}
	if err := check(&in); err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	o, err := h.Orders.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "CreateOrder", err)
		return
	}
	h.created(w, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := order.ListFilter{
		Status:        q.Get("status"),
		PaymentStatus: q.Get("paymentStatus"),
		TableID:       q.Get("tableId"),
	}
	if v := q.Get("since"); v != "" {
		since, err := parseSince(v)
		if err != nil {
			h.fail(w, "ListOrders", apperr.NewValidation("since must be a date (YYYY-MM-DD) or RFC 3339 time"))
			return
		}
		f.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.fail(w, "ListOrders", apperr.NewValidation("limit must be a positive number"))
			return
		}
		f.Limit = n
	}

	orders, err := h.Orders.List(r.Context(), auth.TenantID(r.Context()), f)
	if err != nil {
		h.fail(w, "ListOrders", err)
		return
	}
	h.ok(w, orders)
}

func parseSince(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Orders.Get(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "idOrNumber"))
	if err != nil {
		h.fail(w, "GetOrder", err)
		return
	}
	h.ok(w, o)
}

func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	var in order.UpdateInput
	if err := decode(r, &in); err != nil {
		h.fail(w, "UpdateOrder", err)
		return
	}
	o, err := h.Orders.UpdateStatus(r.Context(), auth.TenantID(r.Context()), chi.URLParam(r, "idOrNumber"), in)
	if err != nil {
		h.fail(w, "UpdateOrder", err)
		return
	}
	h.ok(w, o)
}

// TrackOrder is the diner's view of an order by its number.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFor(r)
	var customerID string
	if c := h.diner(r, tenantID); c != nil {
		tenantID, customerID = c.TenantID, c.ID
	}
	if tenantID == "" {
		h.fail(w, "TrackOrder", apperr.NewValidation("tenantId is required"))
		return
	}
	t, err := h.Orders.TrackFor(r.Context(), tenantID, chi.URLParam(r, "number"), customerID)
	if err != nil {
		h.fail(w, "TrackOrder", err)
		return
	}
	h.ok(w, t)
}

// ---------------- PAYMENTS ----------------

func (h *Handler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	tenantID := tenantFor(r)
	if tenantID == "" {
		h.fail(w, "CreatePaymentIntent", apperr.NewValidation("tenantId is required"))
		return
	}
	intent, err := h.Payments.CreatePaymentIntent(r.Context(), tenantID, chi.URLParam(r, "idOrNumber"))
	if err != nil {
		h.fail(w, "CreatePaymentIntent", err)
		return
	}
	h.ok(w, intent)
}

func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.fail(w, "PaymentWebhook", apperr.NewValidation("Payload too large"))
			return
		}
		h.fail(w, "PaymentWebhook", fmt.Errorf("read webhook body: %w", err))
		return
	}
	if err := h.Payments.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.fail(w, "PaymentWebhook", err)
		return
	}
	h.ok(w, map[string]bool{"received": true})
}

// ---------------- KITCHEN ----------------

func (h *Handler) KitchenOrders(w http.ResponseWriter, r *http.Request) {
	view, err := h.Orders.KitchenQueue(r.Context(), auth.TenantID(r.Context()))
	if err != nil {
		h.fail(w, "KitchenOrders", err)
		return
	}
	h.ok(w, view)
}

// KitchenStream pushes the current queue, then every order and waiter-call
// event of the session tenant, as server-sent events.
func (h *Handler) KitchenStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := auth.TenantID(ctx)
	rc := http.NewResponseController(w)

	view, err := h.Orders.KitchenQueue(ctx, tenantID)
	if err != nil {
		h.fail(w, "KitchenStream", err)
		return
	}

	// The server write timeout would otherwise cut the stream.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Debug("SSE", fmt.Sprintf("Write deadline not cleared: %v", err))
	}
	setupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	ch := h.Kitchen.Subscribe(ctx, tenantID)
	metrics.KitchenStreams.Inc()
	defer metrics.KitchenStreams.Dec()
	h.Logger.Info("SSE", fmt.Sprintf("Kitchen client connected for tenant %s", tenantID))

	if err := writeSSE(w, rc, "snapshot", view); err != nil {
		return
	}

	ticker := time.NewTicker(kitchenHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSE(w, rc, string(ev.Type), ev); err != nil {
				h.Logger.Debug("SSE", fmt.Sprintf("Kitchen client for %s went away: %v", tenantID, err))
				return
			}
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Kitchen client disconnected for tenant %s", tenantID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func writeSSE(w io.Writer, rc *http.ResponseController, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	return rc.Flush()
}
