package api

import (
	"dineflow/internal/analytics"
	"dineflow/internal/auth"
	"dineflow/internal/cache"
	"dineflow/internal/config"
	"dineflow/internal/customer"
	"dineflow/internal/events"
	"dineflow/internal/invoice"
	"dineflow/internal/logger"
	"dineflow/internal/menu"
	"dineflow/internal/order"
	"dineflow/internal/otp"
	"dineflow/internal/payment"
	"dineflow/internal/platform"
	"dineflow/internal/qr"
	"dineflow/internal/sequence"
	"dineflow/internal/sse"
	"dineflow/internal/staff"
	"dineflow/internal/store"
	"dineflow/internal/table"
	"dineflow/internal/tenant"
	"dineflow/internal/upload"
	"dineflow/internal/utils"
	"dineflow/internal/waiter"
)

// Deps are the outside collaborators of the HTTP service. Redis, Events and
// Gateway are optional.
type Deps struct {
	Config *config.Config
	DB     *store.DB
	Redis  *cache.Redis
	// Email delivers registration and password reset codes.
	Email otp.Notifier
	// SMS delivers diner phone codes.
	SMS otp.Notifier
	// Events replaces direct delivery to the kitchen feed, e.g. with Kafka.
	Events  events.Publisher
	Gateway payment.Gateway
	Logger  *logger.Logger
	Clock   utils.Clock
}

// New wires every service from d.
func New(d Deps) *Handler {
	cfg := d.Config
	log := d.Logger
	loc := cfg.Location()
	codec := auth.NewCodec(cfg.Session.Secret)
	if d.Clock != nil {
		codec = codec.WithClock(d.Clock.Now)
	}
	if d.SMS == nil {
		d.SMS = &otp.LogNotifier{Logger: log}
	}
	if d.Email == nil {
		d.Email = &otp.LogNotifier{Logger: log}
	}

	kitchen := sse.NewKitchenEventEmitter()
	var publisher events.Publisher = kitchen
	if d.Events != nil {
		publisher = d.Events
	}

	var seq sequence.Sequencer = sequence.DB{}
	if cfg.Invoice.SequenceBackend == "redis" && d.Redis != nil {
		seq = sequence.Redis{Counter: d.Redis}
	}

	otpSvc := otp.NewService(d.DB, log)
	otpSvc.Clock = d.Clock
	if d.Redis != nil {
		otpSvc.WithThrottle(d.Redis, cfg.OTP.MaxPerWindow, cfg.OTP.Window)
	}

	menuSvc := menu.NewService(d.DB, log)
	menuSvc.Clock = d.Clock
	if d.Redis != nil {
		menuSvc.WithCache(d.Redis, cfg.Redis.MenuTTL)
	}

	tables := table.NewService(d.DB, qr.NewGenerator(cfg.QR.Secret, cfg.App.PublicBaseURL, cfg.QR.Size), log)
	tables.Clock = d.Clock

	orders := order.NewService(d.DB, seq, publisher, log)
	orders.Strict = cfg.Orders.StrictTransitions
	orders.Location = loc
	orders.Clock = d.Clock

	invoices := invoice.NewService(d.DB, seq, cfg.Invoice.FontPath, log)
	invoices.Location = loc
	invoices.Clock = d.Clock

	stats := analytics.NewService(d.DB, log)
	stats.Location = loc
	stats.Clock = d.Clock

	return &Handler{
		Config: cfg,
		DB:     d.DB,
		Codec:  codec,
		Tenants: &tenant.Service{
			DB:       d.DB,
			OTP:      otpSvc,
			Notifier: d.Email,
			Tables:   tables,
			Menu:     menuSvc,
			EmailTTL: cfg.OTP.EmailTTL,
			Logger:   log,
			Clock:    d.Clock,
		},
		Staff: &staff.Service{
			DB:         d.DB,
			Codec:      codec,
			OTP:        otpSvc,
			Notifier:   d.Email,
			SessionTTL: cfg.Session.TTL,
			ResetTTL:   cfg.OTP.EmailTTL,
			Logger:     log,
			Clock:      d.Clock,
		},
		Platform: &platform.Service{
			DB:         d.DB,
			Codec:      codec,
			SessionTTL: cfg.Session.TTL,
			Logger:     log,
			Clock:      d.Clock,
		},
		Customers: &customer.Service{
			DB:         d.DB,
			OTP:        otpSvc,
			Notifier:   d.SMS,
			Codec:      codec,
			CodeTTL:    cfg.OTP.PhoneTTL,
			SessionTTL: cfg.Session.TTL,
			Logger:     log,
			Clock:      d.Clock,
		},
		Menu:   menuSvc,
		Tables: tables,
		Orders: orders,
		Payments: &payment.Service{
			DB:            d.DB,
			Orders:        orders,
			Gateway:       d.Gateway,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			Logger:        log,
		},
		Invoices: invoices,
		Waiter: &waiter.Service{
			DB:     d.DB,
			Events: publisher,
			Logger: log,
			Clock:  d.Clock,
		},
		Analytics: stats,
		Uploads: &upload.Service{
			Dir:      cfg.Upload.Dir,
			BaseURL:  cfg.App.APIBaseURL,
			MaxBytes: cfg.Upload.MaxBytes,
			Logger:   log,
		},
		Kitchen: kitchen,
		Logger:  log,
	}
}
