package api

import (
	"net/http"
	"strings"

	"dineflow/internal/auth"
	"dineflow/internal/logger"
	"dineflow/internal/metrics"
	"dineflow/internal/models"
	"dineflow/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"
)

// Routes builds the full router. Every privileged group carries its session
// and permission guard, so a route added inside a group inherits the gate.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(logger.Middleware(h.Logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	staffSession := auth.RequireSession(h.Codec, auth.KindStaff)
	dinerSession := auth.LoadSession(h.Codec, auth.KindCustomer)
	platformSession := auth.RequireSession(h.Codec, auth.KindPlatform)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", noDirListing(http.FileServer(http.Dir(h.Config.Upload.Dir)))))

	r.Route("/api", func(r chi.Router) {
		// --- Public routes ---
		r.Get("/public/menu/{slug}", h.PublicMenu)
		r.Get("/public/tables/resolve", h.ResolveTable)
		r.With(dinerSession).Get("/public/orders/{number}", h.TrackOrder)
		r.Post("/public/orders/{idOrNumber}/payment-intent", h.CreatePaymentIntent)
		r.Post("/waiter-calls", h.CreateWaiterCall)
		r.Post("/otp/send", h.SendOTP)
		r.Post("/otp/verify", h.VerifyOTP)
		r.Post("/payments/webhook", h.PaymentWebhook)

		// Staff sessions are optional here: staff see their whole catalog,
		// diners pass ?tenantId= and see what is on offer.
		r.Group(func(r chi.Router) {
			r.Use(auth.LoadSession(h.Codec, auth.KindStaff))
			r.Get("/categories", h.ListCategories)
			r.Get("/menu-items", h.ListMenuItems)
			r.With(dinerSession).Post("/orders", h.CreateOrder)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/register/verify", h.VerifyRegistration)
			r.Post("/register/resend", h.ResendVerification)

			r.Post("/staff/login", h.StaffLogin)
			r.Post("/staff/logout", h.StaffLogout)
			r.Post("/staff/forgot-password", h.ForgotPassword)
			r.Post("/staff/reset-password", h.ResetPassword)
			r.With(staffSession).Get("/staff/verify", h.StaffVerify)

			r.Post("/platform/login", h.PlatformLogin)
			r.Post("/platform/logout", h.PlatformLogout)
			r.With(platformSession).Get("/platform/verify", h.PlatformVerify)
		})

		// --- Staff routes ---
		r.Group(func(r chi.Router) {
			r.Use(staffSession)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ManageRestaurant))
				r.Post("/onboarding", h.CompleteOnboarding)
				r.Get("/dashboard/settings", h.GetSettings)
				r.Put("/dashboard/settings", h.UpdateSettings)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ManageMenu))
				r.Post("/categories", h.CreateCategory)
				r.Put("/categories/{id}", h.UpdateCategory)
				r.Delete("/categories/{id}", h.DeleteCategory)
				r.Post("/menu-items", h.CreateMenuItem)
				r.Post("/menu-items/import", h.ImportMenu)
				r.Put("/menu-items/{id}", h.UpdateMenuItem)
				r.Patch("/menu-items/{id}", h.PatchMenuItem)
				r.Delete("/menu-items/{id}", h.DeleteMenuItem)
				r.Post("/menu-items/{id}/customizations", h.AddCustomization)
				r.Delete("/menu-items/{id}/customizations/{cid}", h.RemoveCustomization)
				r.Post("/upload", h.Upload)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ViewOrders, auth.ManageOrders))
				r.Get("/orders", h.ListOrders)
				r.Get("/orders/{idOrNumber}", h.GetOrder)
			})
			r.With(auth.RequirePermission(auth.ManageOrders, auth.Kitchen, auth.Waiter)).
				Patch("/orders/{idOrNumber}", h.UpdateOrder)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.Kitchen))
				r.Get("/kitchen/orders", h.KitchenOrders)
				r.Get("/kitchen/stream", h.KitchenStream)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ManageTables))
				r.Get("/tables", h.ListTables)
				r.Post("/tables", h.CreateTable)
				r.Post("/tables/generate", h.GenerateTables)
				r.Put("/tables/{id}", h.UpdateTable)
				r.Delete("/tables/{id}", h.DeleteTable)
				r.Get("/tables/{id}/qr", h.TableQR)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.Waiter))
				r.Get("/waiter-calls", h.ListWaiterCalls)
				r.Patch("/waiter-calls/{id}", h.UpdateWaiterCall)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ManageOrders))
				r.Get("/invoices", h.ListInvoices)
				r.Post("/invoices", h.CreateInvoice)
				r.Get("/invoices/{id}", h.GetInvoice)
				r.Get("/invoices/{id}/pdf", h.InvoicePDF)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ManageStaff))
				r.Get("/staff", h.ListStaff)
				r.Post("/staff", h.CreateStaff)
				r.Put("/staff/{id}", h.UpdateStaff)
				r.Delete("/staff/{id}", h.DeleteStaff)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePermission(auth.ViewAnalytics))
				r.Get("/dashboard/stats", h.DashboardStats)
				r.Get("/dashboard/export", h.DashboardExport)
				r.Get("/customers", h.ListCustomers)
			})
		})

		// --- Platform routes ---
		r.Route("/platform", func(r chi.Router) {
			r.Use(platformSession)
			r.Get("/tenants", h.PlatformTenants)
			r.Get("/tenants/{id}", h.PlatformTenant)
			r.Patch("/tenants/{id}", h.PlatformUpdateTenant)
			r.Get("/admins", h.PlatformAdmins)
			r.Put("/admins/{id}", h.PlatformUpdateAdmin)
			r.Get("/stats", h.PlatformStats)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequirePlatformRole(models.RoleSuperAdmin))
				r.Post("/admins", h.PlatformCreateAdmin)
				r.Delete("/admins/{id}", h.PlatformDeleteAdmin)
				r.Delete("/tenants/{id}", h.PlatformDeleteTenant)
			})
		})
	})

	return r
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if db, ok := h.DB.Bun.(*bun.DB); ok {
		if err := db.PingContext(r.Context()); err != nil {
			h.Logger.Error("HEALTH", "Database ping failed: "+err.Error())
			utils.SendErrorMessage(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	h.ok(w, map[string]string{"status": "ok"})
}
