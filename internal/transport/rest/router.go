package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/transit241/port-logistics/api"
	"github.com/transit241/port-logistics/internal/account"
	"github.com/transit241/port-logistics/internal/audit"
	"github.com/transit241/port-logistics/internal/auth"
	"github.com/transit241/port-logistics/internal/billing"
	"github.com/transit241/port-logistics/internal/customs"
	"github.com/transit241/port-logistics/internal/metrics"
	"github.com/transit241/port-logistics/internal/pickup"
	"github.com/transit241/port-logistics/internal/shipment"
	"github.com/transit241/port-logistics/internal/transport/middleware"
	"github.com/transit241/port-logistics/internal/transport/swagger"
)

// Handlers groups the per-package HTTP handlers mounted under /api/v1.
type Handlers struct {
	Health    *HealthHandler
	Auth      *auth.Handler
	Accounts  *account.Handler
	Shipments *shipment.Handler
	Pickups   *pickup.Handler
	Billing   *billing.Handler
	Customs   *customs.Handler
	Audit     *audit.Handler
}

// Options carries the cross-cutting pieces the router wires around the
// handlers.
type Options struct {
	Authn          *middleware.Auth
	Permissions    *middleware.Permissions
	Metrics        *metrics.Metrics
	MetricsPath    string
	AllowedOrigins string
	AuthRateLimit  int
	Production     bool
	Logger         *slog.Logger
}

func RegisterAllRoutes(router chi.Router, h Handlers, opts Options) {
	require := opts.Permissions.Require

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(opts.Logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(middleware.SecureHeaders(opts.Production, opts.Logger))
	router.Use(middleware.Origin)
	router.Use(opts.Metrics.Middleware)
	router.Use(middleware.LoggingMiddleware(opts.Logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler())
	if opts.MetricsPath != "" {
		router.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health.Check)
		r.Get("/ping", h.Health.Ping)

		r.Route("/auth", func(ar chi.Router) {
			ar.Use(middleware.RateLimitByIP(opts.AuthRateLimit))
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/forgot", h.Auth.ForgotPassword)
			ar.Post("/reset", h.Auth.ResetPassword)
			ar.Post("/logout", h.Auth.Logout)
		})

		r.Get("/shipments/track", h.Shipments.Track)

		r.Group(func(pr chi.Router) {
			pr.Use(opts.Authn.Authenticate)

			pr.Get("/users/me", h.Accounts.Me)
			pr.Get("/permissions", h.Accounts.ListPermissions)

			pr.Group(func(ur chi.Router) {
				ur.Use(require(account.PermManageUsers))
				ur.Get("/users", h.Accounts.List)
				ur.Get("/users/agents", h.Accounts.ListByRole(account.RolePortAgent))
				ur.Get("/users/customs-officers", h.Accounts.ListByRole(account.RoleCustomsOfficer))
				ur.Get("/users/clients", h.Accounts.ListByRole(account.RoleClient))
				ur.Patch("/users/{id}/role", h.Accounts.AssignRole)
				ur.Delete("/users/{id}", h.Accounts.Delete)

				ur.Get("/roles", h.Accounts.ListRoles)
				ur.Post("/roles", h.Accounts.CreateRole)
				ur.Get("/roles/{id}", h.Accounts.GetRole)
				ur.Put("/roles/{id}", h.Accounts.UpdateRole)
				ur.Delete("/roles/{id}", h.Accounts.DeleteRole)
			})

			pr.Route("/shipments", func(sr chi.Router) {
				sr.With(require(account.PermCreateShipment)).Post("/", h.Shipments.Create)
				sr.With(require(account.PermViewShipments, account.PermTrackShipments)).Get("/", h.Shipments.List)
				sr.With(require(account.PermViewShipments, account.PermTrackShipments)).Get("/{id}", h.Shipments.Get)
				sr.With(require(account.PermViewShipments, account.PermTrackShipments)).Get("/{id}/history", h.Shipments.History)
				sr.With(require(account.PermUpdateStatus)).Post("/{id}/status", h.Shipments.AppendStatus)
				sr.With(require(account.PermManageShipments)).Delete("/{id}", h.Shipments.Delete)
			})

			pr.Group(func(pk chi.Router) {
				pk.Use(require(account.PermValidatePickup))
				pk.Post("/pickups", h.Pickups.Create)
				pk.Post("/uploads/identity-proof", h.Pickups.UploadIdentityProof)
			})
			pr.With(require(account.PermValidatePickup, account.PermViewShipments)).Get("/pickups", h.Pickups.GetByShipment)
			pr.With(require(account.PermValidatePickup, account.PermViewShipments)).Get("/pickups/{id}", h.Pickups.Get)

			pr.Route("/invoices", func(ir chi.Router) {
				ir.Use(require(account.PermManagePayments))
				ir.Post("/", h.Billing.CreateInvoice)
				ir.Get("/{id}", h.Billing.GetInvoice)
				ir.Post("/{id}/mark-paid", h.Billing.MarkPaid)
				ir.Post("/{id}/cancel", h.Billing.CancelInvoice)
			})

			pr.Route("/transactions", func(tr chi.Router) {
				tr.With(require(account.PermMakePayment, account.PermManagePayments)).Post("/", h.Billing.RecordTransaction)
				tr.With(require(account.PermViewPayments, account.PermManagePayments)).Get("/", h.Billing.ListTransactions)
				tr.With(require(account.PermViewPayments, account.PermManagePayments)).Get("/{id}", h.Billing.GetTransaction)
				tr.With(require(account.PermManagePayments)).Patch("/{id}/status", h.Billing.UpdateTransactionStatus)
			})

			pr.Route("/declarations", func(dr chi.Router) {
				dr.With(require(account.PermCreateDeclaration)).Post("/", h.Customs.Create)
				dr.With(require(account.PermCreateDeclaration, account.PermApproveDeclaration)).Get("/{id}", h.Customs.Get)
				dr.With(require(account.PermCreateDeclaration, account.PermApproveDeclaration)).Post("/{id}/submit", h.Customs.Submit)
				dr.With(require(account.PermApproveDeclaration)).Post("/{id}/approve", h.Customs.Approve)
				dr.With(require(account.PermApproveDeclaration)).Post("/{id}/reject", h.Customs.Reject)
			})

			pr.Route("/audit", func(adr chi.Router) {
				adr.Use(require(account.PermViewAudit))
				adr.Get("/", h.Audit.List)
				adr.Get("/{id}", h.Audit.Get)
			})
		})
	})
}
