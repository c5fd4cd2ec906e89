package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/transit241/port-logistics/internal/account"
	"github.com/transit241/port-logistics/internal/audit"
	"github.com/transit241/port-logistics/internal/auth"
	"github.com/transit241/port-logistics/internal/billing"
	"github.com/transit241/port-logistics/internal/customs"
	"github.com/transit241/port-logistics/internal/pickup"
	"github.com/transit241/port-logistics/internal/shipment"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/internal/transport/middleware"
	"github.com/transit241/port-logistics/internal/transport/rest"
)

const shutdownTimeout = 30 * time.Second

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startHTTPServer(); err != nil {
			fmt.Fprintf(os.Stderr, "server: %v\n", err)
			os.Exit(1)
		}
	},
}

func startHTTPServer() error {
	cfg, err := setup()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	router, err := setupRoutes(deps)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Logger.Info("starting HTTP server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		deps.Logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	deps.Logger.Info("server stopped")
	return nil
}

func setupRoutes(deps *Dependencies) (*chi.Mux, error) {
	sqlDB, err := deps.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}

	base := transport.NewBaseHandler(deps.Logger)
	handlers := rest.Handlers{
		Health:    rest.NewHealthHandler(sqlDB, deps.Redis),
		Auth:      auth.NewHandler(base, deps.Auth),
		Accounts:  account.NewHandler(base, deps.Accounts),
		Shipments: shipment.NewHandler(base, deps.Shipments),
		Pickups:   pickup.NewHandler(base, deps.Pickups, deps.Config.Storage.MaxUploadBytes),
		Billing:   billing.NewHandler(base, deps.Billing),
		Customs:   customs.NewHandler(base, deps.Customs),
		Audit:     audit.NewHandler(base, deps.Audit),
	}

	metricsPath := ""
	if deps.Config.Observability.Metrics.Enabled {
		metricsPath = deps.Config.Observability.Metrics.Path
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, handlers, rest.Options{
		Authn:          middleware.NewAuth(base, deps.Auth),
		Permissions:    middleware.NewPermissions(base, auth.NewAuthorizer()),
		Metrics:        deps.Metrics,
		MetricsPath:    metricsPath,
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		AuthRateLimit:  deps.Config.Server.AuthRateLimit,
		Production:     deps.Config.IsProduction(),
		Logger:         deps.Logger,
	})
	return router, nil
}
