package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	accountPostgres "github.com/transit241/port-logistics/internal/account/postgres"
	"github.com/transit241/port-logistics/internal/audit"
	auditPostgres "github.com/transit241/port-logistics/internal/audit/postgres"
	"github.com/transit241/port-logistics/internal/auth"
	authPostgres "github.com/transit241/port-logistics/internal/auth/postgres"
	"github.com/transit241/port-logistics/internal/billing"
	billingPostgres "github.com/transit241/port-logistics/internal/billing/postgres"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/customs"
	customsPostgres "github.com/transit241/port-logistics/internal/customs/postgres"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/metrics"
	"github.com/transit241/port-logistics/internal/notification"
	notificationPostgres "github.com/transit241/port-logistics/internal/notification/postgres"
	"github.com/transit241/port-logistics/internal/pickup"
	pickupPostgres "github.com/transit241/port-logistics/internal/pickup/postgres"
	"github.com/transit241/port-logistics/internal/shipment"
	shipmentPostgres "github.com/transit241/port-logistics/internal/shipment/postgres"
	"github.com/transit241/port-logistics/internal/storage"
	"github.com/transit241/port-logistics/pkg/logger"
)

// failureWindow is how long failed logins are remembered per email.
const failureWindow = 15 * time.Minute

type Dependencies struct {
	Config  *internal.Config
	DB      *gorm.DB
	SQLX    *sqlx.DB
	Redis   *redis.Client
	Bus     *events.EventBus
	Metrics *metrics.Metrics
	Outbox  *notification.Outbox
	Logger  *slog.Logger

	Auth      *auth.Service
	Accounts  *account.Service
	Shipments *shipment.Service
	Pickups   *pickup.Service
	Billing   *billing.Service
	Customs   *customs.Service
	Audit     *audit.Service

	OutboxRepo *notificationPostgres.OutboxRepository
}

func initializeDependencies(ctx context.Context, cfg *internal.Config) (*Dependencies, error) {
	lg := logger.LoggerWrapper()

	db, err := database.OpenGorm(cfg.Database, !cfg.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlxDB, err := database.OpenSQLX(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audit database: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	blobs, err := storage.NewFromConfig(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	bus := events.NewEventBus(lg)
	tx := database.NewTransactor(db)

	outboxRepo := notificationPostgres.NewOutboxRepository(db)
	outbox := notification.NewOutbox(outboxRepo, m, lg)

	auditService := audit.NewService(auditPostgres.NewStore(sqlxDB), lg)
	audit.NewSubscriber(auditService, lg).Register(bus)

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authPostgres.NewRepository(db), tx, tokens, outbox, bus, auth.ServiceConfig{
		BCryptCost:   cfg.Security.BCryptCost,
		ResetCodeTTL: cfg.Security.ResetCodeTTL,
		Failures:     auth.NewRedisFailureTracker(rdb, failureWindow),
		Metrics:      m,
	}, lg)

	shipmentRepo := shipmentPostgres.NewShipmentRepository(db)
	lifecycle := shipment.NewLifecycle(shipmentRepo, outbox, bus, m, lg)

	return &Dependencies{
		Config:     cfg,
		DB:         db,
		SQLX:       sqlxDB,
		Redis:      rdb,
		Bus:        bus,
		Metrics:    m,
		Outbox:     outbox,
		OutboxRepo: outboxRepo,
		Logger:     lg,

		Auth:      authService,
		Accounts:  account.NewService(accountPostgres.NewAccountRepository(db), tx, bus, lg),
		Shipments: shipment.NewService(shipmentRepo, tx, lifecycle, bus, lg),
		Pickups:   pickup.NewService(pickupPostgres.NewPickupRepository(db), tx, lifecycle, blobs, bus, lg),
		Billing:   billing.NewService(billingPostgres.NewBillingRepository(db), tx, bus, lg),
		Customs:   customs.NewService(customsPostgres.NewDeclarationRepository(db), tx, lifecycle, bus, lg),
		Audit:     auditService,
	}, nil
}

func (d *Dependencies) redisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     d.Config.Redis.Addr,
		Password: d.Config.Redis.Password,
		DB:       d.Config.Redis.DB,
	}
}

// Close waits for in-flight event handlers, then releases connections.
func (d *Dependencies) Close() {
	d.Bus.Wait()
	if err := d.Redis.Close(); err != nil {
		d.Logger.Error("redis close error", "error", err)
	}
	if err := d.SQLX.Close(); err != nil {
		d.Logger.Error("audit database close error", "error", err)
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}
