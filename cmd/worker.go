package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/notification"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Deliver queued notifications, relay the outbox on a schedule and purge expired password reset codes.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := startWorker(); err != nil {
			fmt.Fprintf(os.Stderr, "worker: %v\n", err)
			os.Exit(1)
		}
	},
}

var workerConcurrency int

func newMailer(cfg internal.NotificationConfig, deps *Dependencies) notification.Mailer {
	if cfg.Mailer == "smtp" {
		return notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		})
	}
	return notification.NewLogMailer(deps.Logger)
}

func startWorker() error {
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

	lg := deps.Logger
	notif := cfg.Notification

	queue := notification.NewTaskClient(deps.redisOpts(), notif.MaxRetry)
	defer queue.Close()
	relay := notification.NewRelay(deps.OutboxRepo, queue, notif.RelayBatchSize, deps.Metrics, lg)

	worker, err := notification.NewWorker(notification.WorkerConfig{
		RedisOpts:   deps.redisOpts(),
		Concurrency: getIntFlag(workerConcurrency, notif.Concurrency),
		Handler:     notification.NewEmailHandler(newMailer(notif, deps), deps.Metrics, lg),
		Logger:      lg,
	})
	if err != nil {
		return err
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(notif.RelaySchedule, func() {
		if n, err := relay.RunOnce(ctx); err != nil {
			lg.Error("outbox relay failed", "error", err)
		} else if n > 0 {
			lg.Info("outbox relayed", "messages", n)
		}
	}); err != nil {
		return fmt.Errorf("relay schedule %q: %w", notif.RelaySchedule, err)
	}
	if _, err := scheduler.AddFunc(notif.PurgeSchedule, func() {
		if n, err := deps.Auth.PurgeExpiredResetCodes(ctx); err != nil {
			lg.Error("reset code purge failed", "error", err)
		} else if n > 0 {
			lg.Info("expired reset codes purged", "count", n)
		}
	}); err != nil {
		return fmt.Errorf("purge schedule %q: %w", notif.PurgeSchedule, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})
	g.Go(func() error {
		scheduler.Start()
		lg.Info("scheduler started", "relay", notif.RelaySchedule, "purge", notif.PurgeSchedule)
		<-gctx.Done()
		<-scheduler.Stop().Done()
		return nil
	})

	lg.Info("worker is running. Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil {
		return err
	}
	lg.Info("worker shutdown complete")
	return nil
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 0, "Number of concurrent deliveries (overrides config)")

	rootCmd.AddCommand(workerCmd)
}
