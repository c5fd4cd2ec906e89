package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/transit241/port-logistics/internal/notification"
)

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Outbox maintenance commands",
}

var relayOutboxCmd = &cobra.Command{
	Use:   "relay",
	Short: "Push pending outbox messages onto the delivery queue",
	RunE:  runOutboxRelay,
}

func runOutboxRelay(_ *cobra.Command, _ []string) error {
	ctx := context.Background()
	cfg, err := setup()
	if err != nil {
		log.Fatal(err)
	}

	deps, err := initializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer deps.Close()

	queue := notification.NewTaskClient(deps.redisOpts(), cfg.Notification.MaxRetry)
	defer queue.Close()

	relay := notification.NewRelay(deps.OutboxRepo, queue, cfg.Notification.RelayBatchSize, deps.Metrics, deps.Logger)
	n, err := relay.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("relayed %d message(s)\n", n)
	return nil
}

func init() {
	outboxCmd.AddCommand(relayOutboxCmd)

	rootCmd.AddCommand(outboxCmd)
}
