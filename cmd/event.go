package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"

	"github.com/spf13/cobra"

	"github.com/transit241/port-logistics/internal/audit"
	auditPostgres "github.com/transit241/port-logistics/internal/audit/postgres"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the known event types and publish events into the audit trail`,
}

var listEventsCmd = &cobra.Command{
	Use:   "types",
	Short: "List known event types and their audit action tags",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.AllLogisticsEventTypes {
			fmt.Printf("%-36s %s\n", t, audit.ActionTag(t))
		}
	},
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish an event through the bus",
	Long:  `Publish an event to the event bus. Known types are recorded in the audit trail.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		publishEvent(args[0])
	},
}

var (
	eventResource   string
	eventResourceID string
	eventData       string
)

func publishEvent(eventType string) {
	ctx := context.Background()
	cfg, err := setup()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	lg := logger.LoggerWrapper()

	data := map[string]interface{}{}
	if eventData != "" {
		if err := json.Unmarshal([]byte(eventData), &data); err != nil {
			log.Fatalf("--data must be a JSON object: %v", err)
		}
	}
	data["source"] = "cli-command"

	db, err := database.OpenSQLX(cfg.Database)
	if err != nil {
		log.Fatalf("failed to open audit database: %v", err)
	}
	defer db.Close()

	bus := events.NewEventBus(lg)
	audit.NewSubscriber(audit.NewService(auditPostgres.NewStore(db), lg), lg).Register(bus)

	if !slices.Contains(events.AllLogisticsEventTypes, eventType) {
		lg.Warn("unknown event type, nothing will be recorded", "event_type", eventType)
	}

	ev := events.NewLogisticsEvent(ctx, eventType, eventResource, eventResourceID, data)
	lg.Info("publishing event", "event_type", eventType, "event_id", ev.EventID())
	if err := bus.PublishSync(ctx, ev); err != nil {
		log.Fatalf("failed to publish event: %v", err)
	}
	lg.Info("event published successfully")
}

func init() {
	publishEventCmd.Flags().StringVar(&eventResource, "resource", "system", "Resource name the event refers to")
	publishEventCmd.Flags().StringVar(&eventResourceID, "resource-id", "", "Identifier of the resource")
	publishEventCmd.Flags().StringVar(&eventData, "data", "", "Event details as a JSON object")

	eventCmd.AddCommand(listEventsCmd)
	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
