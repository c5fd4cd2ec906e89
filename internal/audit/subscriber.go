package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mssola/useragent"

	"github.com/transit241/port-logistics/internal/core/events"
)

// actionTags maps event types onto the action-type tags stored in the
// ledger. Unlisted types fall back to the upper-cased event type.
var actionTags = map[string]string{
	events.EventTypeLoginSucceeded:        "LOGIN_SUCCESS",
	events.EventTypeLoginFailed:           "LOGIN_FAILED",
	events.EventTypeAccountRegistered:     "ACCOUNT_CREATED",
	events.EventTypePasswordReset:         "PASSWORD_RESET",
	events.EventTypeRoleAssigned:          "ROLE_ASSIGNED",
	events.EventTypeAccountDeleted:        "ACCOUNT_DELETED",
	events.EventTypeShipmentStatusChanged: "STATUS_CHANGED",
}

func ActionTag(eventType string) string {
	if tag, ok := actionTags[eventType]; ok {
		return tag
	}
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(eventType))
}

type Recorder interface {
	Record(ctx context.Context, dto RecordDTO) (*Entry, error)
}

// Subscriber writes one ledger entry per logistics event.
type Subscriber struct {
	recorder Recorder
	logger   *slog.Logger
}

func NewSubscriber(recorder Recorder, logger *slog.Logger) *Subscriber {
	return &Subscriber{recorder: recorder, logger: logger}
}

// Register subscribes to every logistics event type on bus.
func (s *Subscriber) Register(bus *events.EventBus) {
	for _, eventType := range events.AllLogisticsEventTypes {
		bus.Subscribe(eventType, s.Handle)
	}
}

func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	le, ok := event.(*events.LogisticsEvent)
	if !ok {
		s.logger.Debug("audit: ignoring event without resource", "event_type", event.EventType())
		return nil
	}

	details, err := describe(le)
	if err != nil {
		return fmt.Errorf("audit details for %s: %w", le.EventType(), err)
	}

	_, err = s.recorder.Record(ctx, RecordDTO{
		ActorID:      le.ActorID,
		ActorEmail:   le.ActorEmail,
		ActionType:   ActionTag(le.EventType()),
		ResourceName: le.Resource,
		ResourceID:   le.ResourceID,
		OriginIP:     le.OriginIP,
		Details:      details,
	})
	if err != nil {
		return fmt.Errorf("record audit entry for %s: %w", le.EventType(), err)
	}
	return nil
}

// describe renders the event payload as JSON, adding a short summary of the
// client when a user agent was captured.
func describe(le *events.LogisticsEvent) (string, error) {
	data := make(map[string]interface{}, len(le.Data)+1)
	for k, v := range le.Data {
		data[k] = v
	}
	if le.UserAgent != "" {
		data["client"] = ClientSummary(le.UserAgent)
	}
	if len(data) == 0 {
		return "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClientSummary condenses a User-Agent header into "Browser version on OS".
func ClientSummary(header string) string {
	ua := useragent.New(header)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot: " + name
	}

	name, version := ua.Browser()
	summary := strings.TrimSpace(name + " " + version)
	if platform := ua.OS(); platform != "" {
		summary += " on " + platform
	}
	if ua.Mobile() {
		summary += " (mobile)"
	}
	return summary
}
