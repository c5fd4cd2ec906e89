package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/transit241/port-logistics/internal/metrics"
)

const (
	QueueNotifications = "notifications"
	TaskTypeSendEmail  = "notification:email"
)

// EmailPayload is the asynq task body for TaskTypeSendEmail.
type EmailPayload struct {
	OutboxID int64  `json:"outbox_id"`
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

func NewSendEmailTask(payload EmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// TaskClient submits email tasks to asynq.
type TaskClient struct {
	client   *asynq.Client
	maxRetry int
}

func NewTaskClient(redisOpts asynq.RedisClientOpt, maxRetry int) *TaskClient {
	return &TaskClient{
		client:   asynq.NewClient(redisOpts),
		maxRetry: maxRetry,
	}
}

// EnqueueEmail uses the outbox id as task id, so relaying a row twice is a
// no-op on the queue side.
func (c *TaskClient) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	task, err := NewSendEmailTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueNotifications),
		asynq.TaskID(fmt.Sprintf("outbox-%d", payload.OutboxID)),
		asynq.MaxRetry(c.maxRetry),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func (c *TaskClient) Close() error {
	return c.client.Close()
}

// EmailHandler delivers TaskTypeSendEmail tasks through a Mailer.
type EmailHandler struct {
	mailer  Mailer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewEmailHandler(mailer Mailer, m *metrics.Metrics, logger *slog.Logger) *EmailHandler {
	return &EmailHandler{mailer: mailer, metrics: m, logger: logger}
}

func (h *EmailHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("malformed email task", "error", err)
		return fmt.Errorf("decode email payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task %d has no recipient: %w", payload.OutboxID, asynq.SkipRetry)
	}

	err := h.mailer.Send(ctx, Email{
		Kind:    payload.Kind,
		To:      payload.To,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	h.metrics.ObserveEmail(err)
	if err != nil {
		h.logger.Warn("email delivery failed",
			"outbox_id", payload.OutboxID,
			"kind", payload.Kind,
			"error", err)
		return err
	}

	h.logger.Info("email delivered", "outbox_id", payload.OutboxID, "kind", payload.Kind)
	return nil
}
