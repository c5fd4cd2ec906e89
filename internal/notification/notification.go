package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	outboxDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	"github.com/transit241/port-logistics/internal/metrics"
)

const (
	KindWelcome       = "welcome"
	KindPasswordReset = "password_reset"
	KindStatusUpdate  = "status_update"
	KindSecurityAlert = "security_alert"
)

const brand = "PPPI"

// Email is one message bound for a single recipient.
type Email struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

var ErrNoRecipient = errors.New("notification: recipient is required")

// Notifier records an email intent. Implementations write it in the
// caller's transaction when one is bound to ctx.
type Notifier interface {
	Enqueue(ctx context.Context, email Email) error
}

type Repository interface {
	Create(ctx context.Context, msg *outboxDatamodel.Message) error
	ListPending(ctx context.Context, limit int) ([]*outboxDatamodel.Message, error)
	MarkDispatched(ctx context.Context, id int64, at time.Time) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	CountPending(ctx context.Context) (int64, error)
}

// Outbox is the Notifier backed by the outbox_messages table.
type Outbox struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewOutbox(repo Repository, m *metrics.Metrics, logger *slog.Logger) *Outbox {
	return &Outbox{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (o *Outbox) Enqueue(ctx context.Context, email Email) error {
	if strings.TrimSpace(email.To) == "" {
		return ErrNoRecipient
	}

	msg := &outboxDatamodel.Message{
		Kind:      email.Kind,
		Recipient: email.To,
		Subject:   email.Subject,
		Body:      email.Body,
		CreatedAt: o.now().UTC(),
	}
	if err := o.repo.Create(ctx, msg); err != nil {
		return fmt.Errorf("write outbox message: %w", err)
	}

	o.metrics.IncNotificationsQueued()
	o.logger.Debug("notification queued", "outbox_id", msg.ID, "kind", email.Kind)
	return nil
}

func WelcomeEmail(to, firstName string) Email {
	return Email{
		Kind:    KindWelcome,
		To:      to,
		Subject: fmt.Sprintf("Welcome to %s, %s!", brand, firstName),
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Your client account has been created on the %s platform.\n"+
			"Your login is: %s\n\n"+
			"You can now follow your shipments in real time.\n\n"+
			"The %s team.", firstName, brand, to, brand),
	}
}

func PasswordResetEmail(to, code string, ttl time.Duration) Email {
	return Email{
		Kind:    KindPasswordReset,
		To:      to,
		Subject: fmt.Sprintf("%s: your password reset code", brand),
		Body: fmt.Sprintf("Your password reset code is: %s\n\n"+
			"This code expires in %d minutes. If you did not request it, ignore this email.",
			code, int(ttl.Minutes())),
	}
}

func StatusUpdateEmail(to, shipmentID, billOfLading, statusLabel, location string) Email {
	body := fmt.Sprintf("The status of your shipment (%s) has been updated.\nNew status: %s", billOfLading, statusLabel)
	if location != "" {
		body += "\nLocation: " + location
	}
	return Email{
		Kind:    KindStatusUpdate,
		To:      to,
		Subject: fmt.Sprintf("%s: update on your shipment #%s", brand, shipmentID),
		Body:    body,
	}
}

func SecurityAlertEmail(to, accountEmail, accountID, action, ip string) Email {
	return Email{
		Kind:    KindSecurityAlert,
		To:      to,
		Subject: fmt.Sprintf("CRITICAL SECURITY ALERT - %s", action),
		Body:    fmt.Sprintf("Account %s (ID: %s) triggered the alert: %s. IP: %s", accountEmail, accountID, action, ip),
	}
}
