package events

import (
	"context"
	"time"

	"github.com/transit241/port-logistics/internal"

	"github.com/google/uuid"
)

const (
	EventTypeLoginSucceeded    = "auth.login_succeeded"
	EventTypeLoginFailed       = "auth.login_failed"
	EventTypeAccountRegistered = "account.registered"
	EventTypePasswordReset     = "account.password_reset"
	EventTypeRoleAssigned      = "account.role_assigned"
	EventTypeAccountDeleted    = "account.deleted"
	EventTypeRoleChanged       = "role.changed"

	EventTypeShipmentCreated       = "shipment.created"
	EventTypeShipmentStatusChanged = "shipment.status_changed"
	EventTypeShipmentDeleted       = "shipment.deleted"

	EventTypePickupRecorded        = "pickup.recorded"
	EventTypeIdentityProofUploaded = "pickup.identity_proof_uploaded"

	EventTypeInvoiceCreated           = "invoice.created"
	EventTypeInvoicePaid              = "invoice.paid"
	EventTypeInvoiceCancelled         = "invoice.cancelled"
	EventTypeTransactionRecorded      = "transaction.recorded"
	EventTypeTransactionStatusChanged = "transaction.status_changed"

	EventTypeDeclarationCreated   = "declaration.created"
	EventTypeDeclarationSubmitted = "declaration.submitted"
	EventTypeDeclarationApproved  = "declaration.approved"
	EventTypeDeclarationRejected  = "declaration.rejected"
)

// AllLogisticsEventTypes lists every type the audit subscriber listens to.
var AllLogisticsEventTypes = []string{
	EventTypeLoginSucceeded,
	EventTypeLoginFailed,
	EventTypeAccountRegistered,
	EventTypePasswordReset,
	EventTypeRoleAssigned,
	EventTypeAccountDeleted,
	EventTypeRoleChanged,
	EventTypeShipmentCreated,
	EventTypeShipmentStatusChanged,
	EventTypeShipmentDeleted,
	EventTypePickupRecorded,
	EventTypeIdentityProofUploaded,
	EventTypeInvoiceCreated,
	EventTypeInvoicePaid,
	EventTypeInvoiceCancelled,
	EventTypeTransactionRecorded,
	EventTypeTransactionStatusChanged,
	EventTypeDeclarationCreated,
	EventTypeDeclarationSubmitted,
	EventTypeDeclarationApproved,
	EventTypeDeclarationRejected,
}

// LogisticsEvent is a fact about a resource, attributed to whoever was
// authenticated on the context that produced it.
type LogisticsEvent struct {
	BaseEvent
	Resource   string `json:"resource"`
	ResourceID string `json:"resource_id"`
	ActorID    string `json:"actor_id,omitempty"`
	ActorEmail string `json:"actor_email,omitempty"`
	OriginIP   string `json:"origin_ip,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
}

func NewLogisticsEvent(ctx context.Context, eventType, resource, resourceID string, data map[string]interface{}) *LogisticsEvent {
	if data == nil {
		data = map[string]interface{}{}
	}
	ev := &LogisticsEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      eventType,
			Timestamp: time.Now().UTC(),
			Data:      data,
		},
		Resource:   resource,
		ResourceID: resourceID,
	}
	if u, ok := internal.UserFromContext(ctx); ok {
		ev.ActorID = u.ID
		ev.ActorEmail = u.Email
	}
	origin := internal.OriginFromContext(ctx)
	ev.OriginIP = origin.IP
	ev.UserAgent = origin.UserAgent
	return ev
}

// WithActor overrides the actor, for events raised before a principal is on
// the context (login, registration).
func (e *LogisticsEvent) WithActor(id, email string) *LogisticsEvent {
	e.ActorID = id
	e.ActorEmail = email
	return e
}
