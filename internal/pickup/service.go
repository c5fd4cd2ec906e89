package pickup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/shipment"
	"github.com/transit241/port-logistics/internal/storage"
)

const identityProofPrefix = "identity-proofs"

var allowedProofTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"webp": "image/webp",
	"pdf":  "application/pdf",
}

type RepositoryAPI interface {
	Create(ctx context.Context, p *pickupDatamodel.Pickup) error
	GetByID(ctx context.Context, id int64) (*pickupDatamodel.Pickup, error)
	GetByShipment(ctx context.Context, shipmentID string) (*pickupDatamodel.Pickup, error)
	AccountExists(ctx context.Context, id string) (bool, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Transitioner moves a shipment to a new status inside the caller's
// transaction.
type Transitioner interface {
	Apply(ctx context.Context, t shipment.Transition) (*shipment.Change, error)
	Announce(ctx context.Context, c *shipment.Change)
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	lifecycle Transitioner
	blobs     storage.BlobStore
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, lifecycle Transitioner, blobs storage.BlobStore, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		lifecycle: lifecycle,
		blobs:     blobs,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create records the pickup and marks the shipment DELIVERED in the same
// transaction. A shipment is picked up at most once.
func (s *Service) Create(ctx context.Context, dto CreatePickupDTO) (*Pickup, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	if dto.ValidatorID == "" {
		dto.ValidatorID = internal.UserIDFromContext(ctx)
		if dto.ValidatorID == "" {
			return nil, internal.NewValidationFieldError("validator_id", "validator_id is required", internal.ErrCodeValidationFailed)
		}
	}

	var (
		row    *pickupDatamodel.Pickup
		change *shipment.Change
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetByShipment(ctx, dto.ShipmentID)
		if err != nil {
			return fmt.Errorf("get pickup: %w", err)
		}
		if existing != nil {
			return internal.ErrPickupAlreadyExists
		}

		ok, err := s.repo.AccountExists(ctx, dto.ValidatorID)
		if err != nil {
			return fmt.Errorf("get validator: %w", err)
		}
		if !ok {
			return internal.ErrAccountNotFound
		}

		change, err = s.lifecycle.Apply(ctx, shipment.Transition{
			ShipmentID: dto.ShipmentID,
			Status:     shipment.StatusDelivered,
			Notes:      "Picked up",
			ActorID:    dto.ValidatorID,
		})
		if err != nil {
			return err
		}

		row = &pickupDatamodel.Pickup{
			ShipmentID:       dto.ShipmentID,
			PickedUpAt:       s.now(),
			ValidatorID:      dto.ValidatorID,
			IdentityProofRef: dto.IdentityProofRef,
			Signature:        dto.Signature,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrPickupAlreadyExists
			}
			return fmt.Errorf("create pickup: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.Announce(ctx, change)
	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypePickupRecorded, "pickup", fmt.Sprint(row.ID), map[string]interface{}{
		"shipment_id":  row.ShipmentID,
		"validator_id": row.ValidatorID,
	}))
	s.logger.Info("pickup recorded", "shipment_id", row.ShipmentID, "pickup_id", row.ID)
	return FromDataModel(row), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Pickup, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get pickup: %w", err)
	}
	if row == nil {
		return nil, internal.ErrPickupNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetByShipment(ctx context.Context, shipmentID string) (*Pickup, error) {
	row, err := s.repo.GetByShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("get pickup: %w", err)
	}
	if row == nil {
		return nil, internal.ErrPickupNotFound
	}
	return FromDataModel(row), nil
}

// UploadIdentityProof stores the document under
// identity-proofs/<actor>_<timestamp>.<ext> and returns where it is served.
func (s *Service) UploadIdentityProof(ctx context.Context, filename string, r io.Reader) (string, error) {
	actor := internal.UserIDFromContext(ctx)
	if actor == "" {
		return "", internal.ErrInvalidToken
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	contentType, ok := allowedProofTypes[ext]
	if !ok {
		return "", internal.NewValidationFieldError("file", "unsupported document type", internal.ErrCodeInvalidFile)
	}

	key := fmt.Sprintf("%s/%s_%s.%s", identityProofPrefix, actor, s.now().Format("20060102150405"), ext)
	url, err := s.blobs.Put(ctx, key, r, contentType)
	if err != nil {
		return "", fmt.Errorf("store identity proof: %w", err)
	}

	s.publish(ctx, events.NewLogisticsEvent(ctx, events.EventTypeIdentityProofUploaded, "identity_proof", key, map[string]interface{}{
		"url": url,
	}))
	return url, nil
}

func (s *Service) publish(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", ev.EventType(), "error", err)
	}
}
