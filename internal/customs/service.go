package customs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/shipment"
)

type RepositoryAPI interface {
	Create(ctx context.Context, d *customsDatamodel.Declaration) error
	GetByID(ctx context.Context, id int64) (*customsDatamodel.Declaration, error)
	GetByShipment(ctx context.Context, shipmentID string) (*customsDatamodel.Declaration, error)
	GetByNumber(ctx context.Context, number string) (*customsDatamodel.Declaration, error)
	Save(ctx context.Context, d *customsDatamodel.Declaration) error
	ShipmentExists(ctx context.Context, id string) (bool, error)
	AccountExists(ctx context.Context, id string) (bool, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Transitioner interface {
	Apply(ctx context.Context, t shipment.Transition) (*shipment.Change, error)
	Announce(ctx context.Context, c *shipment.Change)
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	lifecycle Transitioner
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, lifecycle Transitioner, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		lifecycle: lifecycle,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Create(ctx context.Context, dto CreateDeclarationDTO) (*Declaration, error) {
	dto.DeclarationNumber = strings.TrimSpace(dto.DeclarationNumber)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}
	if dto.OfficerID == "" {
		dto.OfficerID = internal.UserIDFromContext(ctx)
		if dto.OfficerID == "" {
			return nil, internal.NewValidationFieldError("officer_id", "officer_id is required", internal.ErrCodeValidationFailed)
		}
	}

	var row *customsDatamodel.Declaration
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.ShipmentExists(ctx, dto.ShipmentID)
		if err != nil {
			return fmt.Errorf("get shipment: %w", err)
		}
		if !ok {
			return internal.ErrShipmentNotFound
		}

		ok, err = s.repo.AccountExists(ctx, dto.OfficerID)
		if err != nil {
			return fmt.Errorf("get officer: %w", err)
		}
		if !ok {
			return internal.ErrAccountNotFound
		}

		existing, err := s.repo.GetByShipment(ctx, dto.ShipmentID)
		if err != nil {
			return fmt.Errorf("get declaration: %w", err)
		}
		if existing != nil {
			return internal.ErrDeclarationAlreadyExists
		}

		existing, err = s.repo.GetByNumber(ctx, dto.DeclarationNumber)
		if err != nil {
			return fmt.Errorf("get declaration by number: %w", err)
		}
		if existing != nil {
			return internal.ErrDuplicateDeclarationNumber
		}

		row = &customsDatamodel.Declaration{
			ShipmentID:        dto.ShipmentID,
			OfficerID:         dto.OfficerID,
			DeclarationNumber: dto.DeclarationNumber,
			SubmittedAt:       s.now(),
			Status:            string(StatusDraft),
			DocumentRef:       dto.DocumentRef,
		}
		if err := s.repo.Create(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrDuplicateDeclarationNumber
			}
			return fmt.Errorf("create declaration: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeDeclarationCreated, row, map[string]interface{}{
		"shipment_id":        row.ShipmentID,
		"declaration_number": row.DeclarationNumber,
	})
	return FromDataModel(row), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Declaration, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get declaration: %w", err)
	}
	if row == nil {
		return nil, internal.ErrDeclarationNotFound
	}
	return FromDataModel(row), nil
}

// Submit moves a draft to SUBMITTED. SubmittedAt keeps the value stamped at
// creation.
func (s *Service) Submit(ctx context.Context, id int64) (*Declaration, error) {
	row, err := s.update(ctx, id, func(ctx context.Context, d *Declaration, row *customsDatamodel.Declaration) error {
		if !d.CanBeSubmitted() {
			return internal.ErrInvalidDeclarationStatus
		}
		row.Status = string(StatusSubmitted)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeDeclarationSubmitted, row, nil)
	return FromDataModel(row), nil
}

// Approve clears the declaration and makes the shipment ready for pickup in
// the same transaction. A cleared declaration cannot be approved again.
func (s *Service) Approve(ctx context.Context, id int64) (*Declaration, error) {
	var change *shipment.Change
	row, err := s.update(ctx, id, func(ctx context.Context, d *Declaration, row *customsDatamodel.Declaration) error {
		if !d.CanBeApproved() {
			return internal.ErrInvalidDeclarationStatus
		}
		now := s.now()
		row.Status = string(StatusCleared)
		row.ClearedAt = &now
		row.RejectionReason = ""

		var err error
		change, err = s.lifecycle.Apply(ctx, shipment.Transition{
			ShipmentID: row.ShipmentID,
			Status:     shipment.StatusReadyForPickup,
			Notes:      "Customs declaration " + row.DeclarationNumber + " cleared",
			ActorID:    internal.UserIDFromContext(ctx),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.Announce(ctx, change)
	s.publish(ctx, events.EventTypeDeclarationApproved, row, map[string]interface{}{
		"shipment_id": row.ShipmentID,
	})
	s.logger.Info("declaration approved", "declaration_id", row.ID, "shipment_id", row.ShipmentID)
	return FromDataModel(row), nil
}

func (s *Service) Reject(ctx context.Context, id int64, dto RejectDeclarationDTO) (*Declaration, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	row, err := s.update(ctx, id, func(ctx context.Context, d *Declaration, row *customsDatamodel.Declaration) error {
		if !d.CanBeRejected() {
			return internal.ErrInvalidDeclarationStatus
		}
		row.Status = string(StatusRejected)
		row.RejectionReason = dto.Reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeDeclarationRejected, row, map[string]interface{}{
		"reason": dto.Reason,
	})
	return FromDataModel(row), nil
}

// update loads the declaration, lets mutate change it and saves it, all in
// one transaction.
func (s *Service) update(ctx context.Context, id int64, mutate func(ctx context.Context, d *Declaration, row *customsDatamodel.Declaration) error) (*customsDatamodel.Declaration, error) {
	var row *customsDatamodel.Declaration
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("get declaration: %w", err)
		}
		if row == nil {
			return internal.ErrDeclarationNotFound
		}
		if err := mutate(ctx, FromDataModel(row), row); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, row); err != nil {
			return fmt.Errorf("save declaration: %w", err)
		}
		return nil
	})
	return row, err
}

func (s *Service) publish(ctx context.Context, eventType string, row *customsDatamodel.Declaration, data map[string]interface{}) {
	ev := events.NewLogisticsEvent(ctx, eventType, "declaration", fmt.Sprint(row.ID), data)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", eventType, "error", err)
	}
}
