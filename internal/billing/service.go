package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"

	"github.com/google/uuid"
)

type RepositoryAPI interface {
	CreateInvoice(ctx context.Context, i *billingDatamodel.Invoice) error
	GetInvoice(ctx context.Context, id int64) (*billingDatamodel.Invoice, error)
	GetInvoiceByShipment(ctx context.Context, shipmentID string) (*billingDatamodel.Invoice, error)
	SaveInvoice(ctx context.Context, i *billingDatamodel.Invoice) error

	CreateTransaction(ctx context.Context, t *billingDatamodel.Transaction) error
	GetTransaction(ctx context.Context, id string) (*billingDatamodel.Transaction, error)
	GetTransactionByReference(ctx context.Context, ref string) (*billingDatamodel.Transaction, error)
	ListTransactions(ctx context.Context, shipmentID string) ([]*billingDatamodel.Transaction, error)
	SaveTransaction(ctx context.Context, t *billingDatamodel.Transaction) error

	ShipmentExists(ctx context.Context, id string) (bool, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	repo      RepositoryAPI
	tx        Transactor
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(repo RepositoryAPI, tx Transactor, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		tx:        tx,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateInvoice issues the shipment's single invoice in PENDING.
func (s *Service) CreateInvoice(ctx context.Context, dto CreateInvoiceDTO) (*Invoice, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	var row *billingDatamodel.Invoice
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireShipment(ctx, dto.ShipmentID); err != nil {
			return err
		}

		existing, err := s.repo.GetInvoiceByShipment(ctx, dto.ShipmentID)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if existing != nil {
			return internal.ErrInvoiceAlreadyExists
		}

		row = &billingDatamodel.Invoice{
			ShipmentID:   dto.ShipmentID,
			Amount:       dto.Amount,
			IssuedAt:     s.now(),
			Status:       string(InvoicePending),
			FeeBreakdown: dto.FeeBreakdown,
		}
		if err := s.repo.CreateInvoice(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrInvoiceAlreadyExists
			}
			return fmt.Errorf("create invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeInvoiceCreated, "invoice", fmt.Sprint(row.ID), map[string]interface{}{
		"shipment_id": row.ShipmentID,
		"amount":      row.Amount,
	})
	return InvoiceFromDataModel(row), nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if row == nil {
		return nil, internal.ErrInvoiceNotFound
	}
	return InvoiceFromDataModel(row), nil
}

// MarkPaid settles a PENDING invoice. Paying twice is an error.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*Invoice, error) {
	row, err := s.updateInvoice(ctx, id, func(inv *Invoice, row *billingDatamodel.Invoice) error {
		if !inv.CanBePaid() {
			return internal.ErrInvalidInvoiceStatus
		}
		now := s.now()
		row.Status = string(InvoicePaid)
		row.PaidAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeInvoicePaid, "invoice", fmt.Sprint(row.ID), map[string]interface{}{
		"shipment_id": row.ShipmentID,
		"amount":      row.Amount,
	})
	s.logger.Info("invoice paid", "invoice_id", row.ID, "shipment_id", row.ShipmentID)
	return InvoiceFromDataModel(row), nil
}

func (s *Service) CancelInvoice(ctx context.Context, id int64) (*Invoice, error) {
	row, err := s.updateInvoice(ctx, id, func(inv *Invoice, row *billingDatamodel.Invoice) error {
		if !inv.CanBeCancelled() {
			return internal.ErrInvalidInvoiceStatus
		}
		row.Status = string(InvoiceCancelled)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeInvoiceCancelled, "invoice", fmt.Sprint(row.ID), map[string]interface{}{
		"shipment_id": row.ShipmentID,
	})
	return InvoiceFromDataModel(row), nil
}

func (s *Service) updateInvoice(ctx context.Context, id int64, mutate func(inv *Invoice, row *billingDatamodel.Invoice) error) (*billingDatamodel.Invoice, error) {
	var row *billingDatamodel.Invoice
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.repo.GetInvoice(ctx, id)
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		if row == nil {
			return internal.ErrInvoiceNotFound
		}
		if err := mutate(InvoiceFromDataModel(row), row); err != nil {
			return err
		}
		if err := s.repo.SaveInvoice(ctx, row); err != nil {
			return fmt.Errorf("save invoice: %w", err)
		}
		return nil
	})
	return row, err
}

// RecordTransaction logs a payment against a shipment. The caller is the
// payer.
func (s *Service) RecordTransaction(ctx context.Context, dto RecordTransactionDTO) (*Transaction, error) {
	dto.ExternalReference = strings.TrimSpace(dto.ExternalReference)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	row := &billingDatamodel.Transaction{
		ID:            uuid.NewString(),
		ShipmentID:    dto.ShipmentID,
		AmountExclTax: dto.AmountExclTax,
		TotalAmount:   dto.TotalAmount,
		FeeType:       string(dto.FeeType),
		Status:        string(TransactionPending),
		PaymentMethod: dto.PaymentMethod,
	}
	if payer := internal.UserIDFromContext(ctx); payer != "" {
		row.PayerID = &payer
	}
	if dto.ExternalReference != "" {
		ref := dto.ExternalReference
		row.ExternalReference = &ref
	}

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.requireShipment(ctx, dto.ShipmentID); err != nil {
			return err
		}
		if err := s.requireUnusedReference(ctx, row.ExternalReference, ""); err != nil {
			return err
		}
		if err := s.repo.CreateTransaction(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrDuplicateReference
			}
			return fmt.Errorf("create transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeTransactionRecorded, "transaction", row.ID, map[string]interface{}{
		"shipment_id":  row.ShipmentID,
		"total_amount": row.TotalAmount,
		"fee_type":     row.FeeType,
	})
	return TransactionFromDataModel(row), nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	row, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if row == nil {
		return nil, internal.ErrTransactionNotFound
	}
	return TransactionFromDataModel(row), nil
}

// ListTransactions returns the shipment's transactions, newest first.
func (s *Service) ListTransactions(ctx context.Context, shipmentID string) ([]*Transaction, error) {
	if shipmentID == "" {
		return nil, internal.NewValidationFieldError("shipment_id", "shipment_id is required", internal.ErrCodeValidationFailed)
	}
	rows, err := s.repo.ListTransactions(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]*Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, TransactionFromDataModel(row))
	}
	return out, nil
}

// UpdateTransactionStatus applies a gateway outcome or a manual correction.
// SUCCEEDED stamps the payment time.
func (s *Service) UpdateTransactionStatus(ctx context.Context, id string, dto UpdateTransactionStatusDTO) (*Transaction, error) {
	dto.ExternalReference = strings.TrimSpace(dto.ExternalReference)
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	var (
		row      *billingDatamodel.Transaction
		previous TransactionStatus
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		row, err = s.repo.GetTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if row == nil {
			return internal.ErrTransactionNotFound
		}

		current := TransactionFromDataModel(row)
		if !current.CanMoveTo(dto.Status) {
			return internal.ErrInvalidTransactionStatus
		}
		previous = current.Status

		if dto.ExternalReference != "" {
			ref := dto.ExternalReference
			if err := s.requireUnusedReference(ctx, &ref, row.ID); err != nil {
				return err
			}
			row.ExternalReference = &ref
		}
		if dto.PaymentMethod != "" {
			row.PaymentMethod = dto.PaymentMethod
		}
		row.Status = string(dto.Status)
		if dto.Status == TransactionSucceeded {
			now := s.now()
			row.PaidAt = &now
		}

		if err := s.repo.SaveTransaction(ctx, row); err != nil {
			if database.IsDuplicateKey(err) {
				return internal.ErrDuplicateReference
			}
			return fmt.Errorf("save transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTypeTransactionStatusChanged, "transaction", row.ID, map[string]interface{}{
		"from": string(previous),
		"to":   row.Status,
	})
	return TransactionFromDataModel(row), nil
}

func (s *Service) requireShipment(ctx context.Context, id string) error {
	ok, err := s.repo.ShipmentExists(ctx, id)
	if err != nil {
		return fmt.Errorf("get shipment: %w", err)
	}
	if !ok {
		return internal.ErrShipmentNotFound
	}
	return nil
}

// requireUnusedReference fails when ref belongs to a transaction other than
// self.
func (s *Service) requireUnusedReference(ctx context.Context, ref *string, self string) error {
	if ref == nil {
		return nil
	}
	other, err := s.repo.GetTransactionByReference(ctx, *ref)
	if err != nil {
		return fmt.Errorf("get transaction by reference: %w", err)
	}
	if other != nil && other.ID != self {
		return internal.ErrDuplicateReference
	}
	return nil
}

func (s *Service) publish(ctx context.Context, eventType, resource, resourceID string, data map[string]interface{}) {
	ev := events.NewLogisticsEvent(ctx, eventType, resource, resourceID, data)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event", "event_type", eventType, "error", err)
	}
}
