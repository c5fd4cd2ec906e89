package shipment

import (
	"context"
	"fmt"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
)

// AppendStatus adds an entry to the ledger and mirrors it onto the shipment.
// Any valid status may follow any other.
func (s *Service) AppendStatus(ctx context.Context, shipmentID string, dto AppendStatusDTO) (*StatusEvent, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	var change *Change
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		change, err = s.lifecycle.Apply(ctx, Transition{
			ShipmentID: shipmentID,
			Status:     dto.Status,
			Location:   dto.Location,
			Notes:      dto.Notes,
			ActorID:    internal.UserIDFromContext(ctx),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.lifecycle.Announce(ctx, change)
	return change.Event, nil
}

// History returns the ledger newest first.
func (s *Service) History(ctx context.Context, shipmentID string) ([]*StatusEvent, error) {
	if _, err := s.Get(ctx, shipmentID); err != nil {
		return nil, err
	}
	return s.history(ctx, shipmentID)
}

func (s *Service) history(ctx context.Context, shipmentID string) ([]*StatusEvent, error) {
	rows, err := s.repo.History(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("load status history: %w", err)
	}
	out := make([]*StatusEvent, 0, len(rows))
	for _, row := range rows {
		out = append(out, EventFromDataModel(row))
	}
	return out, nil
}
