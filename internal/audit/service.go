package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/core/common/validation"
	auditDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/audit"
)

const defaultQueryLimit = 20

// RepositoryAPI has no update or delete: entries are written once.
type RepositoryAPI interface {
	Insert(ctx context.Context, e *auditDatamodel.Entry) error
	Get(ctx context.Context, id int64) (*auditDatamodel.Entry, error)
	Query(ctx context.Context, filter Filter) ([]*auditDatamodel.Entry, int64, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Record(ctx context.Context, dto RecordDTO) (*Entry, error) {
	if verr := validation.Struct(dto); verr != nil {
		return nil, verr
	}

	row := &auditDatamodel.Entry{
		ActorEmail:   dto.ActorEmail,
		ActionType:   dto.ActionType,
		ResourceName: dto.ResourceName,
		ResourceID:   dto.ResourceID,
		OccurredAt:   s.now(),
		OriginIP:     dto.OriginIP,
		Details:      dto.Details,
	}
	if dto.ActorID != "" {
		actor := dto.ActorID
		row.ActorID = &actor
	}

	if err := s.repo.Insert(ctx, row); err != nil {
		return nil, internal.NewInternalError("failed to record audit entry", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Entry, error) {
	row, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, internal.NewInternalError("failed to load audit entry", err)
	}
	if row == nil {
		return nil, internal.ErrAuditEntryNotFound
	}
	return FromDataModel(row), nil
}

// Query returns matching entries newest first, with the total match count.
func (s *Service) Query(ctx context.Context, filter Filter) ([]*Entry, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultQueryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	rows, total, err := s.repo.Query(ctx, filter)
	if err != nil {
		return nil, 0, internal.NewInternalError("failed to query audit entries", err)
	}

	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, FromDataModel(row))
	}
	return entries, total, nil
}
