package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/transit241/port-logistics/internal/audit"
	auditDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/audit"
)

const entryColumns = `id, actor_id, actor_email, action_type, resource_name, resource_id, occurred_at, origin_ip, details`

// Store keeps audit entries through sqlx. Queries are written with ? and
// rebound for the driver, so the same store runs on pgx and sqlite3.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, e *auditDatamodel.Entry) error {
	query := s.db.Rebind(`INSERT INTO audit_entries
		(actor_id, actor_email, action_type, resource_name, resource_id, occurred_at, origin_ip, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err := s.db.QueryRowxContext(ctx, query,
		e.ActorID, e.ActorEmail, e.ActionType, e.ResourceName,
		e.ResourceID, e.OccurredAt, e.OriginIP, e.Details,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (*auditDatamodel.Entry, error) {
	var e auditDatamodel.Entry
	query := s.db.Rebind(`SELECT ` + entryColumns + ` FROM audit_entries WHERE id = ?`)
	if err := s.db.GetContext(ctx, &e, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get audit entry: %w", err)
	}
	return &e, nil
}

func (s *Store) Query(ctx context.Context, filter audit.Filter) ([]*auditDatamodel.Entry, int64, error) {
	where, args := whereClause(filter)

	var total int64
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT COUNT(*) FROM audit_entries`+where), args...); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries` + where + ` ORDER BY occurred_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	entries := []*auditDatamodel.Entry{}
	if err := s.db.SelectContext(ctx, &entries, s.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	return entries, total, nil
}

// likeEscaper makes search text match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

func whereClause(filter audit.Filter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.ActionType != "" {
		conds = append(conds, "action_type = ?")
		args = append(args, filter.ActionType)
	}
	if filter.ResourceName != "" {
		conds = append(conds, "resource_name = ?")
		args = append(args, filter.ResourceName)
	}
	if filter.ActorID != "" {
		conds = append(conds, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		conds = append(conds, `(LOWER(details) LIKE ? ESCAPE '\' OR LOWER(resource_id) LIKE ? ESCAPE '\' OR LOWER(origin_ip) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
