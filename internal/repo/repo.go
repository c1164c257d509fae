package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tripline/internal/domain"
	"tripline/internal/events"
)

// Repo is the SQLite-backed persistence store for users, preferences and saved plans.
type Repo struct {
	DB     *sql.DB
	Events events.Writer
	Now    func() time.Time
}

var ErrNotFound = domain.ErrNotFound

func (r Repo) now() string {
	if r.Now == nil {
		return time.Now().UTC().Format(time.RFC3339)
	}
	return r.Now().UTC().Format(time.RFC3339)
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func (r Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestEvents returns newest-first events, optionally filtered by type and actor.
func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, actorID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if actorID != "" {
		clauses = append(clauses, "actor_id=?")
		args = append(args, actorID)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
