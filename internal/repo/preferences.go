package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tripline/internal/domain"
	"tripline/internal/events"
)

// GetPreferences returns the stored preferences, or empty preferences when none were saved.
func (r Repo) GetPreferences(ctx context.Context, userID string) (domain.Preferences, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT preferences_json FROM user_preferences WHERE user_id=?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Preferences{}, nil
	}
	if err != nil {
		return domain.Preferences{}, err
	}
	var p domain.Preferences
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Preferences{}, fmt.Errorf("decode preferences: %w", err)
	}
	return p, nil
}

// SavePreferences upserts the user's preferences.
func (r Repo) SavePreferences(ctx context.Context, userID string, p domain.Preferences) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	now := r.now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO user_preferences(user_id,preferences_json,updated_at) SELECT id,?,? FROM users WHERE id=?
ON CONFLICT(user_id) DO UPDATE SET preferences_json=excluded.preferences_json, updated_at=excluded.updated_at`,
			string(data), now, userID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return r.Events.Append(ctx, tx, events.PreferencesSaved, "user", userID, userID, events.EventPayload{"budget_range": p.BudgetRange})
	})
}
