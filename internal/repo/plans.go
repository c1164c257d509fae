package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tripline/internal/domain"
	"tripline/internal/events"
)

// SaveTripPlan stores plan for the user and returns the new plan id.
func (r Repo) SaveTripPlan(ctx context.Context, userID string, plan domain.TripPlan) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id required")
	}
	if plan.ID == "" {
		plan.ID = uuid.NewString()
	}
	name := strings.TrimSpace(plan.Name)
	if name == "" {
		name = "Trip to " + plan.DestinationName()
	}
	plan.Name = name
	plan.Saved = true
	var dates string
	if plan.Wishes != nil && plan.Wishes.TravelDates != nil {
		d := plan.Wishes.TravelDates
		dates = d.Start.Format("2006-01-02") + " to " + d.End.Format("2006-01-02")
	}
	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("encode plan: %w", err)
	}
	err = r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO travel_plans(id,user_id,plan_name,destination,travel_dates,plan_json,created_at) VALUES (?,?,?,?,?,?,?)`,
			plan.ID, userID, name, plan.DestinationName(), nullable(dates), string(data), r.now()); err != nil {
			return err
		}
		return r.Events.Append(ctx, tx, events.PlanSaved, "plan", plan.ID, userID, events.EventPayload{"destination": plan.DestinationName()})
	})
	if err != nil {
		return "", err
	}
	return plan.ID, nil
}

const planColumns = `id,user_id,plan_name,destination,COALESCE(travel_dates,''),plan_json,created_at`

func scanPlan(row interface{ Scan(...any) error }) (domain.SavedPlan, error) {
	var p domain.SavedPlan
	var raw string
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Destination, &p.TravelDates, &raw, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(raw), &p.Plan); err != nil {
		return p, fmt.Errorf("decode plan %s: %w", p.ID, err)
	}
	return p, nil
}

// ListTripPlans returns the user's plans, newest first.
func (r Repo) ListTripPlans(ctx context.Context, userID string) ([]domain.SavedPlan, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE user_id=? ORDER BY created_at DESC, rowid DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.SavedPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// GetTripPlan returns a plan owned by userID.
func (r Repo) GetTripPlan(ctx context.Context, userID, id string) (domain.SavedPlan, error) {
	return scanPlan(r.DB.QueryRowContext(ctx, `SELECT `+planColumns+` FROM travel_plans WHERE id=? AND user_id=?`, id, userID))
}
