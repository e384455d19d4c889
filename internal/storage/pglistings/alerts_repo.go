package pglistings

import (
	"context"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const alertColumns = `
  id, owner, listing_id, target_price, scope, is_active, created_at, triggered_at`

func scanAlert(row pgx.Row) (*models.PriceAlertCondition, error) {
	var a models.PriceAlertCondition
	if err := row.Scan(&a.ID, &a.Owner, &a.ListingID, &a.TargetPrice, &a.Scope, &a.IsActive, &a.CreatedAt, &a.TriggeredAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAlert keeps a single active condition per (listing, owner, scope):
// setting it again only moves the target price.
func (s *Storage) UpsertAlert(ctx context.Context, in models.AlertInput) (*models.PriceAlertCondition, error) {
	a, err := scanAlert(s.db.QueryRow(ctx, `
INSERT INTO price_alerts (owner, listing_id, target_price, scope, is_active, created_at)
VALUES ($1,$2,$3,$4,TRUE,$5)
ON CONFLICT (listing_id, owner, scope) WHERE is_active
DO UPDATE SET target_price = EXCLUDED.target_price
RETURNING`+alertColumns,
		in.Owner, in.ListingID, in.TargetPrice, in.Scope, time.Now().UTC()))
	if err != nil {
		return nil, errors.Wrap(err, "upsert alert")
	}
	return a, nil
}

func (s *Storage) queryAlerts(ctx context.Context, q string, args ...any) ([]*models.PriceAlertCondition, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select alerts")
	}
	defer rows.Close()

	out := make([]*models.PriceAlertCondition, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan alert")
		}
		out = append(out, a)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) ListActiveConditions(ctx context.Context) ([]*models.PriceAlertCondition, error) {
	return s.queryAlerts(ctx, `SELECT`+alertColumns+`
FROM price_alerts
WHERE is_active
ORDER BY id ASC
`)
}

func (s *Storage) ListActiveConditionsForListing(ctx context.Context, listingID uint64) ([]*models.PriceAlertCondition, error) {
	return s.queryAlerts(ctx, `SELECT`+alertColumns+`
FROM price_alerts
WHERE is_active AND listing_id = $1
ORDER BY id ASC
`, listingID)
}

func (s *Storage) ListAlerts(ctx context.Context, listingID uint64) ([]*models.PriceAlertCondition, error) {
	return s.queryAlerts(ctx, `SELECT`+alertColumns+`
FROM price_alerts
WHERE listing_id = $1
ORDER BY created_at DESC, id DESC
`, listingID)
}

// DeactivateCondition flips an active condition to fired. It reports false when
// another evaluator got there first.
func (s *Storage) DeactivateCondition(ctx context.Context, id uint64, triggeredAt time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE price_alerts
SET is_active = FALSE, triggered_at = $2
WHERE id = $1 AND is_active
`, id, triggeredAt.UTC())
	if err != nil {
		return false, errors.Wrap(err, "deactivate alert")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Storage) DeleteAlert(ctx context.Context, owner, id uint64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM price_alerts WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return false, errors.Wrap(err, "delete alert")
	}
	return tag.RowsAffected() == 1, nil
}
