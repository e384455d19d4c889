package pglistings

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS tracked_listings (
  id BIGSERIAL PRIMARY KEY,
  owner BIGINT NOT NULL,
  owner_email TEXT NOT NULL DEFAULT '',
  product_name TEXT NOT NULL,
  image TEXT NULL,
  amazon_url TEXT NULL,
  amazon_price DOUBLE PRECISION NULL CHECK (amazon_price >= 0),
  amazon_original_price DOUBLE PRECISION NULL CHECK (amazon_original_price >= 0),
  flipkart_url TEXT NULL,
  flipkart_price DOUBLE PRECISION NULL CHECK (flipkart_price >= 0),
  flipkart_original_price DOUBLE PRECISION NULL CHECK (flipkart_original_price >= 0),
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CHECK (amazon_url IS NOT NULL OR flipkart_url IS NOT NULL)
)`,
		`CREATE INDEX IF NOT EXISTS idx_tracked_listings_owner ON tracked_listings(owner)`,
		`
CREATE TABLE IF NOT EXISTS price_history (
  id BIGSERIAL PRIMARY KEY,
  listing_id BIGINT NOT NULL REFERENCES tracked_listings(id) ON DELETE CASCADE,
  amazon_price DOUBLE PRECISION NULL,
  flipkart_price DOUBLE PRECISION NULL,
  recorded_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_price_history_listing_recorded ON price_history(listing_id, recorded_at)`,
		`
CREATE TABLE IF NOT EXISTS price_alerts (
  id BIGSERIAL PRIMARY KEY,
  owner BIGINT NOT NULL,
  listing_id BIGINT NOT NULL REFERENCES tracked_listings(id) ON DELETE CASCADE,
  target_price DOUBLE PRECISION NOT NULL CHECK (target_price > 0),
  scope TEXT NOT NULL CHECK (scope IN ('amazon', 'flipkart', 'both')),
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  triggered_at TIMESTAMPTZ NULL
)`,
		// One active condition per (listing, owner, scope); fired rows stay as history.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_price_alerts_active ON price_alerts(listing_id, owner, scope) WHERE is_active`,
		`CREATE INDEX IF NOT EXISTS idx_price_alerts_listing ON price_alerts(listing_id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
