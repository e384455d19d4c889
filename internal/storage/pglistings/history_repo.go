package pglistings

import (
	"context"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) AppendHistory(ctx context.Context, listingID uint64, amazonPrice, flipkartPrice *float64, at time.Time) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO price_history (listing_id, amazon_price, flipkart_price, recorded_at)
VALUES ($1,$2,$3,$4)
`, listingID, amazonPrice, flipkartPrice, at.UTC())
	return errors.Wrap(err, "insert history")
}

// ListHistory returns a listing's points oldest first.
func (s *Storage) ListHistory(ctx context.Context, listingID uint64) ([]*models.PriceHistoryPoint, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, listing_id, amazon_price, flipkart_price, recorded_at
FROM price_history
WHERE listing_id = $1
ORDER BY recorded_at ASC, id ASC
`, listingID)
	if err != nil {
		return nil, errors.Wrap(err, "select history")
	}
	defer rows.Close()

	out := make([]*models.PriceHistoryPoint, 0)
	for rows.Next() {
		var p models.PriceHistoryPoint
		if err := rows.Scan(&p.ID, &p.ListingID, &p.AmazonPrice, &p.FlipkartPrice, &p.RecordedAt); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		out = append(out, &p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}
