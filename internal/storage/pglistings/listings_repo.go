package pglistings

import (
	"context"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const listingColumns = `
  id, owner, owner_email, product_name, image,
  amazon_url, amazon_price, amazon_original_price,
  flipkart_url, flipkart_price, flipkart_original_price,
  created_at, updated_at`

// ListingRefresh is the post-scrape state of one listing. Prices of a platform
// whose scrape failed carry the previous values.
type ListingRefresh struct {
	ListingID uint64

	AmazonPrice           *float64
	AmazonOriginalPrice   *float64
	FlipkartPrice         *float64
	FlipkartOriginalPrice *float64

	RefreshedAt time.Time

	// AppendHistory adds a price_history row in the same transaction.
	AppendHistory bool
}

func scanListing(row pgx.Row) (*models.TrackedListing, error) {
	var l models.TrackedListing
	err := row.Scan(
		&l.ID, &l.Owner, &l.OwnerEmail, &l.ProductName, &l.Image,
		&l.Amazon.URL, &l.Amazon.Price, &l.Amazon.OriginalPrice,
		&l.Flipkart.URL, &l.Flipkart.Price, &l.Flipkart.OriginalPrice,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Storage) CreateListing(ctx context.Context, in models.ListingCreateInput) (*models.TrackedListing, error) {
	if !in.Amazon.Populated() && !in.Flipkart.Populated() {
		return nil, errors.New("listing needs at least one platform url")
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	l, err := scanListing(tx.QueryRow(ctx, `
INSERT INTO tracked_listings (
  owner, owner_email, product_name, image,
  amazon_url, amazon_price, amazon_original_price,
  flipkart_url, flipkart_price, flipkart_original_price,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$11)
RETURNING`+listingColumns,
		in.Owner, in.OwnerEmail, in.ProductName, in.Image,
		in.Amazon.URL, in.Amazon.Price, in.Amazon.OriginalPrice,
		in.Flipkart.URL, in.Flipkart.Price, in.Flipkart.OriginalPrice,
		now))
	if err != nil {
		return nil, errors.Wrap(err, "insert listing")
	}

	_, err = tx.Exec(ctx, `
INSERT INTO price_history (listing_id, amazon_price, flipkart_price, recorded_at)
VALUES ($1,$2,$3,$4)
`, l.ID, l.Amazon.Price, l.Flipkart.Price, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert initial history")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return l, nil
}

func (s *Storage) GetListing(ctx context.Context, id uint64) (*models.TrackedListing, error) {
	l, err := scanListing(s.db.QueryRow(ctx, `SELECT`+listingColumns+`
FROM tracked_listings
WHERE id = $1
`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select listing")
	}
	return l, nil
}

func (s *Storage) queryListings(ctx context.Context, q string, args ...any) ([]*models.TrackedListing, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select listings")
	}
	defer rows.Close()

	out := make([]*models.TrackedListing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan listing")
		}
		out = append(out, l)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// ListListings returns the whole catalog for a refresh cycle.
func (s *Storage) ListListings(ctx context.Context) ([]*models.TrackedListing, error) {
	return s.queryListings(ctx, `SELECT`+listingColumns+`
FROM tracked_listings
ORDER BY id ASC
`)
}

func (s *Storage) ListOwnerListings(ctx context.Context, owner uint64) ([]*models.TrackedListing, error) {
	return s.queryListings(ctx, `SELECT`+listingColumns+`
FROM tracked_listings
WHERE owner = $1
ORDER BY created_at DESC, id DESC
`, owner)
}

// DeleteListing removes the listing with its history and alerts.
func (s *Storage) DeleteListing(ctx context.Context, owner, id uint64) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM tracked_listings WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return false, errors.Wrap(err, "delete listing")
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Storage) ApplyRefresh(ctx context.Context, upd ListingRefresh) error {
	at := upd.RefreshedAt.UTC()
	if upd.RefreshedAt.IsZero() {
		at = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
UPDATE tracked_listings
SET
  amazon_price = $2,
  amazon_original_price = $3,
  flipkart_price = $4,
  flipkart_original_price = $5,
  updated_at = $6
WHERE id = $1
`, upd.ListingID, upd.AmazonPrice, upd.AmazonOriginalPrice, upd.FlipkartPrice, upd.FlipkartOriginalPrice, at)
	if err != nil {
		return errors.Wrap(err, "update listing prices")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if upd.AppendHistory {
		_, err = tx.Exec(ctx, `
INSERT INTO price_history (listing_id, amazon_price, flipkart_price, recorded_at)
VALUES ($1,$2,$3,$4)
`, upd.ListingID, upd.AmazonPrice, upd.FlipkartPrice, at)
		if err != nil {
			return errors.Wrap(err, "insert history")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}
