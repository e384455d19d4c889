package marketplace

import (
	"context"
	"fmt"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/pkg/errors"
)

// Scraper is the listing-level contract. Implementations never return errors from
// Scrape; failures are carried in the result.
type Scraper interface {
	Scrape(ctx context.Context, p models.Platform, rawURL string) models.ExtractionResult
	ScrapeURL(ctx context.Context, rawURL string) models.ExtractionResult
	FindMatch(ctx context.Context, target models.Platform, productName string) (models.ExtractionResult, bool)
	Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error)
}

var (
	ErrBlocked    = errors.New("blocked by anti-bot challenge")
	ErrValidation = errors.New("unsupported or empty url")
)

// TransportError covers network failures, timeouts and non-2xx responses.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Kind maps an error from the fetch/extract layer to a result kind.
func Kind(err error) models.ErrorKind {
	var te *TransportError
	switch {
	case err == nil:
		return models.ErrorKindNone
	case errors.As(err, &te):
		return models.ErrorKindTransport
	case errors.Is(err, ErrBlocked):
		return models.ErrorKindBlocked
	case errors.Is(err, ErrValidation):
		return models.ErrorKindValidation
	default:
		return models.ErrorKindExtractionIncomplete
	}
}
