package listings

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/PriceBox/internal/broker/messages"
	"github.com/BearBump/PriceBox/internal/cache"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/platform"
	"github.com/BearBump/PriceBox/internal/price"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
	"github.com/pkg/errors"
)

var (
	ErrValidation    = errors.New("invalid request")
	ErrNotFound      = pglistings.ErrNotFound
	ErrFetchFailed   = errors.New("Could not fetch product details")
	ErrRefreshFailed = errors.New("Could not refresh prices")
)

// ValidationError carries a message that is safe to show to the caller.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

type Repository interface {
	CreateListing(ctx context.Context, in models.ListingCreateInput) (*models.TrackedListing, error)
	GetListing(ctx context.Context, id uint64) (*models.TrackedListing, error)
	ListOwnerListings(ctx context.Context, owner uint64) ([]*models.TrackedListing, error)
	DeleteListing(ctx context.Context, owner, id uint64) (bool, error)
	ListHistory(ctx context.Context, listingID uint64) ([]*models.PriceHistoryPoint, error)
	UpsertAlert(ctx context.Context, in models.AlertInput) (*models.PriceAlertCondition, error)
	ListAlerts(ctx context.Context, listingID uint64) ([]*models.PriceAlertCondition, error)
	DeleteAlert(ctx context.Context, owner, id uint64) (bool, error)
}

type Scraper interface {
	Scrape(ctx context.Context, p models.Platform, rawURL string) models.ExtractionResult
	ScrapeURL(ctx context.Context, rawURL string) models.ExtractionResult
	FindMatch(ctx context.Context, target models.Platform, productName string) (models.ExtractionResult, bool)
	Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error)
}

type Refresher interface {
	RefreshListing(ctx context.Context, id uint64) (refresher.RefreshOutcome, error)
}

type Notifier interface {
	NotifyAlertSet(ctx context.Context, ev messages.AlertSet) error
}

type Charter interface {
	ChartSeries(points []*models.PriceHistoryPoint, l *models.TrackedListing) []models.ChartPoint
}

type Service struct {
	repo      Repository
	scraper   Scraper
	refresher Refresher
	notifier  Notifier
	charter   Charter

	cache     cache.BytesCache
	searchTTL time.Duration
	now       func() time.Time
}

func New(repo Repository, scraper Scraper, r Refresher, n Notifier, ch Charter) *Service {
	return &Service{repo: repo, scraper: scraper, refresher: r, notifier: n, charter: ch, now: time.Now}
}

// WithSearchCache enables best-effort caching of search results.
func (s *Service) WithSearchCache(c cache.BytesCache, ttl time.Duration) *Service {
	s.cache = c
	s.searchTTL = ttl
	return s
}

func (s *Service) Identify(rawURL string) models.Platform {
	return platform.Identify(rawURL)
}

func (s *Service) Scrape(ctx context.Context, rawURL string) models.ExtractionResult {
	return s.scraper.ScrapeURL(ctx, rawURL)
}

func searchKey(p models.Platform, query string, maxResults int) string {
	q := strings.ToLower(strings.Join(strings.Fields(query), " "))
	sum := sha1.Sum([]byte(q))
	return fmt.Sprintf("search:%s:%d:%s", p, maxResults, hex.EncodeToString(sum[:]))
}

func (s *Service) Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error) {
	if p != models.PlatformAmazon && p != models.PlatformFlipkart {
		return nil, invalid("platform must be amazon or flipkart")
	}
	if strings.TrimSpace(query) == "" {
		return nil, invalid("query is required")
	}

	useCache := s.cache != nil && s.searchTTL > 0
	key := searchKey(p, query, maxResults)
	if useCache {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var out []models.SearchResult
			if json.Unmarshal(b, &out) == nil {
				return out, nil
			}
		}
	}

	out, err := s.scraper.Search(ctx, p, query, maxResults)
	if err != nil {
		return nil, err
	}
	if useCache && len(out) > 0 {
		b, _ := json.Marshal(out)
		if err := s.cache.Set(ctx, key, b, s.searchTTL); err != nil {
			slog.Warn("cache search results", "error", err.Error())
		}
	}
	return out, nil
}

// Track scrapes url, looks for the same product on the other marketplace and
// stores both sides with the initial history point.
func (s *Service) Track(ctx context.Context, owner uint64, ownerEmail, rawURL string) (*models.TrackedListing, error) {
	if owner == 0 {
		return nil, invalid("owner is required")
	}
	p := platform.Identify(rawURL)
	if p == models.PlatformNone {
		return nil, invalid("Unsupported platform")
	}

	res := s.scraper.Scrape(ctx, p, rawURL)
	if !res.Succeeded {
		slog.Warn("track scrape failed", "platform", p, "url", rawURL, "kind", res.ErrorKind)
		return nil, ErrFetchFailed
	}

	in := models.ListingCreateInput{
		Owner:       owner,
		OwnerEmail:  ownerEmail,
		ProductName: *res.Name,
		Image:       res.Image,
	}
	source := &in.Amazon
	if p == models.PlatformFlipkart {
		source = &in.Flipkart
	}
	*source = models.PlatformListing{URL: &res.SourceURL, Price: res.Price, OriginalPrice: res.OriginalPrice}

	if match, ok := s.scraper.FindMatch(ctx, p.Other(), *res.Name); ok {
		sibling := &in.Flipkart
		if p == models.PlatformFlipkart {
			sibling = &in.Amazon
		}
		url := match.SourceURL
		*sibling = models.PlatformListing{URL: &url, Price: match.Price, OriginalPrice: match.OriginalPrice}
		if in.Image == nil {
			in.Image = match.Image
		}
	}

	l, err := s.repo.CreateListing(ctx, in)
	if err != nil {
		return nil, err
	}
	slog.Info("listing tracked", "listing_id", l.ID, "owner", owner,
		"amazon", l.Amazon.Populated(), "flipkart", l.Flipkart.Populated())
	return l, nil
}

// Get hides listings of other owners behind ErrNotFound.
func (s *Service) Get(ctx context.Context, owner, id uint64) (*models.TrackedListing, error) {
	l, err := s.repo.GetListing(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.Owner != owner {
		return nil, ErrNotFound
	}
	return l, nil
}

func (s *Service) List(ctx context.Context, owner uint64) ([]*models.TrackedListing, error) {
	return s.repo.ListOwnerListings(ctx, owner)
}

func (s *Service) Delete(ctx context.Context, owner, id uint64) error {
	ok, err := s.repo.DeleteListing(ctx, owner, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context, owner, id uint64) (refresher.RefreshOutcome, error) {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return refresher.RefreshOutcome{}, err
	}
	out, err := s.refresher.RefreshListing(ctx, id)
	if err != nil {
		return out, err
	}
	if !out.Scraped {
		return out, ErrRefreshFailed
	}
	return out, nil
}

func (s *Service) Chart(ctx context.Context, owner, id uint64) ([]models.ChartPoint, error) {
	l, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	points, err := s.repo.ListHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.charter.ChartSeries(points, l), nil
}

func (s *Service) SetAlert(ctx context.Context, owner uint64, ownerEmail string, listingID uint64, target float64, scope models.AlertScope) (*models.PriceAlertCondition, error) {
	if !scope.Valid() {
		return nil, invalid("platform must be amazon, flipkart or both")
	}
	if target < price.Min || target > price.Max {
		return nil, invalid("target price must be within [%v, %v]", price.Min, price.Max)
	}
	l, err := s.Get(ctx, owner, listingID)
	if err != nil {
		return nil, err
	}
	if scope != models.ScopeBoth && !l.Side(models.Platform(scope)).Populated() {
		return nil, invalid("listing is not tracked on %s", scope)
	}

	a, err := s.repo.UpsertAlert(ctx, models.AlertInput{Owner: owner, ListingID: listingID, TargetPrice: target, Scope: scope})
	if err != nil {
		return nil, err
	}

	email := ownerEmail
	if email == "" {
		email = l.OwnerEmail
	}
	if err := s.notifier.NotifyAlertSet(ctx, messages.NewAlertSet(a, l, email, s.now())); err != nil {
		slog.Warn("notify alert set", "alert_id", a.ID, "error", err.Error())
	}
	return a, nil
}

func (s *Service) ListAlerts(ctx context.Context, owner, listingID uint64) ([]*models.PriceAlertCondition, error) {
	if _, err := s.Get(ctx, owner, listingID); err != nil {
		return nil, err
	}
	return s.repo.ListAlerts(ctx, listingID)
}

func (s *Service) DeleteAlert(ctx context.Context, owner, id uint64) error {
	ok, err := s.repo.DeleteAlert(ctx, owner, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
