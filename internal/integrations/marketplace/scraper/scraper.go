package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/extract"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/fetcher"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/platform"
	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
)

const (
	defaultMaxResults  = 24
	defaultQueryTokens = 5
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (fetcher.Response, error)
	Refetch(ctx context.Context, rawURL string, prev fetcher.Response) (fetcher.Response, error)
	Pause(ctx context.Context, min, max time.Duration) error
}

// Site is the markup knowledge of one marketplace.
type Site interface {
	Platform() models.Platform
	DisplayName() string
	Parse(doc *goquery.Document, sourceURL string) models.ExtractionResult
	SearchURL(query string) string
	FirstProductLink(doc *goquery.Document) (string, bool)
	ParseSearch(doc *goquery.Document, maxResults int) []models.SearchResult
}

type Scraper struct {
	f        Fetcher
	sites    map[models.Platform]Site
	detector *extract.BlockDetector

	retryMin time.Duration
	retryMax time.Duration

	maxResults  int
	queryTokens int
}

var _ marketplace.Scraper = (*Scraper)(nil)

func New(f Fetcher, sites ...Site) *Scraper {
	s := &Scraper{
		f:           f,
		sites:       make(map[models.Platform]Site, len(sites)),
		detector:    extract.NewBlockDetector(),
		retryMin:    3 * time.Second,
		retryMax:    6 * time.Second,
		maxResults:  defaultMaxResults,
		queryTokens: defaultQueryTokens,
	}
	for _, site := range sites {
		s.sites[site.Platform()] = site
	}
	return s
}

// WithRetryDelay sets the extra pause before the single retry after a challenge page.
func (s *Scraper) WithRetryDelay(min, max time.Duration) *Scraper {
	if min >= 0 {
		s.retryMin = min
	}
	if max >= s.retryMin {
		s.retryMax = max
	}
	return s
}

func (s *Scraper) WithMaxResults(n int) *Scraper {
	if n > 0 {
		s.maxResults = n
	}
	return s
}

func (s *Scraper) WithBlockDetector(d *extract.BlockDetector) *Scraper {
	if d != nil {
		s.detector = d
	}
	return s
}

func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string) models.ExtractionResult {
	return s.Scrape(ctx, platform.Identify(rawURL), rawURL)
}

func (s *Scraper) Scrape(ctx context.Context, p models.Platform, rawURL string) models.ExtractionResult {
	norm, ok := platform.Normalize(rawURL)
	site, known := s.sites[p]
	if !ok || !known {
		return models.FailedExtraction(p, rawURL, models.ErrorKindValidation, "Unsupported or empty product URL")
	}

	doc, err := s.document(ctx, site, norm)
	if err != nil {
		slog.Warn("scrape failed", "platform", p, "url", norm, "error", err.Error())
		return s.failed(site, norm, err)
	}

	res := site.Parse(doc, norm)
	if res.Succeeded {
		slog.Info("scraped listing", "platform", p, "url", norm, "price", *res.Price)
	} else {
		slog.Warn("extraction incomplete", "platform", p, "url", norm,
			"has_name", res.Name != nil, "has_price", res.Price != nil)
	}
	return res
}

func (s *Scraper) failed(site Site, url string, err error) models.ExtractionResult {
	kind := marketplace.Kind(err)
	msg := err.Error()
	if kind == models.ErrorKindBlocked {
		msg = fmt.Sprintf("%s blocked the request. Please try again in a few minutes.", site.DisplayName())
	}
	return models.FailedExtraction(site.Platform(), url, kind, msg)
}

// document fetches and parses url. A challenge page earns exactly one retry with a
// new fingerprint; a second challenge is terminal for this call.
func (s *Scraper) document(ctx context.Context, site Site, url string) (*goquery.Document, error) {
	resp, err := s.f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if marker, blocked := s.detector.Blocked(resp.Body); blocked {
		slog.Warn("challenge page detected, retrying once", "platform", site.Platform(), "url", url, "marker", marker)
		if err := s.f.Pause(ctx, s.retryMin, s.retryMax); err != nil {
			return nil, &marketplace.TransportError{URL: url, Err: err}
		}
		resp, err = s.f.Refetch(ctx, url, resp)
		if err != nil {
			return nil, err
		}
		if _, blocked := s.detector.Blocked(resp.Body); blocked {
			return nil, marketplace.ErrBlocked
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, errors.Wrap(err, "parse html")
	}
	return doc, nil
}

// Query keeps the first n whitespace separated tokens of a product name.
func Query(name string, n int) string {
	fields := strings.Fields(name)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func (s *Scraper) FindMatch(ctx context.Context, target models.Platform, productName string) (models.ExtractionResult, bool) {
	site, ok := s.sites[target]
	q := Query(productName, s.queryTokens)
	if !ok || q == "" {
		return models.ExtractionResult{}, false
	}

	doc, err := s.document(ctx, site, site.SearchURL(q))
	if err != nil {
		slog.Warn("match search failed", "platform", target, "query", q, "error", err.Error())
		return models.ExtractionResult{}, false
	}
	link, ok := site.FirstProductLink(doc)
	if !ok {
		slog.Info("no matching listing", "platform", target, "query", q)
		return models.ExtractionResult{}, false
	}

	res := s.Scrape(ctx, target, link)
	return res, res.Succeeded
}

func (s *Scraper) Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error) {
	site, ok := s.sites[p]
	if !ok {
		return nil, errors.Wrapf(marketplace.ErrValidation, "search on %q", p)
	}
	q := Query(query, s.queryTokens)
	if q == "" {
		return []models.SearchResult{}, nil
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	doc, err := s.document(ctx, site, site.SearchURL(q))
	if err != nil {
		return nil, errors.Wrap(err, "search page")
	}
	return site.ParseSearch(doc, maxResults), nil
}
