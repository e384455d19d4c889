package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/platform"
)

// Scraper is an offline marketplace for local runs and tests. Prices are
// deterministic per (url, day): the base comes from the url, and each day moves it
// by up to ±10%. Urls whose hash is divisible by 7 are reported as blocked.
type Scraper struct {
	now func() time.Time
}

var _ marketplace.Scraper = (*Scraper)(nil)

func New() *Scraper { return &Scraper{now: time.Now} }

func (s *Scraper) WithClock(now func() time.Time) *Scraper {
	if now != nil {
		s.now = now
	}
	return s
}

func hash(parts ...string) uint32 {
	h := fnv.New32a()
	for i, p := range parts {
		if i > 0 {
			_, _ = h.Write([]byte("|"))
		}
		_, _ = h.Write([]byte(p))
	}
	return h.Sum32()
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func (s *Scraper) priceFor(key string) (float64, float64) {
	base := float64(500 + hash(key)%99_500)
	day := s.now().UTC().Format("2006-01-02")
	drift := float64(int(hash(key, day)%21)-10) / 100
	return round2(base * (1 + drift)), round2(base * 1.2)
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg == "" || seg == "dp" || seg == "p" || seg == "gp" || seg == "product" {
			continue
		}
		words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(seg))
		for i, w := range words {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
		return strings.Join(words, " ")
	}
	return ""
}

func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string) models.ExtractionResult {
	return s.Scrape(ctx, platform.Identify(rawURL), rawURL)
}

func (s *Scraper) Scrape(ctx context.Context, p models.Platform, rawURL string) models.ExtractionResult {
	norm, ok := platform.Normalize(rawURL)
	if !ok || p == models.PlatformNone {
		return models.FailedExtraction(p, rawURL, models.ErrorKindValidation, "Unsupported or empty product URL")
	}
	if hash(norm)%7 == 0 {
		return models.FailedExtraction(p, norm, models.ErrorKindBlocked,
			fmt.Sprintf("%s blocked the request. Please try again in a few minutes.", displayName(p)))
	}

	var name *string
	if n := nameFromURL(norm); n != "" {
		name = &n
	}
	price, original := s.priceFor(norm)
	image := fmt.Sprintf("https://img.example.invalid/%s/%08x.jpg", p, hash(norm))
	return models.NewExtractionResult(p, norm, name, &price, &original, &image)
}

func displayName(p models.Platform) string {
	if p == models.PlatformFlipkart {
		return "Flipkart"
	}
	return "Amazon"
}

func productURL(p models.Platform, query string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(query), "-"))
	id := fmt.Sprintf("%08X", hash(string(p), slug))
	if p == models.PlatformFlipkart {
		return "https://www.flipkart.com/" + path.Clean(slug) + "/p/itm" + id + "?pid=" + id
	}
	return "https://www.amazon.in/" + path.Clean(slug) + "/dp/B" + id
}

func (s *Scraper) FindMatch(ctx context.Context, target models.Platform, productName string) (models.ExtractionResult, bool) {
	if target == models.PlatformNone || strings.TrimSpace(productName) == "" {
		return models.ExtractionResult{}, false
	}
	fields := strings.Fields(productName)
	if len(fields) > 5 {
		fields = fields[:5]
	}
	res := s.Scrape(ctx, target, productURL(target, strings.Join(fields, " ")))
	return res, res.Succeeded
}

func (s *Scraper) Search(ctx context.Context, p models.Platform, query string, maxResults int) ([]models.SearchResult, error) {
	if p == models.PlatformNone {
		return nil, marketplace.ErrValidation
	}
	if maxResults <= 0 {
		maxResults = 24
	}
	q := strings.TrimSpace(query)
	if q == "" {
		return []models.SearchResult{}, nil
	}
	n := int(hash(string(p), q)%5) + 1
	if n > maxResults {
		n = maxResults
	}
	out := make([]models.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		variant := fmt.Sprintf("%s variant %d", q, i+1)
		u := productURL(p, variant)
		price, _ := s.priceFor(u)
		name := variant
		out = append(out, models.SearchResult{Name: &name, Price: &price, URL: u, Platform: p})
	}
	return out, nil
}
