package live

import (
	"time"

	"github.com/BearBump/PriceBox/config"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/amazon"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/fake"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/fetcher"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/flipkart"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/scraper"
)

const (
	ModeLive = "live"
	ModeFake = "fake"
)

func millis(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// New builds the scraper against the real marketplaces. Zero settings keep the
// fetcher and scraper defaults. rl may be nil.
func New(cfg config.PriceBoxConfig, rl fetcher.RateLimiter) *scraper.Scraper {
	f := fetcher.New().WithTimeout(time.Duration(cfg.FetchTimeoutSeconds) * time.Second)
	if cfg.FetchDelayMaxMillis > 0 {
		f = f.WithDelay(millis(cfg.FetchDelayMinMillis), millis(cfg.FetchDelayMaxMillis))
	}
	if rl != nil && cfg.HostRateLimitPerMinute > 0 {
		f = f.WithHostRateLimit(rl, int64(cfg.HostRateLimitPerMinute))
	}

	s := scraper.New(f, amazon.New(), flipkart.New()).WithMaxResults(cfg.SearchMaxResults)
	if cfg.BlockRetryMaxMillis > 0 {
		s = s.WithRetryDelay(millis(cfg.BlockRetryMinMillis), millis(cfg.BlockRetryMaxMillis))
	}
	return s
}

// ForMode picks the live or fake marketplace. Anything but "live" is fake.
func ForMode(cfg config.PriceBoxConfig, rl fetcher.RateLimiter) marketplace.Scraper {
	if cfg.MarketplaceMode == ModeLive {
		return New(cfg, rl)
	}
	return fake.New()
}
