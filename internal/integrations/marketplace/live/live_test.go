package live

import (
	"context"
	"testing"

	"github.com/BearBump/PriceBox/config"
	"github.com/BearBump/PriceBox/internal/cache/rediscache"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/fake"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/scraper"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestForMode(t *testing.T) {
	_, ok := ForMode(config.PriceBoxConfig{MarketplaceMode: ModeLive}, nil).(*scraper.Scraper)
	require.True(t, ok)

	_, ok = ForMode(config.PriceBoxConfig{MarketplaceMode: ModeFake}, nil).(*fake.Scraper)
	require.True(t, ok)

	_, ok = ForMode(config.PriceBoxConfig{}, nil).(*fake.Scraper)
	require.True(t, ok)
}

func TestNew_RejectsUnsupportedURLWithoutFetching(t *testing.T) {
	mr := miniredis.RunT(t)
	rl := rediscache.NewRateLimiter(mr.Addr())
	defer rl.Close()

	s := New(config.PriceBoxConfig{
		FetchDelayMinMillis:    1,
		FetchDelayMaxMillis:    2,
		HostRateLimitPerMinute: 30,
		BlockRetryMinMillis:    1,
		BlockRetryMaxMillis:    2,
	}, rl)

	res := s.ScrapeURL(context.Background(), "https://www.ebay.com/itm/1")
	require.False(t, res.Succeeded)
	require.Equal(t, models.ErrorKindValidation, res.ErrorKind)
	require.Empty(t, mr.Keys())
}
