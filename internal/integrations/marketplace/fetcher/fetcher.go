package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/BearBump/PriceBox/internal/integrations/marketplace"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/platform"
)

const maxBodyBytes = 8 << 20

var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

type Rand interface {
	Intn(n int) int
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Response struct {
	Body      []byte
	Status    int
	UserAgent string
	FinalURL  string
}

type Fetcher struct {
	httpc *http.Client

	mu sync.Mutex
	r  Rand

	delayMin time.Duration
	delayMax time.Duration

	rl            RateLimiter
	hostPerMinute int64
	throttlePause time.Duration
}

func New() *Fetcher {
	return &Fetcher{
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
		r:             rand.New(rand.NewSource(time.Now().UnixNano())),
		delayMin:      2 * time.Second,
		delayMax:      4 * time.Second,
		throttlePause: time.Second,
	}
}

func (f *Fetcher) WithTimeout(timeout time.Duration) *Fetcher {
	if timeout > 0 {
		f.httpc.Timeout = timeout
	}
	return f
}

// WithDelay sets the randomized pre-request delay. Zero disables it.
func (f *Fetcher) WithDelay(min, max time.Duration) *Fetcher {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	f.delayMin, f.delayMax = min, max
	return f
}

func (f *Fetcher) WithRand(r Rand) *Fetcher {
	if r != nil {
		f.r = r
	}
	return f
}

func (f *Fetcher) WithHTTPClient(c *http.Client) *Fetcher {
	if c != nil {
		f.httpc = c
	}
	return f
}

func (f *Fetcher) WithHostRateLimit(rl RateLimiter, perMinute int64) *Fetcher {
	f.rl = rl
	f.hostPerMinute = perMinute
	return f
}

func (f *Fetcher) intn(n int) int {
	if n <= 1 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.r.Intn(n)
}

// Between returns a uniformly random duration in [min, max] at millisecond resolution.
func (f *Fetcher) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int((max - min) / time.Millisecond)
	return min + time.Duration(f.intn(span+1))*time.Millisecond
}

// Pause sleeps for a random duration in [min, max] or until ctx is done.
func (f *Fetcher) Pause(ctx context.Context, min, max time.Duration) error {
	d := f.Between(min, max)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *Fetcher) pickUserAgent(avoid string) string {
	ua := UserAgents[f.intn(len(UserAgents))]
	if ua == avoid {
		// One redraw keeps the pick uniform over the remaining agents.
		i := f.intn(len(UserAgents) - 1)
		for _, cand := range UserAgents {
			if cand == avoid {
				continue
			}
			if i == 0 {
				return cand
			}
			i--
		}
	}
	return ua
}

// Headers builds the browser-like header set for target. Host and Referer come from
// the target's own host so short links and regional domains behave.
func Headers(target *url.URL, userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Connection", "keep-alive")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Cache-Control", "max-age=0")

	scheme := target.Scheme
	if scheme == "" {
		scheme = "https"
	}
	h.Set("Referer", fmt.Sprintf("%s://%s/", scheme, target.Host))

	if platform.Identify(target.String()) == models.PlatformAmazon {
		h.Set("DNT", "1")
		h.Set("Sec-Fetch-Dest", "document")
		h.Set("Sec-Fetch-Mode", "navigate")
		h.Set("Sec-Fetch-Site", "same-origin")
		h.Set("Sec-Fetch-User", "?1")
		h.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	}
	return h
}

// Fetch waits the randomized delay, then issues a GET with a random fingerprint.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Response, error) {
	return f.fetch(ctx, rawURL, "")
}

// Refetch is Fetch with a fingerprint different from prev.
func (f *Fetcher) Refetch(ctx context.Context, rawURL string, prev Response) (Response, error) {
	return f.fetch(ctx, rawURL, prev.UserAgent)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL, avoidUA string) (Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return Response{}, marketplace.ErrValidation
	}

	f.throttle(ctx, u.Hostname())

	if err := f.Pause(ctx, f.delayMin, f.delayMax); err != nil {
		return Response{}, &marketplace.TransportError{URL: rawURL, Err: err}
	}

	ua := f.pickUserAgent(avoidUA)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Response{}, &marketplace.TransportError{URL: rawURL, Err: err}
	}
	req.Header = Headers(u, ua)
	req.Host = u.Host

	resp, err := f.httpc.Do(req)
	if err != nil {
		return Response{}, &marketplace.TransportError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{}, &marketplace.TransportError{URL: rawURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Response{}, &marketplace.TransportError{URL: rawURL, Status: resp.StatusCode}
	}

	return Response{
		Body:      body,
		Status:    resp.StatusCode,
		UserAgent: ua,
		FinalURL:  resp.Request.URL.String(),
	}, nil
}

// throttle applies the optional per-host limit. Limiter failures are logged and ignored.
func (f *Fetcher) throttle(ctx context.Context, host string) {
	if f.rl == nil || f.hostPerMinute <= 0 {
		return
	}
	key := fmt.Sprintf("rl:host:%s:%s", host, time.Now().UTC().Format("200601021504"))
	allowed, n, err := f.rl.Allow(ctx, key, f.hostPerMinute, 70*time.Second)
	if err != nil {
		slog.Warn("host rate limiter", "host", host, "error", err.Error())
		return
	}
	if !allowed {
		slog.Warn("host rate limit exceeded", "host", host, "count", n)
		_ = f.Pause(ctx, f.throttlePause, f.throttlePause)
	}
}
