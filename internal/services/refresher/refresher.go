package refresher

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

type Repository interface {
	ListListings(ctx context.Context) ([]*models.TrackedListing, error)
	GetListing(ctx context.Context, id uint64) (*models.TrackedListing, error)
	ApplyRefresh(ctx context.Context, upd pglistings.ListingRefresh) error
}

type Scraper interface {
	Scrape(ctx context.Context, p models.Platform, rawURL string) models.ExtractionResult
}

type AlertEvaluator interface {
	Evaluate(ctx context.Context) (int, error)
	EvaluateListing(ctx context.Context, listingID uint64) (int, error)
}

// Locker guards one listing across processes. The api refreshes on demand
// while the worker runs cycles, so the in-process mutex alone is not enough.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

const (
	defaultListingLockTTL  = 3 * time.Minute
	defaultListingLockPoll = 100 * time.Millisecond
)

func listingLockKey(id uint64) string {
	return "pricebox:listing:" + strconv.FormatUint(id, 10)
}

var platforms = []models.Platform{models.PlatformAmazon, models.PlatformFlipkart}

type Refresher struct {
	repo    Repository
	scraper Scraper
	alerts  AlertEvaluator

	interval    time.Duration
	concurrency int

	locks *keyedMutex
	sf    singleflight.Group

	locker   Locker
	lockTTL  time.Duration
	lockPoll time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalCycles         atomic.Int64
	totalProcessed      atomic.Int64
	totalUpdated        atomic.Int64
	totalFailures       atomic.Int64
	totalAlertsFired    atomic.Int64
	inFlight            atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, scraper Scraper, alerts AlertEvaluator) *Refresher {
	return &Refresher{
		repo:              repo,
		scraper:           scraper,
		alerts:            alerts,
		interval:          6 * time.Hour,
		concurrency:       4,
		locks:             newKeyedMutex(),
		lockTTL:           defaultListingLockTTL,
		lockPoll:          defaultListingLockPoll,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (r *Refresher) WithSettings(interval time.Duration, concurrency int) *Refresher {
	if interval > 0 {
		r.interval = interval
	}
	if concurrency > 0 {
		r.concurrency = concurrency
	}
	return r
}

// WithListingLock makes every per-listing refresh hold a shared lock keyed by
// listing id. ttl bounds a crashed holder; non-positive keeps the default.
func (r *Refresher) WithListingLock(l Locker, ttl time.Duration) *Refresher {
	r.locker = l
	if ttl > 0 {
		r.lockTTL = ttl
	}
	return r
}

// lockListing waits until this process holds the shared lock for id.
func (r *Refresher) lockListing(ctx context.Context, id uint64) (func(), error) {
	if r.locker == nil {
		return func() {}, nil
	}
	key := listingLockKey(id)
	for {
		ok, err := r.locker.Acquire(ctx, key, r.lockTTL)
		if err != nil {
			return nil, errors.Wrap(err, "acquire listing lock")
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.lockPoll):
		}
	}
	return func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := r.locker.Release(rctx, key); err != nil {
			slog.Warn("release listing lock", "listing_id", id, "error", err.Error())
		}
	}, nil
}

// Trigger forces an immediate cycle (best-effort, non-blocking).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt      time.Time  `json:"startedAt"`
	LastCycleAt    *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt  *time.Time `json:"lastTriggerAt,omitempty"`
	TotalCycles    int64      `json:"totalCycles"`
	TotalProcessed int64      `json:"totalProcessed"`
	TotalUpdated   int64      `json:"totalUpdated"`
	TotalFailures  int64      `json:"totalFailures"`
	AlertsFired    int64      `json:"alertsFired"`
	InFlight       int64      `json:"inFlight"`
	LastError      string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:      time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalCycles:    r.totalCycles.Load(),
		TotalProcessed: r.totalProcessed.Load(),
		TotalUpdated:   r.totalUpdated.Load(),
		TotalFailures:  r.totalFailures.Load(),
		AlertsFired:    r.totalAlertsFired.Load(),
		InFlight:       r.inFlight.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) setLastError(err error) {
	r.lastErrorMu.Lock()
	r.lastError = err.Error()
	r.lastErrorMu.Unlock()
}

// Run refreshes the catalog every interval and on Trigger, until ctx is done.
// Deployments with the cron scheduler call RunCycle instead.
func (r *Refresher) Run(ctx context.Context) error {
	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			_, _ = r.RunCycle(ctx)
		case <-r.triggerCh:
			_, _ = r.RunCycle(ctx)
		}
	}
}

type CycleReport struct {
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Listings    int       `json:"listings"`
	Scraped     int       `json:"scraped"`
	Updated     int       `json:"updated"`
	Failed      int       `json:"failed"`
	AlertsFired int       `json:"alertsFired"`
}

// RunCycle refreshes every listing with bounded parallelism, then evaluates
// alerts once against the post-refresh state.
func (r *Refresher) RunCycle(ctx context.Context) (CycleReport, error) {
	now := time.Now().UTC()
	r.lastCycleUnixNano.Store(now.UnixNano())
	r.totalCycles.Add(1)
	rep := CycleReport{StartedAt: now}

	items, err := r.repo.ListListings(ctx)
	if err != nil {
		slog.Error("list listings", "error", err.Error())
		r.setLastError(err)
		return rep, errors.Wrap(err, "list listings")
	}
	rep.Listings = len(items)

	var mu sync.Mutex
	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup
	for _, l := range items {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		id := l.ID
		r.inFlight.Add(1)
		go func() {
			defer func() {
				r.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			out, err := r.process(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				rep.Failed++
			case out.Scraped:
				rep.Scraped++
				if out.Updated {
					rep.Updated++
				}
			default:
				rep.Failed++
			}
		}()
	}
	wg.Wait()

	if r.alerts != nil && ctx.Err() == nil {
		fired, err := r.alerts.Evaluate(ctx)
		if err != nil {
			slog.Error("evaluate alerts", "error", err.Error())
			r.setLastError(err)
		}
		rep.AlertsFired = fired
		r.totalAlertsFired.Add(int64(fired))
	}

	rep.FinishedAt = time.Now().UTC()
	slog.Info("refresh cycle finished",
		"listings", rep.Listings, "scraped", rep.Scraped, "updated", rep.Updated,
		"failed", rep.Failed, "alerts_fired", rep.AlertsFired,
		"took", rep.FinishedAt.Sub(rep.StartedAt).String())
	return rep, nil
}

type RefreshOutcome struct {
	ListingID     uint64   `json:"listing_id"`
	Scraped       bool     `json:"scraped"`
	Updated       bool     `json:"updated"`
	AmazonPrice   *float64 `json:"amazon_price"`
	FlipkartPrice *float64 `json:"flipkart_price"`
	AlertsFired   int      `json:"alerts_fired"`
	Errors        []string `json:"errors,omitempty"`
}

// RefreshListing runs the per-listing refresh out of band. Concurrent calls for
// the same id share one run, and runs never overlap with the cycle's work on it.
func (r *Refresher) RefreshListing(ctx context.Context, id uint64) (RefreshOutcome, error) {
	v, err, _ := r.sf.Do(strconv.FormatUint(id, 10), func() (any, error) {
		out, err := r.process(ctx, id)
		if err != nil {
			return out, err
		}
		if out.Scraped && r.alerts != nil {
			fired, err := r.alerts.EvaluateListing(ctx, id)
			if err != nil {
				slog.Error("evaluate listing alerts", "listing_id", id, "error", err.Error())
			}
			out.AlertsFired = fired
			r.totalAlertsFired.Add(int64(fired))
		}
		return out, nil
	})
	out, _ := v.(RefreshOutcome)
	return out, err
}

func equalPrice(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// process scrapes every populated platform of one listing and persists changes.
// Scrape failures only skip that platform; store failures fail the listing.
func (r *Refresher) process(ctx context.Context, id uint64) (RefreshOutcome, error) {
	unlock := r.locks.Lock(id)
	defer unlock()
	r.totalProcessed.Add(1)

	out := RefreshOutcome{ListingID: id}

	release, err := r.lockListing(ctx, id)
	if err != nil {
		r.totalFailures.Add(1)
		r.setLastError(err)
		slog.Error("lock listing", "listing_id", id, "error", err.Error())
		return out, err
	}
	defer release()

	// Re-read under the lock so change detection sees the latest committed prices.
	l, err := r.repo.GetListing(ctx, id)
	if err != nil {
		if !errors.Is(err, pglistings.ErrNotFound) {
			r.totalFailures.Add(1)
			r.setLastError(err)
			slog.Error("load listing", "listing_id", id, "error", err.Error())
		}
		return out, err
	}

	upd := pglistings.ListingRefresh{
		ListingID:             l.ID,
		AmazonPrice:           l.Amazon.Price,
		AmazonOriginalPrice:   l.Amazon.OriginalPrice,
		FlipkartPrice:         l.Flipkart.Price,
		FlipkartOriginalPrice: l.Flipkart.OriginalPrice,
	}
	dirty := false

	for _, p := range platforms {
		side := l.Side(p)
		if !side.Populated() {
			continue
		}
		res := r.scraper.Scrape(ctx, p, *side.URL)
		if !res.Succeeded {
			msg := string(res.ErrorKind)
			if res.Error != nil {
				msg = *res.Error
			}
			out.Errors = append(out.Errors, string(p)+": "+msg)
			r.totalFailures.Add(1)
			slog.Warn("refresh platform failed", "listing_id", id, "platform", p, "kind", res.ErrorKind, "error", msg)
			continue
		}
		out.Scraped = true

		price, original := &upd.AmazonPrice, &upd.AmazonOriginalPrice
		if p == models.PlatformFlipkart {
			price, original = &upd.FlipkartPrice, &upd.FlipkartOriginalPrice
		}
		if !equalPrice(*price, res.Price) {
			*price = res.Price
			upd.AppendHistory = true
			dirty = true
		}
		// A successful scrape without a strike-through price means the discount ended.
		if !equalPrice(*original, res.OriginalPrice) {
			*original = res.OriginalPrice
			dirty = true
		}
	}

	out.AmazonPrice, out.FlipkartPrice = upd.AmazonPrice, upd.FlipkartPrice
	if !dirty {
		return out, nil
	}

	upd.RefreshedAt = time.Now().UTC()
	if err := r.repo.ApplyRefresh(ctx, upd); err != nil {
		r.totalFailures.Add(1)
		r.setLastError(err)
		slog.Error("apply refresh", "listing_id", id, "error", err.Error())
		return out, errors.Wrap(err, "apply refresh")
	}
	out.Updated = upd.AppendHistory
	if out.Updated {
		r.totalUpdated.Add(1)
		slog.Info("listing prices changed", "listing_id", id)
	}
	return out, nil
}
