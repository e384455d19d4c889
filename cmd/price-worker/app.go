package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/BearBump/PriceBox/config"
	"github.com/BearBump/PriceBox/internal/broker/kafka"
	"github.com/BearBump/PriceBox/internal/cache/rediscache"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/fetcher"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/live"
	"github.com/BearBump/PriceBox/internal/notify"
	"github.com/BearBump/PriceBox/internal/scheduler"
	"github.com/BearBump/PriceBox/internal/services/alerts"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
)

const (
	modeCron   = "cron"
	modeTicker = "ticker"

	defaultTopic = "price.notifications"
)

type workerRepo interface {
	refresher.Repository
	alerts.Repository
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (repo workerRepo, closeFn func(), err error)
	newProducer    func(cfg *config.Config) notify.Producer
	newRateLimiter func(cfg *config.Config) fetcher.RateLimiter
	newLocker      func(cfg *config.Config) scheduler.Locker
	newScraper     func(cfg *config.Config, rl fetcher.RateLimiter) marketplace.Scraper
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (workerRepo, func(), error) {
			st, err := pglistings.New(cfg.Database.ConnString())
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newProducer: func(cfg *config.Config) notify.Producer {
			return kafka.NewProducer(cfg.Kafka.Brokers())
		},
		newRateLimiter: func(cfg *config.Config) fetcher.RateLimiter {
			return rediscache.NewRateLimiter(cfg.Redis.Addr())
		},
		newLocker: func(cfg *config.Config) scheduler.Locker {
			return rediscache.NewLocker(cfg.Redis.Addr())
		},
		newScraper: func(cfg *config.Config, rl fetcher.RateLimiter) marketplace.Scraper {
			return live.ForMode(cfg.PriceBox, rl)
		},
	}
}

func RunPriceWorker(ctx context.Context, cfg *config.Config, f workerFactories, opts workerHTTPOpts) error {
	topic := cfg.Kafka.NotificationsTopicName
	if topic == "" {
		topic = defaultTopic
	}
	interval := time.Duration(cfg.PriceBox.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	concurrency := cfg.PriceBox.RefreshConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	lockTTL := time.Duration(cfg.PriceBox.SchedulerLockTTLSeconds) * time.Second

	repo, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	rl := f.newRateLimiter(cfg)
	notifier := notify.NewKafkaNotifier(f.newProducer(cfg), topic).WithRetry(3, 200*time.Millisecond)
	evaluator := alerts.New(repo, notifier)
	ref := refresher.New(repo, f.newScraper(cfg, rl), evaluator).WithSettings(interval, concurrency)
	locker := f.newLocker(cfg)
	if locker != nil {
		ref.WithListingLock(locker, 0)
	}

	opts.cfg = cfg
	opts.refresher = ref

	var runLoop func(ctx context.Context) error
	switch cfg.PriceBox.SchedulerMode {
	case modeTicker:
		opts.trigger = func() bool {
			ref.Trigger()
			return true
		}
		runLoop = ref.Run
	default:
		sched := scheduler.New(ref).WithInterval(interval)
		if locker != nil {
			sched = sched.WithLock(locker, scheduler.DefaultLockKey, lockTTL)
		}
		opts.scheduler = sched
		opts.trigger = sched.RunNow
		runLoop = func(ctx context.Context) error {
			if _, err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()
			sched.RunNow()
			<-ctx.Done()
			return ctx.Err()
		}
	}

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpErr := make(chan error, 1)
	go func() { httpErr <- runWorkerHTTPServer(loopCtx, opts) }()

	loopErr := make(chan error, 1)
	go func() { loopErr <- runLoop(loopCtx) }()

	select {
	case err := <-loopErr:
		return err
	case err := <-httpErr:
		cancel()
		lerr := <-loopErr
		if err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
			return err
		}
		return lerr
	}
}
