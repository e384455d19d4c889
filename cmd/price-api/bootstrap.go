package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BearBump/PriceBox/config"
	listingsapi "github.com/BearBump/PriceBox/internal/api/listings_api"
	"github.com/BearBump/PriceBox/internal/broker/kafka"
	"github.com/BearBump/PriceBox/internal/cache/rediscache"
	"github.com/BearBump/PriceBox/internal/integrations/marketplace/live"
	"github.com/BearBump/PriceBox/internal/notify"
	"github.com/BearBump/PriceBox/internal/services/alerts"
	"github.com/BearBump/PriceBox/internal/services/history"
	"github.com/BearBump/PriceBox/internal/services/listings"
	"github.com/BearBump/PriceBox/internal/services/refresher"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
)

const (
	defaultTopic        = "price.notifications"
	defaultDedupTTL     = 24 * time.Hour
	defaultSearchTTL    = 10 * time.Minute
	defaultRequestsRate = 10
)

type priceAPIApp struct {
	ctx        context.Context
	cancel     context.CancelFunc
	opts       priceAPIOpts
	api        *listingsapi.ListingsAPI
	consumer   *kafka.Consumer
	dispatcher *notify.Dispatcher
	closers    []func()
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func mustBootstrapPriceAPI() *priceAPIApp {
	cfgPath := os.Getenv("configPath")
	if cfgPath == "" {
		panic("configPath env var is required")
	}
	swaggerPath := os.Getenv("swaggerPath")
	if swaggerPath == "" {
		panic("swaggerPath env var is required")
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config: %v", err))
	}
	pc := cfg.PriceBox

	httpAddr := pc.HTTPAddr
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	consumerGroup := pc.KafkaConsumerGroup
	if consumerGroup == "" {
		consumerGroup = "price-api"
	}
	topic := cfg.Kafka.NotificationsTopicName
	if topic == "" {
		topic = defaultTopic
	}
	searchTTL := time.Duration(pc.SearchCacheTTLSeconds) * time.Second
	if searchTTL <= 0 {
		searchTTL = defaultSearchTTL
	}
	rps := float64(pc.APIRequestsPerSec)
	if rps <= 0 {
		rps = defaultRequestsRate
	}

	st := mustOpenPostgresWithRetry(cfg.Database.ConnString(), 60*time.Second)

	rc := rediscache.New(cfg.Redis.Addr())
	rl := rediscache.NewRateLimiter(cfg.Redis.Addr())

	producer := kafka.NewProducer(cfg.Kafka.Brokers())
	notifier := notify.NewKafkaNotifier(producer, topic).WithRetry(3, 200*time.Millisecond)

	mp := live.ForMode(pc, rl)
	evaluator := alerts.New(st, notifier)
	listingLock := rediscache.NewLocker(cfg.Redis.Addr())
	ref := refresher.New(st, mp, evaluator).
		WithSettings(0, pc.RefreshConcurrency).
		WithListingLock(listingLock, 0)
	synth := history.NewSynthesizer(history.Config{MinPoints: pc.HistoryMinPoints, Days: pc.HistorySynthDays}, nil)

	svc := listings.New(st, mp, ref, notifier, synth).WithSearchCache(rc, searchTTL)
	api := listingsapi.New(svc).WithSearchMax(pc.SearchMaxResults)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers(), topic, consumerGroup)
	dispatcher := notify.NewDispatcher(notify.LogDelivery{}).WithDedup(rc, defaultDedupTTL)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	return &priceAPIApp{
		ctx:    ctx,
		cancel: cancel,
		opts: priceAPIOpts{
			httpAddr:       httpAddr,
			swaggerPath:    swaggerPath,
			allowedOrigins: splitOrigins(pc.AllowedOrigins),
			requestsPerSec: rps,
			topic:          topic,
			consumerGroup:  consumerGroup,
		},
		api:        api,
		consumer:   consumer,
		dispatcher: dispatcher,
		closers: []func(){
			func() { _ = consumer.Close() },
			func() { _ = producer.Close() },
			func() { _ = rl.Close() },
			func() { _ = listingLock.Close() },
			func() { _ = rc.Close() },
			st.Close,
		},
	}
}

func mustOpenPostgresWithRetry(connString string, wait time.Duration) *pglistings.Storage {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pglistings.New(connString)
		if err == nil {
			return st
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	panic(fmt.Sprintf("postgres is not ready after %s: %v", wait, lastErr))
}

func (a *priceAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	for _, c := range a.closers {
		c()
	}
}

func (a *priceAPIApp) Run() error {
	return runPriceAPI(a.ctx, a.opts, a.api, a.consumer, a.dispatcher)
}
