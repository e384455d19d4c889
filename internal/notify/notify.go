package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/BearBump/PriceBox/internal/broker/messages"
	"github.com/pkg/errors"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// KafkaNotifier publishes notification events keyed by listing id.
type KafkaNotifier struct {
	p     Producer
	topic string

	attempts int
	backoff  time.Duration
}

func NewKafkaNotifier(p Producer, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		p:        p,
		topic:    topic,
		attempts: 3,
		backoff:  200 * time.Millisecond,
	}
}

func (n *KafkaNotifier) WithRetry(attempts int, backoff time.Duration) *KafkaNotifier {
	if attempts > 0 {
		n.attempts = attempts
	}
	if backoff >= 0 {
		n.backoff = backoff
	}
	return n
}

func (n *KafkaNotifier) NotifyPriceDrop(ctx context.Context, ev messages.PriceDropped) error {
	return n.publish(ctx, ev.ListingID, ev)
}

func (n *KafkaNotifier) NotifyAlertSet(ctx context.Context, ev messages.AlertSet) error {
	return n.publish(ctx, ev.ListingID, ev)
}

func (n *KafkaNotifier) publish(ctx context.Context, listingID uint64, ev any) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	key := []byte(strconv.FormatUint(listingID, 10))

	// The broker may still be electing leaders right after startup.
	var pubErr error
	for i := 0; i < n.attempts; i++ {
		if pubErr = n.p.Publish(ctx, n.topic, key, b); pubErr == nil {
			return nil
		}
		if i == n.attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "publish event")
		case <-time.After(time.Duration(i+1) * n.backoff):
		}
	}
	return pubErr
}

// LogNotifier only logs. It backs deployments without a broker.
type LogNotifier struct{}

func (LogNotifier) NotifyPriceDrop(ctx context.Context, ev messages.PriceDropped) error {
	slog.Info("price drop",
		"listing_id", ev.ListingID, "alert_id", ev.AlertID, "platform", ev.Platform,
		"observed", ev.ObservedPrice, "target", ev.TargetPrice)
	return nil
}

func (LogNotifier) NotifyAlertSet(ctx context.Context, ev messages.AlertSet) error {
	slog.Info("alert set", "listing_id", ev.ListingID, "alert_id", ev.AlertID, "scope", ev.Scope, "target", ev.TargetPrice)
	return nil
}
