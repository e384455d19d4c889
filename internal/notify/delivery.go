package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BearBump/PriceBox/internal/broker/messages"
	"github.com/BearBump/PriceBox/internal/cache"
	"github.com/pkg/errors"
)

// Delivery hands a decoded event to the user. The log implementation stands in
// for mail.
type Delivery interface {
	DeliverPriceDrop(ctx context.Context, ev messages.PriceDropped) error
	DeliverAlertSet(ctx context.Context, ev messages.AlertSet) error
}

type LogDelivery struct{}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func PriceDropSubject(ev messages.PriceDropped) string {
	return "Price Drop Alert! - " + shorten(ev.ProductName, 40)
}

func AlertSetSubject(ev messages.AlertSet) string {
	return "Price Alert Set - " + shorten(ev.ProductName, 50)
}

func FormatRupees(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return "₹" + b.String() + "." + frac
}

func (LogDelivery) DeliverPriceDrop(ctx context.Context, ev messages.PriceDropped) error {
	if ev.Email == "" {
		slog.Warn("price drop without recipient", "event_id", ev.EventID, "listing_id", ev.ListingID)
		return nil
	}
	slog.Info("deliver notification",
		"event_id", ev.EventID, "to", ev.Email, "subject", PriceDropSubject(ev),
		"current", FormatRupees(ev.ObservedPrice), "target", FormatRupees(ev.TargetPrice), "url", ev.URL)
	return nil
}

func (LogDelivery) DeliverAlertSet(ctx context.Context, ev messages.AlertSet) error {
	if ev.Email == "" {
		slog.Warn("alert confirmation without recipient", "event_id", ev.EventID, "listing_id", ev.ListingID)
		return nil
	}
	slog.Info("deliver notification",
		"event_id", ev.EventID, "to", ev.Email, "subject", AlertSetSubject(ev),
		"target", FormatRupees(ev.TargetPrice), "scope", ev.Scope)
	return nil
}

// Dispatcher is the notification topic handler. Undecodable messages are logged
// and skipped; delivery errors are returned so the message is not committed.
type Dispatcher struct {
	d Delivery

	seen    cache.BytesCache
	seenTTL time.Duration
}

func NewDispatcher(d Delivery) *Dispatcher {
	return &Dispatcher{d: d}
}

// WithDedup remembers delivered event ids for ttl, so a redelivered message is
// not sent twice.
func (x *Dispatcher) WithDedup(c cache.BytesCache, ttl time.Duration) *Dispatcher {
	x.seen = c
	x.seenTTL = ttl
	return x
}

func seenKey(eventID string) string { return "notify:seen:" + eventID }

func (x *Dispatcher) delivered(ctx context.Context, eventID string) bool {
	if x.seen == nil || x.seenTTL <= 0 || eventID == "" {
		return false
	}
	_, ok, err := x.seen.Get(ctx, seenKey(eventID))
	return err == nil && ok
}

func (x *Dispatcher) markDelivered(ctx context.Context, eventID string) {
	if x.seen == nil || x.seenTTL <= 0 || eventID == "" {
		return
	}
	if err := x.seen.Set(ctx, seenKey(eventID), []byte("1"), x.seenTTL); err != nil {
		slog.Warn("remember delivered event", "event_id", eventID, "error", err.Error())
	}
}

func (x *Dispatcher) Handle(ctx context.Context, key, value []byte) error {
	ev, err := messages.Decode(value)
	if err != nil {
		slog.Warn("skip notification message", "key", string(key), "error", err.Error())
		return nil
	}

	var eventID string
	switch e := ev.(type) {
	case messages.PriceDropped:
		eventID = e.EventID
		if x.delivered(ctx, eventID) {
			return nil
		}
		err = x.d.DeliverPriceDrop(ctx, e)
	case messages.AlertSet:
		eventID = e.EventID
		if x.delivered(ctx, eventID) {
			return nil
		}
		err = x.d.DeliverAlertSet(ctx, e)
	}
	if err != nil {
		return errors.Wrap(err, "deliver notification")
	}
	x.markDelivered(ctx, eventID)
	return nil
}
