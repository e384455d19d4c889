package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/PriceBox/internal/broker/messages"
	"github.com/BearBump/PriceBox/internal/models"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
	"github.com/pkg/errors"
)

type Repository interface {
	GetListing(ctx context.Context, id uint64) (*models.TrackedListing, error)
	ListActiveConditions(ctx context.Context) ([]*models.PriceAlertCondition, error)
	ListActiveConditionsForListing(ctx context.Context, listingID uint64) ([]*models.PriceAlertCondition, error)
	DeactivateCondition(ctx context.Context, id uint64, triggeredAt time.Time) (bool, error)
}

type Notifier interface {
	NotifyPriceDrop(ctx context.Context, ev messages.PriceDropped) error
}

type Evaluator struct {
	repo Repository
	n    Notifier
	now  func() time.Time
}

func New(repo Repository, n Notifier) *Evaluator {
	return &Evaluator{repo: repo, n: n, now: time.Now}
}

func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	if now != nil {
		e.now = now
	}
	return e
}

func sidePrice(l *models.TrackedListing, p models.Platform) (float64, bool) {
	side := l.Side(p)
	if side == nil || !side.Populated() || side.Price == nil {
		return 0, false
	}
	return *side.Price, true
}

// Resolve picks the platform and price that satisfy c, if any. Scope both checks
// amazon before flipkart.
func Resolve(c *models.PriceAlertCondition, l *models.TrackedListing) (models.Platform, float64, bool) {
	var order []models.Platform
	switch c.Scope {
	case models.ScopeAmazon:
		order = []models.Platform{models.PlatformAmazon}
	case models.ScopeFlipkart:
		order = []models.Platform{models.PlatformFlipkart}
	case models.ScopeBoth:
		order = []models.Platform{models.PlatformAmazon, models.PlatformFlipkart}
	}
	for _, p := range order {
		if price, ok := sidePrice(l, p); ok && price <= c.TargetPrice {
			return p, price, true
		}
	}
	return models.PlatformNone, 0, false
}

// Evaluate checks every active condition against current listing prices and
// returns how many fired.
func (e *Evaluator) Evaluate(ctx context.Context) (int, error) {
	conds, err := e.repo.ListActiveConditions(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "list active conditions")
	}
	return e.evaluate(ctx, conds), nil
}

func (e *Evaluator) EvaluateListing(ctx context.Context, listingID uint64) (int, error) {
	conds, err := e.repo.ListActiveConditionsForListing(ctx, listingID)
	if err != nil {
		return 0, errors.Wrap(err, "list listing conditions")
	}
	return e.evaluate(ctx, conds), nil
}

func (e *Evaluator) evaluate(ctx context.Context, conds []*models.PriceAlertCondition) int {
	listings := make(map[uint64]*models.TrackedListing)
	fired := 0

	for _, c := range conds {
		if ctx.Err() != nil {
			break
		}
		if !c.IsActive {
			continue
		}

		l, ok := listings[c.ListingID]
		if !ok {
			var err error
			l, err = e.repo.GetListing(ctx, c.ListingID)
			if errors.Is(err, pglistings.ErrNotFound) {
				continue
			}
			if err != nil {
				slog.Error("load listing for alert", "alert_id", c.ID, "listing_id", c.ListingID, "error", err.Error())
				continue
			}
			listings[c.ListingID] = l
		}

		p, observed, hit := Resolve(c, l)
		if !hit {
			continue
		}

		// Claim first: only the evaluator that flips the row notifies.
		now := e.now().UTC()
		won, err := e.repo.DeactivateCondition(ctx, c.ID, now)
		if err != nil {
			slog.Error("deactivate alert", "alert_id", c.ID, "error", err.Error())
			continue
		}
		if !won {
			continue
		}
		fired++

		if err := e.n.NotifyPriceDrop(ctx, messages.NewPriceDropped(c, l, p, observed, now)); err != nil {
			slog.Warn("notify price drop", "alert_id", c.ID, "listing_id", l.ID, "error", err.Error())
		}
		slog.Info("alert fired", "alert_id", c.ID, "listing_id", l.ID, "platform", p,
			"observed", observed, "target", c.TargetPrice)
	}
	return fired
}
