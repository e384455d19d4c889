package messages

import (
	"encoding/json"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	TypePriceDropped = "price_dropped"
	TypeAlertSet     = "alert_set"
)

var ErrUnknownType = errors.New("unknown event type")

// PriceDropped is published once per fired alert condition.
type PriceDropped struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`

	ListingID uint64 `json:"listing_id"`
	AlertID   uint64 `json:"alert_id"`
	Owner     uint64 `json:"owner"`
	Email     string `json:"email,omitempty"`

	ProductName   string          `json:"product_name"`
	Platform      models.Platform `json:"platform"`
	ObservedPrice float64         `json:"observed_price"`
	TargetPrice   float64         `json:"target_price"`
	URL           string          `json:"url"`
	Image         *string         `json:"image,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// AlertSet confirms a created or updated alert condition.
type AlertSet struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`

	ListingID uint64 `json:"listing_id"`
	AlertID   uint64 `json:"alert_id"`
	Owner     uint64 `json:"owner"`
	Email     string `json:"email,omitempty"`

	ProductName string            `json:"product_name"`
	TargetPrice float64           `json:"target_price"`
	Scope       models.AlertScope `json:"scope"`
	Image       *string           `json:"image,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

func NewPriceDropped(a *models.PriceAlertCondition, l *models.TrackedListing, p models.Platform, observed float64, now time.Time) PriceDropped {
	ev := PriceDropped{
		Type:          TypePriceDropped,
		EventID:       uuid.NewString(),
		ListingID:     l.ID,
		AlertID:       a.ID,
		Owner:         a.Owner,
		Email:         l.OwnerEmail,
		ProductName:   l.ProductName,
		Platform:      p,
		ObservedPrice: observed,
		TargetPrice:   a.TargetPrice,
		Image:         l.Image,
		OccurredAt:    now.UTC(),
	}
	if side := l.Side(p); side != nil && side.URL != nil {
		ev.URL = *side.URL
	}
	return ev
}

func NewAlertSet(a *models.PriceAlertCondition, l *models.TrackedListing, email string, now time.Time) AlertSet {
	return AlertSet{
		Type:        TypeAlertSet,
		EventID:     uuid.NewString(),
		ListingID:   l.ID,
		AlertID:     a.ID,
		Owner:       a.Owner,
		Email:       email,
		ProductName: l.ProductName,
		TargetPrice: a.TargetPrice,
		Scope:       a.Scope,
		Image:       l.Image,
		OccurredAt:  now.UTC(),
	}
}

// Decode returns a PriceDropped or an AlertSet depending on the type field.
func Decode(value []byte) (any, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(value, &head); err != nil {
		return nil, errors.Wrap(err, "decode event")
	}

	switch head.Type {
	case TypePriceDropped:
		var ev PriceDropped
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, errors.Wrap(err, "decode price_dropped")
		}
		return ev, nil
	case TypeAlertSet:
		var ev AlertSet
		if err := json.Unmarshal(value, &ev); err != nil {
			return nil, errors.Wrap(err, "decode alert_set")
		}
		return ev, nil
	default:
		return nil, errors.Wrapf(ErrUnknownType, "%q", head.Type)
	}
}
