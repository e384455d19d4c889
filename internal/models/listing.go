package models

import "time"

type Platform string

const (
	PlatformNone     Platform = "none"
	PlatformAmazon   Platform = "amazon"
	PlatformFlipkart Platform = "flipkart"
)

// Other returns the sibling marketplace used for cross-platform matching.
func (p Platform) Other() Platform {
	switch p {
	case PlatformAmazon:
		return PlatformFlipkart
	case PlatformFlipkart:
		return PlatformAmazon
	default:
		return PlatformNone
	}
}

type AlertScope string

const (
	ScopeAmazon   AlertScope = "amazon"
	ScopeFlipkart AlertScope = "flipkart"
	ScopeBoth     AlertScope = "both"
)

func (s AlertScope) Valid() bool {
	return s == ScopeAmazon || s == ScopeFlipkart || s == ScopeBoth
}

// PlatformListing is one marketplace's side of a tracked product.
type PlatformListing struct {
	URL           *string  `json:"url,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	OriginalPrice *float64 `json:"original_price,omitempty"`
}

func (pl PlatformListing) Populated() bool {
	return pl.URL != nil && *pl.URL != ""
}

type TrackedListing struct {
	ID          uint64          `json:"id"`
	Owner       uint64          `json:"owner"`
	OwnerEmail  string          `json:"owner_email,omitempty"`
	ProductName string          `json:"product_name"`
	Image       *string         `json:"image,omitempty"`
	Amazon      PlatformListing `json:"amazon"`
	Flipkart    PlatformListing `json:"flipkart"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (l *TrackedListing) Side(p Platform) *PlatformListing {
	switch p {
	case PlatformAmazon:
		return &l.Amazon
	case PlatformFlipkart:
		return &l.Flipkart
	default:
		return nil
	}
}

type PriceHistoryPoint struct {
	ID            uint64    `json:"id"`
	ListingID     uint64    `json:"listing_id"`
	AmazonPrice   *float64  `json:"amazon_price,omitempty"`
	FlipkartPrice *float64  `json:"flipkart_price,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}

type PriceAlertCondition struct {
	ID          uint64     `json:"id"`
	Owner       uint64     `json:"owner"`
	ListingID   uint64     `json:"listing_id"`
	TargetPrice float64    `json:"target_price"`
	Scope       AlertScope `json:"scope"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	TriggeredAt *time.Time `json:"triggered_at,omitempty"`
}

type ListingCreateInput struct {
	Owner       uint64
	OwnerEmail  string
	ProductName string
	Image       *string
	Amazon      PlatformListing
	Flipkart    PlatformListing
}

type AlertInput struct {
	Owner       uint64
	ListingID   uint64
	TargetPrice float64
	Scope       AlertScope
}

type ChartPoint struct {
	Date          string   `json:"date"`
	AmazonPrice   *float64 `json:"amazon_price"`
	FlipkartPrice *float64 `json:"flipkart_price"`
}
