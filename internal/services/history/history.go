package history

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
)

const DateLayout = "2006-01-02"

type Rand interface {
	Float64() float64
}

type Config struct {
	MinPoints int     // default: 10
	Days      int     // default: 90
	Variation float64 // default: 0.15
}

func DefaultConfig() Config {
	return Config{
		MinPoints: 10,
		Days:      90,
		Variation: 0.15,
	}
}

// Synthesizer produces cosmetic chart data for listings whose real history is
// too short to plot. Its output is never persisted.
type Synthesizer struct {
	cfg Config
	now func() time.Time

	mu sync.Mutex
	r  Rand
}

func NewSynthesizer(cfg Config, r Rand) *Synthesizer {
	def := DefaultConfig()
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = def.MinPoints
	}
	if cfg.Days <= 0 {
		cfg.Days = def.Days
	}
	if cfg.Variation <= 0 || cfg.Variation >= 1 {
		cfg.Variation = def.Variation
	}
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthesizer{cfg: cfg, r: r, now: time.Now}
}

func (s *Synthesizer) WithClock(now func() time.Time) *Synthesizer {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Synthesizer) Config() Config { return s.cfg }

func round2(v float64) float64 { return math.Round(v*100) / 100 }

// clampCents keeps a rounded price inside p±variation, on whole cents.
func clampCents(v, p, variation float64) float64 {
	const eps = 1e-9
	lo := math.Ceil(p*(1-variation)*100-eps) / 100
	hi := math.Floor(p*(1+variation)*100+eps) / 100
	if lo > hi {
		return v
	}
	return math.Min(math.Max(v, lo), hi)
}

func (s *Synthesizer) perturb(p *float64) *float64 {
	if p == nil {
		return nil
	}
	s.mu.Lock()
	u := s.r.Float64()
	s.mu.Unlock()
	v := clampCents(round2(*p*(1+(2*u-1)*s.cfg.Variation)), *p, s.cfg.Variation)
	return &v
}

// Synthesize returns days daily points ending today, each price perturbed around
// the listing's current one.
func (s *Synthesizer) Synthesize(l *models.TrackedListing, days int) []models.ChartPoint {
	if days <= 0 {
		days = s.cfg.Days
	}
	y, m, d := s.now().UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	out := make([]models.ChartPoint, 0, days)
	for i := 0; i < days; i++ {
		out = append(out, models.ChartPoint{
			Date:          today.AddDate(0, 0, -(days - 1 - i)).Format(DateLayout),
			AmazonPrice:   s.perturb(l.Amazon.Price),
			FlipkartPrice: s.perturb(l.Flipkart.Price),
		})
	}
	return out
}

// ChartSeries prefers real history and falls back to a synthesized series.
func (s *Synthesizer) ChartSeries(points []*models.PriceHistoryPoint, l *models.TrackedListing) []models.ChartPoint {
	if len(points) < s.cfg.MinPoints {
		return s.Synthesize(l, s.cfg.Days)
	}
	out := make([]models.ChartPoint, 0, len(points))
	for _, p := range points {
		out = append(out, models.ChartPoint{
			Date:          p.RecordedAt.UTC().Format(DateLayout),
			AmazonPrice:   p.AmazonPrice,
			FlipkartPrice: p.FlipkartPrice,
		})
	}
	return out
}
