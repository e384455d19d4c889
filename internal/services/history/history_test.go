package history

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	historymocks "github.com/BearBump/PriceBox/internal/services/history/mocks"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type HistorySuite struct {
	suite.Suite
	today time.Time
}

func (s *HistorySuite) SetupTest() {
	s.today = time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)
}

func ptr(v float64) *float64 { return &v }

func (s *HistorySuite) TestSynthesize_DailyPointsWithinBand() {
	syn := NewSynthesizer(Config{}, rand.New(rand.NewSource(1))).
		WithClock(func() time.Time { return s.today })
	l := &models.TrackedListing{Amazon: models.PlatformListing{Price: ptr(1000)}}

	pts := syn.Synthesize(l, 90)
	s.Require().Len(pts, 90)
	s.Equal("2026-03-15", pts[89].Date)
	s.Equal("2025-12-16", pts[0].Date)

	prev := time.Time{}
	for _, p := range pts {
		d, err := time.Parse(DateLayout, p.Date)
		s.Require().NoError(err)
		if !prev.IsZero() {
			s.Equal(24*time.Hour, d.Sub(prev))
		}
		prev = d

		s.Require().NotNil(p.AmazonPrice)
		s.GreaterOrEqual(*p.AmazonPrice, 850.0)
		s.LessOrEqual(*p.AmazonPrice, 1150.0)
		s.Nil(p.FlipkartPrice)
	}
	s.Equal(1000.0, *l.Amazon.Price)
}

func (s *HistorySuite) TestSynthesize_ExtremesAndRounding() {
	m := &historymocks.Rand{}
	m.On("Float64").Return(0.0).Once()
	m.On("Float64").Return(0.0).Once()
	m.On("Float64").Return(0.999999).Once()
	m.On("Float64").Return(0.5).Once()

	syn := NewSynthesizer(Config{}, m).WithClock(func() time.Time { return s.today })
	l := &models.TrackedListing{
		Amazon:   models.PlatformListing{Price: ptr(999.99)},
		Flipkart: models.PlatformListing{Price: ptr(100)},
	}
	pts := syn.Synthesize(l, 2)
	s.Require().Len(pts, 2)
	// 0.85*999.99 and 1.15*999.99 fall between cents; both ends round inward
	s.Equal(850.0, *pts[0].AmazonPrice)
	s.Equal(85.0, *pts[0].FlipkartPrice)
	s.Equal(1149.98, *pts[1].AmazonPrice)
	s.Equal(100.0, *pts[1].FlipkartPrice)
	for _, pt := range pts {
		s.GreaterOrEqual(*pt.AmazonPrice, 0.85*999.99)
		s.LessOrEqual(*pt.AmazonPrice, 1.15*999.99)
	}
	m.AssertExpectations(s.T())
}

func (s *HistorySuite) TestSynthesize_StaysInBandForOddPrices() {
	syn := NewSynthesizer(Config{Variation: 0.15}, rand.New(rand.NewSource(7))).WithClock(func() time.Time { return s.today })
	for _, cur := range []float64{1, 1.01, 3.33, 999.99, 12345.67, 9_999_999.99} {
		l := &models.TrackedListing{Amazon: models.PlatformListing{Price: ptr(cur)}}
		for _, pt := range syn.Synthesize(l, 90) {
			v := *pt.AmazonPrice
			s.GreaterOrEqual(v, cur*0.85, "current %v", cur)
			s.LessOrEqual(v, cur*1.15, "current %v", cur)
			s.InDelta(math.Round(v*100)/100, v, 1e-9)
		}
	}
}

func TestClampCents(t *testing.T) {
	require.Equal(t, 850.0, clampCents(849.99, 999.99, 0.15))
	require.Equal(t, 1149.98, clampCents(1149.99, 999.99, 0.15))
	require.Equal(t, 115.0, clampCents(115.0, 100, 0.15))
	require.Equal(t, 1000.0, clampCents(1000.0, 999.99, 0.15))
}

func (s *HistorySuite) TestChartSeries_SparseFallsBackToSynthetic() {
	m := &historymocks.Rand{}
	m.On("Float64").Return(0.5).Maybe()
	syn := NewSynthesizer(Config{MinPoints: 3, Days: 5}, m).WithClock(func() time.Time { return s.today })
	l := &models.TrackedListing{Flipkart: models.PlatformListing{Price: ptr(500)}}

	points := []*models.PriceHistoryPoint{{FlipkartPrice: ptr(510), RecordedAt: s.today}}
	pts := syn.ChartSeries(points, l)
	s.Len(pts, 5)
	s.Equal(500.0, *pts[0].FlipkartPrice)
}

func (s *HistorySuite) TestChartSeries_RealHistoryPassesThrough() {
	m := &historymocks.Rand{}
	syn := NewSynthesizer(Config{MinPoints: 2}, m)
	points := []*models.PriceHistoryPoint{
		{AmazonPrice: ptr(10), RecordedAt: time.Date(2026, 1, 1, 23, 0, 0, 0, time.UTC)},
		{AmazonPrice: ptr(12), FlipkartPrice: ptr(11), RecordedAt: time.Date(2026, 1, 3, 1, 0, 0, 0, time.UTC)},
	}
	pts := syn.ChartSeries(points, &models.TrackedListing{})
	s.Require().Len(pts, 2)
	s.Equal("2026-01-01", pts[0].Date)
	s.Equal("2026-01-03", pts[1].Date)
	s.Nil(pts[0].FlipkartPrice)
	m.AssertNotCalled(s.T(), "Float64")
}

func (s *HistorySuite) TestDefaults() {
	syn := NewSynthesizer(Config{Variation: 2}, nil)
	s.Equal(DefaultConfig(), syn.Config())
}

func TestHistorySuite(t *testing.T) {
	suite.Run(t, new(HistorySuite))
}
