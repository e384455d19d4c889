package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/PriceBox/internal/broker/messages"
	"github.com/BearBump/PriceBox/internal/models"
	alertsmocks "github.com/BearBump/PriceBox/internal/services/alerts/mocks"
	"github.com/BearBump/PriceBox/internal/storage/pglistings"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func ptr[T any](v T) *T { return &v }

func listingWith(amazon, flipkart *float64) *models.TrackedListing {
	l := &models.TrackedListing{ID: 1, Owner: 5, OwnerEmail: "o@example.com", ProductName: "Kindle"}
	if amazon != nil {
		l.Amazon = models.PlatformListing{URL: ptr("https://www.amazon.in/dp/K"), Price: amazon}
	}
	if flipkart != nil {
		l.Flipkart = models.PlatformListing{URL: ptr("https://www.flipkart.com/k/p/itm1"), Price: flipkart}
	}
	return l
}

func TestResolve(t *testing.T) {
	const target = 1000.0
	cases := []struct {
		name     string
		scope    models.AlertScope
		amazon   *float64
		flipkart *float64
		want     models.Platform
		hit      bool
	}{
		{"both prefers amazon", models.ScopeBoth, ptr(999.0), ptr(1005.0), models.PlatformAmazon, true},
		{"both falls to flipkart", models.ScopeBoth, ptr(1200.0), ptr(950.0), models.PlatformFlipkart, true},
		{"both amazon wins tie", models.ScopeBoth, ptr(900.0), ptr(800.0), models.PlatformAmazon, true},
		{"both neither", models.ScopeBoth, ptr(1001.0), ptr(1002.0), models.PlatformNone, false},
		{"equal is a hit", models.ScopeAmazon, ptr(1000.0), nil, models.PlatformAmazon, true},
		{"single scope unpopulated", models.ScopeFlipkart, ptr(10.0), nil, models.PlatformNone, false},
		{"single scope ignores other side", models.ScopeAmazon, ptr(1500.0), ptr(10.0), models.PlatformNone, false},
		{"missing price", models.ScopeAmazon, nil, nil, models.PlatformNone, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &models.PriceAlertCondition{TargetPrice: target, Scope: tc.scope, IsActive: true}
			p, _, hit := Resolve(c, listingWith(tc.amazon, tc.flipkart))
			require.Equal(t, tc.hit, hit)
			require.Equal(t, tc.want, p)
		})
	}

	// a populated url with no price yet never fires
	l := listingWith(nil, nil)
	l.Amazon.URL = ptr("https://www.amazon.in/dp/K")
	_, _, hit := Resolve(&models.PriceAlertCondition{TargetPrice: target, Scope: models.ScopeAmazon}, l)
	require.False(t, hit)
}

type EvaluatorSuite struct {
	suite.Suite

	repo *alertsmocks.MockRepository
	n    *alertsmocks.MockNotifier
	now  time.Time
	e    *Evaluator
}

func (s *EvaluatorSuite) SetupTest() {
	s.repo = &alertsmocks.MockRepository{}
	s.n = &alertsmocks.MockNotifier{}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.e = New(s.repo, s.n).WithClock(func() time.Time { return s.now })
}

func (s *EvaluatorSuite) TestFiresWithResolvedPlatform() {
	c := &models.PriceAlertCondition{ID: 7, Owner: 5, ListingID: 1, TargetPrice: 1000, Scope: models.ScopeBoth, IsActive: true}
	s.repo.On("ListActiveConditions", mock.Anything).Return([]*models.PriceAlertCondition{c}, nil).Once()
	s.repo.On("GetListing", mock.Anything, uint64(1)).Return(listingWith(ptr(999.0), ptr(1005.0)), nil).Once()
	s.repo.On("DeactivateCondition", mock.Anything, uint64(7), s.now).Return(true, nil).Once()
	s.n.On("NotifyPriceDrop", mock.Anything, mock.MatchedBy(func(ev messages.PriceDropped) bool {
		return ev.AlertID == 7 && ev.Platform == models.PlatformAmazon && ev.ObservedPrice == 999 &&
			ev.TargetPrice == 1000 && ev.URL == "https://www.amazon.in/dp/K" && ev.Email == "o@example.com"
	})).Return(nil).Once()

	fired, err := s.e.Evaluate(context.Background())
	s.Require().NoError(err)
	s.Equal(1, fired)
	s.repo.AssertExpectations(s.T())
	s.n.AssertExpectations(s.T())
}

func (s *EvaluatorSuite) TestNotifyFailureKeepsDeactivation() {
	c := &models.PriceAlertCondition{ID: 7, ListingID: 1, TargetPrice: 1000, Scope: models.ScopeFlipkart, IsActive: true}
	s.repo.On("ListActiveConditionsForListing", mock.Anything, uint64(1)).Return([]*models.PriceAlertCondition{c}, nil).Once()
	s.repo.On("GetListing", mock.Anything, uint64(1)).Return(listingWith(nil, ptr(900.0)), nil).Once()
	s.repo.On("DeactivateCondition", mock.Anything, uint64(7), mock.Anything).Return(true, nil).Once()
	s.n.On("NotifyPriceDrop", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	fired, err := s.e.EvaluateListing(context.Background(), 1)
	s.Require().NoError(err)
	s.Equal(1, fired)
	s.repo.AssertExpectations(s.T())
}

func (s *EvaluatorSuite) TestLostRaceDoesNotNotify() {
	c := &models.PriceAlertCondition{ID: 7, ListingID: 1, TargetPrice: 1000, Scope: models.ScopeAmazon, IsActive: true}
	s.repo.On("ListActiveConditions", mock.Anything).Return([]*models.PriceAlertCondition{c}, nil).Once()
	s.repo.On("GetListing", mock.Anything, uint64(1)).Return(listingWith(ptr(10.0), nil), nil).Once()
	s.repo.On("DeactivateCondition", mock.Anything, uint64(7), mock.Anything).Return(false, nil).Once()

	fired, err := s.e.Evaluate(context.Background())
	s.Require().NoError(err)
	s.Equal(0, fired)
	s.n.AssertNotCalled(s.T(), "NotifyPriceDrop", mock.Anything, mock.Anything)
}

func (s *EvaluatorSuite) TestListingLoadedOncePerCallAndMissingSkipped() {
	conds := []*models.PriceAlertCondition{
		{ID: 1, ListingID: 1, TargetPrice: 1, Scope: models.ScopeAmazon, IsActive: true},
		{ID: 2, ListingID: 1, TargetPrice: 2, Scope: models.ScopeBoth, IsActive: true},
		{ID: 3, ListingID: 9, TargetPrice: 2, Scope: models.ScopeBoth, IsActive: true},
		{ID: 4, ListingID: 8, TargetPrice: 2, Scope: models.ScopeBoth, IsActive: true},
	}
	s.repo.On("ListActiveConditions", mock.Anything).Return(conds, nil).Once()
	s.repo.On("GetListing", mock.Anything, uint64(1)).Return(listingWith(ptr(500.0), nil), nil).Once()
	s.repo.On("GetListing", mock.Anything, uint64(9)).Return(nil, pglistings.ErrNotFound).Once()
	s.repo.On("GetListing", mock.Anything, uint64(8)).Return(nil, errors.New("conn reset")).Once()

	fired, err := s.e.Evaluate(context.Background())
	s.Require().NoError(err)
	s.Equal(0, fired)
	s.repo.AssertExpectations(s.T())
	s.repo.AssertNotCalled(s.T(), "DeactivateCondition", mock.Anything, mock.Anything, mock.Anything)
}

func (s *EvaluatorSuite) TestListError() {
	s.repo.On("ListActiveConditions", mock.Anything).Return(nil, errors.New("db down")).Once()
	_, err := s.e.Evaluate(context.Background())
	s.Require().Error(err)
}

func TestEvaluatorSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorSuite))
}

// memRepo keeps conditions in memory with the same conditional deactivation as the store.
type memRepo struct {
	mu       sync.Mutex
	listings map[uint64]*models.TrackedListing
	conds    []*models.PriceAlertCondition
}

func (r *memRepo) GetListing(ctx context.Context, id uint64) (*models.TrackedListing, error) {
	if l, ok := r.listings[id]; ok {
		return l, nil
	}
	return nil, pglistings.ErrNotFound
}

func (r *memRepo) ListActiveConditions(ctx context.Context) ([]*models.PriceAlertCondition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.PriceAlertCondition
	for _, c := range r.conds {
		if c.IsActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListActiveConditionsForListing(ctx context.Context, listingID uint64) ([]*models.PriceAlertCondition, error) {
	all, _ := r.ListActiveConditions(ctx)
	var out []*models.PriceAlertCondition
	for _, c := range all {
		if c.ListingID == listingID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) DeactivateCondition(ctx context.Context, id uint64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.conds {
		if c.ID == id && c.IsActive {
			c.IsActive = false
			c.TriggeredAt = &at
			return true, nil
		}
	}
	return false, nil
}

type countingNotifier struct {
	mu     sync.Mutex
	events []messages.PriceDropped
}

func (n *countingNotifier) NotifyPriceDrop(ctx context.Context, ev messages.PriceDropped) error {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
	return nil
}

func TestEvaluate_FiresOnceEvenUnderConcurrentEvaluators(t *testing.T) {
	const p = 1000.0
	repo := &memRepo{
		listings: map[uint64]*models.TrackedListing{1: listingWith(ptr(p-1), ptr(p+5))},
		conds:    []*models.PriceAlertCondition{{ID: 1, ListingID: 1, TargetPrice: p, Scope: models.ScopeBoth, IsActive: true}},
	}
	n := &countingNotifier{}

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = New(repo, n).Evaluate(context.Background())
		}()
	}
	wg.Wait()

	require.Len(t, n.events, 1)
	require.Equal(t, models.PlatformAmazon, n.events[0].Platform)
	require.False(t, repo.conds[0].IsActive)
	require.NotNil(t, repo.conds[0].TriggeredAt)

	fired, err := New(repo, n).Evaluate(context.Background())
	require.NoError(t, err)
	require.Zero(t, fired)
	require.Len(t, n.events, 1)
}
