package pglistings

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BearBump/PriceBox/internal/models"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "admin",
			"POSTGRES_PASSWORD": "admin",
			"POSTGRES_DB":       "pricebox_test",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := "postgres://admin:admin@" + host + ":" + port.Port() + "/pricebox_test?sslmode=disable"
	var st *Storage
	// the port opens before postgres accepts connections
	require.Eventually(t, func() bool {
		st, err = New(dsn)
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(st.Close)
	return st
}

func ptr[T any](v T) *T { return &v }

func TestPGListings_RepoFlow(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t)
	require.NoError(t, st.Ping(ctx))

	created, err := st.CreateListing(ctx, models.ListingCreateInput{
		Owner:       1,
		OwnerEmail:  "a@example.com",
		ProductName: "Apple iPhone 15",
		Amazon:      models.PlatformListing{URL: ptr("https://www.amazon.in/dp/B0C1"), Price: ptr(69900.0), OriginalPrice: ptr(79900.0)},
		Flipkart:    models.PlatformListing{URL: ptr("https://www.flipkart.com/x/p/itm1"), Price: ptr(65999.0)},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Nil(t, created.Image)
	require.Equal(t, 79900.0, *created.Amazon.OriginalPrice)

	// initial history row comes with the listing
	hist, err := st.ListHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	require.Equal(t, 69900.0, *hist[0].AmazonPrice)

	_, err = st.CreateListing(ctx, models.ListingCreateInput{Owner: 1, ProductName: "no urls"})
	require.Error(t, err)

	// refresh without a change updates the row only
	require.NoError(t, st.ApplyRefresh(ctx, ListingRefresh{
		ListingID: created.ID, AmazonPrice: ptr(69900.0), AmazonOriginalPrice: ptr(79900.0), FlipkartPrice: ptr(65999.0),
	}))
	hist, _ = st.ListHistory(ctx, created.ID)
	require.Len(t, hist, 1)

	require.NoError(t, st.ApplyRefresh(ctx, ListingRefresh{
		ListingID: created.ID, AmazonPrice: ptr(64999.0), FlipkartPrice: ptr(65999.0), AppendHistory: true,
		RefreshedAt: time.Now().Add(time.Minute),
	}))
	hist, _ = st.ListHistory(ctx, created.ID)
	require.Len(t, hist, 2)
	require.Equal(t, 64999.0, *hist[1].AmazonPrice)

	got, err := st.GetListing(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, 64999.0, *got.Amazon.Price)
	require.Nil(t, got.Amazon.OriginalPrice)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))

	require.ErrorIs(t, st.ApplyRefresh(ctx, ListingRefresh{ListingID: 999999}), ErrNotFound)
	_, err = st.GetListing(ctx, 999999)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, st.AppendHistory(ctx, created.ID, nil, ptr(60000.0), time.Now().Add(2*time.Minute)))
	hist, _ = st.ListHistory(ctx, created.ID)
	require.Len(t, hist, 3)
	require.Nil(t, hist[2].AmazonPrice)

	all, err := st.ListListings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	mine, err := st.ListOwnerListings(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	theirs, err := st.ListOwnerListings(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, theirs)
}

func TestPGListings_AlertsUpsertDeactivateCascade(t *testing.T) {
	ctx := context.Background()
	st := newTestStorage(t)

	l, err := st.CreateListing(ctx, models.ListingCreateInput{
		Owner: 7, ProductName: "Kindle", Amazon: models.PlatformListing{URL: ptr("https://www.amazon.in/dp/K1"), Price: ptr(13999.0)},
	})
	require.NoError(t, err)

	a1, err := st.UpsertAlert(ctx, models.AlertInput{Owner: 7, ListingID: l.ID, TargetPrice: 12000, Scope: models.ScopeAmazon})
	require.NoError(t, err)
	a2, err := st.UpsertAlert(ctx, models.AlertInput{Owner: 7, ListingID: l.ID, TargetPrice: 11000, Scope: models.ScopeAmazon})
	require.NoError(t, err)
	require.Equal(t, a1.ID, a2.ID)
	require.Equal(t, 11000.0, a2.TargetPrice)

	other, err := st.UpsertAlert(ctx, models.AlertInput{Owner: 7, ListingID: l.ID, TargetPrice: 11000, Scope: models.ScopeBoth})
	require.NoError(t, err)
	require.NotEqual(t, a1.ID, other.ID)

	active, err := st.ListActiveConditions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)

	// concurrent evaluators: exactly one flips the row
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := st.DeactivateCondition(ctx, a1.ID, time.Now()); err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)

	forListing, err := st.ListActiveConditionsForListing(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, forListing, 1)
	require.Equal(t, other.ID, forListing[0].ID)

	// after firing, setting the same scope again opens a new active condition
	a3, err := st.UpsertAlert(ctx, models.AlertInput{Owner: 7, ListingID: l.ID, TargetPrice: 10000, Scope: models.ScopeAmazon})
	require.NoError(t, err)
	require.NotEqual(t, a1.ID, a3.ID)

	alerts, err := st.ListAlerts(ctx, l.ID)
	require.NoError(t, err)
	require.Len(t, alerts, 3)
	var fired *models.PriceAlertCondition
	for _, a := range alerts {
		if a.ID == a1.ID {
			fired = a
		}
	}
	require.NotNil(t, fired)
	require.False(t, fired.IsActive)
	require.NotNil(t, fired.TriggeredAt)

	ok, err := st.DeleteAlert(ctx, 8, other.ID)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = st.DeleteAlert(ctx, 7, other.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.DeleteListing(ctx, 8, l.ID)
	require.NoError(t, err)
	require.False(t, ok)
	ok, err = st.DeleteListing(ctx, 7, l.ID)
	require.NoError(t, err)
	require.True(t, ok)

	alerts, err = st.ListAlerts(ctx, l.ID)
	require.NoError(t, err)
	require.Empty(t, alerts)
	hist, err := st.ListHistory(ctx, l.ID)
	require.NoError(t, err)
	require.Empty(t, hist)
}
