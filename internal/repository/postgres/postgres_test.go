package postgres_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"live-shopping/internal/biddingerrors"
	model "live-shopping/internal/models"
	"live-shopping/internal/repository"
	"live-shopping/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestStore starts a Postgres container, applies the schema, and returns
// a Store on it. The container is terminated when the test ends.
func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("liveshop_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.Migrate(ctx, db))
	// applying the schema twice is harmless
	require.NoError(t, postgres.Migrate(ctx, db))

	return postgres.New(db, 5*time.Second)
}

func liveAuction(showID string, price int64, endsAt time.Time) model.Auction {
	return model.Auction{
		ID:            uuid.NewString(),
		ShowID:        showID,
		ItemID:        uuid.NewString(),
		Status:        model.AuctionLive,
		StartingPrice: decimal.NewFromInt(price),
		CurrentPrice:  decimal.NewFromInt(price),
		EndsAt:        &endsAt,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestStore_Auctions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	showID := uuid.NewString()
	endsAt := time.Now().UTC().Add(time.Minute)

	first, err := store.CreateAuction(ctx, liveAuction(showID, 10, endsAt))
	require.NoError(t, err)

	// the partial unique index refuses a second live auction for the show
	_, err = store.CreateAuction(ctx, liveAuction(showID, 10, endsAt))
	require.True(t, errors.Is(err, biddingerrors.ErrLiveAuctionExists), "got %v", err)

	got, err := store.GetAuction(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionLive, got.Status)
	require.Equal(t, "10", got.CurrentPrice.String())
	require.Nil(t, got.HighestBidID)
	require.True(t, got.EndsAt.Equal(*first.EndsAt))

	_, err = store.GetAuction(ctx, uuid.NewString())
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionNotFound))

	live, found, err := store.FindLiveByShow(ctx, showID)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, first.ID, live.ID)

	// compare-and-update with the read price wins once
	price15 := decimal.NewFromInt(15)
	bidID := uuid.NewString()
	updated, err := store.CompareAndUpdateAuction(ctx, first.ID,
		repository.AuctionPrecondition{Status: model.AuctionLive, CurrentPrice: &got.CurrentPrice},
		repository.AuctionPatch{CurrentPrice: &price15, HighestBidID: &bidID})
	require.NoError(t, err)
	require.Equal(t, "15", updated.CurrentPrice.String())
	require.Equal(t, bidID, *updated.HighestBidID)

	// the same stale precondition now conflicts
	_, err = store.CompareAndUpdateAuction(ctx, first.ID,
		repository.AuctionPrecondition{Status: model.AuctionLive, CurrentPrice: &got.CurrentPrice},
		repository.AuctionPatch{CurrentPrice: &price15})
	require.True(t, errors.Is(err, biddingerrors.ErrConflict), "got %v", err)

	_, err = store.CompareAndUpdateAuction(ctx, uuid.NewString(),
		repository.AuctionPrecondition{Status: model.AuctionLive},
		repository.AuctionPatch{CurrentPrice: &price15})
	require.True(t, errors.Is(err, biddingerrors.ErrAuctionNotFound), "got %v", err)

	// ends_at read back from the store matches in a precondition
	ended := model.AuctionEnded
	closed, err := store.CompareAndUpdateAuction(ctx, first.ID,
		repository.AuctionPrecondition{Status: model.AuctionLive, EndsAt: updated.EndsAt, HighestBidID: &bidID},
		repository.AuctionPatch{Status: &ended})
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, closed.Status)

	// once ended, the show can go live again
	second, err := store.CreateAuction(ctx, liveAuction(showID, 20, endsAt))
	require.NoError(t, err)

	n, err := store.EndAllLive(ctx, showID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, found, err = store.FindLiveByShow(ctx, showID)
	require.NoError(t, err)
	require.False(t, found)

	got, err = store.GetAuction(ctx, second.ID)
	require.NoError(t, err)
	require.Equal(t, model.AuctionEnded, got.Status)
}

func TestStore_ConcurrentCompareAndUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a, err := store.CreateAuction(ctx, liveAuction(uuid.NewString(), 10, time.Now().UTC().Add(time.Minute)))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(11 + i))
			bidID := uuid.NewString()
			_, err := store.CompareAndUpdateAuction(ctx, a.ID,
				repository.AuctionPrecondition{Status: model.AuctionLive, CurrentPrice: &a.CurrentPrice},
				repository.AuctionPatch{CurrentPrice: &amount, HighestBidID: &bidID})
			if err == nil {
				atomic.AddInt32(&wins, 1)
				return
			}
			if !errors.Is(err, biddingerrors.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), wins)
}

func TestStore_ListExpiredLive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	expired, err := store.CreateAuction(ctx, liveAuction(uuid.NewString(), 10, now.Add(-time.Second)))
	require.NoError(t, err)
	_, err = store.CreateAuction(ctx, liveAuction(uuid.NewString(), 10, now.Add(time.Hour)))
	require.NoError(t, err)

	got, err := store.ListExpiredLive(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, expired.ID, got[0].ID)
}

func TestStore_Bids(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	auctionID := uuid.NewString()
	showID := uuid.NewString()
	now := time.Now().UTC()

	amounts := []int64{15, 30, 30, 20}
	ids := make([]string, len(amounts))
	for i, amount := range amounts {
		ids[i] = uuid.NewString()
		require.NoError(t, store.AppendBid(ctx, model.Bid{
			ID:        ids[i],
			ShowID:    showID,
			ItemID:    uuid.NewString(),
			AuctionID: auctionID,
			UserID:    "user",
			Amount:    decimal.NewFromInt(amount),
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}))
	}

	bids, err := store.ListBidsByAuction(ctx, auctionID, 0)
	require.NoError(t, err)
	require.Len(t, bids, 4)
	require.Equal(t, []string{ids[1], ids[2], ids[3], ids[0]}, []string{bids[0].ID, bids[1].ID, bids[2].ID, bids[3].ID})

	top, err := store.ListBidsByAuction(ctx, auctionID, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, "30", top[0].Amount.String())

	byShow, err := store.ListBidsByShow(ctx, showID, 10)
	require.NoError(t, err)
	require.Len(t, byShow, 4)

	none, err := store.ListBidsByAuction(ctx, uuid.NewString(), 10)
	require.NoError(t, err)
	require.NotNil(t, none)
	require.Len(t, none, 0)
}

func TestStore_Catalog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	show, err := store.CreateShow(ctx, model.Show{ID: uuid.NewString(), Title: "Cards", Status: model.ShowLive, CreatedAt: now})
	require.NoError(t, err)
	_, err = store.CreateShow(ctx, model.Show{ID: uuid.NewString(), Title: "Later", Status: model.ShowScheduled, CreatedAt: now.Add(time.Second)})
	require.NoError(t, err)

	got, err := store.GetShow(ctx, show.ID)
	require.NoError(t, err)
	require.Equal(t, "Cards", got.Title)

	_, err = store.GetShow(ctx, uuid.NewString())
	require.True(t, errors.Is(err, biddingerrors.ErrShowNotFound))

	live, err := store.ListShows(ctx, model.ShowLive, 10)
	require.NoError(t, err)
	require.Len(t, live, 1)

	all, err := store.ListShows(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = store.CreateItem(ctx, model.Item{ID: uuid.NewString(), ShowID: show.ID, Title: "Rookie", StartPrice: decimal.NewFromInt(5), Status: model.ItemReady, CreatedAt: now})
	require.NoError(t, err)
	items, err := store.ListItemsByShow(ctx, show.ID, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "5", items[0].StartPrice.String())

	user := "viewer"
	for i := 0; i < 3; i++ {
		_, err := store.CreateMessage(ctx, model.Message{
			ID:        uuid.NewString(),
			ShowID:    show.ID,
			UserID:    &user,
			Text:      string(rune('a' + i)),
			Type:      model.MessageText,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	messages, err := store.ListMessagesByShow(ctx, show.ID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "b", messages[0].Text)
	require.Equal(t, "c", messages[1].Text)
	require.Equal(t, user, *messages[0].UserID)

	require.NoError(t, store.Ping(ctx))
}
