package integrationtests

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuctionFlow(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Friday drop")
	itemID := env.createItem(t, showID, "Sneakers", 10)

	auction := env.startAuction(t, showID, itemID, 10, 60)
	auctionID := auction["id"].(string)
	require.Equal(t, "live", auction["status"])
	require.Equal(t, 10.0, auction["current_price"])
	require.Nil(t, auction["highest_bid_id"])
	require.Equal(t, "2026-03-01T12:01:00Z", auction["ends_at"])

	// at the starting price the bid is rejected
	resp, w := env.placeBid(t, auctionID, "alice", 10)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "bid amount too low", resp["message"])
	require.Contains(t, resp["error"], "bid must exceed 10")

	resp, w = env.placeBid(t, auctionID, "alice", 12.5)
	require.Equal(t, http.StatusCreated, w.Code)
	first := data(t, resp)
	require.Equal(t, 12.5, first["amount"])
	require.Equal(t, showID, first["show_id"])
	require.Equal(t, itemID, first["item_id"])

	// matching the leader is not enough
	_, w = env.placeBid(t, auctionID, "bob", 12.5)
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp, w = env.placeBid(t, auctionID, "bob", 15)
	require.Equal(t, http.StatusCreated, w.Code)
	second := data(t, resp)

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/shows/"+showID+"/auctions/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	current := data(t, resp)
	require.Equal(t, auctionID, current["id"])
	require.Equal(t, 15.0, current["current_price"])
	require.Equal(t, second["id"], current["highest_bid_id"])

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := dataList(t, resp)
	require.Len(t, bids, 2)
	require.Equal(t, second["id"], bids[0]["id"])
	require.Equal(t, first["id"], bids[1]["id"])

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodPost, "/auctions/"+auctionID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ended", data(t, resp)["status"])

	resp, w = env.placeBid(t, auctionID, "carol", 100)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "auction not live", resp["message"])

	// the ledger still holds only the two admitted bids
	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Len(t, dataList(t, resp), 2)

	resp, w = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/shows/"+showID+"/auctions/current", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no live auction", resp["message"])
	require.Nil(t, resp["data"])
}

func TestAuctionExpiryAndAntiSnipe(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Late night")
	itemID := env.createItem(t, showID, "Watch", 50)
	auctionID := env.startAuction(t, showID, itemID, 50, 60)["id"].(string)

	// 55s in: five seconds left, inside the ten second window
	env.clock.Advance(55 * time.Second)
	_, w := env.placeBid(t, auctionID, "alice", 60)
	require.Equal(t, http.StatusCreated, w.Code)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "2026-03-01T12:01:05Z", data(t, resp)["ends_at"])

	// the original end time has passed but the extension keeps it live
	env.clock.Advance(7 * time.Second)
	_, w = env.placeBid(t, auctionID, "bob", 70)
	require.Equal(t, http.StatusCreated, w.Code)

	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID, nil)
	require.Equal(t, "live", data(t, resp)["status"])
	require.Equal(t, "2026-03-01T12:01:12Z", data(t, resp)["ends_at"])

	env.clock.Advance(10 * time.Second)
	resp, w = env.placeBid(t, auctionID, "carol", 80)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "auction not live", resp["message"])

	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	for _, bid := range dataList(t, resp) {
		require.NotEqual(t, "carol", bid["user_id"])
	}
	require.Len(t, dataList(t, resp), 2)

	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID, nil)
	auction := data(t, resp)
	require.Equal(t, "ended", auction["status"])
	require.Equal(t, 70.0, auction["current_price"])
}

func TestStartAuctionSupersedesLiveAuction(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Marathon")
	firstItem := env.createItem(t, showID, "Lamp", 5)
	secondItem := env.createItem(t, showID, "Chair", 20)

	first := env.startAuction(t, showID, firstItem, 5, 120)
	second := env.startAuction(t, showID, secondItem, 20, 120)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+first["id"].(string), nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ended", data(t, resp)["status"])

	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/shows/"+showID+"/auctions/current", nil)
	require.Equal(t, second["id"], data(t, resp)["id"])

	_, w = env.placeBid(t, first["id"].(string), "alice", 6)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConcurrentBidsOverHTTP(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Rush")
	itemID := env.createItem(t, showID, "Console", 100)
	auctionID := env.startAuction(t, showID, itemID, 100, 300)["id"].(string)

	const bidders = 30
	codes := make([]int, bidders)
	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, w := env.placeBid(t, auctionID, uuid.NewString(), 150)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		require.Contains(t, []int{http.StatusBadRequest, http.StatusConflict}, code)
	}
	require.Equal(t, 1, created)

	resp, _ := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/auctions/"+auctionID+"/bids", nil)
	require.Len(t, dataList(t, resp), 1)
}

func TestBiddingErrors(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Errors")
	itemID := env.createItem(t, showID, "Mug", 1)
	auctionID := env.startAuction(t, showID, itemID, 1, 60)["id"].(string)

	tests := []struct {
		name        string
		method      string
		url         string
		body        any
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "malformed_auction_id",
			method:      http.MethodGet,
			url:         "/auctions/not-a-uuid",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid id",
		},
		{
			name:        "unknown_auction",
			method:      http.MethodGet,
			url:         "/auctions/" + uuid.NewString(),
			wantStatus:  http.StatusNotFound,
			wantMessage: "auction not found",
		},
		{
			name:        "bid_on_unknown_auction",
			method:      http.MethodPost,
			url:         "/auctions/" + uuid.NewString() + "/bids",
			body:        map[string]any{"user_id": "alice", "amount": 5},
			wantStatus:  http.StatusNotFound,
			wantMessage: "auction not found",
		},
		{
			name:       "invalid_json",
			method:     http.MethodPost,
			url:        "/auctions/" + auctionID + "/bids",
			body:       "{user_id: 'missing quotes', amount: 100}",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing_user",
			method:     http.MethodPost,
			url:        "/auctions/" + auctionID + "/bids",
			body:       map[string]any{"amount": 5},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative_amount",
			method:     http.MethodPost,
			url:        "/auctions/" + auctionID + "/bids",
			body:       map[string]any{"user_id": "alice", "amount": -5},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "start_without_item",
			method:     http.MethodPost,
			url:        "/shows/" + showID + "/auctions/start",
			body:       map[string]any{"starting_price": 5},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "start_with_negative_price",
			method:     http.MethodPost,
			url:        "/shows/" + showID + "/auctions/start",
			body:       map[string]any{"item_id": itemID, "starting_price": -1},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:        "bad_limit",
			method:      http.MethodGet,
			url:         "/auctions/" + auctionID + "/bids?limit=0",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "validation failed",
		},
		{
			name:        "close_unknown_auction",
			method:      http.MethodPost,
			url:         "/auctions/" + uuid.NewString() + "/close",
			wantStatus:  http.StatusNotFound,
			wantMessage: "auction not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, w := ExecuteRequestAndParse(t, env.router, tt.method, tt.url, tt.body)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantMessage != "" {
				require.Equal(t, tt.wantMessage, resp["message"])
			}
		})
	}
}

func TestShowBids(t *testing.T) {
	env := SetupTestEnv(t)
	showID := env.createShow(t, "Two lots")
	itemA := env.createItem(t, showID, "A", 1)
	itemB := env.createItem(t, showID, "B", 1)

	auctionA := env.startAuction(t, showID, itemA, 1, 60)["id"].(string)
	_, w := env.placeBid(t, auctionA, "alice", 3)
	require.Equal(t, http.StatusCreated, w.Code)

	auctionB := env.startAuction(t, showID, itemB, 1, 60)["id"].(string)
	_, w = env.placeBid(t, auctionB, "bob", 9)
	require.Equal(t, http.StatusCreated, w.Code)

	resp, w := ExecuteRequestAndParse(t, env.router, http.MethodGet, "/shows/"+showID+"/bids?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bids := dataList(t, resp)
	require.Len(t, bids, 2)
	require.Equal(t, 9.0, bids[0]["amount"])
	require.Equal(t, auctionB, bids[0]["auction_id"])
	require.Equal(t, 3.0, bids[1]["amount"])

	resp, _ = ExecuteRequestAndParse(t, env.router, http.MethodGet, "/shows/"+uuid.NewString()+"/bids", nil)
	require.Empty(t, dataList(t, resp))
}
