package integrationtests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	bidding "live-shopping/internal/biddingService"
	catalog "live-shopping/internal/catalogService"
	"live-shopping/internal/clock"
	"live-shopping/internal/lifecycle"
	"live-shopping/internal/repository"
	"live-shopping/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testEnv is a full router over an in-memory store with a controllable clock
type testEnv struct {
	router  *gin.Engine
	clock   *clock.Mock
	repo    *repository.MemoryRepo
	manager *lifecycle.Manager
}

// SetupTestEnv wires every service the way main does, minus the sweeper.
func SetupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	clk := clock.NewMock(epoch)
	tp := noop.NewTracerProvider()

	manager := lifecycle.NewManager(repo, clk, tp, 0)
	biddingSvc := bidding.NewBiddingService(repo, repo, manager, clk, tp, bidding.DefaultSettings())
	catalogSvc := catalog.NewCatalogService(repo, clk)

	health := server.NewHealthHandler(clk, server.HealthCheck{Name: "store", Check: repo.Ping})
	health.SetReady(true)

	router := server.SetupRouter(server.Services{
		Auctions:               manager,
		Bids:                   biddingSvc,
		Catalog:                catalogSvc,
		Health:                 health,
		DefaultAuctionDuration: 60 * time.Second,
	})

	return &testEnv{router: router, clock: clk, repo: repo, manager: manager}
}

// ExecuteRequest executes an HTTP request and returns the response recorder.
func ExecuteRequest(t *testing.T, router *gin.Engine, method, url string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ExecuteRequestAndParse executes an HTTP request on the given router and parses the envelope
func ExecuteRequestAndParse(t *testing.T, router *gin.Engine, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := ExecuteRequest(t, router, method, url, reqBody)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// data returns the envelope's data field as an object
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	require.True(t, ok, "data is not an object: %v", resp["data"])
	return d
}

// dataList returns the envelope's data field as a list of objects
func dataList(t *testing.T, resp map[string]any) []map[string]any {
	t.Helper()
	raw, ok := resp["data"].([]any)
	require.True(t, ok, "data is not a list: %v", resp["data"])
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.(map[string]any))
	}
	return out
}

func (e *testEnv) createShow(t *testing.T, title string) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.router, http.MethodPost, "/shows", map[string]any{"title": title})
	require.Equal(t, http.StatusCreated, w.Code)
	return data(t, resp)["id"].(string)
}

func (e *testEnv) createItem(t *testing.T, showID, title string, startPrice float64) string {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.router, http.MethodPost, "/items", map[string]any{
		"show_id":     showID,
		"title":       title,
		"start_price": startPrice,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return data(t, resp)["id"].(string)
}

func (e *testEnv) startAuction(t *testing.T, showID, itemID string, startingPrice float64, durationSeconds int) map[string]any {
	t.Helper()
	resp, w := ExecuteRequestAndParse(t, e.router, http.MethodPost, "/shows/"+showID+"/auctions/start", map[string]any{
		"item_id":          itemID,
		"starting_price":   startingPrice,
		"duration_seconds": durationSeconds,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return data(t, resp)
}

func (e *testEnv) placeBid(t *testing.T, auctionID, userID string, amount float64) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	return ExecuteRequestAndParse(t, e.router, http.MethodPost, "/auctions/"+auctionID+"/bids", map[string]any{
		"user_id": userID,
		"amount":  amount,
	})
}
