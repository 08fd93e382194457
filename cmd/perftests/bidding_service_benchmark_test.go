package perftests

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	bidding "live-shopping/internal/biddingService"
	"live-shopping/internal/clock"
	"live-shopping/internal/lifecycle"
	model "live-shopping/internal/models"
	"live-shopping/internal/repository"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"
)

const benchDuration = time.Hour

// newServices wires the lifecycle manager and bidding service over a fresh memory repo
func newServices() (*lifecycle.Manager, *bidding.BiddingService) {
	repo := repository.NewMemoryRepo()
	tp := noop.NewTracerProvider()
	clk := clock.Real{}
	manager := lifecycle.NewManager(repo, clk, tp, 0)
	svc := bidding.NewBiddingService(repo, repo, manager, clk, tp, bidding.DefaultSettings())
	return manager, svc
}

// startAuctions opens one live auction per show and returns their ids
func startAuctions(tb testing.TB, manager *lifecycle.Manager, n int) []string {
	tb.Helper()
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		a, err := manager.StartAuction(context.Background(),
			fmt.Sprintf("show_%d", i), fmt.Sprintf("item_%d", i),
			decimal.NewFromInt(50), benchDuration)
		if err != nil {
			tb.Fatalf("failed to start auction: %v", err)
		}
		ids[i] = a.ID
	}
	return ids
}

// Benchmark 1: PlaceBid - Isolated Auctions (Low Contention - Micro Benchmark)
func Benchmark_PlaceBid_Isolated(b *testing.B) {
	manager, svc := newServices()
	auctionIDs := startAuctions(b, manager, b.N)
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		userID := fmt.Sprintf("user_%d", i)
		amount := decimal.NewFromInt(int64(51 + rand.Intn(100)))
		if _, err := svc.PlaceBid(ctx, auctionIDs[i], userID, amount); err != nil {
			b.Fatalf("failed to place bid: %v", err)
		}
	}
}

// Benchmark 2: PlaceBid - Shared Auction (High Contention - Concurrency Benchmark)
func Benchmark_PlaceBid_ConcurrentSharedAuction(b *testing.B) {
	manager, svc := newServices()
	auctionID := startAuctions(b, manager, 1)[0]
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 50
	var admitted, rejected int64

	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			userID := fmt.Sprintf("user_parallel_%d", rnd.Int())
			nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
			if _, err := svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(nextBid)); err != nil {
				atomic.AddInt64(&rejected, 1)
				continue
			}
			atomic.AddInt64(&admitted, 1)
		}
	})

	b.ReportMetric(float64(admitted), "admitted")
	b.ReportMetric(float64(rejected), "rejected")
}

// Benchmark 3: GetAuction - Single-Threaded (Low Contention)
func Benchmark_GetAuction_SingleThreaded(b *testing.B) {
	manager, svc := newServices()
	auctionIDs := startAuctions(b, manager, b.N)
	ctx := context.Background()

	for i, id := range auctionIDs {
		for j := 1; j <= 10; j++ {
			_, _ = svc.PlaceBid(ctx, id, fmt.Sprintf("user_%d_%d", i, j), decimal.NewFromInt(int64(50+j*10)))
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := manager.GetAuction(ctx, auctionIDs[i]); err != nil {
			b.Fatalf("failed to get auction: %v", err)
		}
	}
}

// Benchmark 4: GetAuction - Concurrent (High Contention)
func Benchmark_GetAuction_ConcurrentSharedAuction(b *testing.B) {
	manager, svc := newServices()
	auctionID := startAuctions(b, manager, 1)[0]
	ctx := context.Background()

	for j := 1; j <= 100; j++ {
		_, _ = svc.PlaceBid(ctx, auctionID, fmt.Sprintf("user_%d", j), decimal.NewFromInt(int64(50+j)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			a, err := manager.GetAuction(ctx, auctionID)
			if err != nil || a.Status != model.AuctionLive {
				b.Errorf("unexpected read: status %s err %v", a.Status, err)
				return
			}
		}
	})
}

// Benchmark 5: Mixed Workload (Readers + Writers concurrently)
func Benchmark_MixedWorkload_SharedAuction(b *testing.B) {
	manager, svc := newServices()
	auctionID := startAuctions(b, manager, 1)[0]
	ctx := context.Background()

	for j := 1; j <= 50; j++ {
		_, _ = svc.PlaceBid(ctx, auctionID, fmt.Sprintf("user_seed_%d", j), decimal.NewFromInt(int64(50+j*2)))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var lastBid int64 = 150

	// Ratio: 70% readers, 30% writers
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for pb.Next() {
			switch op := rnd.Intn(10); {
			case op < 3:
				userID := fmt.Sprintf("user_writer_%d", rnd.Int())
				nextBid := atomic.AddInt64(&lastBid, int64(rnd.Intn(5)+1))
				_, _ = svc.PlaceBid(ctx, auctionID, userID, decimal.NewFromInt(nextBid))
			case op < 6:
				_, _ = svc.ListBids(ctx, auctionID, 10)
			default:
				_, _ = manager.GetAuction(ctx, auctionID)
			}
		}
	})
}
