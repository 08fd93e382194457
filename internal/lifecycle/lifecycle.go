// Package lifecycle drives auctions through not_started -> live -> ended:
// starting (and superseding), explicit closing, and time-based expiry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-shopping/internal/biddingerrors"
	"live-shopping/internal/clock"
	"live-shopping/internal/keylock"
	model "live-shopping/internal/models"
	"live-shopping/internal/repository"
	"live-shopping/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultMaxAttempts bounds the supersede-then-create and expiry retry loops.
const DefaultMaxAttempts = 5

// Manager coordinates auction state transitions
type Manager struct {
	auctions    repository.AuctionStore
	clock       clock.Clock
	showLocks   *keylock.KeyLock
	tracer      trace.Tracer
	maxAttempts int
}

// NewManager creates a new lifecycle Manager
func NewManager(auctions repository.AuctionStore, clk clock.Clock, tp trace.TracerProvider, maxAttempts int) *Manager {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Manager{
		auctions:    auctions,
		clock:       clk,
		showLocks:   keylock.New(),
		tracer:      tp.Tracer("live-shopping/internal/lifecycle"),
		maxAttempts: maxAttempts,
	}
}

// StartAuction ends whatever auction is live on the show and starts a new
// live one for the item.
//
// Callers in this process are serialized per show. Another process racing on
// the same show makes the create fail with ErrLiveAuctionExists, in which
// case supersede and create are repeated.
func (m *Manager) StartAuction(ctx context.Context, showID, itemID string, startingPrice decimal.Decimal, duration time.Duration) (model.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.StartAuction",
		trace.WithAttributes(
			attribute.String("show_id", showID),
			attribute.String("item_id", itemID),
		),
	)
	defer span.End()

	// validate before touching the current live auction
	if _, err := model.NewAuction("", showID, itemID, startingPrice, duration, m.clock.Now()); err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: %w", err)
	}

	unlock, err := m.showLocks.Lock(ctx, showID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return model.Auction{}, fmt.Errorf("lifecycle: start auction on show %s abandoned while waiting: %w", showID, err)
	}
	defer unlock()

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		superseded, err := m.auctions.EndAllLive(ctx, showID)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return model.Auction{}, fmt.Errorf("lifecycle: failed to supersede live auctions of show %s: %w", showID, err)
		}
		if superseded > 0 {
			utils.Info("lifecycle: superseded live auction", map[string]any{
				"show_id": showID,
				"count":   superseded,
			})
		}

		auction, err := model.NewAuction(utils.GenerateID(), showID, itemID, startingPrice, duration, m.clock.Now())
		if err != nil {
			return model.Auction{}, fmt.Errorf("lifecycle: %w", err)
		}

		created, err := m.auctions.CreateAuction(ctx, auction)
		if errors.Is(err, biddingerrors.ErrLiveAuctionExists) {
			utils.Warn("lifecycle: live auction appeared while starting, retrying", map[string]any{
				"show_id": showID,
				"attempt": attempt,
			})
			continue
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return model.Auction{}, fmt.Errorf("lifecycle: failed to create auction for show %s: %w", showID, err)
		}

		span.SetAttributes(attribute.String("auction_id", created.ID))
		return created, nil
	}

	span.SetStatus(codes.Error, "contention")
	return model.Auction{}, fmt.Errorf("lifecycle: start auction for show %s after %d attempts: %w", showID, m.maxAttempts, biddingerrors.ErrContention)
}

// GetCurrentLive returns the show's live auction. Expired auctions are ended
// on the way, so the bool is false rather than a stale live auction.
func (m *Manager) GetCurrentLive(ctx context.Context, showID string) (model.Auction, bool, error) {
	if showID == "" {
		return model.Auction{}, false, fmt.Errorf("lifecycle: %w - empty show ID", biddingerrors.ErrValidation)
	}

	auction, found, err := m.auctions.FindLiveByShow(ctx, showID)
	if err != nil {
		return model.Auction{}, false, fmt.Errorf("lifecycle: failed to find live auction for show %s: %w", showID, err)
	}
	if !found {
		return model.Auction{}, false, nil
	}

	auction, err = m.ResolveExpiry(ctx, auction)
	if err != nil {
		return model.Auction{}, false, err
	}
	if auction.Status != model.AuctionLive {
		return model.Auction{}, false, nil
	}
	return auction, true, nil
}

// GetAuction returns an auction as of now
func (m *Manager) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	if auctionID == "" {
		return model.Auction{}, fmt.Errorf("lifecycle: %w - empty auction ID", biddingerrors.ErrValidation)
	}

	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, fmt.Errorf("lifecycle: failed to get auction %s: %w", auctionID, err)
	}
	return m.ResolveExpiry(ctx, auction)
}

// CloseAuction ends a live auction ahead of its end time
func (m *Manager) CloseAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.CloseAuction",
		trace.WithAttributes(attribute.String("auction_id", auctionID)),
	)
	defer span.End()

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		auction, err := m.GetAuction(ctx, auctionID)
		if err != nil {
			return model.Auction{}, err
		}
		if auction.Status != model.AuctionLive {
			return model.Auction{}, fmt.Errorf("lifecycle: close auction %s (status %s): %w", auctionID, auction.Status, biddingerrors.ErrAuctionNotLive)
		}

		ended := model.AuctionEnded
		closed, err := m.auctions.CompareAndUpdateAuction(ctx, auctionID,
			repository.AuctionPrecondition{Status: model.AuctionLive, CurrentPrice: &auction.CurrentPrice},
			repository.AuctionPatch{Status: &ended},
		)
		if errors.Is(err, biddingerrors.ErrConflict) {
			continue
		}
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return model.Auction{}, fmt.Errorf("lifecycle: failed to close auction %s: %w", auctionID, err)
		}

		utils.Info("lifecycle: auction closed", map[string]any{
			"auction_id":    auctionID,
			"show_id":       closed.ShowID,
			"current_price": closed.CurrentPrice.String(),
		})
		return closed, nil
	}

	return model.Auction{}, fmt.Errorf("lifecycle: close auction %s: %w", auctionID, biddingerrors.ErrContention)
}

// ResolveExpiry persists the ended state of an auction whose end time has
// passed and returns the auction as it is now. A conflicting write (a bid
// that extended the end time, a concurrent close) is resolved by re-reading.
func (m *Manager) ResolveExpiry(ctx context.Context, auction model.Auction) (model.Auction, error) {
	auctionID := auction.ID
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		resolved, changed := model.ResolveExpiry(auction, m.clock.Now())
		if !changed {
			return auction, nil
		}

		ended := model.AuctionEnded
		updated, err := m.auctions.CompareAndUpdateAuction(ctx, auctionID,
			repository.AuctionPrecondition{
				Status:       model.AuctionLive,
				CurrentPrice: &auction.CurrentPrice,
				EndsAt:       auction.EndsAt,
			},
			repository.AuctionPatch{Status: &ended},
		)
		if err == nil {
			utils.Info("lifecycle: auction expired", map[string]any{
				"auction_id": updated.ID,
				"show_id":    updated.ShowID,
				"ends_at":    resolved.EndsAt,
			})
			return updated, nil
		}
		if !errors.Is(err, biddingerrors.ErrConflict) {
			return model.Auction{}, fmt.Errorf("lifecycle: failed to expire auction %s: %w", auctionID, err)
		}

		auction, err = m.auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return model.Auction{}, fmt.Errorf("lifecycle: failed to re-read auction %s: %w", auctionID, err)
		}
	}

	return model.Auction{}, fmt.Errorf("lifecycle: expire auction %s: %w", auctionID, biddingerrors.ErrContention)
}

// SweepExpired ends every live auction past its end time and returns how
// many were ended
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	expired, err := m.auctions.ListExpiredLive(ctx, m.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("lifecycle: failed to list expired auctions: %w", err)
	}

	ended := 0
	var errs []error
	for _, auction := range expired {
		resolved, err := m.ResolveExpiry(ctx, auction)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if resolved.Status == model.AuctionEnded {
			ended++
		}
	}
	return ended, errors.Join(errs...)
}
