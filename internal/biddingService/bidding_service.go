package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"live-shopping/internal/biddingerrors"
	"live-shopping/internal/clock"
	"live-shopping/internal/keylock"
	"live-shopping/internal/models"
	"live-shopping/internal/repository"
	"live-shopping/utils"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBidListLimit is used by ListBids when no positive limit is given
const DefaultBidListLimit = 50

// Settings tunes bid admission
type Settings struct {
	// AntiSnipeWindow: a bid admitted with less than this left on the clock
	// pushes ends_at out to now + AntiSnipeExtension.
	AntiSnipeWindow    time.Duration
	AntiSnipeExtension time.Duration
	// MaxAttempts bounds the read-check-write loop before ErrContention.
	MaxAttempts int
}

// DefaultSettings returns the standard 10s anti-snipe window and extension
// with 5 attempts
func DefaultSettings() Settings {
	return Settings{
		AntiSnipeWindow:    10 * time.Second,
		AntiSnipeExtension: 10 * time.Second,
		MaxAttempts:        5,
	}
}

// ExpiryResolver persists the ended state of auctions past their end time
type ExpiryResolver interface {
	ResolveExpiry(ctx context.Context, auction models.Auction) (models.Auction, error)
}

// BiddingService admits bids against live auctions
type BiddingService struct {
	auctions repository.AuctionStore
	ledger   repository.BidLedger
	expiry   ExpiryResolver
	clock    clock.Clock
	locks    *keylock.KeyLock
	tracer   trace.Tracer
	settings Settings
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(auctions repository.AuctionStore, ledger repository.BidLedger, expiry ExpiryResolver, clk clock.Clock, tp trace.TracerProvider, settings Settings) *BiddingService {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = DefaultSettings().MaxAttempts
	}
	return &BiddingService{
		auctions: auctions,
		ledger:   ledger,
		expiry:   expiry,
		clock:    clk,
		locks:    keylock.New(),
		tracer:   tp.Tracer("live-shopping/internal/biddingService"),
		settings: settings,
	}
}

// PlaceBid validates and records a user's bid on an auction. Exactly one of
// any set of concurrent bids read against the same price is admitted; the
// others re-read and are re-checked against the new price.
func (s *BiddingService) PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (models.Bid, error) {
	if err := validateBid(auctionID, userID, amount); err != nil {
		return models.Bid{}, err
	}

	ctx, span := s.tracer.Start(ctx, "BiddingService.PlaceBid",
		trace.WithAttributes(
			attribute.String("auction_id", auctionID),
			attribute.String("user_id", userID),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	unlock, err := s.locks.Lock(ctx, auctionID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return models.Bid{}, fmt.Errorf("service: bid on auction %s abandoned while waiting: %w", auctionID, err)
	}
	defer unlock()

	for attempt := 1; attempt <= s.settings.MaxAttempts; attempt++ {
		bid, err := s.tryPlaceBid(ctx, auctionID, userID, amount)
		if err == nil {
			span.SetAttributes(attribute.String("bid_id", bid.ID), attribute.Int("attempts", attempt))
			return bid, nil
		}
		if !errors.Is(err, biddingerrors.ErrConflict) {
			span.SetStatus(codes.Error, err.Error())
			return models.Bid{}, err
		}

		utils.Debug("bidding: auction changed during bid, retrying", map[string]any{
			"auction_id": auctionID,
			"user_id":    userID,
			"attempt":    attempt,
		})
	}

	utils.Warn("bidding: giving up on contended auction", map[string]any{
		"auction_id": auctionID,
		"user_id":    userID,
		"attempts":   s.settings.MaxAttempts,
	})
	span.SetStatus(codes.Error, "contention")
	return models.Bid{}, fmt.Errorf("service: bid on auction %s after %d attempts: %w", auctionID, s.settings.MaxAttempts, biddingerrors.ErrContention)
}

// tryPlaceBid runs one read-check-write pass. ErrConflict means the auction
// moved underneath and the pass may be repeated.
func (s *BiddingService) tryPlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (models.Bid, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to read auction %s: %w", auctionID, err)
	}

	auction, err = s.expiry.ResolveExpiry(ctx, auction)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to resolve expiry of auction %s: %w", auctionID, err)
	}
	if auction.Status != models.AuctionLive {
		return models.Bid{}, fmt.Errorf("service: %w - auction %s is %s", biddingerrors.ErrAuctionNotLive, auctionID, auction.Status)
	}

	minimum := auction.MinimumBid()
	if amount.LessThanOrEqual(minimum) {
		return models.Bid{}, fmt.Errorf("service: %w - bid must exceed %s", biddingerrors.ErrBidTooLow, minimum.String())
	}

	now := s.clock.Now()
	bid := models.Bid{
		ID:        utils.GenerateID(),
		ShowID:    auction.ShowID,
		ItemID:    auction.ItemID,
		AuctionID: auction.ID,
		UserID:    userID,
		Amount:    amount,
		CreatedAt: now,
	}

	patch := repository.AuctionPatch{
		CurrentPrice: &amount,
		HighestBidID: &bid.ID,
	}
	if endsAt, extended := s.antiSnipe(auction, now); extended {
		patch.EndsAt = &endsAt
	}

	if err := ctx.Err(); err != nil {
		return models.Bid{}, fmt.Errorf("service: bid on auction %s abandoned: %w", auctionID, err)
	}

	if _, err := s.auctions.CompareAndUpdateAuction(ctx, auctionID,
		repository.AuctionPrecondition{Status: models.AuctionLive, CurrentPrice: &auction.CurrentPrice},
		patch,
	); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to update auction %s: %w", auctionID, err)
	}

	if err := s.ledger.AppendBid(ctx, bid); err != nil {
		s.compensate(ctx, auction, bid)
		return models.Bid{}, fmt.Errorf("service: failed to record bid on auction %s: %w", auctionID, err)
	}

	fields := map[string]any{
		"auction_id": auctionID,
		"bid_id":     bid.ID,
		"user_id":    userID,
		"amount":     amount.String(),
	}
	if patch.EndsAt != nil {
		fields["ends_at"] = *patch.EndsAt
	}
	utils.Info("bidding: bid admitted", fields)

	return bid, nil
}

// antiSnipe returns the extended end time when the bid lands inside the
// anti-snipe window
func (s *BiddingService) antiSnipe(auction models.Auction, now time.Time) (time.Time, bool) {
	if auction.EndsAt == nil || s.settings.AntiSnipeWindow <= 0 {
		return time.Time{}, false
	}
	if auction.EndsAt.Sub(now) >= s.settings.AntiSnipeWindow {
		return time.Time{}, false
	}
	extended := now.Add(s.settings.AntiSnipeExtension)
	if !extended.After(*auction.EndsAt) {
		return time.Time{}, false
	}
	return extended, true
}

// compensate restores the auction as it was read before the bid, provided
// nothing has been written on top of it since
func (s *BiddingService) compensate(ctx context.Context, previous models.Auction, bid models.Bid) {
	patch := repository.AuctionPatch{
		CurrentPrice: &previous.CurrentPrice,
		EndsAt:       previous.EndsAt,
	}
	if previous.HighestBidID == nil {
		patch.ClearHighestBid = true
	} else {
		patch.HighestBidID = previous.HighestBidID
	}

	_, err := s.auctions.CompareAndUpdateAuction(context.WithoutCancel(ctx), previous.ID,
		repository.AuctionPrecondition{CurrentPrice: &bid.Amount, HighestBidID: &bid.ID},
		patch,
	)
	if err != nil {
		utils.Error("bidding: failed to roll back auction after ledger failure", map[string]any{
			"auction_id": previous.ID,
			"bid_id":     bid.ID,
			"error":      err.Error(),
		})
	}
}

// validateBid checks input validity
func validateBid(auctionID, userID string, amount decimal.Decimal) error {
	if auctionID == "" || userID == "" {
		return fmt.Errorf("service: %w - missing auctionID or userID", biddingerrors.ErrValidation)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("service: %w - non-positive bid amount", biddingerrors.ErrValidation)
	}
	return nil
}

// ListBids returns an auction's highest bids first
func (s *BiddingService) ListBids(ctx context.Context, auctionID string, limit int) ([]models.Bid, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("service: %w - empty auction ID", biddingerrors.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultBidListLimit
	}

	if _, err := s.auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("service: failed to get auction %s: %w", auctionID, err)
	}

	bids, err := s.ledger.ListBidsByAuction(ctx, auctionID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for auction %s: %w", auctionID, err)
	}

	return bids, nil
}

// ListShowBids returns the highest bids across every auction of a show
func (s *BiddingService) ListShowBids(ctx context.Context, showID string, limit int) ([]models.Bid, error) {
	if showID == "" {
		return nil, fmt.Errorf("service: %w - empty show ID", biddingerrors.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultBidListLimit
	}

	bids, err := s.ledger.ListBidsByShow(ctx, showID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for show %s: %w", showID, err)
	}

	return bids, nil
}
