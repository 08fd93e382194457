package postgres

import (
	"context"
	"fmt"

	"live-shopping/internal/biddingerrors"
	model "live-shopping/internal/models"
)

const bidColumns = `id, show_id, item_id, auction_id, user_id, amount, created_at`

// AppendBid writes a bid to the ledger. Bids are never updated or deleted.
func (s *Store) AppendBid(ctx context.Context, bid model.Bid) error {
	if bid.AuctionID == "" {
		return fmt.Errorf("appending bid %s: %w - missing auctionID", bid.ID, biddingerrors.ErrValidation)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		bid.ID, bid.ShowID, bid.ItemID, bid.AuctionID, bid.UserID, bid.Amount, dbTime(bid.CreatedAt),
	)
	if err != nil {
		return storeErr("appending bid "+bid.ID, err, nil)
	}
	return nil
}

func (s *Store) ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]model.Bid, error) {
	return s.listBids(ctx, "auction_id", auctionID, limit)
}

func (s *Store) ListBidsByShow(ctx context.Context, showID string, limit int) ([]model.Bid, error) {
	return s.listBids(ctx, "show_id", showID, limit)
}

func (s *Store) listBids(ctx context.Context, column, value string, limit int) ([]model.Bid, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	bids := []model.Bid{}
	err := s.db.SelectContext(ctx, &bids,
		`SELECT `+bidColumns+` FROM bids WHERE `+column+` = $1
		 ORDER BY amount DESC, created_at ASC, id ASC
		 LIMIT $2`,
		value, limitOrAll(limit),
	)
	if err != nil {
		return nil, storeErr("listing bids by "+column, err, nil)
	}
	return bids, nil
}

// limitOrAll maps a non-positive limit to NULL, which Postgres reads as no limit.
func limitOrAll(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}
