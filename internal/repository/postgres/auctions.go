package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"live-shopping/internal/biddingerrors"
	model "live-shopping/internal/models"
	"live-shopping/internal/repository"
)

var (
	_ repository.AuctionStore = (*Store)(nil)
	_ repository.BidLedger    = (*Store)(nil)
	_ repository.CatalogStore = (*Store)(nil)
	_ repository.Pinger       = (*Store)(nil)
)

const auctionColumns = `id, show_id, item_id, status, starting_price, current_price, ends_at, highest_bid_id, created_at`

// CreateAuction inserts an auction. The partial unique index on live
// auctions turns a concurrent second live auction into ErrLiveAuctionExists.
func (s *Store) CreateAuction(ctx context.Context, a model.Auction) (model.Auction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	a.EndsAt = dbTimePtr(a.EndsAt)
	a.CreatedAt = dbTime(a.CreatedAt)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO auctions (`+auctionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.ShowID, a.ItemID, a.Status, a.StartingPrice, a.CurrentPrice, a.EndsAt, a.HighestBidID, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return model.Auction{}, fmt.Errorf("creating auction for show %s: %w", a.ShowID, biddingerrors.ErrLiveAuctionExists)
	}
	if err != nil {
		return model.Auction{}, storeErr("creating auction", err, nil)
	}
	return a, nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a model.Auction
	err := s.db.GetContext(ctx, &a, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1`, auctionID)
	if err != nil {
		return model.Auction{}, storeErr("getting auction "+auctionID, err, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// CompareAndUpdateAuction runs a single guarded UPDATE. When no row comes
// back the auction is re-read to tell a missing record from a stale one.
func (s *Store) CompareAndUpdateAuction(ctx context.Context, auctionID string, expect repository.AuctionPrecondition, patch repository.AuctionPatch) (model.Auction, error) {
	query, args := buildCompareAndUpdate(auctionID, expect, patch)

	qctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a model.Auction
	err := s.db.GetContext(qctx, &a, query, args...)
	if err == nil {
		return a, nil
	}

	_, getErr := s.GetAuction(ctx, auctionID)
	if getErr != nil {
		return model.Auction{}, fmt.Errorf("updating auction %s: %w", auctionID, getErr)
	}
	if isNoRows(err) {
		return model.Auction{}, fmt.Errorf("updating auction %s: %w", auctionID, biddingerrors.ErrConflict)
	}
	return model.Auction{}, storeErr("updating auction "+auctionID, err, nil)
}

func (s *Store) FindLiveByShow(ctx context.Context, showID string) (model.Auction, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a model.Auction
	err := s.db.GetContext(ctx, &a,
		`SELECT `+auctionColumns+` FROM auctions WHERE show_id = $1 AND status = $2 LIMIT 1`,
		showID, model.AuctionLive,
	)
	if isNoRows(err) {
		return model.Auction{}, false, nil
	}
	if err != nil {
		return model.Auction{}, false, storeErr("finding live auction for show "+showID, err, nil)
	}
	return a, true, nil
}

func (s *Store) EndAllLive(ctx context.Context, showID string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`UPDATE auctions SET status = $1 WHERE show_id = $2 AND status = $3`,
		model.AuctionEnded, showID, model.AuctionLive,
	)
	if err != nil {
		return 0, storeErr("ending live auctions for show "+showID, err, nil)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, storeErr("ending live auctions for show "+showID, err, nil)
	}
	return int(n), nil
}

func (s *Store) ListExpiredLive(ctx context.Context, now time.Time) ([]model.Auction, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	auctions := []model.Auction{}
	err := s.db.SelectContext(ctx, &auctions,
		`SELECT `+auctionColumns+` FROM auctions
		 WHERE status = $1 AND ends_at <= $2 ORDER BY id`,
		model.AuctionLive, dbTime(now),
	)
	if err != nil {
		return nil, storeErr("listing expired auctions", err, nil)
	}
	return auctions, nil
}

func buildCompareAndUpdate(auctionID string, expect repository.AuctionPrecondition, patch repository.AuctionPatch) (string, []any) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var sets []string
	if patch.Status != nil {
		sets = append(sets, "status = "+arg(*patch.Status))
	}
	if patch.CurrentPrice != nil {
		sets = append(sets, "current_price = "+arg(*patch.CurrentPrice))
	}
	if patch.ClearHighestBid {
		sets = append(sets, "highest_bid_id = NULL")
	} else if patch.HighestBidID != nil {
		sets = append(sets, "highest_bid_id = "+arg(*patch.HighestBidID))
	}
	if patch.EndsAt != nil {
		sets = append(sets, "ends_at = "+arg(dbTime(*patch.EndsAt)))
	}
	if len(sets) == 0 {
		// no-op write that still honours the precondition
		sets = append(sets, "status = status")
	}

	where := []string{"id = " + arg(auctionID)}
	if expect.Status != "" {
		where = append(where, "status = "+arg(expect.Status))
	}
	if expect.CurrentPrice != nil {
		where = append(where, "current_price = "+arg(*expect.CurrentPrice))
	}
	if expect.EndsAt != nil {
		where = append(where, "ends_at = "+arg(dbTime(*expect.EndsAt)))
	}
	if expect.HighestBidID != nil {
		where = append(where, "highest_bid_id = "+arg(*expect.HighestBidID))
	}

	query := `UPDATE auctions SET ` + strings.Join(sets, ", ") +
		` WHERE ` + strings.Join(where, " AND ") +
		` RETURNING ` + auctionColumns
	return query, args
}
