package handler

import (
	"context"
	"net/http"
	"time"

	model "live-shopping/internal/models"
	"live-shopping/services/bidding/helpers"
	"live-shopping/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const defaultBidListLimit = 50

type AuctionServiceInterface interface {
	StartAuction(ctx context.Context, showID, itemID string, startingPrice decimal.Decimal, duration time.Duration) (model.Auction, error)
	GetCurrentLive(ctx context.Context, showID string) (model.Auction, bool, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	CloseAuction(ctx context.Context, auctionID string) (model.Auction, error)
}

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, auctionID, userID string, amount decimal.Decimal) (model.Bid, error)
	ListBids(ctx context.Context, auctionID string, limit int) ([]model.Bid, error)
	ListShowBids(ctx context.Context, showID string, limit int) ([]model.Bid, error)
}

type BiddingHandler struct {
	auctions        AuctionServiceInterface
	bids            BiddingServiceInterface
	defaultDuration time.Duration
}

func NewBiddingHandler(auctions AuctionServiceInterface, bids BiddingServiceInterface, defaultDuration time.Duration) *BiddingHandler {
	return &BiddingHandler{auctions: auctions, bids: bids, defaultDuration: defaultDuration}
}

// StartAuctionHandler handles POST /shows/:id/auctions/start
func (h *BiddingHandler) StartAuctionHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "StartAuctionHandler", err, nil)
		return
	}

	var req helpers.StartAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "StartAuctionHandler", err)
		return
	}

	duration := h.defaultDuration
	if req.DurationSeconds != nil {
		duration = time.Duration(*req.DurationSeconds) * time.Second
	}

	auction, err := h.auctions.StartAuction(c.Request.Context(), showID, req.ItemID, *req.StartingPrice, duration)
	if err != nil {
		helpers.HandleServiceError(c, "StartAuctionHandler", err, map[string]any{
			"show_id": showID,
			"item_id": req.ItemID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction started successfully")
	helpers.LogSuccess("StartAuctionHandler", "auction started successfully", map[string]any{
		"auction_id":     auction.ID,
		"show_id":        showID,
		"item_id":        auction.ItemID,
		"starting_price": auction.StartingPrice.String(),
		"ends_at":        auction.EndsAt,
	})
}

// GetCurrentAuctionHandler handles GET /shows/:id/auctions/current
func (h *BiddingHandler) GetCurrentAuctionHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "GetCurrentAuctionHandler", err, nil)
		return
	}

	auction, found, err := h.auctions.GetCurrentLive(c.Request.Context(), showID)
	if err != nil {
		helpers.HandleServiceError(c, "GetCurrentAuctionHandler", err, map[string]any{"show_id": showID})
		return
	}

	if !found {
		utils.JSONResponse(c, http.StatusOK, nil, "no live auction")
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "live auction retrieved successfully")
}

// GetAuctionHandler handles GET /auctions/:id
func (h *BiddingHandler) GetAuctionHandler(c *gin.Context) {
	auctionID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, nil)
		return
	}

	auction, err := h.auctions.GetAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "GetAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction retrieved successfully")
}

// CloseAuctionHandler handles POST /auctions/:id/close
func (h *BiddingHandler) CloseAuctionHandler(c *gin.Context) {
	auctionID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "CloseAuctionHandler", err, nil)
		return
	}

	auction, err := h.auctions.CloseAuction(c.Request.Context(), auctionID)
	if err != nil {
		helpers.HandleServiceError(c, "CloseAuctionHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewAuctionResponse(auction), "auction closed successfully")
	helpers.LogSuccess("CloseAuctionHandler", "auction closed successfully", map[string]any{
		"auction_id":     auction.ID,
		"current_price":  auction.CurrentPrice.String(),
		"highest_bid_id": auction.HighestBidID,
	})
}

// PlaceBidHandler handles POST /auctions/:id/bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	auctionID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "PlaceBidHandler", err, nil)
		return
	}

	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	bid, err := h.bids.PlaceBid(c.Request.Context(), auctionID, req.UserID, req.Amount)
	if err != nil {
		helpers.HandleServiceError(c, "PlaceBidHandler", err, map[string]any{
			"auction_id": auctionID,
			"user_id":    req.UserID,
			"amount":     req.Amount.String(),
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.ID,
		"auction_id": bid.AuctionID,
		"user_id":    bid.UserID,
		"amount":     bid.Amount.String(),
	})
}

// ListBidsHandler handles GET /auctions/:id/bids
func (h *BiddingHandler) ListBidsHandler(c *gin.Context) {
	auctionID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "ListBidsHandler", err, nil)
		return
	}
	limit, err := utils.QueryLimit(c, defaultBidListLimit)
	if err != nil {
		helpers.HandleServiceError(c, "ListBidsHandler", err, nil)
		return
	}

	bids, err := h.bids.ListBids(c.Request.Context(), auctionID, limit)
	if err != nil {
		helpers.HandleServiceError(c, "ListBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("ListBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// ListShowBidsHandler handles GET /shows/:id/bids
func (h *BiddingHandler) ListShowBidsHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "ListShowBidsHandler", err, nil)
		return
	}
	limit, err := utils.QueryLimit(c, defaultBidListLimit)
	if err != nil {
		helpers.HandleServiceError(c, "ListShowBidsHandler", err, nil)
		return
	}

	bids, err := h.bids.ListShowBids(c.Request.Context(), showID, limit)
	if err != nil {
		helpers.HandleServiceError(c, "ListShowBidsHandler", err, map[string]any{"show_id": showID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
}
