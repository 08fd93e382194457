package helpers

import (
	"reflect"
	"time"

	model "live-shopping/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// MaxAuctionDurationSeconds is the lte bound on StartAuctionRequest.DurationSeconds
const MaxAuctionDurationSeconds = 24 * 60 * 60

func init() {
	// lets numeric binding tags (gt, gte) apply to decimal fields
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
	}
}

// Request/Response DTOs. Money arrives as a JSON number or string and is
// decoded straight into a decimal.
type StartAuctionRequest struct {
	ItemID          string           `json:"item_id" binding:"required,uuid"`
	StartingPrice   *decimal.Decimal `json:"starting_price" binding:"required,gte=0"`
	DurationSeconds *int             `json:"duration_seconds" binding:"omitempty,gt=0,lte=86400"`
}

type PlaceBidRequest struct {
	UserID string          `json:"user_id" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required,gt=0"`
}

type AuctionResponse struct {
	ID            string  `json:"id"`
	ShowID        string  `json:"show_id"`
	ItemID        string  `json:"item_id"`
	Status        string  `json:"status"`
	StartingPrice float64 `json:"starting_price"`
	CurrentPrice  float64 `json:"current_price"`
	EndsAt        *string `json:"ends_at"`
	HighestBidID  *string `json:"highest_bid_id"`
	CreatedAt     string  `json:"created_at"`
}

type BidResponse struct {
	ID        string  `json:"id"`
	ShowID    string  `json:"show_id"`
	ItemID    string  `json:"item_id"`
	AuctionID string  `json:"auction_id"`
	UserID    string  `json:"user_id"`
	Amount    float64 `json:"amount"`
	CreatedAt string  `json:"created_at"`
}

// NewAuctionResponse converts an auction to its wire form
func NewAuctionResponse(a model.Auction) AuctionResponse {
	resp := AuctionResponse{
		ID:            a.ID,
		ShowID:        a.ShowID,
		ItemID:        a.ItemID,
		Status:        string(a.Status),
		StartingPrice: a.StartingPrice.InexactFloat64(),
		CurrentPrice:  a.CurrentPrice.InexactFloat64(),
		HighestBidID:  a.HighestBidID,
		CreatedAt:     formatTime(a.CreatedAt),
	}
	if a.EndsAt != nil {
		endsAt := formatTime(*a.EndsAt)
		resp.EndsAt = &endsAt
	}
	return resp
}

// NewBidResponse converts a bid to its wire form
func NewBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		ID:        b.ID,
		ShowID:    b.ShowID,
		ItemID:    b.ItemID,
		AuctionID: b.AuctionID,
		UserID:    b.UserID,
		Amount:    b.Amount.InexactFloat64(),
		CreatedAt: formatTime(b.CreatedAt),
	}
}

// NewBidResponses converts bids, never returning nil
func NewBidResponses(bids []model.Bid) []BidResponse {
	resp := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, NewBidResponse(b))
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
