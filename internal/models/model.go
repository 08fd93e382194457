package models

import (
	"fmt"
	"time"

	"live-shopping/internal/biddingerrors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

// ShowStatus is the broadcast state of a show
type ShowStatus string

const (
	ShowScheduled ShowStatus = "scheduled"
	ShowLive      ShowStatus = "live"
	ShowEnded     ShowStatus = "ended"
)

// ItemStatus is the sale state of an item
type ItemStatus string

const (
	ItemDraft ItemStatus = "draft"
	ItemReady ItemStatus = "ready"
	ItemSold  ItemStatus = "sold"
)

// AuctionStatus is the lifecycle state of an auction
type AuctionStatus string

const (
	AuctionNotStarted AuctionStatus = "not_started"
	AuctionLive       AuctionStatus = "live"
	AuctionEnded      AuctionStatus = "ended"
)

// MessageType distinguishes viewer chat from system notices
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageSystem MessageType = "system"
)

// Show represents a live show hosted by a seller
type Show struct {
	ID          string     `json:"id" db:"id"`
	Title       string     `json:"title" db:"title" validate:"required"`
	Description string     `json:"description" db:"description"`
	Category    string     `json:"category" db:"category"`
	Status      ShowStatus `json:"status" db:"status" validate:"oneof=scheduled live ended"`
	StartTime   *time.Time `json:"start_time,omitempty" db:"start_time"`
	HostID      string     `json:"host_id" db:"host_id"`
	CoverImage  string     `json:"cover_image" db:"cover_image"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// Validate applies defaults and checks field constraints.
func (s *Show) Validate() error {
	if s.Status == "" {
		s.Status = ShowScheduled
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("show: %w - %v", biddingerrors.ErrValidation, err)
	}
	return nil
}

// Item represents an item to be auctioned in a show
type Item struct {
	ID          string          `json:"id" db:"id"`
	ShowID      string          `json:"show_id" db:"show_id" validate:"required"`
	Title       string          `json:"title" db:"title" validate:"required"`
	Description string          `json:"description" db:"description"`
	StartPrice  decimal.Decimal `json:"start_price" db:"start_price"`
	ImageURL    string          `json:"image_url" db:"image_url"`
	Status      ItemStatus      `json:"status" db:"status" validate:"oneof=draft ready sold"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// Validate applies defaults and checks field constraints.
func (i *Item) Validate() error {
	if i.Status == "" {
		i.Status = ItemReady
	}
	if err := validate.Struct(i); err != nil {
		return fmt.Errorf("item: %w - %v", biddingerrors.ErrValidation, err)
	}
	if i.StartPrice.IsNegative() {
		return fmt.Errorf("item: %w - negative start price", biddingerrors.ErrValidation)
	}
	return nil
}

// Message is a chat line posted to a show
type Message struct {
	ID        string      `json:"id" db:"id"`
	ShowID    string      `json:"show_id" db:"show_id" validate:"required"`
	UserID    *string     `json:"user_id" db:"user_id"`
	Text      string      `json:"text" db:"text" validate:"required"`
	Type      MessageType `json:"type" db:"type" validate:"oneof=text system"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

// Validate applies defaults and checks field constraints.
func (m *Message) Validate() error {
	if m.Type == "" {
		m.Type = MessageText
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("message: %w - %v", biddingerrors.ErrValidation, err)
	}
	return nil
}

// Auction is one timed sale of one item within one show.
//
// CurrentPrice never drops below StartingPrice, and HighestBidID is set
// exactly when a bid has been admitted.
type Auction struct {
	ID            string          `json:"id" db:"id"`
	ShowID        string          `json:"show_id" db:"show_id"`
	ItemID        string          `json:"item_id" db:"item_id"`
	Status        AuctionStatus   `json:"status" db:"status"`
	StartingPrice decimal.Decimal `json:"starting_price" db:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price" db:"current_price"`
	EndsAt        *time.Time      `json:"ends_at,omitempty" db:"ends_at"`
	HighestBidID  *string         `json:"highest_bid_id" db:"highest_bid_id"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// NewAuction builds a live auction ending duration after now.
func NewAuction(id, showID, itemID string, startingPrice decimal.Decimal, duration time.Duration, now time.Time) (Auction, error) {
	if showID == "" || itemID == "" {
		return Auction{}, fmt.Errorf("auction: %w - missing showID or itemID", biddingerrors.ErrValidation)
	}
	if startingPrice.IsNegative() {
		return Auction{}, fmt.Errorf("auction: %w - negative starting price", biddingerrors.ErrValidation)
	}
	if duration <= 0 {
		return Auction{}, fmt.Errorf("auction: %w - non-positive duration", biddingerrors.ErrValidation)
	}

	endsAt := now.Add(duration)
	return Auction{
		ID:            id,
		ShowID:        showID,
		ItemID:        itemID,
		Status:        AuctionLive,
		StartingPrice: startingPrice,
		CurrentPrice:  startingPrice,
		EndsAt:        &endsAt,
		CreatedAt:     now,
	}, nil
}

// MinimumBid is the amount a new bid has to exceed.
func (a Auction) MinimumBid() decimal.Decimal {
	return decimal.Max(a.StartingPrice, a.CurrentPrice)
}

// IsExpired reports whether a live auction's end time has passed.
func (a Auction) IsExpired(now time.Time) bool {
	return a.Status == AuctionLive && a.EndsAt != nil && !now.Before(*a.EndsAt)
}

// ResolveExpiry returns the auction as it should be observed at now: a live
// auction past its end time is ended. The bool reports whether it changed.
func ResolveExpiry(a Auction, now time.Time) (Auction, bool) {
	if !a.IsExpired(now) {
		return a, false
	}
	a.Status = AuctionEnded
	return a, true
}

// Bid represents an admitted offer on an auction. Bids are never mutated.
type Bid struct {
	ID        string          `json:"id" db:"id"`
	ShowID    string          `json:"show_id" db:"show_id"`
	ItemID    string          `json:"item_id" db:"item_id"`
	AuctionID string          `json:"auction_id" db:"auction_id"`
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// BidOrder reports whether bid a ranks ahead of bid b: higher amount first,
// then earlier creation, then id.
func BidOrder(a, b Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
