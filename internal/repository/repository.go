package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"live-shopping/internal/biddingerrors"
	model "live-shopping/internal/models"

	"github.com/shopspring/decimal"
)

// AuctionPrecondition is what a compare-and-update expects the stored auction
// to still look like. Nil / empty fields are not checked.
type AuctionPrecondition struct {
	Status       model.AuctionStatus
	CurrentPrice *decimal.Decimal
	EndsAt       *time.Time
	HighestBidID *string
}

// AuctionPatch lists the fields a compare-and-update writes. Nil fields are
// left untouched; ClearHighestBid resets HighestBidID to nil.
type AuctionPatch struct {
	Status          *model.AuctionStatus
	CurrentPrice    *decimal.Decimal
	HighestBidID    *string
	ClearHighestBid bool
	EndsAt          *time.Time
}

// AuctionStore is the durable keyed state of auctions
type AuctionStore interface {
	CreateAuction(ctx context.Context, a model.Auction) (model.Auction, error)
	GetAuction(ctx context.Context, auctionID string) (model.Auction, error)
	CompareAndUpdateAuction(ctx context.Context, auctionID string, expect AuctionPrecondition, patch AuctionPatch) (model.Auction, error)
	FindLiveByShow(ctx context.Context, showID string) (model.Auction, bool, error)
	EndAllLive(ctx context.Context, showID string) (int, error)
	ListExpiredLive(ctx context.Context, now time.Time) ([]model.Auction, error)
}

// BidLedger is the append-only record of admitted bids
type BidLedger interface {
	AppendBid(ctx context.Context, bid model.Bid) error
	ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]model.Bid, error)
	ListBidsByShow(ctx context.Context, showID string, limit int) ([]model.Bid, error)
}

// CatalogStore holds shows, items and chat messages
type CatalogStore interface {
	CreateShow(ctx context.Context, s model.Show) (model.Show, error)
	GetShow(ctx context.Context, showID string) (model.Show, error)
	ListShows(ctx context.Context, status model.ShowStatus, limit int) ([]model.Show, error)
	CreateItem(ctx context.Context, i model.Item) (model.Item, error)
	ListItemsByShow(ctx context.Context, showID string, limit int) ([]model.Item, error)
	CreateMessage(ctx context.Context, m model.Message) (model.Message, error)
	ListMessagesByShow(ctx context.Context, showID string, limit int) ([]model.Message, error)
}

// Pinger reports whether the backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionStore,
// BidLedger and CatalogStore
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]model.Auction // key: auctionID -> value: auction
	bids     map[string][]model.Bid   // key: auctionID -> value: bids in append order
	shows    map[string]model.Show    // key: showID -> value: show
	showSeq  []string                 // showIDs in creation order
	items    map[string][]model.Item  // key: showID -> value: items
	messages map[string][]model.Message
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]model.Auction),
		bids:     make(map[string][]model.Bid),
		shows:    make(map[string]model.Show),
		items:    make(map[string][]model.Item),
		messages: make(map[string][]model.Message),
	}
}

// Ping always succeeds for the in-memory store
func (r *MemoryRepo) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateAuction stores a new auction. A live auction is refused while its
// show still has another live one.
func (r *MemoryRepo) CreateAuction(ctx context.Context, a model.Auction) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.auctions[a.ID]; exists {
		return model.Auction{}, fmt.Errorf("create auction %s: %w: duplicate id", a.ID, biddingerrors.ErrConflict)
	}
	if a.Status == model.AuctionLive {
		for _, other := range r.auctions {
			if other.ShowID == a.ShowID && other.Status == model.AuctionLive {
				return model.Auction{}, fmt.Errorf("create auction for show %s: %w", a.ShowID, biddingerrors.ErrLiveAuctionExists)
			}
		}
	}

	r.auctions[a.ID] = a
	return a, nil
}

// GetAuction returns an auction by id
func (r *MemoryRepo) GetAuction(ctx context.Context, auctionID string) (model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// CompareAndUpdateAuction applies patch only if the stored auction still
// matches expect, otherwise it returns ErrConflict
func (r *MemoryRepo) CompareAndUpdateAuction(ctx context.Context, auctionID string, expect AuctionPrecondition, patch AuctionPatch) (model.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, biddingerrors.ErrAuctionNotFound)
	}
	if !matches(a, expect) {
		return model.Auction{}, fmt.Errorf("update auction %s: %w", auctionID, biddingerrors.ErrConflict)
	}

	r.auctions[auctionID] = applyPatch(a, patch)
	return r.auctions[auctionID], nil
}

// FindLiveByShow returns the show's live auction, if any
func (r *MemoryRepo) FindLiveByShow(ctx context.Context, showID string) (model.Auction, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.auctions {
		if a.ShowID == showID && a.Status == model.AuctionLive {
			return a, true, nil
		}
	}
	return model.Auction{}, false, nil
}

// EndAllLive ends every live auction of a show and returns how many changed
func (r *MemoryRepo) EndAllLive(ctx context.Context, showID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ended := 0
	for id, a := range r.auctions {
		if a.ShowID == showID && a.Status == model.AuctionLive {
			a.Status = model.AuctionEnded
			r.auctions[id] = a
			ended++
		}
	}
	return ended, nil
}

// ListExpiredLive returns live auctions whose end time is at or before now
func (r *MemoryRepo) ListExpiredLive(ctx context.Context, now time.Time) ([]model.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var expired []model.Auction
	for _, a := range r.auctions {
		if a.IsExpired(now) {
			expired = append(expired, a)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ID < expired[j].ID })
	return expired, nil
}

// AppendBid records an admitted bid
func (r *MemoryRepo) AppendBid(ctx context.Context, bid model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if bid.AuctionID == "" {
		return fmt.Errorf("append bid %s: %w - missing auctionID", bid.ID, biddingerrors.ErrValidation)
	}
	r.bids[bid.AuctionID] = append(r.bids[bid.AuctionID], bid)
	return nil
}

// ListBidsByAuction returns the top bids of an auction, highest amount first
// and earliest first among equal amounts
func (r *MemoryRepo) ListBidsByAuction(ctx context.Context, auctionID string, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	bids := append([]model.Bid(nil), r.bids[auctionID]...)
	r.mu.RUnlock()

	return rankBids(bids, limit), nil
}

// ListBidsByShow returns the top bids across all auctions of a show
func (r *MemoryRepo) ListBidsByShow(ctx context.Context, showID string, limit int) ([]model.Bid, error) {
	r.mu.RLock()
	var bids []model.Bid
	for _, auctionBids := range r.bids {
		for _, b := range auctionBids {
			if b.ShowID == showID {
				bids = append(bids, b)
			}
		}
	}
	r.mu.RUnlock()

	return rankBids(bids, limit), nil
}

// CreateShow stores a show
func (r *MemoryRepo) CreateShow(ctx context.Context, s model.Show) (model.Show, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.shows[s.ID]; exists {
		return model.Show{}, fmt.Errorf("create show %s: %w: duplicate id", s.ID, biddingerrors.ErrConflict)
	}
	r.shows[s.ID] = s
	r.showSeq = append(r.showSeq, s.ID)
	return s, nil
}

// GetShow returns a show by id
func (r *MemoryRepo) GetShow(ctx context.Context, showID string) (model.Show, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.shows[showID]
	if !ok {
		return model.Show{}, fmt.Errorf("get show %s: %w", showID, biddingerrors.ErrShowNotFound)
	}
	return s, nil
}

// ListShows returns shows in creation order, optionally filtered by status
func (r *MemoryRepo) ListShows(ctx context.Context, status model.ShowStatus, limit int) ([]model.Show, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shows := []model.Show{}
	for _, id := range r.showSeq {
		s := r.shows[id]
		if status != "" && s.Status != status {
			continue
		}
		shows = append(shows, s)
		if limit > 0 && len(shows) == limit {
			break
		}
	}
	return shows, nil
}

// CreateItem stores an item under its show
func (r *MemoryRepo) CreateItem(ctx context.Context, i model.Item) (model.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[i.ShowID] = append(r.items[i.ShowID], i)
	return i, nil
}

// ListItemsByShow returns a show's items in creation order
func (r *MemoryRepo) ListItemsByShow(ctx context.Context, showID string, limit int) ([]model.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.items[showID]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return append([]model.Item{}, items...), nil
}

// CreateMessage stores a chat message under its show
func (r *MemoryRepo) CreateMessage(ctx context.Context, m model.Message) (model.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[m.ShowID] = append(r.messages[m.ShowID], m)
	return m, nil
}

// ListMessagesByShow returns the most recent messages of a show, oldest first
func (r *MemoryRepo) ListMessagesByShow(ctx context.Context, showID string, limit int) ([]model.Message, error) {
	r.mu.RLock()
	messages := append([]model.Message{}, r.messages[showID]...)
	r.mu.RUnlock()

	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

func matches(a model.Auction, expect AuctionPrecondition) bool {
	if expect.Status != "" && a.Status != expect.Status {
		return false
	}
	if expect.CurrentPrice != nil && !a.CurrentPrice.Equal(*expect.CurrentPrice) {
		return false
	}
	if expect.EndsAt != nil && (a.EndsAt == nil || !a.EndsAt.Equal(*expect.EndsAt)) {
		return false
	}
	if expect.HighestBidID != nil && (a.HighestBidID == nil || *a.HighestBidID != *expect.HighestBidID) {
		return false
	}
	return true
}

func applyPatch(a model.Auction, patch AuctionPatch) model.Auction {
	if patch.Status != nil {
		a.Status = *patch.Status
	}
	if patch.CurrentPrice != nil {
		a.CurrentPrice = *patch.CurrentPrice
	}
	if patch.ClearHighestBid {
		a.HighestBidID = nil
	} else if patch.HighestBidID != nil {
		id := *patch.HighestBidID
		a.HighestBidID = &id
	}
	if patch.EndsAt != nil {
		endsAt := *patch.EndsAt
		a.EndsAt = &endsAt
	}
	return a
}

func rankBids(bids []model.Bid, limit int) []model.Bid {
	if bids == nil {
		bids = []model.Bid{}
	}
	sort.SliceStable(bids, func(i, j int) bool { return model.BidOrder(bids[i], bids[j]) })
	if limit > 0 && len(bids) > limit {
		bids = bids[:limit]
	}
	return bids
}

var (
	_ AuctionStore = (*MemoryRepo)(nil)
	_ BidLedger    = (*MemoryRepo)(nil)
	_ CatalogStore = (*MemoryRepo)(nil)
	_ Pinger       = (*MemoryRepo)(nil)
)
