package catalog

import (
	"context"
	"fmt"
	"strings"

	"live-shopping/internal/biddingerrors"
	"live-shopping/internal/clock"
	"live-shopping/internal/models"
	"live-shopping/internal/repository"
	"live-shopping/utils"
)

// List defaults when the caller gives no positive limit
const (
	DefaultShowListLimit    = 20
	DefaultItemListLimit    = 50
	DefaultMessageListLimit = 50
)

// CatalogService manages shows, their items and their chat
type CatalogService struct {
	store repository.CatalogStore
	clock clock.Clock
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(store repository.CatalogStore, clk clock.Clock) *CatalogService {
	return &CatalogService{store: store, clock: clk}
}

// CreateShow validates and stores a new show
func (s *CatalogService) CreateShow(ctx context.Context, show models.Show) (models.Show, error) {
	show.ID = utils.GenerateID()
	show.CreatedAt = s.clock.Now()
	if err := show.Validate(); err != nil {
		return models.Show{}, fmt.Errorf("service: %w", err)
	}

	created, err := s.store.CreateShow(ctx, show)
	if err != nil {
		return models.Show{}, fmt.Errorf("service: failed to create show: %w", err)
	}
	return created, nil
}

// GetShow returns a show by id
func (s *CatalogService) GetShow(ctx context.Context, showID string) (models.Show, error) {
	if showID == "" {
		return models.Show{}, fmt.Errorf("service: %w - empty show ID", biddingerrors.ErrValidation)
	}

	show, err := s.store.GetShow(ctx, showID)
	if err != nil {
		return models.Show{}, fmt.Errorf("service: failed to get show %s: %w", showID, err)
	}
	return show, nil
}

// ListShows returns shows in creation order, optionally only those with status
func (s *CatalogService) ListShows(ctx context.Context, status models.ShowStatus, limit int) ([]models.Show, error) {
	switch status {
	case "", models.ShowScheduled, models.ShowLive, models.ShowEnded:
	default:
		return nil, fmt.Errorf("service: %w - unknown show status %q", biddingerrors.ErrValidation, status)
	}
	if limit <= 0 {
		limit = DefaultShowListLimit
	}

	shows, err := s.store.ListShows(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list shows: %w", err)
	}
	return shows, nil
}

// CreateItem validates and stores an item under an existing show
func (s *CatalogService) CreateItem(ctx context.Context, item models.Item) (models.Item, error) {
	item.ID = utils.GenerateID()
	item.CreatedAt = s.clock.Now()
	if err := item.Validate(); err != nil {
		return models.Item{}, fmt.Errorf("service: %w", err)
	}

	if _, err := s.store.GetShow(ctx, item.ShowID); err != nil {
		return models.Item{}, fmt.Errorf("service: failed to look up show %s: %w", item.ShowID, err)
	}

	created, err := s.store.CreateItem(ctx, item)
	if err != nil {
		return models.Item{}, fmt.Errorf("service: failed to create item: %w", err)
	}
	return created, nil
}

// ListItems returns a show's items in creation order
func (s *CatalogService) ListItems(ctx context.Context, showID string, limit int) ([]models.Item, error) {
	if showID == "" {
		return nil, fmt.Errorf("service: %w - empty show ID", biddingerrors.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultItemListLimit
	}

	items, err := s.store.ListItemsByShow(ctx, showID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list items of show %s: %w", showID, err)
	}
	return items, nil
}

// PostMessage adds a chat line to an existing show. userID is nil for
// anonymous viewers.
func (s *CatalogService) PostMessage(ctx context.Context, showID string, userID *string, text string) (models.Message, error) {
	if userID != nil && strings.TrimSpace(*userID) == "" {
		userID = nil
	}
	msg := models.Message{
		ID:        utils.GenerateID(),
		ShowID:    showID,
		UserID:    userID,
		Text:      strings.TrimSpace(text),
		Type:      models.MessageText,
		CreatedAt: s.clock.Now(),
	}
	if err := msg.Validate(); err != nil {
		return models.Message{}, fmt.Errorf("service: %w", err)
	}

	if _, err := s.store.GetShow(ctx, showID); err != nil {
		return models.Message{}, fmt.Errorf("service: failed to look up show %s: %w", showID, err)
	}

	created, err := s.store.CreateMessage(ctx, msg)
	if err != nil {
		return models.Message{}, fmt.Errorf("service: failed to post message to show %s: %w", showID, err)
	}
	return created, nil
}

// ListMessages returns the latest messages of a show, oldest first
func (s *CatalogService) ListMessages(ctx context.Context, showID string, limit int) ([]models.Message, error) {
	if showID == "" {
		return nil, fmt.Errorf("service: %w - empty show ID", biddingerrors.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultMessageListLimit
	}

	messages, err := s.store.ListMessagesByShow(ctx, showID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list messages of show %s: %w", showID, err)
	}
	return messages, nil
}
