package helpers

import (
	"time"

	model "live-shopping/internal/models"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type CreateShowRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Status      string     `json:"status" binding:"omitempty,oneof=scheduled live ended"`
	StartTime   *time.Time `json:"start_time"`
	HostID      string     `json:"host_id"`
	CoverImage  string     `json:"cover_image"`
}

type CreateItemRequest struct {
	ShowID      string  `json:"show_id" binding:"required,uuid"`
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	StartPrice  float64 `json:"start_price" binding:"gte=0"`
	ImageURL    string  `json:"image_url"`
	Status      string  `json:"status" binding:"omitempty,oneof=draft ready sold"`
}

type PostMessageRequest struct {
	UserID *string `json:"user_id"`
	Text   string  `json:"text" binding:"required"`
}

type ShowResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Status      string  `json:"status"`
	StartTime   *string `json:"start_time"`
	HostID      string  `json:"host_id"`
	CoverImage  string  `json:"cover_image"`
	CreatedAt   string  `json:"created_at"`
}

type ItemResponse struct {
	ID          string  `json:"id"`
	ShowID      string  `json:"show_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	StartPrice  float64 `json:"start_price"`
	ImageURL    string  `json:"image_url"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
}

type MessageResponse struct {
	ID        string  `json:"id"`
	ShowID    string  `json:"show_id"`
	UserID    *string `json:"user_id"`
	Text      string  `json:"text"`
	Type      string  `json:"type"`
	CreatedAt string  `json:"created_at"`
}

// ToShow converts the request into an unsaved show
func (r CreateShowRequest) ToShow() model.Show {
	return model.Show{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Status:      model.ShowStatus(r.Status),
		StartTime:   r.StartTime,
		HostID:      r.HostID,
		CoverImage:  r.CoverImage,
	}
}

// ToItem converts the request into an unsaved item
func (r CreateItemRequest) ToItem() model.Item {
	return model.Item{
		ShowID:      r.ShowID,
		Title:       r.Title,
		Description: r.Description,
		StartPrice:  decimal.NewFromFloat(r.StartPrice),
		ImageURL:    r.ImageURL,
		Status:      model.ItemStatus(r.Status),
	}
}

func NewShowResponse(s model.Show) ShowResponse {
	resp := ShowResponse{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Category:    s.Category,
		Status:      string(s.Status),
		HostID:      s.HostID,
		CoverImage:  s.CoverImage,
		CreatedAt:   formatTime(s.CreatedAt),
	}
	if s.StartTime != nil {
		start := formatTime(*s.StartTime)
		resp.StartTime = &start
	}
	return resp
}

func NewShowResponses(shows []model.Show) []ShowResponse {
	resp := make([]ShowResponse, 0, len(shows))
	for _, s := range shows {
		resp = append(resp, NewShowResponse(s))
	}
	return resp
}

func NewItemResponse(i model.Item) ItemResponse {
	return ItemResponse{
		ID:          i.ID,
		ShowID:      i.ShowID,
		Title:       i.Title,
		Description: i.Description,
		StartPrice:  i.StartPrice.InexactFloat64(),
		ImageURL:    i.ImageURL,
		Status:      string(i.Status),
		CreatedAt:   formatTime(i.CreatedAt),
	}
}

func NewItemResponses(items []model.Item) []ItemResponse {
	resp := make([]ItemResponse, 0, len(items))
	for _, i := range items {
		resp = append(resp, NewItemResponse(i))
	}
	return resp
}

func NewMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		ShowID:    m.ShowID,
		UserID:    m.UserID,
		Text:      m.Text,
		Type:      string(m.Type),
		CreatedAt: formatTime(m.CreatedAt),
	}
}

func NewMessageResponses(messages []model.Message) []MessageResponse {
	resp := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, NewMessageResponse(m))
	}
	return resp
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
