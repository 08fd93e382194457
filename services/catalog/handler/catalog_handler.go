package handler

import (
	"context"
	"net/http"

	model "live-shopping/internal/models"
	"live-shopping/services/catalog/helpers"
	"live-shopping/utils"

	"github.com/gin-gonic/gin"
)

const (
	defaultShowListLimit    = 20
	defaultItemListLimit    = 50
	defaultMessageListLimit = 50
)

type CatalogServiceInterface interface {
	CreateShow(ctx context.Context, show model.Show) (model.Show, error)
	GetShow(ctx context.Context, showID string) (model.Show, error)
	ListShows(ctx context.Context, status model.ShowStatus, limit int) ([]model.Show, error)
	CreateItem(ctx context.Context, item model.Item) (model.Item, error)
	ListItems(ctx context.Context, showID string, limit int) ([]model.Item, error)
	PostMessage(ctx context.Context, showID string, userID *string, text string) (model.Message, error)
	ListMessages(ctx context.Context, showID string, limit int) ([]model.Message, error)
}

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// CreateShowHandler handles POST /shows
func (h *CatalogHandler) CreateShowHandler(c *gin.Context) {
	var req helpers.CreateShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateShowHandler", err)
		return
	}

	show, err := h.service.CreateShow(c.Request.Context(), req.ToShow())
	if err != nil {
		helpers.HandleServiceError(c, "CreateShowHandler", err, map[string]any{"title": req.Title})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewShowResponse(show), "show created successfully")
	utils.Info("CreateShowHandler: show created successfully", map[string]any{
		"show_id": show.ID,
		"status":  show.Status,
	})
}

// ListShowsHandler handles GET /shows
func (h *CatalogHandler) ListShowsHandler(c *gin.Context) {
	limit, err := utils.QueryLimit(c, defaultShowListLimit)
	if err != nil {
		helpers.HandleServiceError(c, "ListShowsHandler", err, nil)
		return
	}
	status := model.ShowStatus(c.Query("status"))

	shows, err := h.service.ListShows(c.Request.Context(), status, limit)
	if err != nil {
		helpers.HandleServiceError(c, "ListShowsHandler", err, map[string]any{"status": status})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewShowResponses(shows), "shows retrieved successfully")
}

// GetShowHandler handles GET /shows/:id
func (h *CatalogHandler) GetShowHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "GetShowHandler", err, nil)
		return
	}

	show, err := h.service.GetShow(c.Request.Context(), showID)
	if err != nil {
		helpers.HandleServiceError(c, "GetShowHandler", err, map[string]any{"show_id": showID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewShowResponse(show), "show retrieved successfully")
}

// CreateItemHandler handles POST /items
func (h *CatalogHandler) CreateItemHandler(c *gin.Context) {
	var req helpers.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateItemHandler", err)
		return
	}

	item, err := h.service.CreateItem(c.Request.Context(), req.ToItem())
	if err != nil {
		helpers.HandleServiceError(c, "CreateItemHandler", err, map[string]any{"show_id": req.ShowID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewItemResponse(item), "item created successfully")
	utils.Info("CreateItemHandler: item created successfully", map[string]any{
		"item_id": item.ID,
		"show_id": item.ShowID,
	})
}

// ListItemsHandler handles GET /shows/:id/items
func (h *CatalogHandler) ListItemsHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "ListItemsHandler", err, nil)
		return
	}
	limit, err := utils.QueryLimit(c, defaultItemListLimit)
	if err != nil {
		helpers.HandleServiceError(c, "ListItemsHandler", err, nil)
		return
	}

	items, err := h.service.ListItems(c.Request.Context(), showID, limit)
	if err != nil {
		helpers.HandleServiceError(c, "ListItemsHandler", err, map[string]any{"show_id": showID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewItemResponses(items), "items retrieved successfully")
}

// PostMessageHandler handles POST /shows/:id/messages
func (h *CatalogHandler) PostMessageHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "PostMessageHandler", err, nil)
		return
	}

	var req helpers.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PostMessageHandler", err)
		return
	}

	msg, err := h.service.PostMessage(c.Request.Context(), showID, req.UserID, req.Text)
	if err != nil {
		helpers.HandleServiceError(c, "PostMessageHandler", err, map[string]any{"show_id": showID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewMessageResponse(msg), "message posted successfully")
	utils.Debug("PostMessageHandler: message posted", map[string]any{
		"message_id": msg.ID,
		"show_id":    showID,
	})
}

// ListMessagesHandler handles GET /shows/:id/messages
func (h *CatalogHandler) ListMessagesHandler(c *gin.Context) {
	showID, err := utils.PathID(c, "id")
	if err != nil {
		helpers.HandleServiceError(c, "ListMessagesHandler", err, nil)
		return
	}
	limit, err := utils.QueryLimit(c, defaultMessageListLimit)
	if err != nil {
		helpers.HandleServiceError(c, "ListMessagesHandler", err, nil)
		return
	}

	messages, err := h.service.ListMessages(c.Request.Context(), showID, limit)
	if err != nil {
		helpers.HandleServiceError(c, "ListMessagesHandler", err, map[string]any{"show_id": showID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewMessageResponses(messages), "messages retrieved successfully")
}
