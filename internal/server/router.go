package server

import (
	"errors"
	"net/http"
	"time"

	biddinghandler "live-shopping/services/bidding/handler"
	cataloghandler "live-shopping/services/catalog/handler"
	"live-shopping/utils"

	"github.com/gin-gonic/gin"
)

var errRouteNotFound = errors.New("route not found")

// Services bundles what the router dispatches to
type Services struct {
	Auctions               biddinghandler.AuctionServiceInterface
	Bids                   biddinghandler.BiddingServiceInterface
	Catalog                cataloghandler.CatalogServiceInterface
	Health                 *HealthHandler
	DefaultAuctionDuration time.Duration
	CORSOrigins            []string
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc Services) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging
	if len(svc.CORSOrigins) > 0 {
		router.Use(CORSMiddleware(svc.CORSOrigins))
	}

	router.NoRoute(func(c *gin.Context) {
		utils.JSONError(c, http.StatusNotFound, errRouteNotFound, "not found")
	})

	biddingHandler := biddinghandler.NewBiddingHandler(svc.Auctions, svc.Bids, svc.DefaultAuctionDuration)
	catalogHandler := cataloghandler.NewCatalogHandler(svc.Catalog)

	if svc.Health != nil {
		router.GET("/healthz", svc.Health.LivenessHandler)
		router.GET("/readyz", svc.Health.ReadinessHandler)
	}

	shows := router.Group("/shows")
	{
		shows.POST("", catalogHandler.CreateShowHandler)
		shows.GET("", catalogHandler.ListShowsHandler)
		shows.GET("/:id", catalogHandler.GetShowHandler)
		shows.GET("/:id/items", catalogHandler.ListItemsHandler)
		shows.POST("/:id/messages", catalogHandler.PostMessageHandler)
		shows.GET("/:id/messages", catalogHandler.ListMessagesHandler)

		shows.POST("/:id/auctions/start", biddingHandler.StartAuctionHandler)
		shows.GET("/:id/auctions/current", biddingHandler.GetCurrentAuctionHandler)
		shows.GET("/:id/bids", biddingHandler.ListShowBidsHandler)
	}

	items := router.Group("/items")
	{
		items.POST("", catalogHandler.CreateItemHandler)
	}

	auctions := router.Group("/auctions")
	{
		auctions.GET("/:id", biddingHandler.GetAuctionHandler)
		auctions.POST("/:id/close", biddingHandler.CloseAuctionHandler)
		auctions.POST("/:id/bids", biddingHandler.PlaceBidHandler)
		auctions.GET("/:id/bids", biddingHandler.ListBidsHandler)
	}

	return router
}
