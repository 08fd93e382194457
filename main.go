package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "live-shopping/internal/biddingService"
	catalog "live-shopping/internal/catalogService"
	"live-shopping/internal/clock"
	"live-shopping/internal/config"
	"live-shopping/internal/lifecycle"
	"live-shopping/internal/repository"
	"live-shopping/internal/repository/postgres"
	"live-shopping/internal/server"
	"live-shopping/internal/sweeper"
	"live-shopping/internal/telemetry"
	"live-shopping/utils"

	"github.com/gin-gonic/gin"
)

// store is everything the services need from a backend
type store interface {
	repository.AuctionStore
	repository.BidLedger
	repository.CatalogStore
	repository.Pinger
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		utils.Error("server exited with error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := utils.SetLevel(cfg.Log.Level); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setting up telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			utils.Error("telemetry shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	clk := clock.Real{}
	manager := lifecycle.NewManager(st, clk, tel.TracerProvider, cfg.Auction.MaxBidAttempts)
	biddingSvc := bidding.NewBiddingService(st, st, manager, clk, tel.TracerProvider, bidding.Settings{
		AntiSnipeWindow:    cfg.Auction.AntiSnipeWindow,
		AntiSnipeExtension: cfg.Auction.AntiSnipeExtension,
		MaxAttempts:        cfg.Auction.MaxBidAttempts,
	})
	catalogSvc := catalog.NewCatalogService(st, clk)

	sw, err := sweeper.New(manager, cfg.Auction.SweepInterval)
	if err != nil {
		return err
	}
	sw.Start()
	defer func() {
		if err := sw.Stop(); err != nil {
			utils.Error("sweeper shutdown failed", map[string]any{"error": err.Error()})
		}
	}()

	health := server.NewHealthHandler(clk, server.HealthCheck{Name: "store", Check: st.Ping})

	gin.SetMode(cfg.Server.GinMode)
	router := server.SetupRouter(server.Services{
		Auctions:               manager,
		Bids:                   biddingSvc,
		Catalog:                catalogSvc,
		Health:                 health,
		DefaultAuctionDuration: cfg.Auction.DefaultDuration,
		CORSOrigins:            cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("starting live shopping server", map[string]any{
			"addr":      srv.Addr,
			"store":     cfg.Store.Driver,
			"exporting": tel.Exporting(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	health.SetReady(true)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	utils.Info("shutting down", nil)
	health.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// openStore builds the configured backend and returns a func that releases it
func openStore(ctx context.Context, cfg config.StoreConfig) (store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		pg := postgres.New(db, cfg.QueryTimeout)
		return pg, func() {
			if err := pg.Close(); err != nil {
				utils.Error("closing database failed", map[string]any{"error": err.Error()})
			}
		}, nil
	default:
		return repository.NewMemoryRepo(), func() {}, nil
	}
}
