package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hanksha/laundry-booking-backend/api"
	"github.com/hanksha/laundry-booking-backend/config"
	"github.com/hanksha/laundry-booking-backend/database"
	"github.com/hanksha/laundry-booking-backend/identity"
	"github.com/hanksha/laundry-booking-backend/logging"
	rsv "github.com/hanksha/laundry-booking-backend/reservation"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	baseLogger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)

	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	defer cleanup()

	logger := baseLogger.With("component", "main")

	catalog := rsv.DefaultCatalog()

	if cfg.MachinesFile != "" {
		catalog, err = rsv.LoadCatalog(cfg.MachinesFile)

		if err != nil {
			logger.Error("failed to load machine catalog", "err", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	localDB, err := database.OpenLocal(cfg.LocalDBPath)

	if err != nil {
		logger.Error("failed to open local store", "err", err)
		os.Exit(1)
	}

	defer localDB.Close()

	local := rsv.NewLocalRepository(localDB, baseLogger.With("component", "local-store"))
	repo, pool := newRepository(ctx, cfg, local, baseLogger)

	if pool != nil {
		defer pool.Close()
	}

	board := rsv.NewBoard(repo, catalog, baseLogger.With("component", "board"))

	if err := board.Start(ctx); err != nil {
		logger.Error("failed to start reservation board", "err", err)
		os.Exit(1)
	}

	defer board.Close()

	reservationService := rsv.NewService(repo, catalog, baseLogger.With("component", "reservations"))
	go reservationService.RunRetention(ctx, cfg.RetentionSweepInterval)

	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID is not set, every sign-in will be rejected")
	}

	verifier := identity.NewGoogleVerifier(cfg.GoogleClientID, cfg.GoogleCertsURL, cfg.AdminUserIDs)

	r := gin.New()
	r.Use(api.AccessLog(gin.DefaultWriter), gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	apiRouter := r.Group("/api")
	apiRouter.Use(api.RateLimit(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst))

	// AUTH API

	api.NewAuthHandler(verifier).Register(apiRouter.Group("/auth"))

	// CATALOG API

	api.NewCatalogHandler(reservationService).Register(apiRouter.Group("/v1"))

	// RESERVATION API

	reservationRouter := apiRouter.Group("/v1/reservations")
	reservationRouter.Use(api.Authenticate(verifier))
	api.NewReservationHandler(reservationService, board).Register(reservationRouter)

	server := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     r,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("HTTP server starting", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server stopped", "err", err)
			cancel()
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received, stopping services")
	case <-ctx.Done():
	}

	// Ends open event streams so Shutdown does not wait on them.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "err", err)
	}

	logger.Info("server gracefully stopped")
}

// newRepository picks the reservation store once at startup. Without a
// reachable DATABASE_URL the service runs on the local store alone.
func newRepository(ctx context.Context, cfg *config.Config, local *rsv.LocalRepository, logger *slog.Logger) (rsv.Repository, *pgxpool.Pool) {
	mainLogger := logger.With("component", "main")

	if !cfg.RemoteEnabled() {
		mainLogger.Info("DATABASE_URL not set, using local reservation store")
		return local, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mainLogger.Info("connecting to PostgreSQL database")
	pool, err := database.Connect(connectCtx, cfg.DatabaseURL)

	if err != nil {
		mainLogger.Error("unable to connect to database, using local reservation store", "err", err)
		return local, nil
	}

	mainLogger.Info("initialized database tables")

	remote := rsv.NewPostgresRepository(pool, logger.With("component", "postgres-store"))

	return rsv.NewFallbackRepository(remote, local, logger.With("component", "fallback-store")), pool
}
