package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"livebid-service/internal/adapters/broadcaster"
	"livebid-service/internal/adapters/db"
	"livebid-service/internal/adapters/memory"
	"livebid-service/internal/adapters/redis"
	"livebid-service/internal/adapters/scheduler"
	"livebid-service/internal/adapters/ws"
	"livebid-service/internal/app"
	"livebid-service/internal/config"
	"livebid-service/internal/ports/outbound"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting LiveBid service...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	auctionStore, bidStore, users, cleanup := buildStores(cfg)
	defer cleanup()

	events := buildBroadcaster(cfg)

	locks := app.NewAuctionLocks()

	bidService := app.NewBidService(app.BidServiceParams{
		AuctionStore: auctionStore,
		BidStore:     bidStore,
		Users:        users,
		Broadcaster:  events,
		Locks:        locks,
		LockTimeout:  cfg.Engine.BidLockTimeout,
		Logger:       log.Logger,
	})
	auctionService := app.NewAuctionService(app.AuctionServiceParams{
		AuctionStore: auctionStore,
		BidStore:     bidStore,
		Users:        users,
		Locks:        locks,
		Logger:       log.Logger,
	})

	log.Info().Msg("Bidding engine initialized")

	sweeper := scheduler.NewSweeper(scheduler.SweeperParams{
		Store:       auctionStore,
		Lifecycle:   auctionService,
		Broadcaster: events,
		Interval:    cfg.Engine.SweepInterval,
		Logger:      log.Logger,
	})
	sweeper.Start()

	wsServer := ws.NewServer(ws.ServerParams{
		Config:         cfg,
		AuctionService: auctionService,
		BidService:     bidService,
		Broadcaster:    events,
		Logger:         log.Logger,
	})

	go func() {
		if err := wsServer.Start(); err != nil {
			log.Error().Err(err).Msg("Failed to start WebSocket server")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	log.Info().Msg("Starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	sweeper.Stop()
	log.Info().Msg("Lifecycle sweeper stopped")

	if err := wsServer.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping WebSocket server")
	}

	log.Info().Msg("Graceful shutdown completed")
}

// buildStores wires the configured store backend
func buildStores(cfg *config.Config) (outbound.AuctionStore, outbound.BidStore, outbound.UserDirectory, func()) {
	switch cfg.Store.Backend {
	case config.StoreMemory:
		log.Warn().Msg("Using in-memory store; state is lost on restart")
		store := memory.NewStore()
		return store, store, store, func() {}

	default:
		conn, err := db.NewConnection(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		log.Info().Msg("Database connection established")

		return db.NewAuctionRepository(conn),
			db.NewBidRepository(conn),
			db.NewUserRepository(conn),
			func() { conn.Close() }
	}
}

// buildBroadcaster wires the configured room broadcaster backend
func buildBroadcaster(cfg *config.Config) outbound.Broadcaster {
	if cfg.Broadcast.Backend == config.BroadcastRedis {
		redisClient := redis.NewClient(cfg)
		if err := redis.Ping(redisClient); err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		log.Info().Msg("Redis connection established")

		return broadcaster.NewRedisBroadcaster(broadcaster.RedisBroadcasterParams{
			RedisClient: redisClient,
			Logger:      log.Logger,
		})
	}

	return broadcaster.NewRoomBroadcaster(broadcaster.RoomBroadcasterParams{
		Logger: log.Logger,
	})
}

func initLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.Format == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	zerolog.DefaultContextLogger = &log.Logger
}
