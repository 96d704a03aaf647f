package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/carrental/api"
	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/bootstrap"
	"github.com/Domenick1991/carrental/internal/cache"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/listings"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/Domenick1991/carrental/internal/service/stats"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	reportingDB, err := repository.OpenReportingDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connect reporting db: %v", err)
	}
	defer reportingDB.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ListingsCacheTTL)*time.Second)
	defer redisCache.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	listingRepo := repository.NewListingRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)

	listingService := listings.NewListingService(listingRepo, redisCache)
	reservationService := reservation.NewReservationService(
		reservationRepo,
		listingRepo,
		redisCache,
		producer,
		cfg.Kafka.ReservationsTopic,
		time.Duration(cfg.Booking.ListingLockSeconds)*time.Second,
		reservation.WithConfirmationAttempts(cfg.Booking.ConfirmationAttempts),
	)
	statsService := stats.NewStatsService(repository.NewStatsRepository(reportingDB))

	router := api.NewRouter(api.RouterConfig{SwaggerDir: cfg.HTTP.SwaggerDir}, listingService, reservationService, statsService)

	if err := bootstrap.Run(ctx, cfg, router, pool.Ping, redisCache.Ping, producer.CheckConnection); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
