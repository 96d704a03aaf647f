package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/cache"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/reservation"
	"github.com/Domenick1991/carrental/internal/worker"
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ListingsCacheTTL)*time.Second)
	defer redisCache.Close()

	listingRepo := repository.NewListingRepository(pool)
	reservationRepo := repository.NewReservationRepository(pool)
	reservationService := reservation.NewReservationService(
		reservationRepo,
		listingRepo,
		redisCache,
		producer,
		cfg.Kafka.ReservationsTopic,
		time.Duration(cfg.Booking.ListingLockSeconds)*time.Second,
		reservation.WithConfirmationAttempts(cfg.Booking.ConfirmationAttempts),
	)
	w := worker.New(reservationService)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.ReservationsTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.ConsumeReservationEvents(ctx, w.HandleEvent); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	if cfg.Worker.FinishSweepMinutes > 0 {
		if _, err := w.Sweep(ctx); err != nil {
			log.Printf("finish sweep error: %v", err)
		}
		go w.RunSweeps(ctx, time.Duration(cfg.Worker.FinishSweepMinutes)*time.Minute)
	}

	<-ctx.Done()
	log.Printf("shutting down")
}
