package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/arvela/restaurant-rating-ledger/internal/config"
	"github.com/arvela/restaurant-rating-ledger/internal/database"
	"github.com/arvela/restaurant-rating-ledger/internal/handler"
	"github.com/arvela/restaurant-rating-ledger/internal/ledger"
	"github.com/arvela/restaurant-rating-ledger/internal/middleware"
	"github.com/arvela/restaurant-rating-ledger/internal/queue"
	"github.com/arvela/restaurant-rating-ledger/internal/repository"
	"github.com/arvela/restaurant-rating-ledger/internal/router"
	queue_publisher "github.com/arvela/restaurant-rating-ledger/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, relying on environment")
	}

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, cache and rate limiting disabled")
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	store := repository.NewLedgerStore(db)

	// Replay the archive into a fresh ledger, then attach the event
	// publisher so replayed records do not re-emit events.
	led := ledger.New(cfg.AdminUserID, nil)
	restaurants, err := store.LoadRestaurants(ctx)
	if err != nil {
		log.Fatalf("load restaurants: %v", err)
	}
	reviews, err := store.LoadReviews(ctx)
	if err != nil {
		log.Fatalf("load reviews: %v", err)
	}
	if err := led.Restore(restaurants, reviews); err != nil {
		log.Fatalf("restore ledger: %v", err)
	}
	led.SetSink(queue_publisher.New())
	log.Printf("ledger restored: %d restaurants, %d reviews", len(restaurants), len(reviews))

	go func() {
		if err := queue.StartReviewConsumer(); err != nil {
			log.Printf("review consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Use(middleware.RateLimit(config.LoadRateLimitConfig(), rdb))

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	restH := handler.NewRestaurantHandler(led, store)
	revH := handler.NewReviewHandler(led, store)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterLedger(e, restH, revH, cfg.JWTSecret, config.LoadCacheConfig(), rdb)

	log.Fatal(e.Start(":" + cfg.Port))
}
