package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/events-marketplace/internal/config"
	"github.com/iliyamo/events-marketplace/internal/database"
	"github.com/iliyamo/events-marketplace/internal/handler"
	"github.com/iliyamo/events-marketplace/internal/middleware"
	"github.com/iliyamo/events-marketplace/internal/queue"
	"github.com/iliyamo/events-marketplace/internal/repository"
	"github.com/iliyamo/events-marketplace/internal/router"
	"github.com/iliyamo/events-marketplace/internal/scheduling"
	queuepublisher "github.com/iliyamo/events-marketplace/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable: rate limiting and response cache disabled")
	}

	events := repository.NewEventRepo(db)
	bookings := repository.NewBookingRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	core := scheduling.NewScheduler(events, bookings, queuepublisher.AuditRecorder{}, nil)

	// Background consumer drains event.audit into logs/audit.log and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	// Hourly janitor for expired refresh tokens.
	go func() {
		for range time.Tick(time.Hour) {
			if err := tokens.PurgeExpired(context.Background()); err != nil {
				log.Printf("refresh token purge failed: %v", err)
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterHost(e, handler.NewHostHandler(core, events), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(events), config.LoadCacheConfig(), rdb)
	router.RegisterCustomer(e, handler.NewBookingHandler(events, bookings), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
