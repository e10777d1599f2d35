package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"                       // Load .env files in development
	"github.com/labstack/echo/v4"                    // Echo web framework
	"github.com/prometheus/client_golang/prometheus" // Metrics registry

	"github.com/iliyamo/subsplit/internal/config"     // Internal config loader
	"github.com/iliyamo/subsplit/internal/database"   // MySQL pool and migrations
	"github.com/iliyamo/subsplit/internal/handler"    // HTTP handlers
	"github.com/iliyamo/subsplit/internal/metrics"    // Prometheus collector
	"github.com/iliyamo/subsplit/internal/middleware" // Rate limiting and response cache
	"github.com/iliyamo/subsplit/internal/queue"      // Broker consumer
	"github.com/iliyamo/subsplit/internal/repository" // DB repositories
	"github.com/iliyamo/subsplit/internal/router"     // Route registration
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		url := database.MigrateURL(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err := database.RunMigrations(url); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		log.Println("migrations applied")
	}

	// Redis is optional: a nil client disables caching and makes the
	// rate limiter fail open.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	listings := repository.NewListingRepo(db)
	memberships := repository.NewMembershipRepo(db)
	reviews := repository.NewReviewRepo(db)

	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	listingH := handler.NewListingHandler(listings, memberships, reviews, col)

	e := echo.New()
	e.HideBanner = true
	e.Use(col.Middleware())
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}

	var cache echo.MiddlewareFunc
	if rdb != nil {
		cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	router.RegisterRoutes(e, reg)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterPublic(e, listingH, cache)
	router.RegisterListings(e, listingH, cfg.JWTSecret)

	// Consume member.joined events in the background.  The consumer
	// reconnects on broker failures and never takes the API down.
	go func() {
		if err := queue.StartJoinConsumer(); err != nil {
			log.Printf("join consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
