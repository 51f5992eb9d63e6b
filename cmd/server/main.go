package main // Entry point package

import (
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/nammaooru/offers-api/internal/config"     // environment config loader
	"github.com/nammaooru/offers-api/internal/database"   // MySQL connection pool
	"github.com/nammaooru/offers-api/internal/handler"    // HTTP handlers
	"github.com/nammaooru/offers-api/internal/middleware" // rate limit + cache middleware
	"github.com/nammaooru/offers-api/internal/queue"      // background consumers
	"github.com/nammaooru/offers-api/internal/repository" // data access layer
	"github.com/nammaooru/offers-api/internal/router"     // route registration
)

func main() {
	_ = godotenv.Load() // best effort; production sets real env vars

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and the public response cache. A nil
	// client turns both middlewares into pass-throughs.
	rdb := config.NewRedisClient()

	users := repository.NewUserRepo(db)
	counters := repository.NewCounterRepo(db)
	stores := repository.NewStoreRepo(db)
	coupons := repository.NewCouponRepo(db)
	redemptions := repository.NewRedemptionRepo(db)
	products := repository.NewProductRepo(db)
	analytics := repository.NewAnalyticsRepo(db)

	authH := handler.NewAuthHandler(cfg, users, counters)
	storeH := handler.NewStoreHandler(stores, users)
	couponH := handler.NewCouponHandler(coupons, stores)
	redemptionH := handler.NewRedemptionHandler(redemptions, coupons, users, stores)
	productH := handler.NewProductHandler(products, stores)
	analyticsH := handler.NewAnalyticsHandler(analytics, stores)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterStore(e, storeH, authH, cfg.JWTSecret, cache)
	router.RegisterCoupon(e, couponH, redemptionH, cfg.JWTSecret, cache)
	router.RegisterProduct(e, productH, cfg.JWTSecret, cache)
	router.RegisterAnalytics(e, analyticsH, cfg.JWTSecret)

	// Broker consumers run for the life of the process and reconnect on
	// their own; a broker outage never blocks startup.
	go func() {
		if err := queue.StartRedemptionConsumer(); err != nil {
			log.Printf("redemption consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartEmailConsumer(); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
