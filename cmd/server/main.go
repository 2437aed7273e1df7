package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/nft-trait-shop/internal/cart"
	"github.com/iliyamo/nft-trait-shop/internal/chain"
	"github.com/iliyamo/nft-trait-shop/internal/checkout"
	"github.com/iliyamo/nft-trait-shop/internal/config"
	"github.com/iliyamo/nft-trait-shop/internal/database"
	"github.com/iliyamo/nft-trait-shop/internal/handler"
	"github.com/iliyamo/nft-trait-shop/internal/middleware"
	"github.com/iliyamo/nft-trait-shop/internal/queue"
	"github.com/iliyamo/nft-trait-shop/internal/repository"
	"github.com/iliyamo/nft-trait-shop/internal/router"
)

func main() {
	_ = godotenv.Load() // load .env when present; real env always wins

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	grace := time.Duration(cfg.ReserveGraceMin) * time.Minute

	// Data access layer.
	offerRepo := repository.NewOfferRepo(db)
	purchaseRepo := repository.NewPurchaseRepo(db)
	txlogRepo := repository.NewTxLogRepo(db)
	ledger := repository.NewStockLedger(db, grace)

	// Wallet bridge client: chain calls, image rendering, NFT inventory.
	bridge := chain.NewClient(cfg.BridgeURL)

	mgr := checkout.NewManager(ledger, purchaseRepo, txlogRepo, bridge, bridge, checkout.Options{
		CollectionWallet:     cfg.CollectionWallet,
		ReimburseWallet:      cfg.ReimburseWallet,
		CollectionID:         cfg.CollectionID,
		ServiceFeeLamports:   cfg.ServiceFeeLamports,
		ReimburseFeeLamports: cfg.ReimburseFeeLamports,
		UseNewLogo:           cfg.UseNewLogo,
		Grace:                grace,
	})

	carts := cart.NewStore()

	// Redis backs rate limiting and the public listing cache; both
	// degrade to pass-through when it is unreachable.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; rate limiting and response cache disabled")
	}
	var rateMW, cacheMW echo.MiddlewareFunc
	if rdb != nil {
		rateMW = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		cacheMW = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}

	// Background sweep returns stock from reservations whose grace
	// window elapsed.  Lazy expiry inside Reserve covers contended
	// offers; the sweep covers the quiet ones.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := ledger.ExpireDue(ctx); err != nil {
				log.Printf("reservation sweep failed: %v", err)
			} else if n > 0 {
				log.Printf("reservation sweep released %d reservation(s)", n)
			}
			cancel()
		}
	}()

	// Consume purchase.completed events into logs/purchases.log.
	go func() {
		if err := queue.StartPurchaseConsumer(); err != nil {
			log.Printf("purchase consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg), cfg.JWTSecret)
	router.RegisterShop(e, handler.NewShopHandler(offerRepo, purchaseRepo, txlogRepo, bridge), cfg.JWTSecret, cacheMW)
	router.RegisterCheckout(e,
		handler.NewCartHandler(carts, offerRepo),
		handler.NewCheckoutHandler(carts, mgr, bridge),
		cfg.JWTSecret, rateMW)
	router.RegisterAdmin(e,
		handler.NewAdminOfferHandler(offerRepo),
		handler.NewAdminPurchaseHandler(purchaseRepo, txlogRepo, ledger),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
