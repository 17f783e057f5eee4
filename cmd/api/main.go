package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/wixandwax/storefront-backend/api"
	"github.com/wixandwax/storefront-backend/api/routes"
	"github.com/wixandwax/storefront-backend/internal/address"
	"github.com/wixandwax/storefront-backend/internal/cart"
	"github.com/wixandwax/storefront-backend/internal/checkout"
	"github.com/wixandwax/storefront-backend/internal/discounts"
	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/internal/payments"
	product "github.com/wixandwax/storefront-backend/internal/products"
	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/db"
	"github.com/wixandwax/storefront-backend/pkg/dedup"
	"github.com/wixandwax/storefront-backend/pkg/instance"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/metrics"
	"github.com/wixandwax/storefront-backend/pkg/migrate"
	"github.com/wixandwax/storefront-backend/pkg/outbox"
	"github.com/wixandwax/storefront-backend/pkg/razorpay"
	"github.com/wixandwax/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		NoColor:     cfg.App.LogNoColor,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	storefrontMetrics := metrics.NewStorefrontMetrics(registry)

	gdb := dbClient.DB()
	cartRepo := cart.NewRepository(gdb)
	productRepo := product.NewRepository(gdb)
	discountRepo := discounts.NewRepository(gdb)
	orderRepo := orders.NewRepository(gdb)
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	checkoutService, err := checkout.NewService(checkout.Params{
		Tx:        dbClient,
		Carts:     cartRepo,
		Products:  productRepo,
		Discounts: discountRepo,
		Orders:    orderRepo,
		Outbox:    outboxService,
		Config:    cfg.Checkout,
		Metrics:   storefrontMetrics,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create checkout service", err)
		os.Exit(1)
	}

	webhookGuard, err := dedup.NewManager(redisClient, cfg.Eventing.WebhookDedupTTL)
	if err != nil {
		logg.Error(ctx, "failed to create webhook guard", err)
		os.Exit(1)
	}

	paymentParams := payments.Params{
		Tx:      dbClient,
		Orders:  orderRepo,
		Outbox:  outboxService,
		Guard:   webhookGuard,
		Metrics: storefrontMetrics,
		Logger:  logg,
	}
	if cfg.Razorpay.Configured() {
		gateway, err := razorpay.NewClient(
			cfg.Razorpay.KeyID,
			cfg.Razorpay.KeySecret,
			razorpay.WithBaseURL(cfg.Razorpay.BaseURL),
			razorpay.WithTimeout(cfg.Razorpay.Timeout),
			razorpay.WithWebhookSecret(cfg.Razorpay.WebhookSecret),
		)
		if err != nil {
			logg.Error(ctx, "failed to create razorpay client", err)
			os.Exit(1)
		}
		paymentParams.Gateway = gateway
	} else {
		logg.Warn(ctx, "razorpay keys missing, payment endpoints will report unavailable")
	}
	paymentService, err := payments.NewService(paymentParams)
	if err != nil {
		logg.Error(ctx, "failed to create payment service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, dbClient, productRepo, discountRepo, cfg.Checkout.Currency, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo, dbClient, outboxService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(address.NewRepository(gdb), dbClient)
	if err != nil {
		logg.Error(ctx, "failed to create address service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, registry, storefrontMetrics,
		checkoutService, paymentService, cartService, ordersService, addressService)

	if err := api.Serve(ctx, api.NewServer(addr, handler), cfg.HTTP, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
