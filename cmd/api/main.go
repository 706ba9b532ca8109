package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veloxcommerce/velox-backend/api/routes"
	"github.com/veloxcommerce/velox-backend/internal/cart"
	"github.com/veloxcommerce/velox-backend/internal/customers"
	"github.com/veloxcommerce/velox-backend/internal/orders"
	"github.com/veloxcommerce/velox-backend/internal/products"
	"github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/internal/wallet"
	"github.com/veloxcommerce/velox-backend/pkg/config"
	"github.com/veloxcommerce/velox-backend/pkg/db"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
	"github.com/veloxcommerce/velox-backend/pkg/metrics"
	"github.com/veloxcommerce/velox-backend/pkg/migrate"
	"github.com/veloxcommerce/velox-backend/pkg/redis"
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
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	customerRepo := customers.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	orderRepo := orders.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())
	promoRepo := promo.NewRepository(dbClient.DB())

	commerceMetrics := metrics.NewCommerceMetrics(prometheus.DefaultRegisterer)

	promoService, err := promo.NewService(promoRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create promo service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(dbClient, cartRepo, productRepo, promoService, promoRepo, customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(dbClient, walletRepo, customerRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, orderRepo, cartRepo, productRepo, walletRepo, promoRepo, cfg.Rewards, commerceMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, cartService, ordersService, walletService, promoService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
