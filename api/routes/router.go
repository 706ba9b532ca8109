package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veloxcommerce/velox-backend/api/controllers"
	"github.com/veloxcommerce/velox-backend/api/middleware"
	"github.com/veloxcommerce/velox-backend/internal/cart"
	"github.com/veloxcommerce/velox-backend/internal/orders"
	"github.com/veloxcommerce/velox-backend/internal/promo"
	"github.com/veloxcommerce/velox-backend/internal/wallet"
	"github.com/veloxcommerce/velox-backend/pkg/config"
	"github.com/veloxcommerce/velox-backend/pkg/db"
	"github.com/veloxcommerce/velox-backend/pkg/logger"
	"github.com/veloxcommerce/velox-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cartService cart.Service,
	ordersService orders.Service,
	walletService wallet.Service,
	promoService promo.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CustomerIdentity(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartGet(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Delete("/items", controllers.CartClear(cartService, logg))
			r.Put("/items/{itemID}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemID}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/promo-code", controllers.CartApplyPromo(cartService, logg))
			r.Delete("/promo-code", controllers.CartRemovePromo(cartService, logg))
		})

		r.Post("/checkout", controllers.Checkout(ordersService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderID}", controllers.OrderGet(ordersService, logg))
			r.Post("/{orderID}/status", controllers.OrderUpdateStatus(ordersService, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletGet(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})

		r.Get("/promo-codes/validate", controllers.PromoValidate(promoService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.CustomerIdentity(logg))
		r.Route("/promo-codes", func(r chi.Router) {
			r.Get("/", controllers.PromoList(promoService, logg))
			r.Post("/", controllers.PromoCreate(promoService, logg))
			r.Put("/{promoID}", controllers.PromoUpdate(promoService, logg))
			r.Delete("/{promoID}", controllers.PromoDelete(promoService, logg))
		})
	})

	return r
}
