package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wixandwax/storefront-backend/api/controllers"
	cartcontrollers "github.com/wixandwax/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/wixandwax/storefront-backend/api/controllers/orders"
	webhookcontrollers "github.com/wixandwax/storefront-backend/api/controllers/webhooks"
	"github.com/wixandwax/storefront-backend/api/middleware"
	"github.com/wixandwax/storefront-backend/internal/address"
	"github.com/wixandwax/storefront-backend/internal/cart"
	checkoutsvc "github.com/wixandwax/storefront-backend/internal/checkout"
	"github.com/wixandwax/storefront-backend/internal/orders"
	"github.com/wixandwax/storefront-backend/internal/payments"
	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/logger"
	"github.com/wixandwax/storefront-backend/pkg/metrics"
	"github.com/wixandwax/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	gatherer prometheus.Gatherer,
	storefrontMetrics *metrics.StorefrontMetrics,
	checkoutService checkoutsvc.Service,
	paymentService payments.Service,
	cartService cart.Service,
	ordersService orders.Service,
	addressService address.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(storefrontMetrics),
		middleware.CORS(cfg.HTTP.OriginList()),
	)

	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var idemStore middleware.IdempotencyStore
	var limiter middleware.RateLimitStore
	deps := map[string]controllers.Pinger{"database": dbP}
	if redisClient != nil {
		idemStore = redisClient
		limiter = redisClient
		deps["redis"] = redisClient
	}

	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitPerIP, cfg.HTTP.RateLimitPerIP)
	paymentPolicy := middleware.NewRateLimitPolicy("payments", cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitPerIP, 0)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.Health(cfg))
		r.Get("/health/live", controllers.HealthLive(cfg))
		r.Get("/health/ready", controllers.HealthReady(cfg, logg, deps))

		r.Post("/webhooks/razorpay", webhookcontrollers.RazorpayWebhook(paymentService, logg))

		// Group middleware runs after routing, so the idempotency rules see
		// the full route pattern.
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, cfg.Checkout.IdempotencyTTL, logg))

			r.With(middleware.RateLimit(checkoutPolicy, limiter, logg)).Post("/checkout", controllers.Checkout(checkoutService, logg))

			paymentRoutes := r.With(middleware.RateLimit(paymentPolicy, limiter, logg))
			paymentRoutes.Post("/payments/create-order", controllers.CreatePaymentOrder(paymentService, logg))
			paymentRoutes.Post("/payments/verify", controllers.VerifyPayment(paymentService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(cartService, logg))
				r.Post("/items", cartcontrollers.AddItem(cartService, logg))
				r.Put("/{cartId}/items/{itemId}", cartcontrollers.UpdateItem(cartService, logg))
				r.Delete("/{cartId}/items/{itemId}", cartcontrollers.RemoveItem(cartService, logg))
				r.Post("/{cartId}/discounts", cartcontrollers.ApplyDiscount(cartService, logg))
				r.Delete("/{cartId}/discounts/{discountId}", cartcontrollers.RemoveDiscount(cartService, logg))
			})

			r.Get("/orders/number/{orderNumber}", ordercontrollers.ByNumber(ordersService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/orders", ordercontrollers.List(ordersService, logg))
			r.Get("/orders/{orderId}", ordercontrollers.Detail(ordersService, logg))

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", controllers.ListAddresses(addressService, logg))
				r.Post("/", controllers.CreateAddress(addressService, logg))
				r.Put("/{addressId}", controllers.UpdateAddress(addressService, logg))
				r.Delete("/{addressId}", controllers.DeleteAddress(addressService, logg))
			})

			r.With(middleware.RequireAdmin(logg)).Put("/admin/orders/{orderId}", ordercontrollers.AdminUpdate(ordersService, logg))
		})
	})

	return r
}
