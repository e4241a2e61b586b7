package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velvethaus/storefront-backend/api/controllers"
	"github.com/velvethaus/storefront-backend/api/controllers/webhooks"
	"github.com/velvethaus/storefront-backend/api/middleware"
	"github.com/velvethaus/storefront-backend/internal/checkout"
	"github.com/velvethaus/storefront-backend/internal/coupons"
	"github.com/velvethaus/storefront-backend/internal/inventory"
	"github.com/velvethaus/storefront-backend/internal/orders"
	stripewebhook "github.com/velvethaus/storefront-backend/internal/webhooks/stripe"
	"github.com/velvethaus/storefront-backend/pkg/config"
	"github.com/velvethaus/storefront-backend/pkg/db"
	"github.com/velvethaus/storefront-backend/pkg/logger"
	"github.com/velvethaus/storefront-backend/pkg/redis"
	pkgstripe "github.com/velvethaus/storefront-backend/pkg/stripe"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *db.Client
	Redis   *redis.Client
	Metrics prometheus.Gatherer

	Checkout  *checkout.Service
	Coupons   *coupons.Service
	Orders    *orders.Service
	Inventory *inventory.Service

	Stripe       *pkgstripe.Client
	Webhooks     *stripewebhook.Service
	WebhookGuard *redis.IdempotencyGuard
	DeductGuard  *redis.IdempotencyGuard
}

// New assembles the router with the shared middleware chain.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(deps.Logger))
	r.Use(middleware.RequestID(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config.App.Env))
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, deps.Config.App.Env, deps.Logger))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/payment-intent", controllers.CreatePaymentIntent(deps.Checkout, deps.Logger))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Post("/verify", controllers.VerifyCoupon(deps.Coupons, deps.Logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.AutomationAuth(deps.Config.Automation.SharedSecret, deps.Logger))
				r.Post("/increment", controllers.IncrementCoupon(deps.Coupons, deps.Logger))
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.AutomationAuth(deps.Config.Automation.SharedSecret, deps.Logger))
			r.Get("/", controllers.ListOrders(deps.Orders, deps.Logger))
			r.Get("/{orderID}", controllers.GetOrder(deps.Orders, deps.Logger))
			r.Patch("/{orderID}/status", controllers.UpdateOrderStatus(deps.Orders, deps.Logger))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Use(middleware.AutomationAuth(deps.Config.Automation.SharedSecret, deps.Logger))
			r.Post("/deduct", controllers.DeductInventory(deps.Orders, deps.Inventory, deps.DeductGuard, deps.Logger))
		})

		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/payments", webhooks.HandleStripe(deps.Stripe, deps.WebhookGuard, deps.Webhooks, deps.Logger))
		})
	})

	return r
}
