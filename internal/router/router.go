package router

import (
	"net/http"

	"levelup-loyalty/internal/handler"
	"levelup-loyalty/internal/metrics"
	"levelup-loyalty/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Loyalty  *handler.LoyaltyHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Referral *handler.ReferralHandler
	Discount *handler.DiscountHandler
	Member   *handler.MemberHandler
}

// Options configures the router.
type Options struct {
	APIKey string
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
	Metrics  *metrics.HTTP
	Logger   zerolog.Logger
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options) http.Handler {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> RequestID -> Logging -> Metrics -> CORS -> APIKeyAuth
	r.Use(
		middleware.Recovery(opts.Logger),
		middleware.RequestID,
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Metrics),
		middleware.CORS,
		middleware.APIKeyAuth(opts.APIKey, opts.Logger),
	)

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "healthy"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/levels", h.Loyalty.Levels)
		r.Get("/leaderboard", h.Loyalty.Leaderboard)
		r.Get("/leaderboard/stream", h.Loyalty.LeaderboardStream)

		r.Post("/referrals", h.Referral.Register)
		r.With(handler.RequireUsername(opts.Logger)).Put("/members/{username}", h.Member.Register)

		r.Route("/users/{username}", func(r chi.Router) {
			r.Use(handler.RequireUsername(opts.Logger))

			r.Post("/", h.Loyalty.Enroll)

			r.Get("/status", h.Loyalty.Status)
			r.Get("/status/stream", h.Loyalty.StatusStream)
			r.Post("/points", h.Loyalty.AddPoints)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.Summary)
				r.Delete("/", h.Cart.Clear)
				r.Get("/stream", h.Cart.Stream)
				r.Post("/items", h.Cart.AddItem)
				r.Patch("/items/{id}", h.Cart.SetQuantity)
				r.Delete("/items/{id}", h.Cart.RemoveItem)
			})

			r.Post("/checkout", h.Checkout.Checkout)
			r.Get("/purchases", h.Checkout.History)
			r.Get("/purchases/stream", h.Checkout.Stream)

			r.Get("/referrals", h.Referral.Summary)
			r.Get("/referrals/stream", h.Referral.Stream)

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", h.Discount.List)
				r.Get("/stream", h.Discount.Stream)
				r.Post("/scan", h.Discount.Scan)
				r.Post("/{id}/use", h.Discount.MarkUsed)
				r.Delete("/{id}", h.Discount.Delete)
			})
		})
	})

	return r
}
