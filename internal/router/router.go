package router

import (
	"net/http"

	"jobshop/internal/handler"
	"jobshop/internal/metrics"
	"jobshop/internal/middleware"
	"jobshop/internal/model"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Auth      *handler.AuthHandler
	Product   *handler.ProductHandler
	Payment   *handler.PaymentHandler
	Order     *handler.OrderHandler
	JobSearch *handler.JobSearchHandler
}

// Options configures cross-cutting router behaviour.
type Options struct {
	AllowedOrigins []string
	Maintenance    bool
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	authn middleware.Authenticator,
	m *metrics.Metrics,
	opts Options,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Metrics(m))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Maintenance(opts.Maintenance, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
	})
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Post("/auth/login", h.Auth.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(authn, logger))

		r.Get("/products", h.Product.List)
		r.Get("/products/{id}", h.Product.GetByID)

		r.Post("/payment/stripe/get-payment-intent-token", h.Payment.IntentToken)
		r.Post("/payment/stripe/finalize", h.Payment.Finalize)

		r.Get("/orders/{id}", h.Order.GetByID)
		r.Get("/orders/{id}/invoice", h.Order.Invoice)

		r.Post("/job-search", h.JobSearch.Request)
		r.Get("/job-search/{id}", h.JobSearch.GetByID)
		r.Get("/dashboard", h.JobSearch.Dashboard)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin(logger))

			r.Post("/products", h.Product.Create)
			r.Delete("/products/{id}", h.Product.Delete)
			r.Get("/orders/stuck", h.Order.ListStuck)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, model.ErrNotFound, logger)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteError(w, model.ErrMethodNotAllowed, logger)
	})

	return r
}
