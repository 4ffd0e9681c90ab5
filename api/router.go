package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"goflare.io/printshop/metrics"
)

func NewRouter(handler *Handler, m *metrics.Metrics, metricsHandler http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger, m))
	r.Use(middleware.Recoverer)

	r.Get("/products", handler.ListProducts)
	r.Get("/products/{id}", handler.GetProduct)

	r.Post("/checkout", handler.Checkout)

	r.Route("/cart", func(r chi.Router) {
		r.Get("/", handler.GetCart)
		r.Delete("/", handler.ClearCart)
		r.Post("/items", handler.AddCartItem)
		r.Patch("/items", handler.UpdateCartItem)
		r.Delete("/items/{productID}/{variantID}", handler.RemoveCartItem)
	})

	r.Route("/admin/reconciliations", func(r chi.Router) {
		r.Get("/", handler.ListReconciliations)
		r.Post("/{id}/void", handler.VoidReconciliation)
		r.Post("/{id}/resolve", handler.ResolveReconciliation)
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	return r
}
