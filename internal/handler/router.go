package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/EviternDev/pharma-erp/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware кассы.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Logger(h.logger))

	// promhttp сам договаривается о сжатии, поэтому /metrics живёт вне GzipMiddleware.
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(custommiddleware.GzipMiddleware)
		r.Use(custommiddleware.Operator)

		r.Post("/medicines", h.CreateMedicine)
		r.Get("/medicines/{id}/batches", h.ListSellableBatches)

		r.Post("/batches", h.ReceiveBatch)

		r.Post("/sales/quote", h.QuoteSale)
		r.Post("/sales", h.CreateSale)
		r.Get("/sales/{id}", h.GetSale)

		r.Post("/sale-items/{id}/returns", h.ReturnSaleItem)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
