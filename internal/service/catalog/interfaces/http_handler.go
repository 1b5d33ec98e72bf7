// internal/service/catalog/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"dealwire/internal/service/catalog/application"
	"dealwire/internal/service/catalog/domain"
)

var tracer = otel.Tracer("deal-api")

// CatalogHandler 暴露商品缓存读取。
type CatalogHandler struct {
	service *application.CacheService
}

func NewCatalogHandler(service *application.CacheService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

func (h *CatalogHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/catalog/product", h.getProduct)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.GetProduct")
	defer span.End()

	userID := r.URL.Query().Get("userId")
	asin := r.URL.Query().Get("asin")
	if userID == "" || asin == "" {
		http.Error(w, "userId and asin are required", http.StatusBadRequest)
		return
	}

	product, err := h.service.Get(ctx, userID, asin)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrBudgetExhausted) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
			return
		}
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(product)
}
