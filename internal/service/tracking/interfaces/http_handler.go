// internal/service/tracking/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"dealwire/internal/service/tracking/application"
	"dealwire/internal/service/tracking/domain"
)

var tracer = otel.Tracer("deal-api")

// PoolHandler 封装跟踪标识池的 HTTP 处理器。
type PoolHandler struct {
	service *application.PoolService
}

func NewPoolHandler(service *application.PoolService) *PoolHandler {
	return &PoolHandler{service: service}
}

func (h *PoolHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/pool/lease", h.lease)
	mux.HandleFunc("/pool/release", h.release)
	mux.HandleFunc("/pool/add", h.add)
	mux.HandleFunc("/pool/remove", h.remove)
	mux.HandleFunc("/pool/stats", h.stats)
}

func (h *PoolHandler) lease(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.PoolLease")
	defer span.End()

	var req struct {
		UserID    string `json:"userId"`
		ContextID string `json:"contextId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	lease, ok := h.service.Lease(ctx, req.UserID, req.ContextID)
	if !ok {
		// 池子为空不是错误，返回 204 让调用方走"无跟踪标识"路径
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"leaseId":    lease.LeaseID,
		"identifier": lease.Identifier,
		"expiresAt":  lease.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *PoolHandler) release(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.PoolRelease")
	defer span.End()

	leaseID := r.URL.Query().Get("leaseId")
	reason := r.URL.Query().Get("reason")
	if leaseID == "" {
		http.Error(w, "leaseId is required", http.StatusBadRequest)
		return
	}
	if reason == "" {
		reason = string(domain.ReleaseManual)
	}

	if !h.service.Release(ctx, leaseID, domain.ReleaseReason(reason)) {
		http.Error(w, "lease not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PoolHandler) add(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.PoolAdd")
	defer span.End()

	var req struct {
		UserID     string `json:"userId"`
		Identifier string `json:"identifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Identifier == "" {
		http.Error(w, "userId and identifier are required", http.StatusBadRequest)
		return
	}

	id, err := h.service.Add(ctx, req.UserID, req.Identifier)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

func (h *PoolHandler) remove(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.PoolRemove")
	defer span.End()

	recordID := r.URL.Query().Get("id")
	if recordID == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}

	if !h.service.Remove(ctx, recordID) {
		http.Error(w, "record not found or leased", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PoolHandler) stats(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.PoolStats")
	defer span.End()

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	stats, err := h.service.Stats(ctx, userID)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
