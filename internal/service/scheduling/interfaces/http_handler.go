// internal/service/scheduling/interfaces/http_handler.go
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"dealwire/internal/service/scheduling/application"
	"dealwire/internal/service/scheduling/domain"
)

const serviceName = "deal-api"

var tracer = otel.Tracer(serviceName)

// SchedulerHandler 封装调度服务的 HTTP 处理器。
type SchedulerHandler struct {
	service *application.SchedulerService
}

func NewSchedulerHandler(service *application.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由。
func (h *SchedulerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/schedule_deal", h.scheduleDeal)
	mux.HandleFunc("/deals_ready", h.dealsReady)
	mux.HandleFunc("/cancel_deal", h.cancelDeal)
	mux.HandleFunc("/cancel_by_asin", h.cancelByASIN)
	mux.HandleFunc("/cleanup_stale", h.cleanupStale)
}

func (h *SchedulerHandler) scheduleDeal(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.ScheduleDeal")
	defer span.End()

	var input application.ScheduleInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Schedule(ctx, &input)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrDealNotQualify) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (h *SchedulerHandler) dealsReady(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.DealsReady")
	defer span.End()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}

	ready, err := h.service.DealsReadyToPublish(ctx, limit)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type item struct {
		DealID       string `json:"dealId"`
		ASIN         string `json:"asin"`
		ChannelID    string `json:"channelId"`
		ScheduledFor string `json:"scheduledFor"`
	}
	items := make([]item, 0, len(ready))
	for _, rd := range ready {
		items = append(items, item{
			DealID:       rd.Deal.ID,
			ASIN:         rd.Deal.ASIN,
			ChannelID:    rd.Deal.ChannelID,
			ScheduledFor: rd.Deal.ScheduledFor.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

func (h *SchedulerHandler) cancelDeal(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.CancelDeal")
	defer span.End()

	dealID := r.URL.Query().Get("dealId")
	reason := r.URL.Query().Get("reason")
	if dealID == "" {
		http.Error(w, "dealId is required", http.StatusBadRequest)
		return
	}
	if reason == "" {
		reason = "manual"
	}

	if err := h.service.CancelScheduledDeal(ctx, dealID, reason); err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *SchedulerHandler) cancelByASIN(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.CancelByASIN")
	defer span.End()

	channelID := r.URL.Query().Get("channelId")
	asin := r.URL.Query().Get("asin")
	if channelID == "" || asin == "" {
		http.Error(w, "channelId and asin are required", http.StatusBadRequest)
		return
	}

	count, err := h.service.CancelDealsByASIN(ctx, channelID, asin, "deal_withdrawn")
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"cancelled": count})
}

func (h *SchedulerHandler) cleanupStale(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := tracer.Start(ctx, "api.CleanupStale")
	defer span.End()

	count, err := h.service.CleanupStaleDeals(ctx)
	if err != nil {
		span.RecordError(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{"expired": count})
}
