// internal/service/publishing/application/pipeline/tracking.go
package pipeline

import "go.opentelemetry.io/otel/attribute"

// TrackingHandler 为本次发布租用一个跟踪标识。
// 池子为空不是失败：跟踪是尽力而为，发布照常继续。
type TrackingHandler struct {
	NextHandler
}

func (h *TrackingHandler) Handle(pubCtx *PublishContext) error {
	ctx, span := pubCtx.Tracer.Start(pubCtx.Ctx, "pipeline.LeaseTracking")
	defer span.End()

	lease, ok := pubCtx.Pool.Lease(ctx, pubCtx.Channel.UserID, pubCtx.Deal.ID)
	if ok {
		pubCtx.Lease = lease
		span.SetAttributes(attribute.String("lease.id", lease.LeaseID))
	} else {
		span.AddEvent("tracking pool empty, publishing without identifier")
	}

	return h.executeNext(pubCtx)
}
