// internal/service/publishing/application/pipeline/preflight.go
package pipeline

import "go.opentelemetry.io/otel/attribute"

// PreflightHandler 在任何副作用之前拦截配置性问题。
// 规则被停用或频道没有凭据都不是瞬态故障，重试毫无意义。
type PreflightHandler struct {
	NextHandler
}

func (h *PreflightHandler) Handle(pubCtx *PublishContext) error {
	_, span := pubCtx.Tracer.Start(pubCtx.Ctx, "pipeline.Preflight")
	defer span.End()
	span.SetAttributes(
		attribute.String("deal.id", pubCtx.Deal.ID),
		attribute.String("rule.id", pubCtx.Rule.ID),
	)

	if !pubCtx.Rule.Active {
		span.AddEvent("rule disabled")
		return &CancelError{Reason: CancelRuleDisabled}
	}
	if !pubCtx.Channel.HasCredential() {
		span.AddEvent("channel has no credential")
		return &CancelError{Reason: CancelNoCredential}
	}

	return h.executeNext(pubCtx)
}
