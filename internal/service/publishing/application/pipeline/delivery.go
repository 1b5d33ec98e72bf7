// internal/service/publishing/application/pipeline/delivery.go
package pipeline

import (
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DeliveryHandler 把渲染好的消息投递到外部渠道。
// 失败驱动任务的重试计数；租到的跟踪标识不在这里释放，
// 到期清扫会回收它。
type DeliveryHandler struct {
	NextHandler
}

func (h *DeliveryHandler) Handle(pubCtx *PublishContext) error {
	ctx, span := pubCtx.Tracer.Start(pubCtx.Ctx, "pipeline.Deliver")
	defer span.End()
	span.SetAttributes(attribute.String("channel.platform", pubCtx.Channel.Platform))

	messageID, err := pubCtx.Delivery.Send(ctx, pubCtx.Channel, pubCtx.PlaintextCredential, pubCtx.MessageText)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delivery failed")
		return errors.Wrap(err, "deliver message")
	}
	pubCtx.ExternalMessageID = messageID
	span.SetAttributes(attribute.String("message.external_id", messageID))

	return h.executeNext(pubCtx)
}
