// internal/service/publishing/application/pipeline/compose.go
package pipeline

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"dealwire/internal/service/publishing/port"
)

// ComposeHandler 解析联盟标签、拼出站链接并请求文案。
// 标签优先用租到的跟踪标识，池子为空时退回频道的固定联盟标签。
type ComposeHandler struct {
	NextHandler
}

func (h *ComposeHandler) Handle(pubCtx *PublishContext) error {
	ctx, span := pubCtx.Tracer.Start(pubCtx.Ctx, "pipeline.ComposeMessage")
	defer span.End()

	tag := pubCtx.Channel.AffiliateTag
	if pubCtx.Lease != nil {
		tag = pubCtx.Lease.Identifier
	}
	pubCtx.OutboundLink = fmt.Sprintf("https://www.amazon.com/dp/%s?tag=%s", pubCtx.Deal.ASIN, tag)

	// 文案生成器契约上永不失败，内部自带模板兜底
	result := pubCtx.Copy.Generate(ctx, port.CopyPayload{
		Title:    pubCtx.Deal.Title,
		ASIN:     pubCtx.Deal.ASIN,
		Price:    pubCtx.Deal.Price,
		OldPrice: pubCtx.Deal.OldPrice,
		Discount: pubCtx.Deal.Discount,
		Category: pubCtx.Deal.Category,
		Link:     pubCtx.OutboundLink,
	}, pubCtx.Rule.CopyStyle)
	pubCtx.MessageText = result.Text
	pubCtx.CopySource = result.Source
	span.SetAttributes(attribute.String("copy.source", result.Source))

	return h.executeNext(pubCtx)
}
