// internal/service/publishing/infrastructure/copy_ai_adapter.go
package infrastructure

import (
	"context"

	"dealwire/internal/pkg/httpclient"
	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/publishing/port"
)

// AICopyAdapter 调用外部文案生成服务，任何失败都回退到模板。
// 对上层来说这个适配器永不失败。
type AICopyAdapter struct {
	client   *httpclient.Client
	endpoint string
	fallback *TemplateCopyGenerator
}

func NewAICopyAdapter(client *httpclient.Client, endpoint string) *AICopyAdapter {
	return &AICopyAdapter{
		client:   client,
		endpoint: endpoint,
		fallback: NewTemplateCopyGenerator(),
	}
}

func (a *AICopyAdapter) Generate(ctx context.Context, payload port.CopyPayload, style string) port.CopyResult {
	if a.endpoint == "" {
		return a.fallback.Generate(ctx, payload, style)
	}

	req := map[string]interface{}{
		"title":    payload.Title,
		"asin":     payload.ASIN,
		"price":    payload.Price,
		"oldPrice": payload.OldPrice,
		"discount": payload.Discount,
		"category": payload.Category,
		"link":     payload.Link,
		"style":    style,
	}
	var resp struct {
		Text string `json:"text"`
	}
	if err := a.client.PostJSON(ctx, a.endpoint, req, &resp); err != nil || resp.Text == "" {
		logger.Ctx(ctx).Warn().Err(err).Str("asin", payload.ASIN).Msg("ai copy unavailable, using template")
		return a.fallback.Generate(ctx, payload, style)
	}
	return port.CopyResult{Text: resp.Text, Source: "ai"}
}
