// internal/service/publishing/infrastructure/copy_template_adapter.go
package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"dealwire/internal/service/publishing/port"
)

// TemplateCopyGenerator 是确定性的模板文案生成器，也是 AI 路径的兜底。
// 契约要求 Generate 永不失败。
type TemplateCopyGenerator struct{}

func NewTemplateCopyGenerator() *TemplateCopyGenerator {
	return &TemplateCopyGenerator{}
}

func (g *TemplateCopyGenerator) Generate(_ context.Context, payload port.CopyPayload, style string) port.CopyResult {
	var b strings.Builder
	if style == "minimal" {
		fmt.Fprintf(&b, "%s\n%.2f\n%s", payload.Title, payload.Price, payload.Link)
		return port.CopyResult{Text: b.String(), Source: "template"}
	}

	fmt.Fprintf(&b, "🔥 %s\n\n", payload.Title)
	if payload.Discount > 0 && payload.OldPrice > payload.Price {
		fmt.Fprintf(&b, "💰 %.2f (was %.2f, -%d%%)\n", payload.Price, payload.OldPrice, payload.Discount)
	} else {
		fmt.Fprintf(&b, "💰 %.2f\n", payload.Price)
	}
	if payload.Category != "" {
		fmt.Fprintf(&b, "🏷 %s\n", payload.Category)
	}
	fmt.Fprintf(&b, "\n👉 %s", payload.Link)
	return port.CopyResult{Text: b.String(), Source: "template"}
}
