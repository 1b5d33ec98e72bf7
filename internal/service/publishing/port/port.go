// internal/service/publishing/port/port.go
package port

import (
	"context"
	"time"

	rulesdomain "dealwire/internal/service/rules/domain"
)

// LeaseGrant 是一次成功的跟踪标识租用。
type LeaseGrant struct {
	LeaseID    string
	Identifier string
	ExpiresAt  time.Time
}

// TrackingPool 是发布流水线看到的跟踪标识池。
// Lease 返回 (nil, false) 表示池子为空——发布照常进行，只是不带跟踪标识。
type TrackingPool interface {
	Lease(ctx context.Context, userID, contextID string) (*LeaseGrant, bool)
	Link(ctx context.Context, leaseID, historyID string) bool
}

// CopyPayload 是文案生成器的输入。
type CopyPayload struct {
	Title    string
	ASIN     string
	Price    float64
	OldPrice float64
	Discount int
	Category string
	Link     string
}

// CopyResult 标注文案来源（ai / template），便于事后分析。
type CopyResult struct {
	Text   string
	Source string
}

// CopyGenerator 生成出站消息文案。实现必须永不失败：
// 上游（AI 等）不可用时内部回退到确定性模板。
type CopyGenerator interface {
	Generate(ctx context.Context, payload CopyPayload, style string) CopyResult
}

// CredentialStore 解密频道投递凭据。密文被篡改时返回错误。
type CredentialStore interface {
	Decrypt(encrypted string) (string, error)
}

// DeliveryChannel 把渲染好的消息投递到外部渠道，
// 成功时返回渠道侧的消息标识。
type DeliveryChannel interface {
	Send(ctx context.Context, channel *rulesdomain.Channel, credential, message string) (externalMessageID string, err error)
}
