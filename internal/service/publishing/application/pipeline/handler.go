// internal/service/publishing/application/pipeline/handler.go
package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/service/publishing/port"
	rulesdomain "dealwire/internal/service/rules/domain"
	schedulingdomain "dealwire/internal/service/scheduling/domain"
)

// 配置类取消原因：规则被停用 / 频道没有投递凭据。
// 这两种情况是终态取消，不走重试。
const (
	CancelRuleDisabled = "rule_disabled"
	CancelNoCredential = "no_credential"
)

// CancelError 表示一次配置性终止：任务应当被取消而不是重试。
type CancelError struct {
	Reason string
}

func (e *CancelError) Error() string {
	return fmt.Sprintf("publish cancelled: %s", e.Reason)
}

// PublishContext 在流水线各步骤之间传递上下文数据。
// 外部依赖全部是出站端口，步骤只认接口。
type PublishContext struct {
	Ctx     context.Context
	Deal    *schedulingdomain.ScheduledDeal
	Rule    *rulesdomain.PublishRule
	Channel *rulesdomain.Channel
	Tracer  trace.Tracer

	// 出站端口
	Credentials port.CredentialStore
	Pool        port.TrackingPool
	Copy        port.CopyGenerator
	Delivery    port.DeliveryChannel

	// 各步骤产出
	PlaintextCredential string
	Lease               *port.LeaseGrant
	OutboundLink        string
	MessageText         string
	CopySource          string
	ExternalMessageID   string
}

type Handler interface {
	SetNext(handler Handler) Handler
	Handle(pubCtx *PublishContext) error
}

// NextHandler 嵌入到具体处理器中，减少链式调用的重复代码。
type NextHandler struct {
	next Handler
}

func (h *NextHandler) SetNext(handler Handler) Handler {
	h.next = handler
	return handler
}

func (h *NextHandler) executeNext(pubCtx *PublishContext) error {
	if h.next != nil {
		return h.next.Handle(pubCtx)
	}
	return nil
}

// NewChain 按固定顺序组装发布链：
// 预检 → 解密凭据 → 租跟踪标识 → 组链接和文案 → 投递。
func NewChain() Handler {
	preflight := &PreflightHandler{}
	credential := &CredentialHandler{}
	tracking := &TrackingHandler{}
	compose := &ComposeHandler{}
	delivery := &DeliveryHandler{}

	preflight.SetNext(credential).
		SetNext(tracking).
		SetNext(compose).
		SetNext(delivery)
	return preflight
}
