// internal/service/rules/domain/repository.go
package domain

import (
	"context"
	"time"
)

// ChannelRepository 定义频道的持久化接口，由基础设施层实现。
type ChannelRepository interface {
	FindByID(ctx context.Context, id string) (*Channel, error)
}

// RuleRepository 定义发布规则的持久化接口。
type RuleRepository interface {
	FindByID(ctx context.Context, id string) (*PublishRule, error)

	// IncrementPublished 在一次成功发布后累加规则的发布计数。
	IncrementPublished(ctx context.Context, ruleID string, at time.Time) error
}
