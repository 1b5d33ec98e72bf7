// internal/service/rules/application/directory.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealwire/internal/pkg/logger"
	"dealwire/internal/service/rules/domain"
)

// Qualifier 抽象规则过滤表达式的求值器，由基础设施层（CEL）实现。
type Qualifier interface {
	Evaluate(expr string, facts map[string]interface{}) (bool, error)
}

// Directory 是规则/频道目录的只读门面。
// 调度器和发布 worker 都通过它拿规则上下文，不直接碰仓储。
type Directory struct {
	rules     domain.RuleRepository
	channels  domain.ChannelRepository
	qualifier Qualifier
	tracer    trace.Tracer
}

// NewDirectory 创建目录实例。
func NewDirectory(rules domain.RuleRepository, channels domain.ChannelRepository, qualifier Qualifier, tracer trace.Tracer) *Directory {
	return &Directory{rules: rules, channels: channels, qualifier: qualifier, tracer: tracer}
}

// RuleContext 返回规则及其所属频道。
func (d *Directory) RuleContext(ctx context.Context, ruleID string) (*domain.PublishRule, *domain.Channel, error) {
	rule, err := d.rules.FindByID(ctx, ruleID)
	if err != nil {
		return nil, nil, err
	}
	channel, err := d.channels.FindByID(ctx, rule.ChannelID)
	if err != nil {
		return nil, nil, err
	}
	return rule, channel, nil
}

// Qualify 评估规则的过滤表达式。
// 过滤器是建议性的：表达式为空放行，编译/求值出错也放行（只记警告），
// 保证配置错误不会悄悄吞掉所有 deal。
func (d *Directory) Qualify(ctx context.Context, rule *domain.PublishRule, facts map[string]interface{}) bool {
	if rule.FilterExpr == "" {
		return true
	}
	ctx, span := d.tracer.Start(ctx, "rules.Qualify")
	defer span.End()
	span.SetAttributes(attribute.String("rule.id", rule.ID))

	ok, err := d.qualifier.Evaluate(rule.FilterExpr, facts)
	if err != nil {
		span.RecordError(err)
		logger.Ctx(ctx).Warn().Err(err).Str("rule_id", rule.ID).Msg("rule filter failed, letting deal through")
		return true
	}
	return ok
}

// RecordPublication 在一次成功发布后更新规则计数。
func (d *Directory) RecordPublication(ctx context.Context, ruleID string, at time.Time) {
	if err := d.rules.IncrementPublished(ctx, ruleID, at); err != nil {
		// 计数是观测用途，失败不影响发布结果
		logger.Ctx(ctx).Error().Err(err).Str("rule_id", ruleID).Msg("failed to bump publish counter")
	}
}
