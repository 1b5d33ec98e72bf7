// internal/service/rules/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dealwire/internal/service/rules/domain"
)

// GormChannelRepository 是 ChannelRepository 的 GORM 实现。
type GormChannelRepository struct {
	db *gorm.DB
}

func NewGormChannelRepository(db *gorm.DB) *GormChannelRepository {
	return &GormChannelRepository{db: db}
}

func (r *GormChannelRepository) FindByID(ctx context.Context, id string) (*domain.Channel, error) {
	var model ChannelModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return ToDomainChannel(&model), nil
}

// GormRuleRepository 是 RuleRepository 的 GORM 实现。
type GormRuleRepository struct {
	db *gorm.DB
}

func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

func (r *GormRuleRepository) FindByID(ctx context.Context, id string) (*domain.PublishRule, error) {
	var model PublishRuleModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, err
	}
	return ToDomainRule(&model), nil
}

func (r *GormRuleRepository) IncrementPublished(ctx context.Context, ruleID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&PublishRuleModel{}).
		Where("id = ?", ruleID).
		Updates(map[string]interface{}{
			"total_published":   gorm.Expr("total_published + 1"),
			"last_published_at": at,
		}).Error
}
