// internal/service/scheduling/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dealwire/internal/service/scheduling/domain"
)

// GormDealRepository 是 ScheduledDealRepository 的 GORM 实现。
type GormDealRepository struct {
	db *gorm.DB
}

func NewGormDealRepository(db *gorm.DB) *GormDealRepository {
	return &GormDealRepository{db: db}
}

func (r *GormDealRepository) Save(ctx context.Context, deal *domain.ScheduledDeal) error {
	return r.db.WithContext(ctx).Save(toModel(deal)).Error
}

func (r *GormDealRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledDeal, error) {
	var model ScheduledDealModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrDealNotFound
		}
		return nil, err
	}
	return toDomain(&model), nil
}

func (r *GormDealRepository) DueForPublish(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledDeal, error) {
	var models []ScheduledDealModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", domain.StatusPending, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	deals := make([]*domain.ScheduledDeal, 0, len(models))
	for i := range models {
		deals = append(deals, toDomain(&models[i]))
	}
	return deals, nil
}

// Claim 用条件 UPDATE 实现原子认领：只有仍处于 pending 的行会被翻转。
// RowsAffected == 0 意味着别的周期先到了一步。
func (r *GormDealRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("id = ? AND status = ?", id, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":     domain.StatusProcessing,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormDealRepository) ReleaseClaim(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("id = ? AND status = ?", id, domain.StatusProcessing).
		Updates(map[string]interface{}{
			"status":     domain.StatusPending,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormDealRepository) CountInWindow(ctx context.Context, channelID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("channel_id = ? AND status IN ? AND scheduled_for >= ? AND scheduled_for < ?",
			channelID, []string{string(domain.StatusPending), string(domain.StatusProcessing)}, from, to).
		Count(&count).Error
	return count, err
}

func (r *GormDealRepository) CancelPendingByASIN(ctx context.Context, channelID, asin, reason string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("channel_id = ? AND asin = ? AND status = ?", channelID, asin, domain.StatusPending).
		Updates(map[string]interface{}{
			"status":        domain.StatusCancelled,
			"cancel_reason": reason,
			"cancelled_at":  now,
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

func (r *GormDealRepository) ExpireStalePending(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("status = ? AND scheduled_for < ?", domain.StatusPending, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.StatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

// ReclaimStaleProcessing 按 updated_at 判断孤儿：认领和每次状态变更都会刷新
// updated_at，所以早于 cutoff 的 processing 行只能是 worker 半途死掉留下的。
func (r *GormDealRepository) ReclaimStaleProcessing(ctx context.Context, cutoff, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&ScheduledDealModel{}).
		Where("status = ? AND updated_at < ?", domain.StatusProcessing, cutoff).
		Updates(map[string]interface{}{
			"status":     domain.StatusPending,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
