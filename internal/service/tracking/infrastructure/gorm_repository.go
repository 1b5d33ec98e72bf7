// internal/service/tracking/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dealwire/internal/service/tracking/domain"
)

// GormPoolRepository 是 tracking/domain.Repository 的 GORM 实现。
type GormPoolRepository struct {
	db *gorm.DB
}

func NewGormPoolRepository(db *gorm.DB) *GormPoolRepository {
	return &GormPoolRepository{db: db}
}

func (r *GormPoolRepository) Insert(ctx context.Context, record *domain.Record) error {
	return r.db.WithContext(ctx).Create(toModel(record)).Error
}

// NextAvailable 的排序实现 FIFO 公平性：从未使用的（last_used_at IS NULL）
// 排最前，其次按最久未用，再按入池顺序。
func (r *GormPoolRepository) NextAvailable(ctx context.Context, userID string) (*domain.Record, error) {
	var model TrackingIdentifierModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, domain.StatusAvailable).
		Order("last_used_at IS NOT NULL, last_used_at ASC, created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// AcquireLease 用单条条件 UPDATE 做 CAS：status='available' 是前置条件，
// RowsAffected == 0 说明竞争失败。使用计数在同一条语句里累加。
func (r *GormPoolRepository) AcquireLease(ctx context.Context, recordID, leaseID, historyID string, now, expiresAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("id = ? AND status = ?", recordID, domain.StatusAvailable).
		Updates(map[string]interface{}{
			"status":          domain.StatusInUse,
			"lease_id":        leaseID,
			"deal_history_id": historyID,
			"assigned_at":     now,
			"expires_at":      expiresAt,
			"last_used_at":    now,
			"total_uses":      gorm.Expr("total_uses + 1"),
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormPoolRepository) FindByLeaseID(ctx context.Context, leaseID string) (*domain.Record, error) {
	var model TrackingIdentifierModel
	err := r.db.WithContext(ctx).
		Where("lease_id = ? AND status = ?", leaseID, domain.StatusInUse).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, err
	}
	return toDomain(&model), nil
}

// ClearLease 条件翻转 in_use → available；重复释放时 RowsAffected 为 0。
func (r *GormPoolRepository) ClearLease(ctx context.Context, leaseID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("lease_id = ? AND status = ?", leaseID, domain.StatusInUse).
		Updates(map[string]interface{}{
			"status":          domain.StatusAvailable,
			"lease_id":        nil,
			"deal_history_id": nil,
			"assigned_at":     nil,
			"expires_at":      nil,
			"updated_at":      now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormPoolRepository) LinkHistory(ctx context.Context, leaseID, historyID string) error {
	result := r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("lease_id = ? AND status = ?", leaseID, domain.StatusInUse).
		Update("deal_history_id", historyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *GormPoolRepository) FindExpired(ctx context.Context, now time.Time) ([]*domain.Record, error) {
	var models []TrackingIdentifierModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", domain.StatusInUse, now).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	records := make([]*domain.Record, 0, len(models))
	for i := range models {
		records = append(records, toDomain(&models[i]))
	}
	return records, nil
}

// Delete 只删 available 的记录，正在租用的标识不允许撤回。
func (r *GormPoolRepository) Delete(ctx context.Context, recordID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", recordID, domain.StatusAvailable).
		Delete(&TrackingIdentifierModel{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormPoolRepository) Stats(ctx context.Context, userID string) (*domain.Stats, error) {
	stats := &domain.Stats{}
	err := r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("user_id = ? AND status = ?", userID, domain.StatusAvailable).
		Count(&stats.Available).Error
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("user_id = ? AND status = ?", userID, domain.StatusInUse).
		Count(&stats.InUse).Error
	if err != nil {
		return nil, err
	}
	row := r.db.WithContext(ctx).Model(&TrackingIdentifierModel{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(total_uses), 0)").Row()
	if err := row.Scan(&stats.TotalUses); err != nil {
		return nil, err
	}
	return stats, nil
}
