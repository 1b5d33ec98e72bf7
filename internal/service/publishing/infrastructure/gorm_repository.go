// internal/service/publishing/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"dealwire/internal/service/publishing/domain"
)

// GormHistoryRepository 是 HistoryRepository 的 GORM 实现。
// 同时实现 tracking 侧的 HistoryInvalidator 端口。
type GormHistoryRepository struct {
	db *gorm.DB
}

func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

func (r *GormHistoryRepository) Insert(ctx context.Context, history *domain.PublicationHistory) error {
	return r.db.WithContext(ctx).Create(toHistoryModel(history)).Error
}

func (r *GormHistoryRepository) FindByID(ctx context.Context, id string) (*domain.PublicationHistory, error) {
	var model PublicationHistoryModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrHistoryNotFound
		}
		return nil, err
	}
	return toHistoryDomain(&model), nil
}

// Invalidate 幂等打失效标：已失效的行不再更新时间戳。
func (r *GormHistoryRepository) Invalidate(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&PublicationHistoryModel{}).
		Where("id = ? AND invalidated = ?", id, false).
		Updates(map[string]interface{}{
			"invalidated":    true,
			"invalidated_at": at,
		}).Error
}

func toHistoryModel(h *domain.PublicationHistory) *PublicationHistoryModel {
	model := &PublicationHistoryModel{
		ID:                 h.ID,
		DealID:             h.DealID,
		ChannelID:          h.ChannelID,
		RuleID:             h.RuleID,
		ASIN:               h.ASIN,
		Title:              h.Title,
		Price:              h.Price,
		OldPrice:           h.OldPrice,
		Discount:           h.Discount,
		Score:              h.Score,
		MessageText:        h.MessageText,
		CopySource:         h.CopySource,
		TrackingIdentifier: h.TrackingIdentifier,
		OutboundLink:       h.OutboundLink,
		ExternalMessageID:  h.ExternalMessageID,
		PublishedAt:        h.PublishedAt,
		Invalidated:        h.Invalidated,
		CreatedAt:          h.CreatedAt,
	}
	if h.InvalidatedAt != nil {
		model.InvalidatedAt = sql.NullTime{Time: *h.InvalidatedAt, Valid: true}
	}
	return model
}

func toHistoryDomain(m *PublicationHistoryModel) *domain.PublicationHistory {
	h := &domain.PublicationHistory{
		ID:                 m.ID,
		DealID:             m.DealID,
		ChannelID:          m.ChannelID,
		RuleID:             m.RuleID,
		ASIN:               m.ASIN,
		Title:              m.Title,
		Price:              m.Price,
		OldPrice:           m.OldPrice,
		Discount:           m.Discount,
		Score:              m.Score,
		MessageText:        m.MessageText,
		CopySource:         m.CopySource,
		TrackingIdentifier: m.TrackingIdentifier,
		OutboundLink:       m.OutboundLink,
		ExternalMessageID:  m.ExternalMessageID,
		PublishedAt:        m.PublishedAt,
		Invalidated:        m.Invalidated,
		CreatedAt:          m.CreatedAt,
	}
	if m.InvalidatedAt.Valid {
		t := m.InvalidatedAt.Time
		h.InvalidatedAt = &t
	}
	return h
}
