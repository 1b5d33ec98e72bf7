// internal/service/catalog/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealwire/internal/service/catalog/domain"
)

// GormProductRepository 是 ProductRepository 的 GORM 实现。
type GormProductRepository struct {
	db *gorm.DB
}

func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) FindByASIN(ctx context.Context, asin string) (*domain.Product, error) {
	var model ProductCacheModel
	err := r.db.WithContext(ctx).Where("asin = ?", asin).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	return toProductDomain(&model), nil
}

func (r *GormProductRepository) Upsert(ctx context.Context, product *domain.Product) error {
	model := toProductModel(product)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asin"}},
		UpdateAll: true,
	}).Create(model).Error
}

func toProductModel(p *domain.Product) *ProductCacheModel {
	return &ProductCacheModel{
		ASIN:          p.ASIN,
		Title:         p.Title,
		Price:         p.Price,
		ListPrice:     p.ListPrice,
		Currency:      p.Currency,
		SalesRank:     p.SalesRank,
		Rating:        p.Rating,
		ReviewCount:   p.ReviewCount,
		Category:      p.Category,
		ImageURL:      p.ImageURL,
		LastCheckedAt: p.LastCheckedAt,
		TTLMinutes:    p.TTLMinutes,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProductDomain(m *ProductCacheModel) *domain.Product {
	return &domain.Product{
		ASIN:          m.ASIN,
		Title:         m.Title,
		Price:         m.Price,
		ListPrice:     m.ListPrice,
		Currency:      m.Currency,
		SalesRank:     m.SalesRank,
		Rating:        m.Rating,
		ReviewCount:   m.ReviewCount,
		Category:      m.Category,
		ImageURL:      m.ImageURL,
		LastCheckedAt: m.LastCheckedAt,
		TTLMinutes:    m.TTLMinutes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// GormBudgetRepository 是 BudgetRepository 的 GORM 实现（配额镜像）。
type GormBudgetRepository struct {
	db *gorm.DB
}

func NewGormBudgetRepository(db *gorm.DB) *GormBudgetRepository {
	return &GormBudgetRepository{db: db}
}

func (r *GormBudgetRepository) Find(ctx context.Context, userID, monthKey string) (*domain.MonthlyBudget, error) {
	var model MonthlyBudgetModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month_key = ?", userID, monthKey).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &domain.MonthlyBudget{
		UserID:      model.UserID,
		MonthKey:    model.MonthKey,
		TokensUsed:  model.TokensUsed,
		TokensLimit: model.TokensLimit,
		ResetAt:     model.ResetAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

func (r *GormBudgetRepository) Upsert(ctx context.Context, budget *domain.MonthlyBudget) error {
	model := &MonthlyBudgetModel{
		UserID:      budget.UserID,
		MonthKey:    budget.MonthKey,
		TokensUsed:  budget.TokensUsed,
		TokensLimit: budget.TokensLimit,
		ResetAt:     budget.ResetAt,
		UpdatedAt:   budget.UpdatedAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "month_key"}},
		UpdateAll: true,
	}).Create(model).Error
}
