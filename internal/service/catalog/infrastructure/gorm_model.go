// internal/service/catalog/infrastructure/gorm_model.go
package infrastructure

import "time"

// ProductCacheModel 是商品缓存的持久化对象。
type ProductCacheModel struct {
	ASIN          string `gorm:"primaryKey;size:20"`
	Title         string `gorm:"size:512"`
	Price         float64
	ListPrice     float64
	Currency      string `gorm:"size:8"`
	SalesRank     int
	Rating        float64
	ReviewCount   int
	Category      string    `gorm:"size:128"`
	ImageURL      string    `gorm:"size:512"`
	LastCheckedAt time.Time `gorm:"index:idx_checked"`
	TTLMinutes    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ProductCacheModel) TableName() string {
	return "product_cache"
}

// MonthlyBudgetModel 镜像每用户每月的配额消耗。
type MonthlyBudgetModel struct {
	UserID      string `gorm:"primaryKey;size:64"`
	MonthKey    string `gorm:"primaryKey;size:8"`
	TokensUsed  int64
	TokensLimit int64
	ResetAt     time.Time
	UpdatedAt   time.Time
}

func (MonthlyBudgetModel) TableName() string {
	return "monthly_budget"
}
