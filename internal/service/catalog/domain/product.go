// internal/service/catalog/domain/product.go
package domain

import (
	"errors"
	"time"
)

var ErrProductNotFound = errors.New("product not found in cache")

// Freshness 是缓存记录按剩余 TTL 划分的新鲜度档位。
type Freshness string

const (
	FreshnessFresh    Freshness = "fresh"
	FreshnessValid    Freshness = "valid"
	FreshnessExpiring Freshness = "expiring"
	FreshnessCritical Freshness = "critical"
	FreshnessExpired  Freshness = "expired"
)

// FreshnessConfig 保存档位阈值（单位分钟）。这些常数是产品侧调出来的，
// 做成可配置但不要随意改默认值。
type FreshnessConfig struct {
	TTLMinutes    int // 每次成功刷新后重置的完整窗口
	CriticalBelow int
	ExpiringBelow int
	ValidBelow    int
}

func DefaultFreshnessConfig() FreshnessConfig {
	return FreshnessConfig{
		TTLMinutes:    1440,
		CriticalBelow: 360,
		ExpiringBelow: 720,
		ValidBelow:    1200,
	}
}

// Product 是上游商品数据的缓存视图加 TTL 记账。
type Product struct {
	ASIN          string
	Title         string
	Price         float64
	ListPrice     float64
	Currency      string
	SalesRank     int
	Rating        float64
	ReviewCount   int
	Category      string
	ImageURL      string
	LastCheckedAt time.Time
	TTLMinutes    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Remaining 返回剩余新鲜度预算（分钟），可以为负。
func (p *Product) Remaining(now time.Time) int {
	elapsed := int(now.Sub(p.LastCheckedAt).Minutes())
	return p.TTLMinutes - elapsed
}

// Freshness 按剩余分钟归档：<0 expired，<360 critical，<720 expiring，
// <1200 valid，否则 fresh。
func (p *Product) Freshness(now time.Time, cfg FreshnessConfig) Freshness {
	remaining := p.Remaining(now)
	switch {
	case remaining < 0:
		return FreshnessExpired
	case remaining < cfg.CriticalBelow:
		return FreshnessCritical
	case remaining < cfg.ExpiringBelow:
		return FreshnessExpiring
	case remaining < cfg.ValidBelow:
		return FreshnessValid
	default:
		return FreshnessFresh
	}
}

// NeedsRefresh 判断是否应该排队后台刷新（expired/critical/expiring 三档）。
func (p *Product) NeedsRefresh(now time.Time, cfg FreshnessConfig) bool {
	switch p.Freshness(now, cfg) {
	case FreshnessExpired, FreshnessCritical, FreshnessExpiring:
		return true
	default:
		return false
	}
}
