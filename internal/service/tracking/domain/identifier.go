// internal/service/tracking/domain/identifier.go
package domain

import (
	"errors"
	"time"
)

var (
	ErrRecordNotFound = errors.New("tracking identifier not found")
	ErrRecordInUse    = errors.New("tracking identifier is leased")
)

// Status 是池内记录的状态。
type Status string

const (
	StatusAvailable Status = "available"
	StatusInUse     Status = "in_use"
)

// ReleaseReason 说明一次释放的来源。
type ReleaseReason string

const (
	ReleaseExpired   ReleaseReason = "expired"    // 到期清扫
	ReleaseDealEnded ReleaseReason = "deal_ended" // deal 提前失效，附带作废关联上下文
	ReleaseManual    ReleaseReason = "manual"
)

// Record 是用户池中的一个可租用的跟踪标识。
// 不变式：status == in_use 当且仅当租约字段（LeaseID/AssignedAt/ExpiresAt）非空。
type Record struct {
	ID         string
	UserID     string
	Identifier string
	Status     Status

	TotalUses  int
	LastUsedAt *time.Time

	LeaseID       string
	AssignedAt    *time.Time
	ExpiresAt     *time.Time
	DealHistoryID string // 当前租约关联的发布上下文

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Leased 判断记录当前是否被租用。
func (r *Record) Leased() bool {
	return r.Status == StatusInUse
}

// LeaseExpired 判断租约是否已经过期。
func (r *Record) LeaseExpired(now time.Time) bool {
	return r.Leased() && r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Lease 是一次成功租用的结果。
type Lease struct {
	LeaseID    string
	RecordID   string
	Identifier string
	ExpiresAt  time.Time
}

// Stats 是某个用户池子的概览。
type Stats struct {
	Available int64 `json:"available"`
	InUse     int64 `json:"inUse"`
	TotalUses int64 `json:"totalUses"`
}
