// internal/service/publishing/infrastructure/tracking_adapter.go
package infrastructure

import (
	"context"

	"dealwire/internal/service/publishing/port"
	trackingapp "dealwire/internal/service/tracking/application"
)

// PoolAdapter 把 tracking 服务适配成发布流水线的 TrackingPool 端口。
type PoolAdapter struct {
	pool *trackingapp.PoolService
}

func NewPoolAdapter(pool *trackingapp.PoolService) *PoolAdapter {
	return &PoolAdapter{pool: pool}
}

func (a *PoolAdapter) Lease(ctx context.Context, userID, contextID string) (*port.LeaseGrant, bool) {
	lease, ok := a.pool.Lease(ctx, userID, contextID)
	if !ok {
		return nil, false
	}
	return &port.LeaseGrant{
		LeaseID:    lease.LeaseID,
		Identifier: lease.Identifier,
		ExpiresAt:  lease.ExpiresAt,
	}, true
}

func (a *PoolAdapter) Link(ctx context.Context, leaseID, historyID string) bool {
	return a.pool.LinkHistory(ctx, leaseID, historyID)
}
