// internal/service/catalog/application/refresh_queue.go
package application

import (
	"context"
	"sync"
	"time"

	"dealwire/internal/pkg/logger"
)

type refreshJob struct {
	UserID string
	ASIN   string
}

// RefreshQueue 是唯一一个后台刷新工作者消费的有界队列。
//
// 同一个 ASIN 在队列里最多出现一次（enqueue-if-absent）；工作者顺序
// 消费并在两次上游请求之间插入固定的节流延迟。队列不落盘：进程重启
// 丢掉的只是刷新时机，旧数据照常可读。
type RefreshQueue struct {
	jobs    chan refreshJob
	pacing  time.Duration
	refresh func(ctx context.Context, userID, asin string) error

	mu       sync.Mutex
	enqueued map[string]struct{}

	stopOnce sync.Once
	done     chan struct{}
}

func NewRefreshQueue(size int, pacing time.Duration) *RefreshQueue {
	if size <= 0 {
		size = 256
	}
	return &RefreshQueue{
		jobs:     make(chan refreshJob, size),
		pacing:   pacing,
		enqueued: make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Bind 设置刷新回调。队列与 CacheService 互相引用，组装根先建队列、
// 再建服务、最后 Bind。
func (q *RefreshQueue) Bind(fn func(ctx context.Context, userID, asin string) error) {
	q.refresh = fn
}

// Enqueue 把一个 ASIN 排进后台刷新。已在队列或队列已满都静默放弃，
// 刷新是尽力而为的。
func (q *RefreshQueue) Enqueue(ctx context.Context, job refreshJob) {
	q.mu.Lock()
	if _, exists := q.enqueued[job.ASIN]; exists {
		q.mu.Unlock()
		return
	}
	q.enqueued[job.ASIN] = struct{}{}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
	default:
		q.mu.Lock()
		delete(q.enqueued, job.ASIN)
		q.mu.Unlock()
		logger.Ctx(ctx).Warn().Str("asin", job.ASIN).Msg("refresh queue full, dropping")
	}
}

// Start 启动唯一的消费协程，ctx 取消后退出。
func (q *RefreshQueue) Start(ctx context.Context) {
	go q.drain(ctx)
}

func (q *RefreshQueue) drain(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.mu.Lock()
			delete(q.enqueued, job.ASIN)
			q.mu.Unlock()

			if q.refresh == nil {
				continue
			}
			// 单个 ASIN 失败只记日志，不阻塞队列其余部分
			if err := q.refresh(ctx, job.UserID, job.ASIN); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("asin", job.ASIN).Msg("background refresh failed")
			}

			if q.pacing > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(q.pacing):
				}
			}
		}
	}
}

// Pending 返回当前排队数量，仅观测用。
func (q *RefreshQueue) Pending() int {
	return len(q.jobs)
}
