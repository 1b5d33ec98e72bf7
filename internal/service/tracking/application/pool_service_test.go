package application

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel"

	"dealwire/internal/pkg/clock"
	"dealwire/internal/service/tracking/domain"
)

// fakePoolRepo 是内存版仓储，用互斥锁模拟存储层的条件更新语义。
type fakePoolRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Record
}

func newFakePoolRepo() *fakePoolRepo {
	return &fakePoolRepo{records: make(map[string]*domain.Record)}
}

func (r *fakePoolRepo) Insert(_ context.Context, record *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakePoolRepo) NextAvailable(_ context.Context, userID string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var available []*domain.Record
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Status == domain.StatusAvailable {
			available = append(available, rec)
		}
	}
	if len(available) == 0 {
		return nil, nil
	}
	// 从未使用的最先，其次最久未用，再按创建顺序
	sort.Slice(available, func(i, j int) bool {
		a, b := available[i], available[j]
		switch {
		case a.LastUsedAt == nil && b.LastUsedAt != nil:
			return true
		case a.LastUsedAt != nil && b.LastUsedAt == nil:
			return false
		case a.LastUsedAt != nil && b.LastUsedAt != nil && !a.LastUsedAt.Equal(*b.LastUsedAt):
			return a.LastUsedAt.Before(*b.LastUsedAt)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
	copied := *available[0]
	return &copied, nil
}

func (r *fakePoolRepo) AcquireLease(_ context.Context, recordID, leaseID, historyID string, now, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok || rec.Status != domain.StatusAvailable {
		return false, nil
	}
	rec.Status = domain.StatusInUse
	rec.LeaseID = leaseID
	rec.DealHistoryID = historyID
	rec.AssignedAt = &now
	rec.ExpiresAt = &expiresAt
	used := now
	rec.LastUsedAt = &used
	rec.TotalUses++
	rec.UpdatedAt = now
	return true, nil
}

func (r *fakePoolRepo) FindByLeaseID(_ context.Context, leaseID string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.LeaseID == leaseID && rec.Status == domain.StatusInUse {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

func (r *fakePoolRepo) ClearLease(_ context.Context, leaseID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.LeaseID == leaseID && rec.Status == domain.StatusInUse {
			rec.Status = domain.StatusAvailable
			rec.LeaseID = ""
			rec.DealHistoryID = ""
			rec.AssignedAt = nil
			rec.ExpiresAt = nil
			rec.UpdatedAt = now
			return true, nil
		}
	}
	return false, nil
}

func (r *fakePoolRepo) LinkHistory(_ context.Context, leaseID, historyID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.LeaseID == leaseID && rec.Status == domain.StatusInUse {
			rec.DealHistoryID = historyID
			return nil
		}
	}
	return domain.ErrRecordNotFound
}

func (r *fakePoolRepo) FindExpired(_ context.Context, now time.Time) ([]*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var expired []*domain.Record
	for _, rec := range r.records {
		if rec.LeaseExpired(now) {
			copied := *rec
			expired = append(expired, &copied)
		}
	}
	return expired, nil
}

func (r *fakePoolRepo) Delete(_ context.Context, recordID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[recordID]
	if !ok || rec.Status != domain.StatusAvailable {
		return false, nil
	}
	delete(r.records, recordID)
	return true, nil
}

func (r *fakePoolRepo) Stats(_ context.Context, userID string) (*domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &domain.Stats{}
	for _, rec := range r.records {
		if rec.UserID != userID {
			continue
		}
		stats.TotalUses += int64(rec.TotalUses)
		if rec.Status == domain.StatusAvailable {
			stats.Available++
		} else {
			stats.InUse++
		}
	}
	return stats, nil
}

// recordingInvalidator 记下被作废的历史 ID。
type recordingInvalidator struct {
	mu  sync.Mutex
	ids []string
}

func (i *recordingInvalidator) Invalidate(_ context.Context, historyID string, _ time.Time) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, historyID)
	return nil
}

func newTestPool(repo domain.Repository, inv HistoryInvalidator, now time.Time) *PoolService {
	return NewPoolService(repo, inv, 24*time.Hour, clock.NewFixed(now), otel.Tracer("test"))
}

func seedRecord(repo *fakePoolRepo, id, userID, identifier string, lastUsed *time.Time, created time.Time) {
	repo.records[id] = &domain.Record{
		ID: id, UserID: userID, Identifier: identifier,
		Status: domain.StatusAvailable, LastUsedAt: lastUsed, CreatedAt: created,
	}
}

func TestLeaseExclusivityUnderConcurrency(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	const n = 4
	for i := 0; i < n; i++ {
		seedRecord(repo, string(rune('a'+i)), "user-1", "tag-"+string(rune('a'+i)), nil, now.Add(time.Duration(i)*time.Second))
	}
	pool := newTestPool(repo, nil, now)

	const callers = 16
	var wg sync.WaitGroup
	results := make(chan *domain.Lease, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if lease, ok := pool.Lease(context.Background(), "user-1", "ctx"); ok {
				results <- lease
			}
		}(i)
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for lease := range results {
		if seen[lease.Identifier] {
			t.Fatalf("identifier %s leased twice", lease.Identifier)
		}
		seen[lease.Identifier] = true
	}
	if len(seen) > n {
		t.Fatalf("successful leases = %d, more than pool size %d", len(seen), n)
	}

	// 竞争退让可能让个别调用空手而归，顺序补齐后全部标识恰好各租一次
	for len(seen) < n {
		lease, ok := pool.Lease(context.Background(), "user-1", "ctx")
		if !ok {
			t.Fatalf("pool empty with only %d distinct leases", len(seen))
		}
		if seen[lease.Identifier] {
			t.Fatalf("identifier %s leased twice", lease.Identifier)
		}
		seen[lease.Identifier] = true
	}
	if _, ok := pool.Lease(context.Background(), "user-1", "ctx"); ok {
		t.Fatal("lease succeeded on an exhausted pool")
	}
}

func TestLeaseFIFOFairness(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()

	// never-used 视为最旧，其次按 lastUsedAt 升序
	oldUse := now.Add(-48 * time.Hour)
	newUse := now.Add(-1 * time.Hour)
	seedRecord(repo, "r1", "user-1", "tag-recent", &newUse, now.Add(-72*time.Hour))
	seedRecord(repo, "r2", "user-1", "tag-never", nil, now.Add(-10*time.Hour))
	seedRecord(repo, "r3", "user-1", "tag-old", &oldUse, now.Add(-72*time.Hour))

	pool := newTestPool(repo, nil, now)
	want := []string{"tag-never", "tag-old", "tag-recent"}
	for i, expected := range want {
		lease, ok := pool.Lease(context.Background(), "user-1", "ctx")
		if !ok {
			t.Fatalf("lease %d: pool reported empty", i)
		}
		if lease.Identifier != expected {
			t.Fatalf("lease %d: got %s, want %s", i, lease.Identifier, expected)
		}
	}
	if _, ok := pool.Lease(context.Background(), "user-1", "ctx"); ok {
		t.Fatal("pool should be empty")
	}
}

func TestLeaseReleaseRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	seedRecord(repo, "r1", "user-1", "tag-1", nil, now)
	pool := newTestPool(repo, nil, now)

	lease, ok := pool.Lease(context.Background(), "user-1", "deal-1")
	if !ok {
		t.Fatal("lease failed")
	}
	if !lease.ExpiresAt.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("expiresAt = %v, want 24h window", lease.ExpiresAt)
	}

	if !pool.Release(context.Background(), lease.LeaseID, domain.ReleaseManual) {
		t.Fatal("release failed")
	}
	rec := repo.records["r1"]
	if rec.Status != domain.StatusAvailable || rec.LeaseID != "" || rec.AssignedAt != nil || rec.ExpiresAt != nil {
		t.Fatalf("lease fields not cleared: %+v", rec)
	}
	if rec.TotalUses != 1 {
		t.Fatalf("totalUses = %d, want 1", rec.TotalUses)
	}

	// 重复释放必须失败
	if pool.Release(context.Background(), lease.LeaseID, domain.ReleaseManual) {
		t.Fatal("double release succeeded")
	}
}

func TestReleaseDealEndedInvalidatesHistory(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	seedRecord(repo, "r1", "user-1", "tag-1", nil, now)
	inv := &recordingInvalidator{}
	pool := newTestPool(repo, inv, now)

	lease, _ := pool.Lease(context.Background(), "user-1", "deal-1")
	if !pool.LinkHistory(context.Background(), lease.LeaseID, "hist-1") {
		t.Fatal("link failed")
	}

	if !pool.Release(context.Background(), lease.LeaseID, domain.ReleaseDealEnded) {
		t.Fatal("release failed")
	}
	if len(inv.ids) != 1 || inv.ids[0] != "hist-1" {
		t.Fatalf("invalidated = %v, want [hist-1]", inv.ids)
	}
}

func TestRemoveRejectsLeasedRecord(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	seedRecord(repo, "r1", "user-1", "tag-1", nil, now)
	pool := newTestPool(repo, nil, now)

	pool.Lease(context.Background(), "user-1", "deal-1")
	if pool.Remove(context.Background(), "r1") {
		t.Fatal("removed an in_use record")
	}
}

func TestSweepExpired(t *testing.T) {
	start := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	seedRecord(repo, "r1", "user-1", "tag-1", nil, start)
	seedRecord(repo, "r2", "user-1", "tag-2", nil, start.Add(time.Second))

	pool := newTestPool(repo, nil, start)
	lease1, _ := pool.Lease(context.Background(), "user-1", "deal-1")
	pool.Lease(context.Background(), "user-1", "deal-2")

	// 25 小时后：两个租约都已过期
	later := start.Add(25 * time.Hour)
	laterPool := newTestPool(repo, nil, later)
	released := laterPool.SweepExpired(context.Background())
	if released != 2 {
		t.Fatalf("released = %d, want 2", released)
	}
	if repo.records["r1"].Status != domain.StatusAvailable {
		t.Fatal("record not returned to pool")
	}

	// 清扫后原租约已不存在
	if laterPool.Release(context.Background(), lease1.LeaseID, domain.ReleaseManual) {
		t.Fatal("release of swept lease succeeded")
	}
}

func TestAddAndStats(t *testing.T) {
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	repo := newFakePoolRepo()
	pool := newTestPool(repo, nil, now)

	if _, err := pool.Add(context.Background(), "user-1", "tag-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := pool.Add(context.Background(), "user-1", "tag-2"); err != nil {
		t.Fatal(err)
	}
	pool.Lease(context.Background(), "user-1", "deal-1")

	stats, err := pool.Stats(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Available != 1 || stats.InUse != 1 || stats.TotalUses != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}
