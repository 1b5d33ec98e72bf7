package domain

import (
	"testing"
	"time"
)

// 边界用例：m 分钟前检查过、TTL 为 T 的记录，剩余 T−m 分钟。
// 阈值恰好落在 m = T、T−360、T−720、T−1200 上。
func TestFreshnessThresholds(t *testing.T) {
	cfg := DefaultFreshnessConfig()
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	ttl := cfg.TTLMinutes // 1440

	cases := []struct {
		name       string
		minutesAgo int
		want       Freshness
	}{
		{"just refreshed", 0, FreshnessFresh},
		{"last fresh minute", ttl - 1200 - 1, FreshnessFresh}, // 剩余 1201
		{"valid lower boundary", ttl - 1200, FreshnessValid},  // 剩余恰好 1200
		{"valid band", ttl - 800, FreshnessValid},
		{"expiring boundary", ttl - 720, FreshnessExpiring}, // 剩余恰好 720
		{"expiring band", ttl - 500, FreshnessExpiring},
		{"critical boundary", ttl - 360, FreshnessCritical}, // 剩余恰好 360
		{"critical band", ttl - 100, FreshnessCritical},
		{"zero remaining", ttl, FreshnessCritical}, // 剩余恰好 0，仍是 critical
		{"expired", ttl + 1, FreshnessExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &Product{
				ASIN:          "B00TEST",
				LastCheckedAt: now.Add(-time.Duration(tc.minutesAgo) * time.Minute),
				TTLMinutes:    ttl,
			}
			if got := p.Freshness(now, cfg); got != tc.want {
				t.Fatalf("m=%d: freshness = %s, want %s (remaining %d)", tc.minutesAgo, got, tc.want, p.Remaining(now))
			}
		})
	}
}

func TestNeedsRefresh(t *testing.T) {
	cfg := DefaultFreshnessConfig()
	now := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)

	fresh := &Product{LastCheckedAt: now, TTLMinutes: cfg.TTLMinutes}
	if fresh.NeedsRefresh(now, cfg) {
		t.Fatal("fresh record should not refresh")
	}

	valid := &Product{LastCheckedAt: now.Add(-time.Duration(cfg.TTLMinutes-1000) * time.Minute), TTLMinutes: cfg.TTLMinutes}
	if valid.NeedsRefresh(now, cfg) {
		t.Fatal("valid record should not refresh")
	}

	expiring := &Product{LastCheckedAt: now.Add(-time.Duration(cfg.TTLMinutes-700) * time.Minute), TTLMinutes: cfg.TTLMinutes}
	if !expiring.NeedsRefresh(now, cfg) {
		t.Fatal("expiring record should refresh")
	}

	expired := &Product{LastCheckedAt: now.Add(-time.Duration(cfg.TTLMinutes+10) * time.Minute), TTLMinutes: cfg.TTLMinutes}
	if !expired.NeedsRefresh(now, cfg) {
		t.Fatal("expired record should refresh")
	}
}
