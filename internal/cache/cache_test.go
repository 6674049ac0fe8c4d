package cache

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/report"
)

func stockOnly(data string) []Workbook {
	return []Workbook{{Role: "stock", Name: "stock.xlsx", Data: []byte(data)}}
}

func TestRunKey(t *testing.T) {
	cfg := domain.DefaultPlanConfig()
	base, err := RunKey(stockOnly("stock"), cfg, nil)
	if err != nil {
		t.Fatalf("RunKey: %v", err)
	}
	again, _ := RunKey(stockOnly("stock"), cfg.Clone(), nil)
	if base != again {
		t.Errorf("same inputs produced different keys")
	}

	changed := cfg.Clone()
	changed.SafetyDays[domain.DemandLow] = 6
	excluded := cfg.Clone()
	excluded.CustAlertExclude["1"] = struct{}{}

	withSheet := stockOnly("stock")
	withSheet[0].Sheet = "B"
	renamed := stockOnly("stock")
	renamed[0].Name = "stock.xls"
	asMaster := stockOnly("stock")
	asMaster[0].Role = "master"
	withItems := append(stockOnly("stock"), Workbook{Role: "items", Name: "items.xlsx", Data: []byte("items")})
	shifted := []Workbook{
		{Role: "stock", Name: "stock.xlsx", Data: []byte("stoc")},
		{Role: "items", Name: "items.xlsx", Data: []byte("k")},
	}

	tests := []struct {
		name  string
		books []Workbook
		cfg   domain.PlanConfig
		final report.FinalQtyOverrides
	}{
		{"stock bytes", stockOnly("stock2"), cfg, nil},
		{"sheet", withSheet, cfg, nil},
		{"file name", renamed, cfg, nil},
		{"role", asMaster, cfg, nil},
		{"items bytes", withItems, cfg, nil},
		{"boundary shift", shifted, cfg, nil},
		{"config", stockOnly("stock"), changed, nil},
		{"exclusions", stockOnly("stock"), excluded, nil},
		{"overrides", stockOnly("stock"), cfg, report.FinalQtyOverrides{"123": 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RunKey(tt.books, tt.cfg, tt.final)
			if err != nil {
				t.Fatalf("RunKey: %v", err)
			}
			if got == base {
				t.Errorf("key did not change")
			}
		})
	}
}

func TestDisabledCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewPlanCache(config.CacheConfig{})
	if err != nil {
		t.Fatalf("NewPlanCache: %v", err)
	}
	if err := c.SetResult(ctx, "k", nil); err != nil {
		t.Fatalf("SetResult: %v", err)
	}
	if _, ok, err := c.GetResult(ctx, "k"); ok || err != nil {
		t.Errorf("noop cache returned a hit")
	}

	store, err := NewExportStore(config.CacheConfig{})
	if err != nil {
		t.Fatalf("NewExportStore: %v", err)
	}
	if _, ok := store.(*MemoryExportStore); !ok {
		t.Errorf("disabled cache should fall back to memory, got %T", store)
	}
}

func TestMemoryExportStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 30, 8, 0, 0, 0, time.UTC)
	s := NewMemoryExportStore(time.Minute)
	s.now = func() time.Time { return now }

	token, err := s.Put(ctx, Export{FileName: "plan.xlsx", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	e, ok, err := s.Get(ctx, token)
	if err != nil || !ok || e.FileName != "plan.xlsx" {
		t.Fatalf("Get = %+v, %v, %v", e, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "unknown"); ok {
		t.Errorf("unknown token found")
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, token); ok {
		t.Errorf("expired token still served")
	}
	if _, err := s.Put(ctx, Export{}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(s.entries) != 1 {
		t.Errorf("expired entries were not dropped: %d", len(s.entries))
	}
}

func TestBuildRedisOptions(t *testing.T) {
	opts, err := buildRedisOptions(config.CacheConfig{RedisPassword: "pw", RedisDB: 2})
	if err != nil {
		t.Fatalf("buildRedisOptions: %v", err)
	}
	if opts.Addr != "127.0.0.1:6379" || opts.DB != 2 || opts.Password != "pw" {
		t.Errorf("opts = %+v", opts)
	}

	opts, err = buildRedisOptions(config.CacheConfig{RedisURL: "redis://cache:6380/1"})
	if err != nil || opts.Addr != "cache:6380" || opts.DB != 1 {
		t.Errorf("url opts = %+v, %v", opts, err)
	}
	if _, err := buildRedisOptions(config.CacheConfig{RedisURL: "http://nope"}); err == nil {
		t.Errorf("bad url should fail")
	}

	if ttlFor(config.CacheConfig{}) != defaultCacheTTL {
		t.Errorf("default ttl not applied")
	}
}
