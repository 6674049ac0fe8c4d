package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/andresuchdata/stockplanner/internal/domain"
	"github.com/andresuchdata/stockplanner/internal/pipeline"
	"github.com/andresuchdata/stockplanner/internal/report"
	"github.com/redis/go-redis/v9"
)

const planResultKeyPrefix = "plan:result"

// PlanCache stores finished planning results keyed by RunKey.
type PlanCache interface {
	GetResult(ctx context.Context, key string) (*pipeline.Result, bool, error)
	SetResult(ctx context.Context, key string, res *pipeline.Result) error
	InvalidateAll(ctx context.Context) error
}

type redisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopPlanCache struct{}

func NewPlanCache(cfg config.CacheConfig) (PlanCache, error) {
	if !cfg.Enabled {
		return &noopPlanCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisPlanCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopPlanCache() PlanCache {
	return &noopPlanCache{}
}

func (c *redisPlanCache) GetResult(ctx context.Context, key string) (*pipeline.Result, bool, error) {
	payload, err := c.client.Get(ctx, planResultKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var res pipeline.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, false, fmt.Errorf("decode plan result cache: %w", err)
	}
	return &res, true, nil
}

func (c *redisPlanCache) SetResult(ctx context.Context, key string, res *pipeline.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode plan result cache: %w", err)
	}
	if err := c.client.Set(ctx, planResultKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisPlanCache) InvalidateAll(ctx context.Context) error {
	return deleteKeysWithPrefix(ctx, c.client, planResultKeyPrefix, scanBatchSize)
}

func (n *noopPlanCache) GetResult(ctx context.Context, key string) (*pipeline.Result, bool, error) {
	return nil, false, nil
}

func (n *noopPlanCache) SetResult(ctx context.Context, key string, res *pipeline.Result) error {
	return nil
}

func (n *noopPlanCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func planResultKey(key string) string {
	return fmt.Sprintf("%s:%s", planResultKeyPrefix, key)
}

// Workbook is one input workbook as seen by RunKey. Role tells apart
// workbooks playing different parts in a run, such as stock and items.
type Workbook struct {
	Role  string
	Name  string
	Sheet string
	Data  []byte
}

// RunKey hashes everything a planning result depends on: each workbook's
// role, file name, selected sheet and raw bytes, the effective configuration
// and the final quantity overrides.
func RunKey(books []Workbook, cfg domain.PlanConfig, final report.FinalQtyOverrides) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode plan config: %w", err)
	}

	h := sha1.New()
	write := func(label string, b []byte) {
		h.Write([]byte(label))
		h.Write([]byte(strconv.Itoa(len(b))))
		h.Write([]byte{0})
		h.Write(b)
	}
	for _, b := range books {
		write("role", []byte(b.Role))
		write("name", []byte(b.Name))
		write("sheet", []byte(b.Sheet))
		write("data", b.Data)
	}
	write("config", cfgJSON)
	for _, k := range cfg.ExcludedKeys() {
		write("exclude", []byte(k))
	}

	keys := make([]string, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		write("final", []byte(k+"="+strconv.FormatInt(final[k], 10)))
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
