package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockplanner/internal/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const exportKeyPrefix = "plan:export"

// Export is a generated file waiting to be downloaded.
type Export struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// ExportStore hands out download tokens for generated files. Tokens expire
// after the configured TTL.
type ExportStore interface {
	Put(ctx context.Context, e Export) (string, error)
	Get(ctx context.Context, token string) (*Export, bool, error)
}

type redisExportStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewExportStore uses Redis when caching is enabled and process memory
// otherwise.
func NewExportStore(cfg config.CacheConfig) (ExportStore, error) {
	if !cfg.Enabled {
		return NewMemoryExportStore(ttlFor(cfg)), nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisExportStore{client: client, ttl: ttl}, nil
}

func (s *redisExportStore) Put(ctx context.Context, e Export) (string, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("encode export: %w", err)
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, exportKey(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("redis set failed: %w", err)
	}
	return token, nil
}

func (s *redisExportStore) Get(ctx context.Context, token string) (*Export, bool, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, false, nil
	}
	payload, err := s.client.Get(ctx, exportKey(token)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var e Export
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, false, fmt.Errorf("decode export: %w", err)
	}
	return &e, true, nil
}

func exportKey(token string) string {
	return fmt.Sprintf("%s:%s", exportKeyPrefix, token)
}

type memoryEntry struct {
	export  Export
	expires time.Time
}

// MemoryExportStore keeps exports in process memory. Expired entries are
// dropped on the next Put.
type MemoryExportStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

func NewMemoryExportStore(ttl time.Duration) *MemoryExportStore {
	return &MemoryExportStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (s *MemoryExportStore) Put(ctx context.Context, e Export) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, v := range s.entries {
		if now.After(v.expires) {
			delete(s.entries, k)
		}
	}
	token := uuid.NewString()
	s.entries[token] = memoryEntry{export: e, expires: now.Add(s.ttl)}
	return token, nil
}

func (s *MemoryExportStore) Get(ctx context.Context, token string) (*Export, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[token]
	if !ok || s.now().After(entry.expires) {
		return nil, false, nil
	}
	e := entry.export
	return &e, true, nil
}
