package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/redis/go-redis/v9"
)

const handshakePrefix = "oauth:handshake:"

// RedisHandshakeStore keeps handshake records until they expire.
type RedisHandshakeStore struct {
	client redis.Cmdable
}

func NewRedisHandshakeStore(client redis.Cmdable) *RedisHandshakeStore {
	return &RedisHandshakeStore{client: client}
}

func (s *RedisHandshakeStore) Put(ctx context.Context, h *models.Handshake, ttl time.Duration) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, handshakePrefix+h.Nonce, raw, ttl).Err()
}

func (s *RedisHandshakeStore) Get(ctx context.Context, nonce string) (*models.Handshake, error) {
	raw, err := s.client.Get(ctx, handshakePrefix+nonce).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var h models.Handshake
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// MemoryHandshakeStore is used when no Redis is configured. Records live in
// the process, so only a single instance should run.
type MemoryHandshakeStore struct {
	mu      sync.Mutex
	records map[string]memoryHandshake
	now     func() time.Time
}

type memoryHandshake struct {
	h         models.Handshake
	expiresAt time.Time
}

func NewMemoryHandshakeStore() *MemoryHandshakeStore {
	return &MemoryHandshakeStore{records: make(map[string]memoryHandshake), now: time.Now}
}

func (s *MemoryHandshakeStore) Put(ctx context.Context, h *models.Handshake, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, r := range s.records {
		if !now.Before(r.expiresAt) {
			delete(s.records, k)
		}
	}
	s.records[h.Nonce] = memoryHandshake{h: *h, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryHandshakeStore) Get(ctx context.Context, nonce string) (*models.Handshake, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[nonce]
	if !ok || !s.now().Before(r.expiresAt) {
		return nil, nil
	}
	h := r.h
	return &h, nil
}
