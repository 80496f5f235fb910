package redisstore

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProvisionCache shares provisioning marks across replicas.
type ProvisionCache struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewProvisionCache(rdb *redis.Client, keyPrefix string, ttl time.Duration) *ProvisionCache {
	if keyPrefix == "" {
		keyPrefix = "projectkit:provisioned:"
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ProvisionCache{rdb: rdb, keyNS: keyPrefix, ttl: ttl}
}

func (s *ProvisionCache) key(userID string) string { return s.keyNS + userID }

func (s *ProvisionCache) Mark(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, s.key(userID), 1, s.ttl).Err()
}

func (s *ProvisionCache) Seen(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.key(userID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
