package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestProvisionCache(t *testing.T) {
	url := os.Getenv("PROJECTKIT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("PROJECTKIT_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("ParseURL: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer rdb.Close()

	ctx := context.Background()
	c := NewProvisionCache(rdb, "projectkit:test:"+uuid.NewString()+":", time.Minute)
	if seen, err := c.Seen(ctx, "u1"); err != nil || seen {
		t.Fatalf("expected unseen, got seen=%v err=%v", seen, err)
	}
	if err := c.Mark(ctx, "u1"); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if seen, err := c.Seen(ctx, "u1"); err != nil || !seen {
		t.Fatalf("expected seen, got seen=%v err=%v", seen, err)
	}
}
