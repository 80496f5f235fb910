package redislimiter

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestAllowNamed(t *testing.T) {
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

	l := New(rdb, "projectkit:test:"+uuid.NewString()+":", map[string]Limit{"projects_write": {Limit: 2, Window: time.Minute}})
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if ok, err := l.AllowNamed(ctx, "projects_write", "alice"); err != nil || !ok {
			t.Fatalf("hit %d should pass: ok=%v err=%v", i, ok, err)
		}
	}
	if ok, err := l.AllowNamed(ctx, "projects_write", "alice"); err != nil || ok {
		t.Fatalf("third hit should be denied: ok=%v err=%v", ok, err)
	}
}

func TestAllowNamed_NilClientAllows(t *testing.T) {
	l := New(nil, "", nil)
	if ok, err := l.AllowNamed(context.Background(), "b", "k"); err != nil || !ok {
		t.Fatalf("expected allow without redis, got ok=%v err=%v", ok, err)
	}
}
