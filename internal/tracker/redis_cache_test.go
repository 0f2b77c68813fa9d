package tracker

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisCacheIntegration(t *testing.T) {
	addr := os.Getenv("MILESTONECTL_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	c := NewRedisCache(addr, "", 0, time.Minute)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("Redis not available at %s: %v", addr, err)
	}

	ms := encodedPlan(t)
	hash := "0xtest-" + time.Now().Format(time.RFC3339Nano)
	if _, ok, err := c.Get(ctx, hash); err != nil || ok {
		t.Fatalf("expected miss, ok=%t err=%v", ok, err)
	}
	if err := c.Put(ctx, hash, ms); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := c.Get(ctx, hash)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%t err=%v", ok, err)
	}
	if len(got) != len(ms) || !got[0].Equal(ms[0]) {
		t.Fatalf("redis round trip mismatch: %+v", got)
	}
}
