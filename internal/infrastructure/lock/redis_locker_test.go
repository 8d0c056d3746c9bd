package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"referralhub/internal/ports"
)

func setupRedisLocker(t *testing.T) (*miniredis.Miniredis, *RedisLocker) {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
	})
	return server, NewRedisLocker(client)
}

func TestRedisLockerReportsHeldKey(t *testing.T) {
	server, locker := setupRedisLocker(t)
	ctx := context.Background()

	release, err := locker.Obtain(ctx, "referral:ref-1", time.Minute)
	if err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	if !server.Exists("lock:referral:ref-1") {
		t.Fatalf("lock key not stored; keys = %v", server.Keys())
	}

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := locker.Obtain(waitCtx, "referral:ref-1", time.Minute); !errors.Is(err, ports.ErrLockNotObtained) {
		t.Fatalf("Obtain() on held key error = %v, want ErrLockNotObtained", err)
	}

	release()
	if server.Exists("lock:referral:ref-1") {
		t.Fatalf("lock key still present after release")
	}
	again, err := locker.Obtain(ctx, "referral:ref-1", time.Minute)
	if err != nil {
		t.Fatalf("Obtain() after release error = %v", err)
	}
	again()
}

func TestRedisLockerExpiresAbandonedKey(t *testing.T) {
	server, locker := setupRedisLocker(t)
	ctx := context.Background()

	if _, err := locker.Obtain(ctx, "referral:ref-2", time.Second); err != nil {
		t.Fatalf("Obtain() error = %v", err)
	}
	server.FastForward(2 * time.Second)

	release, err := locker.Obtain(ctx, "referral:ref-2", time.Second)
	if err != nil {
		t.Fatalf("Obtain() after ttl error = %v", err)
	}
	release()
}

func TestRedisLockerRejectsEmptyKey(t *testing.T) {
	_, locker := setupRedisLocker(t)
	if _, err := locker.Obtain(context.Background(), " ", time.Second); err == nil {
		t.Fatalf("Obtain() expected error for empty key")
	}
}
