package lock

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/resper/paperless-onS/internal/core/domain"
)

func TestKeyIsScopedByDocument(t *testing.T) {
	if Key(42) != "paperless-ons:document:42" {
		t.Fatalf("unexpected key %q", Key(42))
	}
}

func TestNoopAlwaysLocks(t *testing.T) {
	unlock, err := Noop{}.Lock(context.Background(), 1, time.Minute)
	if err != nil || unlock == nil {
		t.Fatalf("Noop.Lock() unlock nil = %t, error = %v", unlock == nil, err)
	}
	unlock()
}

func TestRedisLockerReportsUnavailableRedisAsTemporary(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	locker := NewRedisLocker(client, time.Second, nil)
	_, err := locker.Lock(context.Background(), 7, time.Minute)
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
}
