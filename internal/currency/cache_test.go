package currency

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
	"github.com/congo-pay/wallet_ledger/internal/logging"
)

type countingRegistry struct {
	Registry
	calls int
}

func (r *countingRegistry) Resolve(ctx context.Context, name string) (Currency, error) {
	r.calls++
	return r.Registry.Resolve(ctx, name)
}

func TestCachedRegistryServesHitsFromRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	backing := &countingRegistry{Registry: NewStaticRegistry("EUR", "USD")}
	reg := NewCachedRegistry(backing, client, time.Minute, logging.Discard())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c, err := reg.Resolve(ctx, "USD")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if c.ID != 2 {
			t.Fatalf("unexpected currency %+v", c)
		}
	}
	if backing.calls != 1 {
		t.Fatalf("expected one backing lookup, got %d", backing.calls)
	}
	if !mr.Exists(cachePrefix + "USD") {
		t.Fatal("expected cache entry to be written")
	}
}

func TestCachedRegistryDoesNotCacheMisses(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	reg := NewCachedRegistry(NewStaticRegistry("EUR"), client, time.Minute, logging.Discard())
	if _, err := reg.Resolve(context.Background(), "ZZZ"); !errors.Is(err, apperr.ErrCurrencyNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if mr.Exists(cachePrefix + "ZZZ") {
		t.Fatal("misses must not be cached")
	}
}

func TestCachedRegistryFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	reg := NewCachedRegistry(NewStaticRegistry("EUR"), client, time.Minute, logging.Discard())
	c, err := reg.Resolve(context.Background(), "EUR")
	if err != nil {
		t.Fatalf("expected fallback resolve, got %v", err)
	}
	if c.Name != "EUR" {
		t.Fatalf("unexpected currency %+v", c)
	}
}
