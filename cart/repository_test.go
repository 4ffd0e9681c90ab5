package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

// fakeRedis implements the few commands the repository issues.
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	repo := NewRepository(rdb, 0, zaptest.NewLogger(t))

	c, err := repo.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cart, got %d lines", c.Len())
	}

	c.Add(item("1", 2, "100.00", "SEK"))
	if err = repo.Save(ctx, "s1", c); err != nil {
		t.Fatal(err)
	}
	if rdb.ttls["cart:s1"] != DefaultTTL {
		t.Errorf("expected default ttl, got %s", rdb.ttls["cart:s1"])
	}

	loaded, err := repo.Load(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.ItemCount() != 2 {
		t.Errorf("expected 2 units, got %d", loaded.ItemCount())
	}

	if err = repo.Clear(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, ok := rdb.data["cart:s1"]; ok {
		t.Error("expected cart key to be deleted")
	}
}

func TestRepositorySaveEmptyClears(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	rdb.data["cart:s1"] = `[]`
	repo := NewRepository(rdb, time.Hour, zaptest.NewLogger(t))

	c, _ := repo.Load(ctx, "s1")
	if err := repo.Save(ctx, "s1", c); err != nil {
		t.Fatal(err)
	}
	if _, ok := rdb.data["cart:s1"]; ok {
		t.Error("expected empty cart to be deleted, not stored")
	}
}

func TestRepositoryLoad(t *testing.T) {
	t.Run("unreadable data is an empty cart", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.data["cart:s1"] = `{not json`
		repo := NewRepository(rdb, time.Hour, zaptest.NewLogger(t))

		c, err := repo.Load(context.Background(), "s1")
		if err != nil || c.Len() != 0 {
			t.Errorf("expected empty cart without error, got %v, %v", c, err)
		}
	})

	t.Run("backend error", func(t *testing.T) {
		rdb := newFakeRedis()
		rdb.getErr = errors.New("connection refused")
		repo := NewRepository(rdb, time.Hour, zaptest.NewLogger(t))

		if _, err := repo.Load(context.Background(), "s1"); err == nil {
			t.Error("expected error")
		}
	})
}
