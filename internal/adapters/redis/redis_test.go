package redis_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/busops/internal/adapters/redis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newClient(t *testing.T) *goredis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis container test in short mode")
	}
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { redisContainer.Terminate(context.Background()) })

	host, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := redisContainer.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatal(err)
	}
	client := goredis.NewClient(&goredis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	cache := redisadapter.NewCache(newClient(t))

	if err := cache.Ping(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := cache.MarkOnce(ctx, "payroll:due:e1:2026-10", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	second, err := cache.MarkOnce(ctx, "payroll:due:e1:2026-10", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if !first || second {
		t.Errorf("expected only the first mark to be set, got %v then %v", first, second)
	}
	if err := cache.Unmark(ctx, "payroll:due:e1:2026-10"); err != nil {
		t.Fatal(err)
	}
	if again, err := cache.MarkOnce(ctx, "payroll:due:e1:2026-10", time.Minute); err != nil || !again {
		t.Errorf("expected the mark to be settable after unmark, got %v, %v", again, err)
	}

	for want := int64(1); want <= 3; want++ {
		got, err := cache.IncrWindow(ctx, "client-a", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("expected counter %d, got %d", want, got)
		}
	}
	ttl, err := cache.Client().TTL(ctx, "busops:rl:client-a").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected the window to expire within a minute, got %v", ttl)
	}
}

func TestIdempotency(t *testing.T) {
	ctx := context.Background()
	idemp := redisadapter.NewIdempotency(newClient(t))

	data, err := idemp.Load(ctx, "missing")
	if err != nil || data != nil {
		t.Fatalf("expected nothing stored, got %q, %v", data, err)
	}

	locked, err := idemp.Lock(ctx, "k", time.Minute)
	if err != nil || !locked {
		t.Fatalf("expected to take the lock, got %v, %v", locked, err)
	}
	again, err := idemp.Lock(ctx, "k", time.Minute)
	if err != nil || again {
		t.Fatalf("expected the lock to be held, got %v, %v", again, err)
	}

	if err := idemp.Save(ctx, "k", []byte(`{"status":201}`), time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := idemp.Unlock(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	data, err = idemp.Load(ctx, "k")
	if err != nil || string(data) != `{"status":201}` {
		t.Errorf("unexpected stored response %q, %v", data, err)
	}
	if locked, _ := idemp.Lock(ctx, "k", time.Minute); !locked {
		t.Error("expected the lock to be free after unlock")
	}
}
