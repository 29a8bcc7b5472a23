package registration_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/courseloop/lti-tool/internal/registration"
)

func newRedisPending(t *testing.T) (*registration.RedisPendingStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })
	return &registration.RedisPendingStore{Client: cli, TTL: time.Hour}, mr
}

func TestRedisPendingSetConsume(t *testing.T) {
	store, _ := newRedisPending(t)
	ctx := context.Background()

	reg := registration.PendingRegistration{
		ConfigurationEndpoint: "https://lms.example/.well-known/cfg",
		RegistrationToken:     "tok",
	}
	if err := store.Set(ctx, reg); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Consume(ctx, reg.ConfigurationEndpoint)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got != reg {
		t.Errorf("got %+v, want %+v", got, reg)
	}

	// Single use: a second consume misses.
	if _, err := store.Consume(ctx, reg.ConfigurationEndpoint); !errors.Is(err, registration.ErrPendingNotFound) {
		t.Fatalf("second Consume: %v, want ErrPendingNotFound", err)
	}
}

func TestRedisPendingOverwrite(t *testing.T) {
	store, _ := newRedisPending(t)
	ctx := context.Background()
	endpoint := "https://lms.example/.well-known/cfg"

	for _, tok := range []string{"old", "new"} {
		if err := store.Set(ctx, registration.PendingRegistration{
			ConfigurationEndpoint: endpoint,
			RegistrationToken:     tok,
		}); err != nil {
			t.Fatalf("Set(%s): %v", tok, err)
		}
	}
	got, err := store.Consume(ctx, endpoint)
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if got.RegistrationToken != "new" {
		t.Errorf("token = %q, want new", got.RegistrationToken)
	}
}

func TestRedisPendingExpiry(t *testing.T) {
	store, mr := newRedisPending(t)
	store.TTL = time.Minute
	ctx := context.Background()
	endpoint := "https://lms.example/.well-known/cfg"

	if err := store.Set(ctx, registration.PendingRegistration{ConfigurationEndpoint: endpoint}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Minute)

	if _, err := store.Consume(ctx, endpoint); !errors.Is(err, registration.ErrPendingNotFound) {
		t.Fatalf("Consume after expiry: %v, want ErrPendingNotFound", err)
	}
}
