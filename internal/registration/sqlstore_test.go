package registration_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/courseloop/lti-tool/internal/db"
	"github.com/courseloop/lti-tool/internal/registration"
)

func newSQLPlatformStore(t *testing.T) *registration.SQLPlatformStore {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dbh, err := db.Open(context.Background(), db.DriverSQLite,
		"file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	t.Cleanup(func() { _ = dbh.Close() })
	return &registration.SQLPlatformStore{DB: dbh}
}

func samplePlatform(clientID string) registration.PlatformRecord {
	return registration.PlatformRecord{
		PlatformURL:            "https://lms.example",
		ClientID:               clientID,
		Name:                   "examplelms",
		ToolName:               "Math 101",
		AuthenticationEndpoint: "https://lms.example/oauth/authorize",
		AccessTokenEndpoint:    "https://lms.example/oauth/token",
		AuthConfig:             registration.AuthConfig{Method: "JWK_SET", Key: "https://lms.example/.well-known/jwks.json"},
		KID:                    "kid-1",
		CreatedAt:              time.Unix(1700000000, 0).UTC(),
	}
}

func TestSQLPlatformStorePutGet(t *testing.T) {
	store := newSQLPlatformStore(t)
	ctx := context.Background()

	rec := samplePlatform("abc123")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	ok, err := store.Exists(ctx, rec.PlatformURL, rec.ClientID)
	if err != nil || !ok {
		t.Fatalf("Exists = (%v,%v), want (true,nil)", ok, err)
	}
	if ok, _ := store.Exists(ctx, rec.PlatformURL, "other"); ok {
		t.Error("Exists for unknown client, want false")
	}

	got, err := store.Get(ctx, rec.PlatformURL, rec.ClientID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != rec {
		t.Errorf("Get = %+v\nwant %+v", got, rec)
	}

	if _, err := store.Get(ctx, rec.PlatformURL, "other"); !errors.Is(err, registration.ErrPlatformNotFound) {
		t.Errorf("Get unknown: %v, want ErrPlatformNotFound", err)
	}
}

func TestSQLPlatformStoreDuplicateInsert(t *testing.T) {
	store := newSQLPlatformStore(t)
	ctx := context.Background()

	rec := samplePlatform("abc123")
	if err := store.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	dup := rec
	dup.ToolName = "Replacement"
	if err := store.Put(ctx, dup); !errors.Is(err, registration.ErrDuplicate) {
		t.Fatalf("duplicate Put: %v, want ErrDuplicate", err)
	}

	// Original row untouched.
	got, err := store.Get(ctx, rec.PlatformURL, rec.ClientID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ToolName != "Math 101" {
		t.Errorf("toolName = %q, want Math 101", got.ToolName)
	}
}

func TestSQLPlatformStoreList(t *testing.T) {
	store := newSQLPlatformStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Put(ctx, samplePlatform(id)); err != nil {
			t.Fatalf("Put(%s): %v", id, err)
		}
	}

	all, err := store.List(ctx, 0, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].ClientID != "a" || all[2].ClientID != "c" {
		t.Errorf("List = %v", all)
	}

	page, err := store.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 || page[0].ClientID != "b" {
		t.Errorf("List(1,1) = %v", page)
	}
}
