package admin_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/courseloop/lti-tool/internal/admin"
	"github.com/courseloop/lti-tool/internal/registration"
)

func seedStore(t *testing.T) *registration.InMemoryPlatformStore {
	t.Helper()
	store := registration.NewInMemoryPlatformStore()
	for _, id := range []string{"abc", "def"} {
		if err := store.Put(context.Background(), registration.PlatformRecord{
			PlatformURL: "https://lms.example",
			ClientID:    id,
			Name:        "examplelms",
			ToolName:    "Math 101",
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return store
}

func TestListPlatforms(t *testing.T) {
	srv := httptest.NewServer(admin.Routes(seedStore(t)))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/platforms")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var items []registration.PlatformRecord
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("items = %d, want 2", len(items))
	}
}

func TestGetPlatform(t *testing.T) {
	srv := httptest.NewServer(admin.Routes(seedStore(t)))
	defer srv.Close()

	escaped := url.PathEscape("https://lms.example")
	resp, err := http.Get(srv.URL + "/platforms/" + escaped + "/abc")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var rec registration.PlatformRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.ClientID != "abc" || rec.PlatformURL != "https://lms.example" {
		t.Errorf("rec = %+v", rec)
	}

	resp2, err := http.Get(srv.URL + "/platforms/" + escaped + "/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("unknown client status = %d, want 404", resp2.StatusCode)
	}
}
