package cloud_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/glyphkey/kbcompanion/internal/cloud"
)

func TestSQLiteMirror_MergeWrite(t *testing.T) {
	m, err := cloud.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer m.Close()
	ctx := context.Background()

	if err := m.Upsert(ctx, "user-1", map[string]any{"soundEnabled": true, "soundVolume": 50.0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := m.Upsert(ctx, "user-1", map[string]any{"soundVolume": 80.0, "vibrationMs": 30.0}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	doc, err := m.Get(ctx, "user-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	want := map[string]any{"soundEnabled": true, "soundVolume": 80.0, "vibrationMs": 30.0}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteMirror_GetMissing(t *testing.T) {
	m, err := cloud.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer m.Close()
	if _, err := m.Get(context.Background(), "nobody"); !errors.Is(err, cloud.ErrNoDocument) {
		t.Errorf("Get() error = %v, want ErrNoDocument", err)
	}
}

func TestSQLiteMirror_EmptyID(t *testing.T) {
	m, err := cloud.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer m.Close()
	if err := m.Upsert(context.Background(), "", map[string]any{"a": 1}); err == nil {
		t.Error("Upsert() with empty id: error = nil")
	}
}

func TestHTTPMirror_Patch(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		auth   string
		body   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		method, path, auth = r.Method, r.URL.Path, r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := cloud.NewHTTPMirror(cloud.HTTPOptions{BaseURL: srv.URL, Token: "t0k", Timeout: time.Second})
	if err := m.Upsert(context.Background(), "dev-9", map[string]any{"soundEnabled": false}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if method != http.MethodPatch {
		t.Errorf("method = %s, want PATCH", method)
	}
	if path != "/v1/documents/keyboard_settings/dev-9" {
		t.Errorf("path = %s", path)
	}
	if auth != "Bearer t0k" {
		t.Errorf("Authorization = %q", auth)
	}
	if body["merge"] != true {
		t.Errorf("merge flag = %v, want true", body["merge"])
	}
	fields, _ := body["fields"].(map[string]any)
	if fields["soundEnabled"] != false {
		t.Errorf("fields = %v", fields)
	}
}

func TestHTTPMirror_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	m := cloud.NewHTTPMirror(cloud.HTTPOptions{BaseURL: srv.URL})
	if err := m.Upsert(context.Background(), "dev", map[string]any{"a": 1}); err == nil {
		t.Error("Upsert() error = nil on 429")
	}
}

func TestHTTPMirror_RateLimitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	m := cloud.NewHTTPMirror(cloud.HTTPOptions{BaseURL: srv.URL, RatePerSec: 0.01, Burst: 1})
	ctx := context.Background()
	if err := m.Upsert(ctx, "dev", map[string]any{"a": 1}); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := m.Upsert(ctx, "dev", map[string]any{"a": 2}); err == nil {
		t.Error("second Upsert() error = nil, want rate limit error")
	}
}

func TestNop(t *testing.T) {
	if err := (cloud.Nop{}).Upsert(context.Background(), "x", nil); err != nil {
		t.Errorf("Nop.Upsert() = %v", err)
	}
}
