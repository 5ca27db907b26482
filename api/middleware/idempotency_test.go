package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = value.(string)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func reservePath() string {
	return "/api/v1/stock/lots/" + uuid.NewString() + "/reserve"
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock/profiles/"+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("unguarded route must not persist records")
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoutes(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run without an idempotency key")
	}))

	req := httptest.NewRequest(http.MethodPost, reservePath(), strings.NewReader(`{"quantity":"5","version":1}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"lot-1"}}`))
	}))

	path := reservePath()
	body := `{"quantity":"5","version":1}`

	first := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "op-42")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	replay.Header.Set("Idempotency-Key", "op-42")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, replay)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", resp.Code)
	}
	if resp.Body.String() != `{"data":{"id":"lot-1"}}` {
		t.Fatalf("unexpected replayed body %q", resp.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once got %d", calls)
	}
}

// The guard must hold when mounted with r.Use on the /api/v1 subrouter, where
// chi has not yet resolved the final route pattern.
func TestIdempotencyGuardsRoutesUnderChiSubrouter(t *testing.T) {
	store := newMemoryIdempotencyStore()
	calls := 0

	router := chi.NewRouter()
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(Idempotency(store, nil))
		r.Route("/stock", func(r chi.Router) {
			r.Route("/lots/{lotId}", func(r chi.Router) {
				r.Post("/reserve", func(w http.ResponseWriter, req *http.Request) {
					calls++
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					_, _ = w.Write([]byte(`{"data":{"reserved":true}}`))
				})
			})
		})
		r.Route("/receipts", func(r chi.Router) {
			r.Delete("/{receiptId}", func(w http.ResponseWriter, req *http.Request) {
				calls++
				w.WriteHeader(http.StatusOK)
			})
		})
	})

	path := reservePath()
	body := `{"quantity":"5","version":1}`

	missing := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missing)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key got %d", resp.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run without an idempotency key, ran %d times", calls)
	}

	first := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "op-11")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	replay := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	replay.Header.Set("Idempotency-Key", "op-11")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, replay)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected replayed 200 got %d", resp.Code)
	}
	if calls != 1 {
		t.Fatalf("expected reserve handler to run once got %d", calls)
	}

	del := httptest.NewRequest(http.MethodDelete, "/api/v1/receipts/"+uuid.NewString(), nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, del)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for receipt delete without key got %d", resp.Code)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	path := reservePath()

	first := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":"5","version":1}`))
	first.Header.Set("Idempotency-Key", "op-7")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"quantity":"9","version":1}`))
	second.Header.Set("Idempotency-Key", "op-7")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 for body mismatch got %d", resp.Code)
	}
}
