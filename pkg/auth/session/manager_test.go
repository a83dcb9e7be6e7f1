package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/angelmondragon/portal/pkg/config"
	"github.com/angelmondragon/portal/pkg/memstore"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) Ping(context.Context) error { return nil }

func (m *mockStore) SessionKey(token string) string {
	return "sess:" + token
}

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		Secret:     "secret",
		CookieName: "portal.sid",
		TTL:        time.Hour,
		Issuer:     "portal",
	}
}

func newTestManager(t *testing.T, store Store, opts ...Option) *Manager {
	t.Helper()
	m, err := NewManager(store, testConfig(), opts...)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

// requestWithCookies replays the cookies set on rec into a fresh request.
func requestWithCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestEstablishAndLoad(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	err := manager.Establish(ctx, rec, httptest.NewRequest(http.MethodPost, "/login", nil), Data{Username: "alice", UserID: "1234567"})
	if err != nil {
		t.Fatalf("establish: %v", err)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected one stored record, got %d", len(store.data))
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "portal.sid" || !c.HttpOnly || c.Path != "/" || c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("unexpected cookie attributes %+v", c)
	}
	if c.Secure {
		t.Fatal("cookie should not be secure without TLS")
	}

	data, ok, err := manager.Load(ctx, requestWithCookies(rec))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok || data.Username != "alice" || data.UserID != "1234567" {
		t.Fatalf("unexpected session %+v ok=%v", data, ok)
	}
	if data.CreatedAt.IsZero() {
		t.Fatal("expected created at to be stamped")
	}
}

func TestEstablishRotatesExistingSession(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	first := httptest.NewRecorder()
	if err := manager.Establish(ctx, first, httptest.NewRequest(http.MethodPost, "/", nil), Data{Username: "alice"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	oldReq := requestWithCookies(first)

	second := httptest.NewRecorder()
	if err := manager.Establish(ctx, second, oldReq, Data{Username: "alice"}); err != nil {
		t.Fatalf("re-establish: %v", err)
	}
	if len(store.data) != 1 {
		t.Fatalf("expected old record revoked, have %d records", len(store.data))
	}
	if _, ok, _ := manager.Load(ctx, oldReq); ok {
		t.Fatal("old cookie should no longer authenticate")
	}
	if _, ok, _ := manager.Load(ctx, requestWithCookies(second)); !ok {
		t.Fatal("new cookie should authenticate")
	}
}

func TestLoadWithoutOrWithForgedCookie(t *testing.T) {
	manager := newTestManager(t, newMockStore())
	ctx := context.Background()

	if _, ok, err := manager.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil)); ok || err != nil {
		t.Fatalf("expected unauthenticated without error, got ok=%v err=%v", ok, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "portal.sid", Value: "not-a-jwt"})
	if _, ok, err := manager.Load(ctx, req); ok || err != nil {
		t.Fatalf("expected forged cookie to be ignored, got ok=%v err=%v", ok, err)
	}
}

func TestLoadStoreFailure(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := manager.Establish(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), Data{Username: "alice"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	store.getErr = errors.New("connection refused")

	if _, _, err := manager.Load(ctx, requestWithCookies(rec)); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestLoadEmptyUsernameIsNotAuthenticated(t *testing.T) {
	store := newMockStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := manager.Establish(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), Data{}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if _, ok, err := manager.Load(ctx, requestWithCookies(rec)); ok || err != nil {
		t.Fatalf("expected unauthenticated, got ok=%v err=%v", ok, err)
	}
}

func TestDestroy(t *testing.T) {
	store := memstore.New()
	manager := newTestManager(t, store, WithSecureCookie(true))
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := manager.Establish(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), Data{Username: "bob"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	if !rec.Result().Cookies()[0].Secure {
		t.Fatal("expected secure cookie")
	}
	req := requestWithCookies(rec)

	out := httptest.NewRecorder()
	if err := manager.Destroy(ctx, out, req); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected record deleted, %d left", store.Len())
	}
	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 || cleared[0].Value != "" {
		t.Fatalf("expected cleared cookie, got %+v", cleared)
	}
	if _, ok, _ := manager.Load(ctx, req); ok {
		t.Fatal("destroyed session should not authenticate")
	}

	if err := manager.Destroy(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
		t.Fatalf("destroy without session should be a no-op, got %v", err)
	}
}

func TestExpiredRecordIsNotAuthenticated(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	store := memstore.New().WithClock(func() time.Time { return now })
	manager := newTestManager(t, store, WithClock(clock))
	ctx := context.Background()

	rec := httptest.NewRecorder()
	if err := manager.Establish(ctx, rec, httptest.NewRequest(http.MethodPost, "/", nil), Data{Username: "carol"}); err != nil {
		t.Fatalf("establish: %v", err)
	}
	req := requestWithCookies(rec)

	now = now.Add(2 * time.Hour)
	if _, ok, err := manager.Load(ctx, req); ok || err != nil {
		t.Fatalf("expected expired session to be unauthenticated, got ok=%v err=%v", ok, err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, testConfig()); err == nil {
		t.Fatal("expected nil store error")
	}
	cfg := testConfig()
	cfg.Secret = ""
	if _, err := NewManager(newMockStore(), cfg); err == nil {
		t.Fatal("expected secret error")
	}
}
