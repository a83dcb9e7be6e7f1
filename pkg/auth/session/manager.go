package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/angelmondragon/portal/pkg/auth"
	"github.com/angelmondragon/portal/pkg/config"
	"github.com/angelmondragon/portal/pkg/memstore"
	redislib "github.com/redis/go-redis/v9"
)

const sessionTokenBytes = 32

// Store is the server-side record store. Both pkg/redis.Client and
// memstore.Store satisfy it.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	SessionKey(token string) string
}

// Data is the record kept for an authenticated browser.
type Data struct {
	Username  string    `json:"username"`
	UserID    string    `json:"userId"`
	Tenant    string    `json:"tenant,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsAuthenticated reports whether the record belongs to a logged-in user.
func IsAuthenticated(d Data) bool {
	return d.Username != ""
}

// Manager issues, loads and destroys browser sessions.
type Manager struct {
	store  Store
	cfg    config.SessionConfig
	secure bool
	now    func() time.Time
}

type Option func(*Manager)

// WithSecureCookie marks the session cookie Secure; set when serving TLS.
func WithSecureCookie(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(store Store, cfg config.SessionConfig, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "portal.sid"
	}
	m := &Manager{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Establish rotates any session carried by r and starts a new one for data.
func (m *Manager) Establish(ctx context.Context, w http.ResponseWriter, r *http.Request, data Data) error {
	if err := m.revoke(ctx, r); err != nil {
		return err
	}

	token, err := newSessionToken()
	if err != nil {
		return err
	}
	now := m.now()
	if data.CreatedAt.IsZero() {
		data.CreatedAt = now.UTC()
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.SessionKey(token), string(payload), m.cfg.TTL); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	value, err := auth.MintSessionCookie(m.cfg, now, token, data.Tenant)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(m.cfg.TTL),
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load returns the session attached to r. A missing, forged or expired cookie
// and a missing record all report false with a nil error.
func (m *Manager) Load(ctx context.Context, r *http.Request) (Data, bool, error) {
	token, ok := m.tokenFromRequest(r)
	if !ok {
		return Data{}, false, nil
	}
	raw, err := m.store.Get(ctx, m.store.SessionKey(token))
	if err != nil {
		if isMiss(err) {
			return Data{}, false, nil
		}
		return Data{}, false, fmt.Errorf("loading session: %w", err)
	}
	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return Data{}, false, nil
	}
	return data, IsAuthenticated(data), nil
}

// Destroy deletes the server-side record, if any, and clears the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	err := m.revoke(ctx, r)
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return err
}

// Ping checks the backing store.
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.cfg.CookieName
}

func (m *Manager) revoke(ctx context.Context, r *http.Request) error {
	token, ok := m.tokenFromRequest(r)
	if !ok {
		return nil
	}
	if err := m.store.Del(ctx, m.store.SessionKey(token)); err != nil && !isMiss(err) {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

func (m *Manager) tokenFromRequest(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	claims, err := auth.ParseSessionCookie(m.cfg, cookie.Value)
	if err != nil {
		return "", false
	}
	return claims.SessionToken(), true
}

func newSessionToken() (string, error) {
	bytes := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

func isMiss(err error) bool {
	return errors.Is(err, redislib.Nil) || errors.Is(err, memstore.ErrMiss)
}
