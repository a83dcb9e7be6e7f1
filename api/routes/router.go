package routes

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/portal/api/controllers"
	"github.com/angelmondragon/portal/api/middleware"
	"github.com/angelmondragon/portal/internal/auth"
	"github.com/angelmondragon/portal/internal/setup"
	"github.com/angelmondragon/portal/internal/tenants"
	"github.com/angelmondragon/portal/pkg/config"
	"github.com/angelmondragon/portal/pkg/logger"
	"github.com/angelmondragon/portal/pkg/metrics"
)

// Sessions is the session manager surface used by the tenant apps.
type Sessions interface {
	middleware.SessionLoader
	controllers.SessionEstablisher
	Ping(ctx context.Context) error
}

// RateLimitStore backs the login throttling counters.
type RateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Params carries everything the router wires into handlers.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         controllers.Pinger
	Sessions   Sessions
	RateLimits RateLimitStore
	Setup      setup.Service
	Auth       auth.Service
	Tenants    *tenants.Table
	Views      controllers.ViewRenderer
	Static     fs.FS
	Metrics    *metrics.Portal
	Gatherer   prometheus.Gatherer
}

func NewRouter(p Params) (http.Handler, error) {
	if p.Config == nil || p.Tenants == nil || p.Views == nil {
		return nil, fmt.Errorf("config, tenant table and views are required")
	}
	if p.Setup == nil || p.Auth == nil || p.Sessions == nil {
		return nil, fmt.Errorf("setup, auth and session dependencies are required")
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(p.Logger),
		middleware.RequestID(p.Logger),
		middleware.Logging(p.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(p.Config))
		r.Get("/ready", controllers.HealthReady(p.Config, map[string]controllers.Pinger{
			"database": p.DB,
			"sessions": p.Sessions,
		}, p.Logger))
	})
	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	apps := make(map[string]http.Handler, len(p.Tenants.Tenants()))
	for _, tenant := range p.Tenants.Tenants() {
		app, err := newTenantApp(p, tenant)
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", tenant.Name, err)
		}
		apps[tenant.Name] = app
	}
	hosts, err := middleware.NewHostRouter(p.Tenants, apps, p.Metrics, p.Logger)
	if err != nil {
		return nil, err
	}
	r.Mount("/", hosts)

	return r, nil
}

// newTenantApp builds the isolated application for one tenant. Static files
// are served ahead of the setup gate; everything else passes through it.
func newTenantApp(p Params, tenant tenants.Tenant) (http.Handler, error) {
	app := chi.NewRouter()

	if p.Static != nil && tenant.StaticRoot != "" {
		assets, err := fs.Sub(p.Static, tenant.StaticRoot)
		if err != nil {
			return nil, fmt.Errorf("static root %q: %w", tenant.StaticRoot, err)
		}
		app.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(assets))))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		p.Config.AuthRateLimit.LoginWindow,
		p.Config.AuthRateLimit.LoginIPLimit,
		p.Config.AuthRateLimit.LoginUsernameLimit,
	)

	gated := chi.NewRouter()
	gated.Use(
		middleware.SetupGate(p.Setup, p.Logger),
		chimw.StripSlashes,
	)

	gated.Get("/setup", controllers.SetupPage(p.Setup, p.Views, p.Logger))
	gated.Post("/setup", controllers.SetupSubmit(p.Setup, p.Sessions, p.Views, p.Logger))

	gated.Get("/login", controllers.LoginPage(p.Views, p.Logger))
	loginSubmit := controllers.LoginSubmit(p.Auth, p.Sessions, p.Logger)
	if p.RateLimits != nil {
		gated.With(middleware.AuthRateLimit(loginPolicy, p.RateLimits, p.Metrics, p.Logger)).Post("/login", loginSubmit)
	} else {
		gated.Post("/login", loginSubmit)
	}

	logout := controllers.Logout(p.Sessions, p.Logger)
	gated.Get("/logout", logout)
	gated.Post("/logout", logout)

	gated.Get("/", controllers.Landing(p.Views, p.Logger))

	gated.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(p.Sessions, p.Logger))
		r.Get("/communities", controllers.Communities(p.Views, p.Logger))
		r.Get("/user-settings", controllers.UserSettings(p.Views, p.Logger))
		r.With(middleware.CORS(p.Config.App.CORSOrigins)).Get("/get-username", controllers.GetUsername())
	})

	app.Mount("/", gated)
	return app, nil
}
