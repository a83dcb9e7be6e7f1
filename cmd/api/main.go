package main

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/portal/api/routes"
	"github.com/angelmondragon/portal/internal/auth"
	"github.com/angelmondragon/portal/internal/cron"
	"github.com/angelmondragon/portal/internal/settings"
	"github.com/angelmondragon/portal/internal/setup"
	"github.com/angelmondragon/portal/internal/tenants"
	"github.com/angelmondragon/portal/internal/userids"
	"github.com/angelmondragon/portal/internal/users"
	"github.com/angelmondragon/portal/internal/views"
	"github.com/angelmondragon/portal/pkg/auth/session"
	"github.com/angelmondragon/portal/pkg/config"
	"github.com/angelmondragon/portal/pkg/db"
	"github.com/angelmondragon/portal/pkg/logger"
	"github.com/angelmondragon/portal/pkg/memstore"
	"github.com/angelmondragon/portal/pkg/metrics"
	"github.com/angelmondragon/portal/pkg/migrate"
	"github.com/angelmondragon/portal/pkg/redis"
	"github.com/angelmondragon/portal/pkg/security"
	"github.com/angelmondragon/portal/web"
)

const memstoreSweepInterval = time.Minute

// kvStore is what sessions and login throttling need from a key-value backend.
type kvStore interface {
	session.Store
	routes.RateLimitStore
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "portal"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "portal",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "portal stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(context.Background(), "portal shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	portalMetrics := metrics.NewPortal(reg)

	store, closeStore, err := openStore(ctx, cfg, logg, portalMetrics)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, closeStore())
	}()

	hasher, err := security.NewHasher(cfg.Password)
	if err != nil {
		return err
	}
	if hasher.Name() == config.PasswordPolicyPlaintext {
		logg.Warn(ctx, "password policy is plaintext; credentials are stored unhashed")
	}

	setupService, err := setup.NewService(setup.ServiceParams{
		DB:       dbClient,
		Settings: settings.NewRepository(dbClient.DB()),
		Hasher:   hasher,
		IDs:      userids.NewGenerator(cfg.UserID.MaxAttempts, userids.WithRecorder(portalMetrics)),
		Metrics:  portalMetrics,
	})
	if err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo: users.NewRepository(dbClient.DB()),
		Hasher:   hasher,
		Metrics:  portalMetrics,
	})
	if err != nil {
		return err
	}

	sessionManager, err := session.NewManager(store, cfg.Session, session.WithSecureCookie(cfg.TLS.Enabled()))
	if err != nil {
		return err
	}

	table, err := tenants.NewDefaultTable(cfg.Tenants.Default)
	if err != nil {
		return err
	}

	staticRoot, viewFS, err := assets(cfg)
	if err != nil {
		return err
	}
	renderer, err := views.New(viewFS)
	if err != nil {
		return err
	}

	handler, err := routes.NewRouter(routes.Params{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Sessions:   sessionManager,
		RateLimits: store,
		Setup:      setupService,
		Auth:       authService,
		Tenants:    table,
		Views:      renderer,
		Static:     staticRoot,
		Metrics:    portalMetrics,
		Gatherer:   reg,
	})
	if err != nil {
		return err
	}

	return serve(ctx, cfg, logg, handler)
}

// openStore picks Redis when sessions are configured for it, or when Redis is
// available for login throttling, and falls back to the in-process store.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger, portalMetrics *metrics.Portal) (kvStore, func() error, error) {
	if cfg.Session.UsesRedis() || cfg.Redis.Enabled() {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nil, err
		}
		logg.Info(ctx, "sessions stored in redis")
		return client, client.Close, nil
	}

	store := memstore.New()
	job, err := cron.NewSweepJob(store)
	if err != nil {
		return nil, nil, err
	}
	housekeeping, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(job),
		Metrics:  portalMetrics,
		Interval: memstoreSweepInterval,
	})
	if err != nil {
		return nil, nil, err
	}
	sweepCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- housekeeping.Run(sweepCtx) }()
	logg.Info(ctx, "sessions stored in memory")
	return store, func() error {
		cancel()
		return <-done
	}, nil
}

func assets(cfg *config.Config) (fs.FS, fs.FS, error) {
	if dir := cfg.Tenants.WebRoot; dir != "" {
		return web.FromDir(dir)
	}
	viewFS, err := web.Views()
	if err != nil {
		return nil, nil, err
	}
	return web.Root(), viewFS, nil
}

func serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, handler http.Handler) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := net.JoinHostPort(cfg.App.Host, port)
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"tls":      cfg.TLS.Enabled(),
	})
	logg.Info(logCtx, "starting portal server")

	servers := []*http.Server{{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
	}}
	if cfg.TLS.Enabled() && cfg.TLS.RedirectPort != "" {
		servers = append(servers, &http.Server{
			Addr:         net.JoinHostPort(cfg.App.Host, cfg.TLS.RedirectPort),
			Handler:      httpsRedirect(port),
			ReadTimeout:  cfg.App.ReadTimeout,
			WriteTimeout: cfg.App.WriteTimeout,
		})
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		group.Go(func() error {
			var err error
			if i == 0 && cfg.TLS.Enabled() {
				err = srv.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
			} else {
				err = srv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		logg.Info(logCtx, "shutting down portal server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		var errs error
		for _, srv := range servers {
			errs = multierr.Append(errs, srv.Shutdown(shutdownCtx))
		}
		return errs
	})
	return group.Wait()
}

// httpsRedirect sends plain HTTP traffic to the TLS listener on the same host.
func httpsRedirect(tlsPort string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := r.Host
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		if tlsPort != "" && tlsPort != "443" {
			host = net.JoinHostPort(host, tlsPort)
		}
		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	})
}
