// Command projectkit runs the project tracking API.
//
//	projectkit [serve]   run the HTTP server (default)
//	projectkit migrate   apply database migrations and exit
//	projectkit token     print a client-credentials access token for this API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	authgin "github.com/PaulFidika/projectkit/adapters/gin"
	"github.com/PaulFidika/projectkit/adapters/ginutil"
	"github.com/PaulFidika/projectkit/config"
	"github.com/PaulFidika/projectkit/core"
	oidckit "github.com/PaulFidika/projectkit/oidc"
	memorylimiter "github.com/PaulFidika/projectkit/ratelimit/memory"
	redislimiter "github.com/PaulFidika/projectkit/ratelimit/redis"
	memorystore "github.com/PaulFidika/projectkit/storage/memory"
	pgstore "github.com/PaulFidika/projectkit/storage/postgres"
	redisstore "github.com/PaulFidika/projectkit/storage/redis"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var err error
	switch cmd {
	case "serve":
		err = serve(ctx)
	case "migrate":
		err = migrate(ctx)
	case "token":
		err = token(ctx)
	default:
		err = fmt.Errorf("unknown command %q (want serve, migrate or token)", cmd)
	}
	if err != nil {
		logrus.WithError(err).Error(cmd + " failed")
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.Logger()
	if log.IsLevelEnabled(logrus.DebugLevel) {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	httpClient := &http.Client{Timeout: cfg.KeysTimeout}
	oc := cfg.OIDC(log)
	oc.HTTPClient = httpClient
	if cfg.UseDiscovery {
		md, err := oidckit.Discover(ctx, httpClient, cfg.Authority, cfg.TenantID)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		md.Apply(&oc)
		log.WithFields(logrus.Fields{"issuer": oc.Issuer, "keys_url": oc.KeysURL}).Info("provider metadata discovered")
	}
	verifier, err := oidckit.NewVerifier(oc)
	if err != nil {
		return err
	}
	if _, err := verifier.Keys().KeySet(ctx); err != nil {
		log.WithError(err).Warn("signing keys not loaded at startup; will retry on first request")
	}

	var (
		store core.Store
		ready func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.Open(ctx, pgstore.Config{DSN: cfg.DatabaseURL, MigrateOnStart: cfg.Migrate}, log)
		if err != nil {
			return err
		}
		defer pg.Close()
		store, ready = pg, pg.Ping
	} else {
		log.Warn("DATABASE_URL not set; using in-memory store")
		store = memorystore.NewStore()
	}

	var (
		limiter   ginutil.RateLimiter
		provision core.ProvisionCache
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		limiter = redislimiter.New(rdb, "", map[string]redislimiter.Limit{
			ginutil.RLProjectsRead:  {Limit: cfg.ReadPerMin, Window: time.Minute},
			ginutil.RLUsersRead:     {Limit: cfg.ReadPerMin, Window: time.Minute},
			ginutil.RLProjectsWrite: {Limit: cfg.WritePerMin, Window: time.Minute},
		})
		provision = redisstore.NewProvisionCache(rdb, "", cfg.ProvisionTTL)
	} else {
		mem := memorylimiter.New(map[string]memorylimiter.Limit{
			ginutil.RLProjectsRead:  {Limit: cfg.ReadPerMin, Window: time.Minute},
			ginutil.RLUsersRead:     {Limit: cfg.ReadPerMin, Window: time.Minute},
			ginutil.RLProjectsWrite: {Limit: cfg.WritePerMin, Window: time.Minute},
		})
		go sweep(ctx, mem)
		limiter = mem
		pc := memorystore.NewProvisionCache(cfg.ProvisionTTL)
		defer pc.Close()
		provision = pc
	}

	svc := core.NewService(store, core.WithProvisionCache(provision), core.WithServiceLogger(log))
	router := authgin.NewRouter(authgin.Deps{
		Auth: authgin.AuthConfig{
			Verifier: verifier,
			Roles:    cfg.Roles(),
			Events:   core.LogrusAuthEvents{Log: log},
		},
		Service: svc,
		Limiter: limiter,
		Log:     log,
		Keys:    verifier.Keys(),
		Ready:   ready,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweep(ctx context.Context, l *memorylimiter.Limiter) {
	t := time.NewTicker(5 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			l.Sweep()
		}
	}
}

func migrate(ctx context.Context) error {
	db, err := config.LoadDatabase()
	if err != nil {
		return err
	}
	pg, err := pgstore.Open(ctx, pgstore.Config{DSN: db.URL, MigrateOnStart: true}, logrus.StandardLogger())
	if err != nil {
		return err
	}
	pg.Close()
	return nil
}

func token(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.ClientSecret == "" {
		return errors.New("AZURE_CLIENT_SECRET is required for token")
	}
	tokenURL := cfg.TokenURL()
	if cfg.UseDiscovery {
		md, err := oidckit.Discover(ctx, &http.Client{Timeout: cfg.KeysTimeout}, cfg.Authority, cfg.TenantID)
		if err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		if md.TokenEndpoint != "" {
			tokenURL = md.TokenEndpoint
		}
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
		Scopes:       []string{cfg.TokenScope()},
	}
	tok, err := cc.Token(ctx)
	if err != nil {
		return err
	}
	fmt.Println(tok.AccessToken)
	return nil
}
