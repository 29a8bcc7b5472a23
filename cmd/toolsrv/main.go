package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/courseloop/lti-tool/internal/admin"
	"github.com/courseloop/lti-tool/internal/config"
	"github.com/courseloop/lti-tool/internal/db"
	"github.com/courseloop/lti-tool/internal/keys"
	"github.com/courseloop/lti-tool/internal/registration"
)

func main() {
	cfg := config.FromEnv()
	log := newLogger(cfg.Env)
	defer log.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- DB ---
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalw("db open failed", "err", err)
	}

	// --- Key provider ---
	var keyStorage keys.Storage
	if cfg.KeyEncSecret != "" {
		keyStorage, err = keys.NewSQLStorage(dbh, cfg.KeyEncSecret)
		if err != nil {
			log.Fatalw("key storage", "err", err)
		}
	} else {
		log.Warnw("KEY_ENC_SECRET not set, using in-memory key storage (dev only)")
		keyStorage = keys.NewInMemoryStorage()
	}
	keyProvider := &keys.Provider{Storage: keyStorage}

	// --- Stores ---
	var pending registration.PendingStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalw("redis parse", "err", err)
		}
		cli := redis.NewClient(opts)
		if err := cli.Ping(ctx).Err(); err != nil {
			log.Fatalw("redis ping", "err", err)
		}
		log.Infow("redis ready", "addr", opts.Addr)
		pending = &registration.RedisPendingStore{Client: cli, TTL: cfg.PendingTTL}
	} else {
		pending = registration.NewInMemoryPendingStore()
	}
	platforms := &registration.SQLPlatformStore{DB: dbh}

	svc := &registration.Service{
		Pending:   pending,
		Platforms: platforms,
		Keys:      keyProvider,
		Tool: registration.Tool{
			PublicURL:   cfg.PublicURL,
			Name:        cfg.ToolName,
			Description: cfg.ToolDescription,
			LogoURL:     cfg.ToolLogoURL,
		},
		HTTP: &http.Client{Timeout: 15 * time.Second},
		Log:  log,
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Mount("/lti", registration.Routes(svc))
	r.Mount("/admin", admin.Routes(platforms))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		log.Infow("listening", "addr", cfg.HTTPAddr, "public_url", cfg.PublicURL, "db", cfg.DBDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warnw("shutdown", "err", err)
	}
}

func newLogger(env config.Env) *zap.SugaredLogger {
	var z *zap.Logger
	if env == config.EnvProd {
		z, _ = zap.NewProduction()
	} else {
		z, _ = zap.NewDevelopment()
	}
	return z.Sugar()
}
