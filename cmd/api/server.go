package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/georgemunganga/marketplace-api/internal/modules/auth"
	"github.com/georgemunganga/marketplace-api/internal/modules/catalog"
	"github.com/georgemunganga/marketplace-api/internal/modules/guard"
	"github.com/georgemunganga/marketplace-api/internal/modules/image"
	"github.com/georgemunganga/marketplace-api/internal/modules/order"
	"github.com/georgemunganga/marketplace-api/internal/modules/store"
	"github.com/georgemunganga/marketplace-api/internal/modules/user"
	"github.com/georgemunganga/marketplace-api/internal/platform/config"
	"github.com/georgemunganga/marketplace-api/internal/platform/database"
	"github.com/georgemunganga/marketplace-api/internal/platform/logger"
	"github.com/georgemunganga/marketplace-api/internal/platform/mailer"
	"github.com/georgemunganga/marketplace-api/internal/platform/metrics"
	"github.com/georgemunganga/marketplace-api/internal/platform/ratelimit"
	"github.com/georgemunganga/marketplace-api/internal/response"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	db, err := database.Open(ctx, cfg.Database.URL, database.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected")

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	// ── Shared infrastructure ───────────────────────────────
	images := image.NewStorage(image.Config{
		ProductsDir:  cfg.Application.ImagePathProducts,
		StoresDir:    cfg.Application.ImagePathStores,
		UsersDir:     cfg.Application.ImagePathUsers,
		StoreDefault: cfg.Application.ImagePathStoresDefault,
		UserDefault:  cfg.Images.Path.Users.Default,
		MaxBytes:     cfg.Application.MaxImageBytes,
	})

	var mail mailer.Sender
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From,
			cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.TLSMode, logger.Named("mailer"))
	} else {
		log.Warn("SMTP_HOST not set, recovery e-mails are only logged")
		mail = mailer.NewLogSender(logger.Named("mailer"))
	}

	var loginLimit, recoveryLimit func(http.Handler) http.Handler
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		limiter := ratelimit.NewRedisLimiter(rdb, "rl:", cfg.RateLimit.Max, cfg.RateLimit.Window)
		loginLimit = ratelimit.Middleware(limiter, "login")
		recoveryLimit = ratelimit.Middleware(limiter, "recovery")
	} else {
		log.Warn("REDIS_ADDR not set, rate limiting disabled")
	}

	// ── Identity ────────────────────────────────────────────
	hasher := auth.NewHasher()
	issuer := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Lifetime)
	authService := auth.NewService(
		auth.NewAccountRepository(db),
		auth.NewRecoveryTokenRepository(db),
		hasher, issuer, mail,
		auth.RecoveryConfig{TTL: cfg.Application.RecoveryTokenTTL, BaseURLFront: cfg.Application.BaseURLFront},
	)
	authn := auth.RequireAuth

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)
	router.Use(auth.NewAuthenticator(issuer).Middleware)

	router.Get("/healthz", healthz(db))
	router.Method(http.MethodGet, "/metrics", m.Handler())

	auth.NewHandler(authService, loginLimit).RegisterRoutes(router)

	// ── Users ───────────────────────────────────────────────
	userService := user.NewService(user.NewPostgresRepository(db), hasher, images, authService)
	user.NewHandler(userService, images, recoveryLimit).RegisterRoutes(router, authn)

	// ── Stores, catalog and orders ──────────────────────────
	orderRepo := order.NewPostgresRepository(db)
	deactivation := guard.New(orderRepo)

	storeService := store.NewService(store.NewPostgresRepository(db), images, deactivation)
	store.NewHandler(storeService, images).RegisterRoutes(router, authn)

	taxonomyRepo := catalog.NewTaxonomyPostgresRepository(db)
	taxonomyService := catalog.NewTaxonomyService(taxonomyRepo, cfg.Application.CatalogCacheTTL)
	catalogService := catalog.NewService(catalog.NewPostgresRepository(db), taxonomyRepo, storeService, deactivation, images)
	catalog.NewHandler(catalogService, taxonomyService, storeService, images).RegisterRoutes(router, authn)

	orderService := order.NewService(orderRepo, storeService)
	order.NewHandler(orderService).RegisterRoutes(router, authn)

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			response.Error(w, r, err)
			return
		}
		response.OK(w, "ok")
	}
}
