package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/app"
	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/cache"
	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/graph"
	"github.com/maxviazov/knowledge-hub/internal/handler"
	"github.com/maxviazov/knowledge-hub/internal/logger"
	"github.com/maxviazov/knowledge-hub/internal/middleware"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/migrations"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	// Load application config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Config loading failed: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		log.Fatalf("❌ Logger initialization failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal().Err(err).Msg("service stopped with error")
	}
	appLogger.Info().Msg("👋 Service stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger zerolog.Logger) error {
	store, err := app.OpenStorage(ctx, cfg, &appLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	if store.DB != nil && cfg.App.AutoMigrate {
		if err := migrations.RunPool(ctx, store.DB.Pool(), migrations.Up, appLogger); err != nil {
			return err
		}
	}

	checks := []handler.Check{{Name: "database", Pinger: store.Pinger}}
	var respCache cache.Store = cache.Noop{}
	if cfg.Redis.Enabled() {
		rc, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// the cache is an optimisation; run without it
			appLogger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, response cache disabled")
		} else {
			defer rc.Close()
			respCache = rc
			checks = append(checks, handler.Check{Name: "cache", Pinger: rc})
		}
	}

	policy, err := paging.ParsePolicy(cfg.Paging.Policy)
	if err != nil {
		return err
	}
	limits := cfg.Paging.Limits()

	tokens := auth.NewTokens(cfg.Auth)
	entrySvc := service.NewEntryService(store.Entries, store.Categories, store.Users, store.Tx, appLogger)
	categorySvc := service.NewCategoryService(store.Categories, appLogger)
	userSvc := service.NewUserService(store.Users, tokens, appLogger)
	statsSvc := service.NewStatsService(store.Entries, store.Categories, store.Users, appLogger)
	exec, err := graph.NewExecutor(entrySvc, categorySvc, limits)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := middleware.NewMetrics(reg)
	if err != nil {
		return err
	}

	pipeline := middleware.Pipeline{
		{Name: "request_id", Handler: middleware.RequestID()},
		{Name: "access_log", Handler: middleware.AccessLog(appLogger)},
		{Name: "metrics", Handler: metrics.Handler()},
		{Name: "auth", Handler: middleware.Authenticate(tokens, store.Users)},
	}
	if cfg.RateLimit.Enabled {
		pipeline = pipeline.Then(middleware.Stage{Name: "rate_limit", Handler: middleware.NewRateLimiter(cfg.RateLimit).Handler()})
	}
	if cfg.Redis.Enabled() {
		pipeline = pipeline.Then(middleware.Stage{Name: "cache", Handler: middleware.ResponseCache(respCache, cfg.Redis.CacheTTL(), appLogger)})
	}

	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	handler.Register(engine, handler.Deps{
		Checks:     checks,
		Entries:    entrySvc,
		Categories: categorySvc,
		Users:      userSvc,
		Stats:      statsSvc,
		Graph:      exec,
		Paging:     handler.Paging{Limits: limits, Policy: policy},
		Pipeline:   pipeline,
		Gatherer:   reg,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.App.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info().
			Str("addr", srv.Addr).
			Str("storage", cfg.App.Storage).
			Str("paging_policy", policy.String()).
			Strs("pipeline", pipeline.Names()).
			Msg("🚀 Service started")
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

	appLogger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.App.ShutdownTimeout)*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
