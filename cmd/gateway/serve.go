package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sector-gateway/analysis"
	"sector-gateway/analysis/gemini"
	"sector-gateway/auth/session"
	"sector-gateway/auth/token"
	"sector-gateway/middleware/ratelimit/application"
	"sector-gateway/middleware/ratelimit/domain"
	"sector-gateway/middleware/ratelimit/infra"
	"sector-gateway/news"
	"sector-gateway/pipeline"
	"sector-gateway/report"
	"sector-gateway/transport/httpapi"

	"github.com/redis/go-redis/v9"
)

func serve(parent context.Context, cfg config, log *slog.Logger) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tokens, err := token.New(token.Config{
		Secret: []byte(cfg.JWTSecret),
		Alg:    cfg.JWTAlg,
		TTL:    cfg.sessionTTL(),
	})
	if err != nil {
		return fmt.Errorf("token service: %w", err)
	}

	sessions := session.NewRegistry(session.WithIdleTTL(cfg.sessionTTL()))
	sessions.StartJanitor(ctx)

	store := infra.NewStore(cfg.RateLimitRequests, cfg.rateWindow(),
		infra.WithCleanupEvery(cfg.RateCleanupEvery),
	)
	store.StartJanitor(ctx)

	var stats domain.StatsStore
	var memStats *infra.MemoryStatsStore
	if !cfg.RateStatsEnabled {
		memStats = infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.RateStatsTrackKeys))
		stats = memStats
	} else {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateStatsRedisAddr,
			Password: cfg.RateStatsRedisPassword,
			DB:       cfg.RateStatsRedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
		err := rdb.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}
		stats = infra.NewRedisStatsStore(rdb,
			infra.WithStatsPrefix(cfg.RateStatsPrefix),
			infra.WithStatsTTL(cfg.RateStatsTTL),
			infra.WithStatsTrackKeys(cfg.RateStatsTrackKeys),
		)
	}

	var analyzer analysis.Analyzer
	if cfg.GoogleAPIKey != "" {
		client, err := gemini.New(gemini.Config{
			APIKey:   cfg.GoogleAPIKey,
			Model:    cfg.GeminiModel,
			Endpoint: cfg.GoogleAPIEndpoint,
			Timeout:  cfg.AnalysisTimeout,
		})
		if err != nil {
			return fmt.Errorf("gemini: %w", err)
		}
		analyzer = analysis.NewThrottled(client, cfg.AnalysisRPS, cfg.AnalysisBurst)
		log.Info("analysis backend: gemini", "model", client.Model(), "rps", cfg.AnalysisRPS)
	} else {
		log.Warn("GOOGLE_API_KEY not set; reports use the fallback summary")
	}

	p := &pipeline.Pipeline{
		Limiter: application.Service{
			Store: store,
			Stats: stats,
			Route: "analyze",
		},
		Sessions:       sessions,
		Source:         news.NewDuckDuckGo(cfg.DuckDuckGoAPI, cfg.NewsTimeout),
		Analyzer:       analyzer,
		Renderer:       report.Markdown{},
		CollectTimeout: cfg.NewsTimeout,
		AnalyzeTimeout: cfg.AnalysisTimeout,
		Logger:         log,
	}

	api := &httpapi.API{
		Tokens:             tokens,
		Sessions:           sessions,
		Pipeline:           p,
		LoginStats:         stats,
		TrustXFF:           cfg.TrustXFF,
		ConcurrencyMax:     cfg.ConcurrencyMax,
		ConcurrencyTimeout: cfg.ConcurrencyTimeout,
		Version:            version,
		Logger:             log,
	}
	if memStats != nil {
		api.Stats = memStats
	}
	if cfg.LoginRateRequests > 0 {
		loginStore := infra.NewStore(cfg.LoginRateRequests, cfg.loginWindow(),
			infra.WithCleanupEvery(cfg.RateCleanupEvery),
		)
		loginStore.StartJanitor(ctx)
		api.LoginLimiter = loginStore
	}

	srv := &http.Server{
		Addr:              cfg.listenAddr(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// análise = coleta + IA em série; o write timeout precisa cobrir as duas
		WriteTimeout: cfg.NewsTimeout + cfg.AnalysisTimeout + 10*time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("gateway listening", "addr", cfg.listenAddr(), "env", cfg.Env, "version", version)
	log.Info("rate limit", "requests", cfg.RateLimitRequests, "window", cfg.rateWindow(),
		"login_requests", cfg.LoginRateRequests, "login_window", cfg.loginWindow(), "trust_xff", cfg.TrustXFF)
	log.Info("rate stats", "enabled", cfg.RateStatsEnabled, "redis_addr", cfg.RateStatsRedisAddr,
		"ttl", cfg.RateStatsTTL, "track_keys", cfg.RateStatsTrackKeys)
	log.Info("concurrency", "max", cfg.ConcurrencyMax, "acquire_timeout", cfg.ConcurrencyTimeout)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
