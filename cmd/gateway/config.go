package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

const devJWTSecret = "change-this-dev-secret"

type config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`
	Env  string `env:"ENV,default=dev"`

	JWTSecret         string `env:"JWT_SECRET,default=change-this-dev-secret"`
	JWTAlg            string `env:"JWT_ALG,default=HS256"`
	SessionTTLSeconds int    `env:"SESSION_TTL_SECONDS,default=3600"`

	RateLimitRequests      int           `env:"RATE_LIMIT_REQUESTS,default=30"`
	RateLimitWindowSeconds int           `env:"RATE_LIMIT_WINDOW_SECONDS,default=60"`
	RateCleanupEvery       time.Duration `env:"RATE_CLEANUP_EVERY,default=2m"`

	// LoginRateRequests = 0 desliga o throttle do /login.
	LoginRateRequests      int  `env:"LOGIN_RATE_REQUESTS,default=10"`
	LoginRateWindowSeconds int  `env:"LOGIN_RATE_WINDOW_SECONDS,default=60"`
	TrustXFF               bool `env:"TRUST_XFF,default=false"`

	DuckDuckGoAPI string        `env:"DUCKDUCKGO_API"`
	NewsTimeout   time.Duration `env:"NEWS_TIMEOUT,default=15s"`

	GeminiModel       string        `env:"GEMINI_MODEL,default=gemini-1.5-flash"`
	GoogleAPIKey      string        `env:"GOOGLE_API_KEY"`
	GoogleAPIEndpoint string        `env:"GOOGLE_API_ENDPOINT"`
	AnalysisTimeout   time.Duration `env:"ANALYSIS_TIMEOUT,default=30s"`
	AnalysisRPS       float64       `env:"ANALYSIS_RPS,default=0"`
	AnalysisBurst     int           `env:"ANALYSIS_BURST,default=1"`

	ConcurrencyMax     int           `env:"CONCURRENCY_MAX,default=100"`
	ConcurrencyTimeout time.Duration `env:"CONCURRENCY_TIMEOUT,default=0s"`

	RateStatsEnabled       bool          `env:"RATE_STATS_ENABLED,default=false"`
	RateStatsRedisAddr     string        `env:"RATE_STATS_REDIS_ADDR"`
	RateStatsRedisPassword string        `env:"RATE_STATS_REDIS_PASSWORD"`
	RateStatsRedisDB       int           `env:"RATE_STATS_REDIS_DB,default=0"`
	RateStatsPrefix        string        `env:"RATE_STATS_PREFIX,default=sectorgw:ratelimit"`
	RateStatsTTL           time.Duration `env:"RATE_STATS_TTL,default=24h"`
	RateStatsTrackKeys     bool          `env:"RATE_STATS_TRACK_KEYS,default=false"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=text"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Env != "dev" && c.JWTSecret == devJWTSecret {
		return errors.New("JWT_SECRET must be changed when ENV is not dev")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return errors.New("PORT must be in 1..65535")
	}
	if c.SessionTTLSeconds <= 0 {
		return errors.New("SESSION_TTL_SECONDS must be > 0")
	}
	if c.RateLimitRequests <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimitWindowSeconds <= 0 {
		return errors.New("RATE_LIMIT_WINDOW_SECONDS must be > 0")
	}
	if c.LoginRateRequests < 0 {
		return errors.New("LOGIN_RATE_REQUESTS must be >= 0")
	}
	if c.LoginRateRequests > 0 && c.LoginRateWindowSeconds <= 0 {
		return errors.New("LOGIN_RATE_WINDOW_SECONDS must be > 0")
	}
	if c.AnalysisRPS < 0 {
		return errors.New("ANALYSIS_RPS must be >= 0")
	}
	if c.ConcurrencyMax < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	if c.RateStatsEnabled && strings.TrimSpace(c.RateStatsRedisAddr) == "" {
		return errors.New("RATE_STATS_REDIS_ADDR is required when RATE_STATS_ENABLED=true")
	}
	if _, err := c.logLevel(); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func (c config) listenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c config) sessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSeconds) * time.Second
}

func (c config) rateWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

func (c config) loginWindow() time.Duration {
	return time.Duration(c.LoginRateWindowSeconds) * time.Second
}

func (c config) logLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.LogLevel))
	return lvl, err
}
