package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Skufu/vitalcalc/internal/cache"
	"github.com/Skufu/vitalcalc/internal/calculators"
	"github.com/Skufu/vitalcalc/internal/logger"
)

const serviceName = "vitalcalc"

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port        string
	DatabaseURL string
	EnableDB    bool

	LogLevel  string
	LogFormat string

	EnableCache   bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// WeightsFile optionally overrides risk weights and tiers (YAML).
	WeightsFile string
}

func main() {
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.LogFormat, serviceName)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zlog.Sync() //nolint:errcheck

	overrides, err := calculators.LoadOverrides(cfg.WeightsFile)
	if err != nil {
		zlog.Fatal("weight overrides", zap.Error(err))
	}
	registry, err := calculators.New(overrides)
	if err != nil {
		zlog.Fatal("calculator configuration", zap.Error(err))
	}

	deps := Deps{Registry: registry, Logger: zlog}

	ctx := context.Background()
	if cfg.EnableDB {
		pool, err := connectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("database connection failed", zap.Error(err))
		}
		defer pool.Close()
		deps.DB = pool
	}

	if cfg.EnableCache {
		store := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer store.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := store.Ping(pingCtx); err != nil {
			// the cache is optional; requests bypass it while redis is down
			zlog.Warn("redis unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()

		registry.Decorate(func(a calculators.Assessor) calculators.Assessor {
			return cache.Wrap(a, store, cfg.CacheTTL, zlog)
		})
		deps.Cache = store
	}

	staticRoot := detectStaticRoot()
	router := setupRouter(deps, staticRoot)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server error", zap.Error(err))
		}
	}()

	zlog.Info("server listening",
		zap.String("port", cfg.Port),
		zap.Strings("calculators", registry.Metrics()),
		zap.Bool("db", cfg.EnableDB),
		zap.Bool("cache", cfg.EnableCache),
	)
	waitForShutdown(server, zlog)
}

func loadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		EnableDB:      strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		EnableCache:   strings.EqualFold(getEnv("ENABLE_CACHE", "false"), "true"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		WeightsFile:   os.Getenv("WEIGHTS_FILE"),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}

	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil || db < 0 {
		return nil, fmt.Errorf("REDIS_DB must be a non-negative integer")
	}
	cfg.RedisDB = db

	ttl, err := time.ParseDuration(getEnv("CACHE_TTL", "10m"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("CACHE_TTL must be a positive duration such as 10m")
	}
	cfg.CacheTTL = ttl

	return cfg, nil
}

func connectDB(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

func waitForShutdown(server *http.Server, zlog *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zlog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "."
	}

	candidates := []string{
		startDir,
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, "index.html")) {
			return dir
		}
	}

	return startDir
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
