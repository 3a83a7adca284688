package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/handler"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
	"github.com/replaysMike/Binner-sub003/internal/bom/service"
	"github.com/replaysMike/Binner-sub003/internal/config"
	"github.com/replaysMike/Binner-sub003/internal/metrics"
	"github.com/replaysMike/Binner-sub003/internal/middleware"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

const eventsPath = "/api/bom/events"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file, using the process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zapLogger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zapLogger); err != nil {
		zapLogger.Error("binner stopped", zap.Error(err))
		os.Exit(1)
	}
	zapLogger.Info("binner stopped")
}

// run serves the API until ctx is cancelled, then drains in-flight requests
// and releases the database and Redis connections.
func run(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	zapLogger.Info("starting binner",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	db, err := openDatabase(cfg.Database)
	if err != nil {
		return err
	}
	defer closeDatabase(db)
	if err := db.AutoMigrate(entity.Models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	rdb := openRedis(ctx, cfg.Redis, zapLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	m := metrics.New("binner")
	repos := repository.NewRepositories(db)
	services, err := service.NewServices(repos, rdb, cfg, zapLogger, m)
	if err != nil {
		return err
	}

	var limiter *middleware.IPRateLimiter
	if cfg.RateLimit.RPS > 0 {
		limiter = middleware.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	router := newRouter(cfg, zapLogger, handler.NewHandlers(services), repos, m, limiter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	// event streams never go idle, so Shutdown would wait them out
	srv.RegisterOnShutdown(func() {
		zapLogger.Info("closing event streams", zap.Int("open", services.Events.Subscribers()))
		services.Events.Close()
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(ctx.Done(), time.Minute)
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zapLogger.Warn("forced shutdown", zap.Error(err))
		}
		return nil
	})
	return g.Wait()
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zapCfg.Build()
}

func openDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	return db, nil
}

func closeDatabase(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}

// openRedis returns nil when no Redis host is configured or it does not
// answer; the snapshot cache is disabled in that case.
func openRedis(ctx context.Context, cfg config.RedisConfig, zapLogger *zap.Logger) *redis.Client {
	if cfg.Host == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("redis unavailable, snapshot cache disabled", zap.Error(err))
		rdb.Close()
		return nil
	}
	return rdb
}

func newRouter(cfg *config.Config, zapLogger *zap.Logger, h *handler.Handlers, repos *repository.Repositories, m *metrics.Metrics, limiter *middleware.IPRateLimiter) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(zapLogger),
		middleware.CORS(),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{eventsPath})),
		m.Middleware(),
	)

	r.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/health/ready", func(c *gin.Context) {
		if err := repos.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version, "build_time": BuildTime})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": 40400, "message": "Not found"})
	})

	api := r.Group("/api")
	if limiter != nil {
		api.Use(middleware.RateLimit(limiter))
	}
	api.Use(middleware.JWTAuth(cfg.JWT.Secret))
	h.RegisterRoutes(api)
	return r
}
