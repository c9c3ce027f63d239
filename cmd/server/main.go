// Package main provides the REST API server entrypoint.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkrasner/grimoire/internal/auth"
	"github.com/dkrasner/grimoire/internal/config"
	"github.com/dkrasner/grimoire/internal/httpapi"
	"github.com/dkrasner/grimoire/internal/observability"
	"github.com/dkrasner/grimoire/internal/server"
	"github.com/dkrasner/grimoire/internal/storage/media"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	pool, err := postgres.NewPool(ctx, cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	mediaStore, err := media.NewStore(cfg.Media.Dir)
	if err != nil {
		return fmt.Errorf("preparing media store: %w", err)
	}

	db := pool.DB()
	handler := httpapi.NewHandler(logger, auth.NewService(cfg.Auth), httpapi.Stores{
		Users:      postgres.NewUserRepository(db),
		Skills:     postgres.NewSkillRepository(db),
		Tags:       postgres.NewTagRepository(db),
		Races:      postgres.NewRaceRepository(db),
		Archetypes: postgres.NewArchetypeRepository(db),
		Items:      postgres.NewItemRepository(db),
		Images:     postgres.NewImageRepository(db),
		Characters: postgres.NewCharacterRepository(db),
		Media:      mediaStore,
	}, cfg.Media.MaxUploadBytes)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.GET("/healthz", func(c *gin.Context) {
		if err := pool.Health(c.Request.Context(), 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	lifecycle := server.NewLifecycle(logger, cfg.HTTP.ShutdownTimeout)
	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", cfg.HTTP.Addr()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func(ctx context.Context) {
			if err := httpServer.Shutdown(ctx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	return lifecycle.Run(context.Background())
}

// requestLogger logs one line per completed request.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
