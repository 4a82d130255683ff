// Package app boots the HTTP server from resolved configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appslab-dev/miniapps/internal/blob"
	"github.com/appslab-dev/miniapps/internal/captcha"
	"github.com/appslab-dev/miniapps/internal/config"
	"github.com/appslab-dev/miniapps/internal/db"
	"github.com/appslab-dev/miniapps/internal/http/api/front"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// shutdownTimeout bounds graceful drain of in-flight requests.
const shutdownTimeout = 10 * time.Second

// ConfigExists reports whether the config file is present.
func ConfigExists(configPath string) bool {
	info, errStat := os.Stat(configPath)
	return errStat == nil && !info.IsDir()
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	return db.Migrate(conn)
}

// RunServer opens the database, migrates the schema, and serves the
// API until ctx is cancelled or a termination signal arrives.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)

	dsn, err := config.LoadDatabaseDSN(configPath)
	if err != nil {
		return err
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}

	jwtCfg, _ := config.LoadJWTConfig(configPath)
	if jwtCfg.Secret == "" {
		return fmt.Errorf("app: jwt secret is required (set `jwt.secret` or env %s)", config.EnvJWTSecret)
	}

	// File and env settings layer over the seeded database policy.
	uploadCfg, errUpload := config.LoadUploadConfig(configPath, db.LoadUploadPolicy(conn))
	if errUpload != nil {
		return errUpload
	}
	blobs, errBlobs := blob.NewStore(uploadCfg.Dir)
	if errBlobs != nil {
		return errBlobs
	}

	captchaStore := captcha.NewStore()

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(requestLogger(), gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	front.RegisterFrontRoutes(engine, conn, jwtCfg, captchaStore, blobs, uploadCfg.Policy)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s (uploads=%s)", server.Addr, blobs.Dir())
		serveErr <- server.ListenAndServe()
	}()

	select {
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if errShutdown := server.Shutdown(drainCtx); errShutdown != nil {
		return fmt.Errorf("app: shutdown: %w", errShutdown)
	}
	if sqlDB, errDB := conn.DB(); errDB == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// requestLogger logs one line per request with method, path, status,
// and latency.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"client":  c.ClientIP(),
		}).Info("request")
	}
}
