package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"memorybook/internal/cloudinary"
	"memorybook/internal/config"
	"memorybook/internal/gate"
	"memorybook/internal/guestbook"
	"memorybook/internal/handler"
	"memorybook/internal/httpmiddleware"
	"memorybook/internal/lookup"
	"memorybook/internal/rowstore"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx := context.Background()

	store, storeHealthy, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	writeGate, redisHealthy, err := newGate(cfg)
	if err != nil {
		return err
	}

	// Cloudinary client (nil when not configured; submissions degrade to
	// text-only)
	var images guestbook.ImageStore
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		images = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Printf("invalid TIME_ZONE %q, using UTC: %v", cfg.TimeZone, err)
		loc = time.UTC
	}

	gb := guestbook.New(store, images, writeGate, cfg.GuestbookTab, loc)
	lk := lookup.New(store, cfg.ClassTabs)
	h := handler.New(lk, gb, "web/index.html", storeHealthy, redisHealthy)

	r := gin.New()

	// Uncaught faults in any handler become a plain-text system error
	// instead of killing the process.
	r.Use(gin.CustomRecovery(func(c *gin.Context, err any) {
		log.Printf("critical: recovered from panic: %v", err)
		c.String(http.StatusInternalServerError, "System Error: %v", err)
	}))

	// Custom logger
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))

	// CORS middleware
	r.Use(corsMiddleware())

	// Security headers
	r.Use(securityHeaders())

	// Rate limiting
	r.Use(httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	r.GET("/", h.Root)
	r.POST("/", h.SubmitEntry)
	r.GET("/api/student", h.Student)

	r.Static("/static", "web/static")

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on :%s (store=%s, lock=%s)", cfg.HTTPPort, cfg.StoreBackend, cfg.LockBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// newStore picks the record-store backend from config. The health func is
// nil for backends with nothing meaningful to ping.
func newStore(ctx context.Context, cfg config.App) (rowstore.Store, handler.HealthFunc, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := rowstore.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return pg, pg.Healthy, func() { _ = pg.Close() }, nil
	case "memory":
		log.Println("warning: memory store backend holds no data across restarts")
		return rowstore.NewMemory(), nil, func() {}, nil
	case "sheets":
		if cfg.SpreadsheetID == "" {
			return nil, nil, nil, fmt.Errorf("SPREADSHEET_ID is required for the sheets backend")
		}
		s, err := rowstore.NewSheets(ctx, cfg.SpreadsheetID, cfg.GoogleCredentials)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, nil, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// newGate picks the write-gate backend from config.
func newGate(cfg config.App) (gate.Gate, handler.HealthFunc, error) {
	switch cfg.LockBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
		})
		healthy := func(ctx context.Context) bool {
			return client.Ping(ctx).Err() == nil
		}
		return gate.NewRedis(client, "guestbook:write-lock", cfg.LockWait), healthy, nil
	case "memory":
		return gate.NewInMemory(cfg.LockWait), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.LockBackend)
	}
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware. The page is meant to be embeddable, so
// framing stays open; everything else is locked down.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
