package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/handler"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/storage"
)

// @title Storefront API
// @version 1.0
// @description Storefront catalog API with JWT authentication and role based access control.
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	setupLogger(cfg)

	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		fatal("database init", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		fatal("auto-migrate", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	if err := cacheClient.Ping(ctx); err != nil {
		slog.Warn("redis unavailable, catalog reads go straight to the database", "addr", cfg.RedisAddr, "error", err)
	}

	disk, err := storage.New(ctx, cfg)
	if err != nil {
		fatal("storage init", err)
	}

	repos := repository.NewRepositories(gormDB)
	tx := repository.NewTransactor(gormDB)

	_, err = service.NewBootstrapper(repos.Users, service.AdminAccount{
		Email:    cfg.AdminEmail,
		Username: cfg.AdminUsername,
		Password: cfg.AdminPassword,
	}).EnsureAdmin(ctx)
	if err != nil {
		fatal("admin bootstrap", err)
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)

	authService := service.NewAuthService(repos.Users, jwtService)
	categoryService := service.NewCategoryService(repos, tx, cacheClient, cfg.CacheTTL, cfg.CategoryDeletePolicy)
	productService := service.NewProductService(repos, tx, cacheClient, cfg.CacheTTL, disk)
	auditService := service.NewAuditService(repos.AuditLogs)
	userDirectory := service.NewUserDirectory(repos.Users, cacheClient)
	seeder := service.NewCatalogSeeder(tx).WithCache(cacheClient)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, jwtService, auth.NewGate(repos.Users), router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Categories: handler.NewCategoryHandler(categoryService),
		Products:   handler.NewProductHandler(productService),
		Audit:      handler.NewAuditHandler(auditService),
		Users:      handler.NewUserHandler(userDirectory),
		Seed:       handler.NewSeedHandler(seeder),
	})

	addr := ":" + cfg.ServerPort
	go func() {
		slog.Info("server starting", "addr", addr, "env", cfg.AppEnv, "db", cfg.DBDriver, "storage", cfg.StorageDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("server start", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown", "error", err)
	}
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}

	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
