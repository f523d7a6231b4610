package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/stocktrail/stocktrail-backend/api/routes"
	"github.com/stocktrail/stocktrail-backend/internal/audit"
	"github.com/stocktrail/stocktrail-backend/internal/auth"
	"github.com/stocktrail/stocktrail-backend/internal/bootstrap"
	"github.com/stocktrail/stocktrail-backend/internal/inventory"
	"github.com/stocktrail/stocktrail-backend/internal/users"
	"github.com/stocktrail/stocktrail-backend/pkg/cache"
	"github.com/stocktrail/stocktrail-backend/pkg/config"
	"github.com/stocktrail/stocktrail-backend/pkg/db"
	"github.com/stocktrail/stocktrail-backend/pkg/db/models"
	"github.com/stocktrail/stocktrail-backend/pkg/logger"
	"github.com/stocktrail/stocktrail-backend/pkg/mailer"
	"github.com/stocktrail/stocktrail-backend/pkg/migrate"
	"github.com/stocktrail/stocktrail-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	userRepo := users.NewRepository(dbClient.DB())
	tokenRepo := users.NewTokenRepository(dbClient.DB())

	if err := bootstrap.EnsureAdmin(context.Background(), userRepo, cfg.Admin, cfg.Password, logg); err != nil {
		logg.Error(context.Background(), "failed to bootstrap default admin", err)
		os.Exit(1)
	}

	var mail mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail, err = mailer.NewSMTP(cfg.SMTP)
		if err != nil {
			logg.Error(context.Background(), "failed to configure smtp mailer", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "smtp host not configured, logging outbound mail instead")
		mail = mailer.NewLog(logg)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		UserRepo:       userRepo,
		TokenRepo:      tokenRepo,
		Mailer:         mail,
		Logger:         logg,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		ResetConfig:    cfg.PasswordReset,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	auditService, err := audit.NewService(audit.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}

	itemCache := cache.New[string, models.InventoryItem](cache.Options{
		Capacity:  cfg.Cache.Capacity,
		WriteTTL:  cfg.Cache.WriteTTL,
		AccessTTL: cfg.Cache.AccessTTL,
	})

	inventoryService, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), auditService, itemCache)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, authService, inventoryService, auditService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
