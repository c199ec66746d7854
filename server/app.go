package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"amcdesk/config"
	"amcdesk/internal/amc"
	"amcdesk/internal/api"
	"amcdesk/internal/auth"
	"amcdesk/internal/controller"
	"amcdesk/internal/db"
	"amcdesk/internal/health"
	"amcdesk/internal/logs"
	"amcdesk/internal/middleware"
	"amcdesk/internal/repo"
	"amcdesk/internal/storage"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Stores     *repo.Stores
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// InitLogs настраивает глобальный логгер из конфига; его же вызывают CLI-команды.
func InitLogs(cfg *config.Config) {
	logs.Init(logs.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
}

// OpenDB подключает БД и при database.auto_migrate (или force) создаёт таблицы.
func OpenDB(cfg *config.Config, force bool) (*gorm.DB, error) {
	d, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if cfg.Database.AutoMigrate || force {
		if err := db.Migrate(d); err != nil {
			return nil, fmt.Errorf("db migrate: %w", err)
		}
	}
	return d, nil
}

// NewStores собирает хранилища с часами и лимитами из конфига.
func NewStores(cfg *config.Config, d *gorm.DB) *repo.Stores {
	return repo.New(d, repo.Options{
		Clock:           amc.NewClock(cfg.Location()),
		DefaultPageSize: cfg.Listing.DefaultPageSize,
		MaxPageSize:     cfg.Listing.MaxPageSize,
		ExportLimit:     cfg.Listing.ExportLimit,
	})
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	InitLogs(cfg)

	/* 2) DB */
	d, err := OpenDB(cfg, false)
	if err != nil {
		logs.Logger.Fatalf("%v", err)
	}
	a.db = d
	a.Stores = NewStores(cfg, d)
	clock := amc.NewClock(cfg.Location())

	/* 3) Вложения и аутентификация */
	uploader, err := storage.NewS3Uploader(context.Background(), storage.S3Options{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		PathStyle:     cfg.Storage.PathStyle,
	})
	if err != nil {
		logs.Logger.Fatalf("storage init failed: %v", err)
	}
	if !uploader.Enabled() {
		logs.Logger.Warn("storage.bucket is empty, attachments are disabled")
	}
	authSvc := auth.NewService(a.Stores.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health */
	health.RegisterRoutes(a.Router, a.db) // /healthz, /readyz

	/* 6) API панели */
	api.Attach(a.Router, api.Dependencies{
		Stores:      a.Stores,
		Requests:    controller.NewRequests(a.Stores, uploader, clock),
		Dashboard:   controller.NewDashboard(a.Stores),
		Auth:        authSvc,
		ExportLimit: cfg.Listing.ExportLimit,
	})

	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := rt.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		logs.Logger.Debugf("route: %-6s %s", strings.Join(methods, ","), path)
		return nil
	})
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer a.cancel()

	// вложения до 50 МБ, поэтому на запись и чтение даём больше времени
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-a.ctx.Done():
		logs.Logger.Info("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
