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

	"github.com/hibiken/asynq"

	"github.com/casinha/portal/internal/app"
	"github.com/casinha/portal/internal/auth"
	"github.com/casinha/portal/internal/observability"
	"github.com/casinha/portal/internal/platform/cache"
	"github.com/casinha/portal/internal/platform/db"
	"github.com/casinha/portal/internal/platform/storage"
	"github.com/casinha/portal/internal/portal"
	"github.com/casinha/portal/internal/rbac"
	"github.com/casinha/portal/internal/reports"
	"github.com/casinha/portal/internal/roles"
	"github.com/casinha/portal/internal/shared"
	"github.com/casinha/portal/internal/users"
	"github.com/casinha/portal/internal/view"
	"github.com/casinha/portal/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 {
		if err := runCommand(ctx, cfg, logger, os.Args[1]); err != nil {
			logger.Error("command failed", slog.String("command", os.Args[1]), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	table, err := loadPolicy(cfg)
	if err != nil {
		logger.Error("load access policy", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, cfg.Database())
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	objects, err := storage.New(ctx, cfg.Storage())
	if err != nil {
		logger.Error("connect object storage", slog.Any("error", err))
		os.Exit(1)
	}

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	resolver := rbac.NewResolver(sessionManager, rbac.NewRepository(dbpool), cfg.SessionCookie, cfg.IdentityTimeout, logger)
	guard := rbac.NewGuard(resolver, table, metrics, logger)
	rbacMiddleware := rbac.Middleware{
		Guard:  guard,
		Denied: rbac.DeniedView{Templates: templates, Logger: logger},
	}

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	rolesService := roles.NewService(roles.NewRepository(dbpool), auditLogger, logger)
	usersService := users.NewService(users.NewRepository(dbpool), auditLogger, logger)
	jobClient, err := jobs.NewClient(cfg.Redis().Asynq())
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer jobClient.Close()
	reportsService := reports.NewService(reports.NewRepository(dbpool), objects, jobClient, auditLogger, logger)

	inspector := asynq.NewInspector(cfg.Redis().Asynq())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		RBACMiddleware: rbacMiddleware,
		AuthHandler:    authHandler,
		PortalHandler:  portal.NewHandler(logger, templates, rbacMiddleware, portal.NewRepository(dbpool), csrfManager),
		RolesHandler:   roles.NewHandler(logger, rolesService, rbacMiddleware),
		UsersHandler:   users.NewHandler(logger, usersService, rbacMiddleware),
		ReportsHandler: reports.NewHandler(logger, reportsService, rbacMiddleware),
		PolicyHandler:  rbac.NewPolicyHandler(table, rbacMiddleware),
		JobHandler:     jobs.NewHandler(inspector, rbacMiddleware, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("policy_entries", len(table.Descriptors())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// loadPolicy returns the compiled-in table, merged with POLICY_FILE when set.
func loadPolicy(cfg *app.Config) (*rbac.Table, error) {
	table := rbac.DefaultTable()
	if cfg.PolicyFile == "" {
		return table, nil
	}
	return rbac.LoadTable(cfg.PolicyFile, table)
}

// runCommand executes one-off maintenance commands.
func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, name string) error {
	switch name {
	case "purge-sessions":
		client, err := jobs.NewClient(cfg.Redis().Asynq())
		if err != nil {
			return err
		}
		defer client.Close()
		info, err := client.EnqueueSessionsPurge(ctx, 0)
		if err != nil {
			return err
		}
		logger.Info("sessions purge enqueued", slog.String("task_id", info.ID))
		return nil
	case "check-policy":
		table, err := loadPolicy(cfg)
		if err != nil {
			return err
		}
		logger.Info("access policy is valid", slog.Int("entries", len(table.Descriptors())))
		return nil
	}
	return errors.New("unknown command " + name)
}
