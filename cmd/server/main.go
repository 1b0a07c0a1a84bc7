package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "resume-tailor/internal/adapter/http"
	repo "resume-tailor/internal/adapter/repository"
	"resume-tailor/internal/auth"
	"resume-tailor/internal/config"
	"resume-tailor/internal/infrastructure/migration"
	"resume-tailor/internal/usecase"
	"resume-tailor/pkg/ai"
	infra "resume-tailor/pkg/infrastructure"

	"github.com/gofiber/fiber/v2"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("unable to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	var (
		jobs     usecase.JobsRepo
		profiles usecase.ProfileSource
		users    httpadapter.ProfileStore
		authUser auth.UserStore
		refresh  auth.RefreshStore
	)

	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		if err := migration.RunMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		usersRepo := repo.NewUsersRepo(pool)
		jobs = repo.NewJobsRepo(pool)
		profiles = repo.NewProfileRepo(pool)
		users, authUser, refresh = usersRepo, usersRepo, usersRepo
	} else {
		logger.Warn("no database configured, using in-memory storage")
		mem := repo.NewMemoryStore()
		jobs, profiles = mem, mem
		users, authUser, refresh = mem, mem, mem
	}

	var enhancer usecase.Enhancer
	if cfg.AIServiceURL != "" {
		enhancer = ai.NewClient(cfg.AIServiceURL, cfg.Language)
	}

	var renderer usecase.Renderer
	if cfg.RenderPDF {
		renderer = infra.NewChromedpRenderer(cfg.ChromePath, cfg.TemplatesDir)
	}

	processor := usecase.NewProcessor(jobs, profiles, enhancer, renderer, cfg.TemplatesDir, logger)

	authSvc := auth.NewService(authUser, refresh, cfg.AccessTokenTTL.Duration(), cfg.RefreshTokenTTL.Duration())

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	h := httpadapter.NewHandler(authSvc, processor, jobs, users, cfg.RefreshTokenTTL.Duration(), logger)
	h.Register(app)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		errCh <- app.Listen(fmt.Sprintf(":%d", cfg.Port))
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	}
}
