// Package server wires the ponto audio backend: Postgres, object storage,
// the HTTP API, the gRPC health service and the probe worker.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/pontos/internal/logging"
	"github.com/dmitrijs2005/pontos/internal/server/audios"
	"github.com/dmitrijs2005/pontos/internal/server/auth"
	"github.com/dmitrijs2005/pontos/internal/server/config"
	"github.com/dmitrijs2005/pontos/internal/server/health"
	"github.com/dmitrijs2005/pontos/internal/server/httpapi"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pontos/internal/server/storage"
	"github.com/dmitrijs2005/pontos/internal/server/submissions"
	"github.com/dmitrijs2005/pontos/internal/server/worker"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	rm       *repomanager.PostgresRepositoryManager
	storage  *storage.S3Storage
	verifier auth.Verifier

	// nil when redis is not configured
	redis *redis.Client
	tasks *asynq.Client
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, c.LogFormat, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	st, err := storage.NewS3Storage(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	var verifier auth.Verifier = auth.NewHMACVerifier(c.SecretKey)
	if c.JWKSURL != "" {
		jwks, err := auth.NewJWKSVerifier(ctx, c.JWKSURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("jwks init error: %w", err)
		}
		verifier = auth.Chain{verifier, jwks}
	}

	app := &App{
		config:   c,
		logger:   logger,
		db:       db,
		rm:       rm,
		storage:  st,
		verifier: verifier,
	}

	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB})
		app.tasks = asynq.NewClient(worker.RedisOpt(c.RedisAddr, c.RedisPassword, c.RedisDB))
	}

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) httpApp() *fiber.App {
	var probes audios.ProbeEnqueuer
	if app.tasks != nil {
		probes = worker.NewEnqueuer(app.tasks)
	}

	as := audios.NewService(app.db, app.rm, app.storage, probes, app.config, app.logger)
	ss := submissions.NewService(app.db, app.rm, app.logger)
	h := httpapi.NewHandler(as, ss, nil, app.logger)

	checks := map[string]httpapi.Check{
		"db": app.db.PingContext,
		"storage": func(context.Context) error {
			if app.config.AudioBucket == "" {
				return errors.New("audio bucket not configured")
			}
			return nil
		},
	}

	deps := httpapi.Deps{
		Handler:   h,
		Verifier:  app.verifier,
		Checks:    checks,
		AccessLog: os.Stdout,
	}
	if app.redis != nil {
		deps.Limiter = httpapi.NewRateLimiter(app.redis, app.logger)
		deps.InitPerHour = app.config.InitPerHour
		checks["queue"] = func(ctx context.Context) error { return app.redis.Ping(ctx).Err() }
	}

	return httpapi.NewApp(deps)
}

func (app *App) runHTTP(ctx context.Context, hs *health.Server) error {
	f := app.httpApp()

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		hs.SetServing(false)
		if err := f.ShutdownWithTimeout(app.config.ShutdownTimeout); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.HTTPAddr)
	hs.SetServing(true)
	return f.Listen(app.config.HTTPAddr)
}

func (app *App) runWorker(ctx context.Context) error {
	w := worker.NewProbeWorker(app.db, app.rm, app.storage, app.logger)
	srv, mux := worker.NewServer(
		worker.RedisOpt(app.config.RedisAddr, app.config.RedisPassword, app.config.RedisDB),
		app.config.LogLevel, w)

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("probe worker start: %w", err)
	}
	app.logger.Info(ctx, "Probe worker started")

	<-ctx.Done()
	app.logger.Info(ctx, "Stopping probe worker...")
	srv.Shutdown()
	return nil
}

// Run serves until a termination signal arrives or one of the servers
// fails, then shuts everything down.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	hs := health.NewServer(app.config.HealthAddrGRPC, app.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.runHTTP(gctx, hs) })
	if app.config.HealthAddrGRPC != "" {
		g.Go(func() error { return hs.Run(gctx) })
	}
	if app.tasks != nil {
		g.Go(func() error { return app.runWorker(gctx) })
	}

	err := g.Wait()
	app.close(ctx)
	return err
}

func (app *App) close(ctx context.Context) {
	if app.tasks != nil {
		if err := app.tasks.Close(); err != nil {
			app.logger.Warn(ctx, "asynq client close", "error", err)
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close", "error", err)
	}
}
