package main

import (
	"context"
	"database/sql"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	brewy "github.com/code-brew-house/brewy-backend-sub001"
	"github.com/code-brew-house/brewy-backend-sub001/audio"
	"github.com/code-brew-house/brewy-backend-sub001/config"
)

type App struct {
	config *config.Config
	bunDB  *bun.DB
	repo   brewy.RepositoryManager
	auther brewy.Authenticator
	hasher brewy.PasswordHasher
	guard  router.MiddlewareFunc
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	configPath := flag.String("config", "config.yml", "path to configuration file")
	flag.Parse()

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Trace),
		glog.WithName("brewy"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		lgr.GetLogger("config").Fatal("failed to load configuration", "error", err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	ctx := context.Background()

	if err := withPersistence(ctx, app); err != nil {
		lgr.GetLogger("persistence").Fatal("failed to initialize persistence", "error", err)
	}

	if err := withAuth(app); err != nil {
		lgr.GetLogger("auth").Fatal("failed to initialize auth", "error", err)
	}

	withHTTPServer(app)

	go func() {
		if err := app.srv.Serve(cfg.ListenAddr()); err != nil {
			lgr.GetLogger("server").Fatal("server stopped", "error", err)
		}
	}()

	lgr.GetLogger("server").Info("listening", "addr", cfg.ListenAddr())

	waitExitSignal()
}

func withPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.config.Database.DSN)
	if err != nil {
		return err
	}

	persistence.RegisterModel((*brewy.User)(nil))
	persistence.RegisterModel((*brewy.Organization)(nil))
	persistence.RegisterModel((*audio.Job)(nil))

	client, err := persistence.New(app.config.Persistence(), db, sqlitedialect.New())
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(brewy.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("sqlite"),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = brewy.NewRepositoryManager(app.bunDB)

	return app.repo.Validate()
}

func withAuth(app *App) error {
	provider := glog.ProviderFromLogger(app.GetLogger("auth"))

	hasher := brewy.NewBcryptHasher(app.config.Auth.BcryptCost)
	app.hasher = hasher

	tokens := brewy.NewTokenService(
		[]byte(app.config.Auth.SigningSecret),
		brewy.ParseTokenTTL(app.config.Auth.TokenTTL),
		app.config.Auth.TokenIssuer,
	).WithLoggerProvider(provider)

	sink := brewy.ActivitySinkFunc(func(ctx context.Context, event brewy.ActivityEvent) error {
		app.GetLogger("activity").Info("activity",
			"event_type", string(event.EventType),
			"user_id", event.UserID,
		)
		return nil
	})

	lockout := brewy.NewLockout(app.repo.Users(),
		brewy.WithLockoutThreshold(app.config.Lockout.Threshold),
		brewy.WithLockoutWindow(app.config.LockoutWindow()),
		brewy.WithLockoutLoggerProvider(provider),
		brewy.WithLockoutActivitySink(sink),
	)

	app.auther = brewy.NewAuthenticator(app.repo, hasher, tokens, lockout).
		WithLoggerProvider(provider).
		WithActivitySink(sink)

	validator := brewy.NewTokenValidator(tokens, app.repo.Users()).
		WithLoggerProvider(provider)

	app.guard = brewy.RouteGuard(validator, app.GetLogger("guard"))

	return nil
}

func withHTTPServer(app *App) {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:  true,
			StrictRouting: false,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  30 * time.Second,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	brewy.RegisterAuthRoutes(srv.Router(), app.guard,
		brewy.WithControllerLogger(app.GetLogger("auth.controller")),
		brewy.WithControllerRepo(app.repo),
		brewy.WithControllerAuther(app.auther),
		brewy.WithControllerHasher(app.hasher),
	)

	if app.config.Audio.PipelineURL != "" {
		client := audio.NewHTTPPipelineClient(app.config.Audio.PipelineURL,
			audio.WithAPIKey(app.config.Audio.APIKey),
		)

		service := audio.NewService(
			audio.NewJobsRepository(app.bunDB),
			client,
			app.config.Audio.WebhookSecret,
			audio.WithLoggerProvider(glog.ProviderFromLogger(app.GetLogger("audio"))),
		)

		audio.RegisterAudioRoutes(srv.Router(), app.guard,
			audio.WithControllerLogger(app.GetLogger("audio.controller")),
			audio.WithControllerService(service),
		)
	}

	app.srv = srv
}

func waitExitSignal() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
}
