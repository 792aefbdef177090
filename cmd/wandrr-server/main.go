package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/at-ishikawa/wandrr/internal/assets"
	"github.com/at-ishikawa/wandrr/internal/auth"
	"github.com/at-ishikawa/wandrr/internal/bootstrap"
	"github.com/at-ishikawa/wandrr/internal/config"
	"github.com/at-ishikawa/wandrr/internal/database"
	"github.com/at-ishikawa/wandrr/internal/degrade"
	"github.com/at-ishikawa/wandrr/internal/identity"
	"github.com/at-ishikawa/wandrr/internal/inference/openai"
	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/metrics"
	"github.com/at-ishikawa/wandrr/internal/retry"
	"github.com/at-ishikawa/wandrr/internal/server"
	"github.com/at-ishikawa/wandrr/internal/store"
	"github.com/at-ishikawa/wandrr/internal/store/memory"
	"github.com/at-ishikawa/wandrr/internal/store/mysql"
	"github.com/at-ishikawa/wandrr/internal/store/shov"
	"github.com/at-ishikawa/wandrr/internal/usercache"
	"github.com/at-ishikawa/wandrr/schemas"
)

var configFile string

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wandrr-server",
		Short:         "Wandrr travel etiquette API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.AddCommand(newMigrateCommand())
	return rootCmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the MySQL record store migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("loadConfig() > %w", err)
			}
			log, err := logger.New(cfg.Log.Mode)
			if err != nil {
				return fmt.Errorf("logger.New() > %w", err)
			}
			defer log.Sync()

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open() > %w", err)
			}
			defer func() {
				_ = db.Close()
			}()

			applied, err := database.Migrate(cmd.Context(), db, schemas.Migrations)
			if err != nil {
				return fmt.Errorf("database.Migrate() > %w", err)
			}
			log.Info("migrations applied", "files", applied)
			return nil
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loadConfig() > %w", err)
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("logger.New() > %w", err)
	}
	defer log.Sync()

	app := bootstrap.New(log)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	retrier := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxJitter:   cfg.Retry.MaxJitter,
		Deadline:    cfg.Retry.Deadline,
	}, log, retry.WithMetrics(recorder))
	policy := degrade.NewPolicy(retrier, log, recorder)

	backend, err := newBackend(cfg, app)
	if err != nil {
		return fmt.Errorf("newBackend() > %w", err)
	}
	gateway := store.NewGateway(backend, policy, log, cfg.Retry.VerifyChecks, cfg.Retry.VerifyInterval)

	sessions, err := newSessions(ctx, cfg, app)
	if err != nil {
		return fmt.Errorf("newSessions() > %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.RemoteTokenTTL, cfg.Auth.LocalTokenTTL)
	resolver := identity.NewResolver(gateway, issuer, sessions, log, identity.Options{
		BcryptCost:   cfg.Auth.BcryptCost,
		SignupSettle: cfg.Retry.SignupSettle,
	})

	llm := openai.NewClient(cfg.Inference.BaseURL, cfg.Inference.APIKey, cfg.Inference.Model, cfg.Inference.MaxRetryAttempts, log)
	app.AddCloser("inference", llm.Close)
	prompts, err := assets.ParseLessonPromptTemplate(cfg.Templates.LessonPromptTemplate, log)
	if err != nil {
		return fmt.Errorf("assets.ParseLessonPromptTemplate() > %w", err)
	}
	content, err := lesson.LoadContent()
	if err != nil {
		return fmt.Errorf("lesson.LoadContent() > %w", err)
	}
	generator := lesson.NewGenerator(llm, prompts, content, gateway, log, recorder, lesson.GeneratorOptions{
		CustomAttempts: uint(cfg.Retry.CustomLessonAttempts),
		CustomInterval: cfg.Retry.CustomLessonInterval,
	})

	cache := usercache.NewCache(cfg.Cache.TTL, clock.WallClock, log, recorder)
	cache.Start(cfg.Cache.SweepInterval)
	app.AddCloser("usercache", func() error {
		cache.Stop()
		return nil
	})
	users := usercache.NewFacade(cache, usercache.NewGatewayFetcher(gateway), nil, log)

	handler := server.NewHandler(server.Dependencies{
		Resolver:  resolver,
		Issuer:    issuer,
		Users:     users,
		Gateway:   gateway,
		Generator: generator,
		Content:   content,
		Log:       log,
	})
	router := server.NewRouter(cfg.Server, handler, registry)
	srv := server.NewHTTPServer(fmt.Sprintf(":%d", cfg.Server.Port), router)
	app.AddShutdownHook("http", srv.Shutdown)

	return app.Run(ctx, func(ctx context.Context) error {
		log.Info("starting server", "addr", srv.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}

func newBackend(cfg *config.Config, app *bootstrap.App) (store.Backend, error) {
	switch cfg.Store.Driver {
	case config.StoreMySQL:
		db, err := database.Open(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("database.Open() > %w", err)
		}
		app.AddCloser("mysql", db.Close)
		return mysql.NewBackend(db), nil
	case config.StoreMemory:
		return memory.New(), nil
	default:
		if cfg.Store.APIKey == "" || cfg.Store.Project == "" {
			return nil, errors.New("SHOV_API_KEY and SHOV_PROJECT environment variables are required")
		}
		client := shov.NewClient(cfg.Store.BaseURL, cfg.Store.Project, cfg.Store.APIKey, cfg.Store.Timeout)
		app.AddCloser("shov", client.Close)
		return client, nil
	}
}

func newSessions(ctx context.Context, cfg *config.Config, app *bootstrap.App) (degrade.SessionRegistry, error) {
	if cfg.Sessions.Driver != config.SessionsRedis {
		return degrade.NewMemorySessions(cfg.Auth.LocalTokenTTL), nil
	}
	sessions, err := degrade.NewRedisSessions(ctx, cfg.Sessions.RedisAddr, cfg.Sessions.RedisPassword, cfg.Auth.LocalTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("degrade.NewRedisSessions() > %w", err)
	}
	app.AddCloser("redis", sessions.Close)
	return sessions, nil
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
