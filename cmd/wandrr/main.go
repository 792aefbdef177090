package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/juju/clock"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/at-ishikawa/wandrr/internal/client"
	"github.com/at-ishikawa/wandrr/internal/config"
	"github.com/at-ishikawa/wandrr/internal/lesson"
	"github.com/at-ishikawa/wandrr/internal/localstore"
	"github.com/at-ishikawa/wandrr/internal/logger"
	"github.com/at-ishikawa/wandrr/internal/usercache"
)

var (
	configFile string
	debugMode  bool

	// replaced in tests
	readPassword = term.ReadPassword
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if _, fprintfErr := fmt.Fprintf(os.Stderr, "failed to execute a command: %v\n", err); fprintfErr != nil {
			panic(fmt.Errorf("failed to output an error: %w. Reason: %w", err, fprintfErr))
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "wandrr",
		Short:         "Daily travel etiquette lessons",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		newSignupCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newProfileCommand(),
		newLessonCommand(),
		newAnswerCommand(),
		newCustomCommand(),
		newLeaderboardCommand(),
		newLocalCommand(),
	)
	return rootCmd
}

// newApp wires the client against the configured server and the local database. The
// returned function releases both.
func newApp(ctx context.Context) (*client.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loadConfig() > %w", err)
	}

	log := logger.NewNop()
	if debugMode {
		log, err = logger.New(cfg.Log.Mode)
		if err != nil {
			return nil, nil, fmt.Errorf("logger.New() > %w", err)
		}
	}

	substrate, err := localstore.OpenSQLite(ctx, cfg.Local.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("localstore.OpenSQLite() > %w", err)
	}
	content, err := lesson.LoadContent()
	if err != nil {
		_ = substrate.Close()
		return nil, nil, fmt.Errorf("lesson.LoadContent() > %w", err)
	}

	local := localstore.New(substrate, content, log, cfg.Local.MaxLessons)
	api := client.NewAPIClient(cfg.Client.ServerURL, cfg.Client.Timeout, log)
	users := usercache.NewFacade(usercache.NewCache(cfg.Cache.TTL, clock.WallClock, log, nil), api, local, log)
	app := client.NewApp(api, users, local, client.NewSessionStore(substrate), log)

	return app, func() {
		_ = substrate.Close()
		log.Sync()
	}, nil
}

// withApp runs fn with a wired app and releases it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *client.App, w io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	app, closeApp, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp()
	return fn(ctx, app, cmd.OutOrStdout())
}

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("config.NewConfigLoader() > %w", err)
	}
	return loader.Load()
}
