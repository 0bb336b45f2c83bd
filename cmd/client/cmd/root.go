package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"

	"notekeeper/cmd/client/cmd/collab"
	"notekeeper/cmd/client/cmd/history"
	"notekeeper/cmd/client/cmd/record"
	"notekeeper/cmd/client/cmd/sync"
	"notekeeper/internal/app/client"
	"notekeeper/internal/app/client/config"
	appconfig "notekeeper/internal/config"
	"notekeeper/internal/utils/logger"
)

var (
	cfgFile    string
	cfg        *config.Config
	log        *slog.Logger
	app        *client.App
	debug      bool
	jsonOutput bool
	serverURL  string
)

var rootCmd = &cobra.Command{
	Use:   appconfig.AppName,
	Short: "NoteKeeper - offline-first notes, people and todos",
	Long: `NoteKeeper keeps notes, people and todos in a local cache that works
without a network connection. Changes made offline are queued and replayed
against the sync server once it is reachable again; edits made on both sides
are surfaced as conflicts for you to resolve.`,
	PersistentPreRunE: setupApp,
	PersistentPostRun: teardownApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}

	env := cfg.Env
	if debug {
		env = appconfig.EnvLocal
	}
	log = logger.NewWithFile(env, cfg.LogFile)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("init client: %w", err)
	}

	cmd.SetContext(client.WithApp(cmd.Context(), app))
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) {
	if app != nil {
		app.Shutdown()
	}
}

func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		viper.AddConfigPath(filepath.Join(home, "."+appconfig.AppName))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/."+appconfig.AppName+"/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "sync server address")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(sync.ConflictCmd)
	rootCmd.AddCommand(record.RecordCmd)
	rootCmd.AddCommand(history.HistoryCmd)
	rootCmd.AddCommand(collab.CollabCmd)
}
