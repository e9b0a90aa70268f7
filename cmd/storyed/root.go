package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed/internal/adapters/redis"
	"github.com/mooncrowned/storyed/internal/config"
	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/pkg/ports"
	"github.com/mooncrowned/storyed/pkg/session"

	backend "github.com/redis/go-redis/v9"
)

var rootCmd = &cobra.Command{
	Use:   "storyed",
	Short: "Storyed is a branching dialogue story editor",
	Long:  `Storyed edits chat-style branching stories stored as plain JSON files, one node per file.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the story")
	rootCmd.PersistentFlags().String("config", "", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	debug, _ := cmd.Flags().GetBool("debug")
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

// newLockManager builds the session lock manager, distributed when a
// redis address is configured, process-local otherwise.
func newLockManager(cfg *config.Config, logger *slog.Logger) *session.Manager {
	opts := []session.Option{session.WithLogger(logger)}
	if cfg.Lock.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Lock.RedisAddr})
		var locker ports.DistributedLocker = redis.NewLocker(client, cfg.Lock.Prefix)
		opts = append(opts, session.WithLocker(locker))
	}
	return session.NewManager(opts...)
}

func buildProvider(cfg *config.Config, logger *slog.Logger) (ports.ImageProvider, error) {
	return cfg.BuildProvider(http.DefaultClient, logger)
}
