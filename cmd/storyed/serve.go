package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	httpAdapter "github.com/mooncrowned/storyed/internal/adapters/http"
	"github.com/mooncrowned/storyed/internal/metrics"
	"github.com/mooncrowned/storyed/internal/watch"
	"github.com/mooncrowned/storyed/pkg/story"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the editor HTTP server",
	Long:  `Opens the story and exposes the editing session as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		port, _ := cmd.Flags().GetString("port")
		watchFiles, _ := cmd.Flags().GetBool("watch")
		logger := newLogger(cmd)

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}

		stats := metrics.NewCollector("storyed")
		sess, err := storyed.Open(cmd.Context(), dir,
			storyed.WithLogger(logger),
			storyed.WithDebounce(cfg.Debounce()),
			storyed.WithMetrics(stats),
			storyed.WithLockManager(newLockManager(cfg, logger)),
		)
		if err != nil {
			fmt.Printf("Error opening story: %v\n", err)
			os.Exit(1)
		}

		if watchFiles {
			nodesDir := filepath.Join(dir, story.NodesDir)
			w, err := watch.New(nodesDir, watch.DefaultQuiet, logger, func() {
				// External edits only; our own pending saves win.
				if len(sess.Scheduler().Pending()) > 0 {
					logger.Debug("skipping reload, flushes pending")
					return
				}
				if err := sess.Reload(context.Background()); err != nil {
					logger.Warn("reload after external change failed", "err", err)
				}
			})
			if err != nil {
				fmt.Printf("Error watching %s: %v\n", nodesDir, err)
				os.Exit(1)
			}
			defer w.Close()
		}

		handler := httpAdapter.NewHandler(sess, stats, logger)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: handler,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			fmt.Printf("Starting Storyed Server on %s\n", srv.Addr)
			fmt.Printf("Editing story: %s\n", dir)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			// Error when starting HTTP server.
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}

			// Flush pending node saves before exiting.
			if err := sess.Close(ctx); err != nil {
				fmt.Printf("Error closing session: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Storyed Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().Bool("watch", false, "Reload nodes when the story changes on disk")
}
