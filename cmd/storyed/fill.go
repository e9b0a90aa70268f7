package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/internal/metrics"
)

var fillCmd = &cobra.Command{
	Use:   "fill",
	Short: "Generate missing photos",
	Long: `Walks the story for photo messages that have a description but no file yet,
generates each image with the configured provider and saves it under Photos/.
Generation is sequential; a failed node is skipped, not retried.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		aspect, _ := cmd.Flags().GetString("aspect")
		logger := newLogger(cmd)

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if !cmd.Flags().Changed("aspect") {
			aspect = cfg.Aspect
		}

		provider, err := buildProvider(cfg, logger)
		if err != nil {
			fmt.Printf("Error building provider: %v\n", err)
			os.Exit(1)
		}

		stats := metrics.NewCollector("storyed")
		sess, err := storyed.Open(cmd.Context(), dir,
			storyed.WithLogger(logger),
			storyed.WithMetrics(stats),
			storyed.WithLockManager(newLockManager(cfg, logger)),
		)
		if err != nil {
			fmt.Printf("Error opening story: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close(cmd.Context())

		fmt.Printf("Filling images with %s (%s)\n", provider.Name(), aspect)
		filled, err := sess.FillImages(cmd.Context(), provider, aspect,
			func(nodeID, messageIndex int, description string) {
				fmt.Printf("  node %d message %d: %s\n", nodeID, messageIndex, description)
			})
		if err != nil {
			fmt.Printf("Fill interrupted after %d image(s): %v\n", filled, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %d image(s)\n", filled)
	},
}

func init() {
	rootCmd.AddCommand(fillCmd)
	fillCmd.Flags().String("aspect", "9:16", "Aspect ratio requested from the provider")
}
