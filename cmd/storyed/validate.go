package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/internal/validator"
	"github.com/mooncrowned/storyed/pkg/domain"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the story for structural problems",
	Long: `Reports nodes that cannot be reached from the root, answers whose target node
is missing, and photo messages still waiting for an image.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		logger := newLogger(cmd)

		sess, err := storyed.Open(cmd.Context(), dir, storyed.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error opening story: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close(cmd.Context())

		store := sess.Store()
		nodes := make([]*domain.Node, 0, store.Len())
		for _, id := range store.IDs() {
			if n, ok := store.Get(id); ok {
				nodes = append(nodes, n)
			}
		}

		problems := validator.ValidateStory(nodes)
		if len(problems) == 0 {
			fmt.Printf("Story is valid: %d node(s)\n", store.Len())
			return
		}
		fmt.Printf("Found %d problem(s):\n", len(problems))
		for _, p := range problems {
			fmt.Printf("  %s\n", p)
		}
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
