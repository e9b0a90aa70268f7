package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/internal/presentation/graph"
	"github.com/mooncrowned/storyed/pkg/domain"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the story graph visualization",
	Long:  `Loads the story and outputs a Mermaid diagram (graph LR) of its nodes and answer links.`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		if !cmd.Flags().Changed("dir") && len(args) > 0 {
			dir = args[0]
		}
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

		// Generate and print Mermaid graph
		fmt.Print(graph.GenerateMermaid(nodes, nil))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
