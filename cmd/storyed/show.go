package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/internal/presentation/tui"
)

var showCmd = &cobra.Command{
	Use:   "show [node-id]",
	Short: "Preview a node in the terminal",
	Long:  `Renders one node's messages and answers as styled markdown. Defaults to node 0.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		logger := newLogger(cmd)

		id := 0
		if len(args) == 1 {
			var err error
			id, err = strconv.Atoi(args[0])
			if err != nil {
				fmt.Printf("Invalid node id %q\n", args[0])
				os.Exit(1)
			}
		}

		sess, err := storyed.Open(cmd.Context(), dir, storyed.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error opening story: %v\n", err)
			os.Exit(1)
		}
		defer sess.Close(cmd.Context())

		n, ok := sess.Node(id)
		if !ok {
			fmt.Printf("Node %d not found\n", id)
			os.Exit(1)
		}

		render := tui.NewRenderer()
		out, err := render(tui.NodeMarkdown(n, sess.Meta()))
		if err != nil {
			// Fall back to the raw markdown when styling fails.
			out = tui.NodeMarkdown(n, sess.Meta())
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
