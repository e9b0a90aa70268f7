package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/internal/presentation/tui"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of storyed",
	Run: func(cmd *cobra.Command, args []string) {
		tui.PrintBanner(storyed.Version)
		fmt.Printf("storyed version %s\n", strings.TrimSpace(storyed.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
