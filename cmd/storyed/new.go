package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mooncrowned/storyed"
	"github.com/mooncrowned/storyed/pkg/domain"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a new story",
	Long: `Creates the story directory layout (StoryMeta.json, Nodes/, Photos/, Videos/)
with the initial node. Characters are given as "id:Name" or "id:Name:description".`,
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("dir")
		specs, _ := cmd.Flags().GetStringArray("character")
		logger := newLogger(cmd)

		meta := &domain.StoryMeta{}
		for _, spec := range specs {
			c, err := parseCharacter(spec)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			meta.Characters = append(meta.Characters, c)
		}

		if err := storyed.Init(cmd.Context(), dir, meta, logger); err != nil {
			fmt.Printf("Error creating story: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Created story in %s with %d character(s)\n", dir, len(meta.Characters))
	},
}

func parseCharacter(spec string) (domain.Character, error) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return domain.Character{}, fmt.Errorf("invalid character %q, expected id:Name[:description]", spec)
	}
	c := domain.Character{ID: parts[0], Name: parts[1]}
	if len(parts) == 3 {
		c.Description = parts[2]
	}
	return c, nil
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringArray("character", nil, "Cast member as id:Name[:description] (repeatable)")
}
