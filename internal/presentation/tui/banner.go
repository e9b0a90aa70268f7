package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the storyed ASCII banner.
func PrintBanner(version string) {
	p := termenv.ColorProfile()
	// Subtle gradient, indigo to rose.
	lines := []struct {
		text  string
		color string
	}{
		{`      _                          _ `, "#818cf8"},
		{`  ___| |_ ___  _ __ _   _  ___ __| |`, "#a78bfa"},
		{` / __| __/ _ \| '__| | | |/ _ \/ _' |`, "#c084fc"},
		{` \__ \ || (_) | |  | |_| |  __/ (_| |`, "#e879f9"},
		{` |___/\__\___/|_|   \__, |\___|\__,_|`, "#f472b6"},
		{`                    |___/           `, "#fb7185"},
	}

	fmt.Println()
	for _, l := range lines {
		fmt.Println(termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Printf("  branching story editor %s\n\n", version)
}
