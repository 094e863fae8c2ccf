package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lastned/lastned/internal/engine/single"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that yt-dlp and ffmpeg can be found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runtime := buildRuntime(globalSettings, getOptions{})
		out := cmd.OutOrStdout()

		for _, s := range single.CheckTools(runtime) {
			if s.Err != nil {
				fmt.Fprintf(out, "✖ %-7s not found\n", s.Name)
				continue
			}
			fmt.Fprintf(out, "✔ %-7s %s\n", s.Name, s.Path)
		}
		return single.ValidateTools(runtime)
	},
}

