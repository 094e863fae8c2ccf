package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lastned/lastned/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings",
	Long: `settings prints the settings after defaults and LASTNED_* environment overrides
are applied. Edit the file shown by --path to change them.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if showPath, _ := cmd.Flags().GetBool("path"); showPath {
			fmt.Fprintln(out, config.GetSettingsPath())
			return nil
		}

		settings := globalSettings
		if settings == nil {
			settings = config.DefaultSettings()
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(settings)
		}

		values, err := flattenSettings(settings)
		if err != nil {
			return err
		}
		meta := config.GetSettingsMetadata()
		for _, category := range config.CategoryOrder() {
			fmt.Fprintf(out, "[%s]\n", category)
			for _, m := range meta[category] {
				v := values[m.Key]
				if ns, ok := v.(float64); ok && m.Type == "duration" {
					v = time.Duration(ns)
				}
				fmt.Fprintf(out, "  %-20s %v\n", m.Label+":", v)
			}
		}
		return nil
	},
}

func init() {
	settingsCmd.Flags().Bool("path", false, "print the settings file path")
	settingsCmd.Flags().Bool("json", false, "print settings as JSON")
}

// flattenSettings maps dotted keys such as "general.output_dir" to their values.
func flattenSettings(s *config.Settings) (map[string]any, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var groups map[string]map[string]any
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, err
	}

	flat := make(map[string]any)
	for group, fields := range groups {
		for name, v := range fields {
			flat[strings.Join([]string{group, name}, ".")] = v
		}
	}
	return flat, nil
}
