package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lastned/lastned/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List finished downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOut, _ := cmd.Flags().GetBool("json")
		clearCompleted, _ := cmd.Flags().GetBool("clear-completed")
		removeID, _ := cmd.Flags().GetString("remove")
		out := cmd.OutOrStdout()

		if removeID != "" {
			entry, err := history.GetEntry(removeID)
			if err != nil {
				return fmt.Errorf("failed to remove %s: %w", removeID, err)
			}
			if err := history.RemoveEntry(removeID); err != nil {
				return fmt.Errorf("failed to remove %s: %w", removeID, err)
			}
			fmt.Fprintf(out, "Removed %s (%s)\n", entry.Title, entry.ID)
			return nil
		}

		if clearCompleted {
			n, err := history.RemoveCompleted()
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintf(out, "Removed %d completed entries\n", n)
			return nil
		}

		entries, err := history.ListEntries(limit)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}

		if jsonOut {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, "No downloads yet.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "FINISHED\tSTATUS\tTITLE\tDETAIL")
		for _, e := range entries {
			detail := e.DestPath
			if e.Status != "completed" {
				detail = e.Reason
			}
			finished := time.Unix(e.CompletedAt, 0).Format("2006-01-02 15:04")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", finished, e.Status, e.Title, detail)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to show (0 for all)")
	historyCmd.Flags().Bool("json", false, "print entries as JSON")
	historyCmd.Flags().Bool("clear-completed", false, "remove completed entries")
	historyCmd.Flags().String("remove", "", "remove the entry with this id")
}
