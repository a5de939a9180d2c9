package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ocr-engine/internal/history"
	"github.com/pdiddy/ocr-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Recent(cmd.Context(), limit)
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Full-text search over recognized document text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Lookup(cmd.Context(), strings.Join(args, " "), limit)
		if err != nil {
			return err
		}
		printEntries(entries)
		return nil
	},
}

func openHistory() (*history.Store, error) {
	return history.NewStore(types.HistoryConfig{
		HistoryDir: viper.GetString("history.history_dir"),
		MaxResults: viper.GetInt("history.max_results"),
	})
}

func printEntries(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println("No documents found.")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(os.Stdout, "%s  %-40s  %2d pages  %s\n",
			e.ExportedAt.Format("2006-01-02 15:04"), e.SourcePath, e.PageCount, e.OutputDir)
		if e.Snippet != "" {
			fmt.Fprintf(os.Stdout, "    %s\n", e.Snippet)
		}
	}
	fmt.Fprintf(os.Stdout, "\n%d documents\n", len(entries))
}

func init() {
	historyCmd.Flags().Int("limit", 0, "maximum entries to list (0 = config default)")
	lookupCmd.Flags().Int("limit", 0, "maximum matches to return (0 = config default)")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(lookupCmd)
}
