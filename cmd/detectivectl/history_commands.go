package main

import (
	"fmt"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/history"
	"github.com/spf13/cobra"
)

func newHistoryCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear the server's check history",
	}
	cmd.AddCommand(newHistoryListCommand(opts))
	cmd.AddCommand(newHistoryClearCommand(opts))
	return cmd
}

func newHistoryListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recent checks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Items []history.Item `json:"items"`
			}
			if _, err := newAPIClient(opts).do(cmd.Context(), "GET", "/api/history", nil, &resp); err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, resp)
			}
			if len(resp.Items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
				return nil
			}

			rows := make([][]string, 0, len(resp.Items))
			for i, it := range resp.Items {
				rows = append(rows, []string{
					fmt.Sprint(i + 1),
					it.Date.Local().Format(time.DateTime),
					string(it.Kind()),
					it.Title,
					headline(it.Entry),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Date", "Kind", "Title", "Result"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
			return nil
		},
	}
}

func newHistoryClearCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every history item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := newAPIClient(opts).do(cmd.Context(), "DELETE", "/api/history", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		},
	}
}

// headline is a one-line summary of an entry's result.
func headline(e history.Entry) string {
	switch e := e.(type) {
	case history.TextCompare:
		return fmt.Sprintf("%s similar, %d phrases", percent(e.Result.SimilarityScore), len(e.Result.MatchedPhrases))
	case history.FileCompare:
		return fmt.Sprintf("%.1f%% similar, %d phrases", e.Result.SimilarityPercentage, len(e.Result.MatchedPhrases))
	case history.Contextual:
		flagged := 0
		for _, m := range e.Result.SimilarityResults {
			if m.IsPlagiarized {
				flagged++
			}
		}
		return fmt.Sprintf("%d of %d references flagged", flagged, len(e.Result.SimilarityResults))
	case history.Advanced:
		return fmt.Sprintf("%.1f%% plagiarized, %.1f%% unique", e.Result.OverallPlagiarismPercentage, e.Result.UniqueContent)
	case history.Grammar:
		return fmt.Sprintf("%d corrections", e.Result.Report.TotalCorrections)
	case history.Summary:
		return fmt.Sprintf("%d → %d words", e.Result.OriginalWordCount, e.Result.SummaryWordCount)
	}
	return ""
}
