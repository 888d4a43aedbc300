package main

import (
	"fmt"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/flows"
	"github.com/spf13/cobra"
)

func newCompareCommand(opts *cliOptions) *cobra.Command {
	var fromFiles bool

	cmd := &cobra.Command{
		Use:   "compare <text1> <text2>",
		Short: "Compare two texts on the server (score plus matched phrases)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text1, text2, err := readTexts(args, fromFiles)
			if err != nil {
				return err
			}

			var res flows.CompareResult
			runID, err := newAPIClient(opts).do(cmd.Context(), "POST", "/api/compare",
				flows.CompareInput{Text1: text1, Text2: text2}, &res)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, res)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Similarity: %s\n", percent(res.SimilarityScore))
			if runID != "" {
				fmt.Fprintf(out, "Run ID:     %s\n", runID)
			}
			if len(res.MatchedPhrases) == 0 {
				fmt.Fprintln(out, "No matched phrases")
				return nil
			}
			rows := make([][]string, 0, len(res.MatchedPhrases))
			for i, p := range res.MatchedPhrases {
				rows = append(rows, []string{fmt.Sprint(i + 1), p})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Matched phrase"}, rows,
				[]columnAlignment{alignRight, alignLeft}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromFiles, "files", false, "Treat arguments as file paths")
	return cmd
}
