package main

import (
	"fmt"
	"os"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/similarity"
	"github.com/spf13/cobra"
)

func newScoreCommand(opts *cliOptions) *cobra.Command {
	var fromFiles bool
	var showVectors bool

	cmd := &cobra.Command{
		Use:   "score <text1> <text2>",
		Short: "Score two texts lexically without a server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text1, text2, err := readTexts(args, fromFiles)
			if err != nil {
				return err
			}
			score := similarity.Score(text1, text2)

			if opts.jsonOutput {
				return writeJSON(cmd, map[string]float64{"similarityScore": score})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Similarity: %s (%.4f)\n", percent(score), score)
			if showVectors {
				v := similarity.NewVectors(text1, text2)
				rows := make([][]string, 0, len(v.Vocabulary))
				for i, term := range v.Vocabulary {
					rows = append(rows, []string{term, fmt.Sprint(v.A[i]), fmt.Sprint(v.B[i])})
				}
				fmt.Fprintln(out, renderTable([]string{"Term", "Text 1", "Text 2"}, rows,
					[]columnAlignment{alignLeft, alignRight, alignRight}))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromFiles, "files", false, "Treat arguments as file paths")
	cmd.Flags().BoolVar(&showVectors, "vectors", false, "Print the term frequency vectors")
	return cmd
}

// readTexts returns the two arguments, or the contents of the two named files.
func readTexts(args []string, fromFiles bool) (string, string, error) {
	if !fromFiles {
		return args[0], args[1], nil
	}
	a, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", args[0], err)
	}
	b, err := os.ReadFile(args[1])
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", args[1], err)
	}
	return string(a), string(b), nil
}
