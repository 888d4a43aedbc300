package main

import (
	"fmt"
	"time"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/spf13/cobra"
)

func newRecordCommand(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Inspect model run records",
	}
	cmd.AddCommand(newRecordShowCommand(opts))
	cmd.AddCommand(newRecordListCommand(opts))
	return cmd
}

func newRecordShowCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <path/to/run.run.json>",
		Short: "Show one run record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recorder.Load(args[0])
			if err != nil {
				return fmt.Errorf("load run record: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(cmd, rec)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderFields(recordFields(rec)))
			return nil
		},
	}
}

func newRecordListCommand(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <runs-dir>",
		Short: "List run records in a directory, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := recorder.List(args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd, recs)
			}
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No run records")
				return nil
			}
			rows := make([][]string, 0, len(recs))
			for _, r := range recs {
				rows = append(rows, []string{
					r.RunID,
					r.Timestamp.Local().Format(time.DateTime),
					r.Flow,
					r.Model,
					r.Status,
					fmt.Sprint(r.Tokens.Total),
					fmt.Sprintf("%dms", r.DurationMS),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run ID", "Time", "Flow", "Model", "Status", "Tokens", "Duration"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight}))
			return nil
		},
	}
}

func recordFields(rec recorder.Record) [][2]string {
	fields := [][2]string{
		{"Run ID", rec.RunID},
		{"Flow", rec.Flow},
		{"Model", rec.Model},
		{"Provider", rec.Provider},
		{"Endpoint", rec.Endpoint},
		{"Time", rec.Timestamp.Local().Format(time.DateTime)},
		{"Status", rec.Status},
		{"Attempts", fmt.Sprint(rec.Attempts)},
		{"Tokens", fmt.Sprintf("%d (prompt %d, completion %d)", rec.Tokens.Total, rec.Tokens.Prompt, rec.Tokens.Completion)},
		{"Duration", fmt.Sprintf("%dms", rec.DurationMS)},
	}
	if rec.TraceID != "" {
		fields = append(fields, [2]string{"Trace ID", rec.TraceID})
	}
	if rec.RequestVaultRef != "" {
		fields = append(fields, [2]string{"Request", rec.RequestVaultRef})
	}
	if rec.ResponseVaultRef != "" {
		fields = append(fields, [2]string{"Response", rec.ResponseVaultRef})
	}
	if rec.Error != "" {
		fields = append(fields, [2]string{"Error", rec.Error})
	}
	return fields
}
