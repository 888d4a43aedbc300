package main

import (
	"errors"
	"fmt"

	"github.com/nostalgicskinco/plagiarism-detective/pkg/config"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/recorder"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/replay"
	"github.com/nostalgicskinco/plagiarism-detective/pkg/vault"
	"github.com/spf13/cobra"
)

// errDrift makes the command exit non-zero for CI when a replay drifts.
var errDrift = errors.New("drift detected")

func newReplayCommand(opts *cliOptions) *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "replay <path/to/run.run.json>",
		Short: "Replay a recorded model call and report drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := recorder.Load(args[0])
			if err != nil {
				return fmt.Errorf("load run record: %w", err)
			}
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cfg.Vault.Endpoint == "" {
				return errors.New("replay needs a vault: set VAULT_ENDPOINT or vault.endpoint")
			}
			if cfg.LLM.APIKey == "" {
				return errors.New("OPENAI_API_KEY required for replay")
			}

			ctx := cmd.Context()
			vc, err := vault.New(ctx, vault.Config{
				Endpoint:  cfg.Vault.Endpoint,
				AccessKey: cfg.Vault.AccessKey,
				SecretKey: cfg.Vault.SecretKey,
				Bucket:    cfg.Vault.Bucket,
				UseSSL:    cfg.Vault.UseSSL,
			})
			if err != nil {
				return fmt.Errorf("vault connect: %w", err)
			}

			out := cmd.OutOrStdout()
			if !opts.jsonOutput {
				fmt.Fprintln(out, renderFields(recordFields(rec)))
				fmt.Fprintln(out, "Replaying...")
			}
			result, err := replay.Run(ctx, rec, replay.Options{
				ProviderURL: cfg.LLM.ProviderURL,
				Vault:       vc,
				APIKey:      cfg.LLM.APIKey,
				Model:       model,
			})
			if err != nil {
				return fmt.Errorf("replay failed: %w", err)
			}
			return printReplay(cmd, opts, result)
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "Replay against a different model")
	return cmd
}

func printReplay(cmd *cobra.Command, opts *cliOptions, result replay.Result) error {
	if opts.jsonOutput {
		if err := writeJSON(cmd, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderFields([][2]string{
			{"Original model", result.OriginalModel},
			{"Replay model", result.ReplayModel},
			{"Original tokens", fmt.Sprint(result.OriginalTokens)},
			{"Replay tokens", fmt.Sprint(result.ReplayTokens)},
			{"Similarity", fmt.Sprintf("%.2f", result.Similarity)},
		}))
	}

	if result.Drift {
		if !opts.jsonOutput {
			fmt.Fprintf(cmd.OutOrStdout(), "DRIFT DETECTED: %s\n", result.DriftSummary)
		}
		return errDrift
	}
	if !opts.jsonOutput {
		fmt.Fprintln(cmd.OutOrStdout(), "NO DRIFT: replay matches original within threshold.")
	}
	return nil
}
