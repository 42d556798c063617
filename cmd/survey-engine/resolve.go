// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve pending titles to bibliographic records",
	Long: `Resolve looks up each pending title against arXiv and OpenAlex, stores the
winning candidate's metadata and document URL, and queues the record for
download. Titles no provider can place move to the detail failure ledger.`,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().Int("limit", 0, "maximum records to resolve (0 = all pending)")
	resolveCmd.Flags().Duration("delay", defaultDelay, "delay between consecutive records")
	resolveCmd.Flags().Duration("cooldown", 30*time.Second, "pause after a provider rate limit")
	resolveCmd.Flags().Int("retries", 2, "retries per record after rate-limit cooldowns")

	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg := basePipelineConfig()
	cfg.RecordDelay, _ = cmd.Flags().GetDuration("delay")
	cfg.Resolve.RateLimitCooldown, _ = cmd.Flags().GetDuration("cooldown")
	cfg.Resolve.RateLimitRetries, _ = cmd.Flags().GetInt("retries")

	pl, s, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	sum, err := pl.ResolvePending(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if sum.HasFailures() {
		return fmt.Errorf("%d record(s) failed resolution", sum.Failed)
	}
	return nil
}
