// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download queued documents and extract their text",
	Long: `Fetch downloads each queued record's document, validates it is a real PDF,
and extracts its text. A record reaches processed only when both artifacts
are on disk; failures land in the download failure ledger with a reason.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Int("limit", 0, "maximum records to fetch (0 = all queued)")
	fetchCmd.Flags().Duration("delay", defaultDelay, "delay between consecutive records")
	fetchCmd.Flags().Int64("max-size", 50<<20, "per-document size bound in bytes")
	fetchCmd.Flags().Duration("max-duration", 20*time.Second, "per-download wall-clock bound")
	fetchCmd.Flags().Int("timeout-retries", 1, "extra attempts after a download timeout")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := basePipelineConfig()
	cfg.RecordDelay, _ = cmd.Flags().GetDuration("delay")
	cfg.Fetch.MaxSizeBytes, _ = cmd.Flags().GetInt64("max-size")
	cfg.Fetch.MaxDuration, _ = cmd.Flags().GetDuration("max-duration")
	cfg.Fetch.MaxTimeoutRetries, _ = cmd.Flags().GetInt("timeout-retries")

	pl, s, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	sum, err := pl.FetchQueued(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if sum.HasFailures() {
		return fmt.Errorf("%d record(s) failed retrieval", sum.Failed)
	}
	return nil
}
