// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Put failed records back in their queues",
}

var requeueDetailCmd = &cobra.Command{
	Use:   "detail",
	Short: "Requeue detail-failed records for another resolution pass",
	RunE:  runRequeueDetail,
}

var requeueDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Requeue download-failed records",
	Long: `Requeue download puts download-failed records back in the download queue.
With --clear-info the resolved metadata and on-disk artifacts are dropped
and the records return to pending for a fresh resolution, for cases where
the stored document URL itself is the problem.`,
	RunE: runRequeueDownload,
}

func init() {
	requeueDetailCmd.Flags().Int("limit", 0, "maximum records to requeue (0 = all)")
	requeueDownloadCmd.Flags().Int("limit", 0, "maximum records to requeue (0 = all)")
	requeueDownloadCmd.Flags().Bool("clear-info", false, "drop resolved metadata and artifacts, resolve from scratch")

	requeueCmd.AddCommand(requeueDetailCmd)
	requeueCmd.AddCommand(requeueDownloadCmd)
	rootCmd.AddCommand(requeueCmd)
}

func runRequeueDetail(cmd *cobra.Command, args []string) error {
	pl, s, err := newPipeline(basePipelineConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	n, err := pl.RequeueDetailFailed(cmd.Context(), limit)
	if err != nil {
		return err
	}
	fmt.Printf("Requeued %d record(s) for resolution\n", n)
	return nil
}

func runRequeueDownload(cmd *cobra.Command, args []string) error {
	pl, s, err := newPipeline(basePipelineConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	clearInfo, _ := cmd.Flags().GetBool("clear-info")
	n, err := pl.RequeueDownloadFailed(cmd.Context(), limit, clearInfo)
	if err != nil {
		return err
	}
	if clearInfo {
		fmt.Printf("Requeued %d record(s) for fresh resolution\n", n)
	} else {
		fmt.Printf("Requeued %d record(s) for download\n", n)
	}
	return nil
}
