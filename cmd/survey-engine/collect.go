// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/survey-engine/internal/collect"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Gather paper titles from arXiv into the corpus",
	Long: `Collect lists papers submitted to an arXiv category in a given year and
inserts the new titles as pending records. Titles already in the corpus
are left untouched.`,
	RunE: runCollect,
}

func init() {
	collectCmd.Flags().String("category", "cs.RO", "arXiv category to list")
	collectCmd.Flags().Int("year", 2025, "submission year to list")
	collectCmd.Flags().Int("max-results", 1000, "maximum titles to gather")

	rootCmd.AddCommand(collectCmd)
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg := basePipelineConfig()
	cfg.Collect.Category, _ = cmd.Flags().GetString("category")
	cfg.Collect.Year, _ = cmd.Flags().GetInt("year")
	cfg.Collect.MaxResults, _ = cmd.Flags().GetInt("max-results")

	pl, s, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	client := &http.Client{Timeout: cfg.Collect.Timeout}
	sources := []collect.TitleSource{collect.NewArxivSource(client, cfg.Collect)}

	sum, err := pl.CollectTitles(cmd.Context(), sources)
	if err != nil {
		return err
	}
	if sum.Failed > 0 {
		return fmt.Errorf("%d source(s) failed", sum.Failed)
	}
	return nil
}
