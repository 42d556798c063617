// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/survey-engine/internal/pipeline"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Classify processed papers for survey relevance",
	Long: `Analyze runs the classifier over each processed paper's extracted text and
persists the verdict. The built-in classifier scores keyword coverage;
set keywords via --keywords or the config file.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().Int("limit", 0, "maximum records to analyze (0 = all processed)")
	analyzeCmd.Flags().StringSlice("keywords", nil, "relevance keywords (overrides config)")
	analyzeCmd.Flags().Float64("min-score", 0.5, "relevance threshold")
	analyzeCmd.Flags().Int("max-chars", 50000, "text budget passed to the classifier")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := basePipelineConfig()
	cfg.Analyze.MinScore, _ = cmd.Flags().GetFloat64("min-score")
	cfg.Analyze.MaxChars, _ = cmd.Flags().GetInt("max-chars")
	if kws, _ := cmd.Flags().GetStringSlice("keywords"); len(kws) > 0 {
		cfg.Analyze.Keywords = kws
	}
	if len(cfg.Analyze.Keywords) == 0 {
		return fmt.Errorf("no keywords configured: pass --keywords or set keywords in the config file")
	}

	pl, s, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	pl.Classifier = &pipeline.KeywordClassifier{
		Keywords: cfg.Analyze.Keywords,
		MinScore: cfg.Analyze.MinScore,
	}

	limit, _ := cmd.Flags().GetInt("limit")
	sum, err := pl.AnalyzeProcessed(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if sum.HasFailures() {
		return fmt.Errorf("%d record(s) failed classification", sum.Failed)
	}
	return nil
}
