// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "List papers classified as relevant",
	Long: `Report lists analyzed papers whose newest verdict is relevant at or above
the score threshold, best first.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Float64("min-score", 0.5, "minimum relevance score")
	reportCmd.Flags().Bool("yaml", false, "full records as YAML instead of one line per paper")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	minScore, _ := cmd.Flags().GetFloat64("min-score")
	relevant, err := s.RelevantPapers(cmd.Context(), minScore)
	if err != nil {
		return err
	}

	if asYAML, _ := cmd.Flags().GetBool("yaml"); asYAML {
		return yaml.NewEncoder(os.Stdout).Encode(relevant)
	}

	for _, r := range relevant {
		fmt.Printf("%.2f  %s  %s\n", r.Analysis.RelevanceScore, r.Paper.ID, r.Paper.Title)
	}
	fmt.Printf("\n%d relevant paper(s) at score >= %.2f\n", len(relevant), minScore)
	return nil
}
