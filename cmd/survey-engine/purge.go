// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete unresolvable dead-end records",
	Long: `Purge removes detail-failed records that carry no document URL, along with
their ledger entries. Use it after requeue attempts have stopped making
progress.`,
	RunE: runPurge,
}

func init() {
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.PurgeUnresolvable(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d unresolvable record(s)\n", n)
	return nil
}
