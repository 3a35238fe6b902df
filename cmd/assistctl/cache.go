package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"content-assist/internal/cache/sqlite"
	"content-assist/internal/config"
)

func newCacheCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local sqlite answer cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			stats, err := c.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nHits:    %d\nMisses:  %d\n", stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := sqlite.New(dbPath)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			n, err := c.Clear(cmd.Context(), expiredOnly)
			if err != nil {
				return err
			}
			if expiredOnly {
				fmt.Fprintf(cmd.OutOrStdout(), "Expired cache entries cleared: %d\n", n)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "All cache entries cleared: %d\n", n)
			}
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.PersistentFlags().StringVar(&dbPath, "db", config.Default().SQLitePath, "path to the sqlite cache file")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
