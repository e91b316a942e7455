package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadscout/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the email cache",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache entry counts per freshness tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		counts, err := env.EmailCache.TierCounts(ctx)
		if err != nil {
			return eris.Wrap(err, "cache status")
		}

		total := 0
		fmt.Printf("%-10s %8s\n", "Tier", "Entries")
		fmt.Println("-------------------")
		for _, tier := range []cache.Freshness{
			cache.FreshnessFresh,
			cache.FreshnessRecent,
			cache.FreshnessAging,
			cache.FreshnessStale,
		} {
			fmt.Printf("%-10s %8d\n", tier, counts[tier])
			total += counts[tier]
		}
		fmt.Println("-------------------")
		fmt.Printf("%-10s %8d\n", "total", total)

		return nil
	},
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge-stale",
	Short: "Delete cache entries past the stale boundary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cache")
		if err != nil {
			return err
		}
		defer env.Close()

		removed, err := env.EmailCache.PurgeStale(ctx)
		if err != nil {
			return eris.Wrap(err, "cache purge")
		}

		zap.L().Info("purge complete", zap.Int("removed", removed))
		fmt.Printf("removed %d stale entries\n", removed)

		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}
