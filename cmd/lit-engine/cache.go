// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/literature-engine/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the on-disk response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache entry count, size, and expired entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		stats, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Cache directory: %s\n", stats.Dir)
		fmt.Printf("Entries:         %d\n", stats.Entries)
		fmt.Printf("Total size:      %.1f MB\n", float64(stats.TotalBytes)/(1024*1024))
		fmt.Printf("Expired:         %d (TTL %dh)\n", stats.Expired, stats.TTLHours)
		return nil
	},
}

var cacheEvictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Delete expired entries and enforce the size cap",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}
		defer store.Close()

		removed, err := store.EvictExpired()
		if err != nil {
			return err
		}
		if err := store.EnforceSizeCap(); err != nil {
			return err
		}
		fmt.Printf("Evicted %d expired entr(ies)\n", removed)
		return nil
	},
}

func openCache() (*cache.Store, error) {
	store := cache.Open(engineConfig().Cache)
	if store.Degraded() {
		return nil, fmt.Errorf("opening cache: %w", store.Err())
	}
	return store, nil
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheEvictCmd)
	rootCmd.AddCommand(cacheCmd)
}
