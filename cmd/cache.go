package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Administer the routing and combo caches",
}

var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cache statistics",
	RunE:  runCacheStatus,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear every cache tier",
	Long: `Clear the in-memory route cache and the persisted agent combo cache.
In-memory tiers are cleared first. A failing tier is reported and the
remaining tiers are still cleared.`,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatusCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	return json.NewEncoder(os.Stdout).Encode(map[string]any{
		"route_cache": a.routes.Stats(),
		"combo_cache": a.combos.Stats(),
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	report := a.admin.ClearAll(cmd.Context())

	for _, result := range report.Results {
		if result.Error != "" {
			fmt.Fprintf(os.Stderr, "%s: FAILED: %s\n", result.Name, result.Error)
			continue
		}
		fmt.Printf("%s: cleared %d entries\n", result.Name, result.Removed)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d cache tier(s) failed to clear", report.Failed)
	}
	return nil
}
