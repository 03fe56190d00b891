package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"maestro/internal/usage"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check whether the workflow can run right now",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		snap := a.monitor.Latest()
		fmt.Printf("memory: %.1f/%.1f GB used, %.1f GB available\n",
			snap.UsedGB, snap.TotalGB, snap.AvailableGB)
		fmt.Printf("thermal: %s\n", snap.Thermal)

		issues := a.orch.Health(ctx)
		if len(issues) == 0 {
			fmt.Println("status: ok")
			return nil
		}
		for _, issue := range issues {
			fmt.Printf("status: %s\n", issue)
		}
		return fmt.Errorf("%d health issue(s)", len(issues))
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the response cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache hit/miss counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		stats := a.cache.Stats()
		fmt.Printf("entries:   %d\n", stats.Entries)
		fmt.Printf("hits:      %d\n", stats.Hits)
		fmt.Printf("misses:    %d\n", stats.Misses)
		fmt.Printf("evictions: %d\n", stats.Evictions)
		fmt.Printf("hit rate:  %.1f%%\n", stats.HitRate*100)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached response",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		before := a.cache.Len()
		a.cache.Clear()
		fmt.Printf("cleared %d entries\n", before)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show accumulated token usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		s := a.usage.Summary()
		fmt.Printf("total tokens: %d in, %d out\n\n", s.Total.Input, s.Total.Output)
		printCounts("BY MODEL", s.ByModel)
		printCounts("BY PHASE", s.ByPhase)
		printCounts("BY SOURCE", s.BySource)
		return nil
	},
}

func printCounts(title string, counts map[string]usage.Counts) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tIN\tOUT\tTOTAL\n", title)
	for _, k := range keys {
		c := counts[k]
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", k, c.Input, c.Output, c.Total)
	}
	w.Flush()
	fmt.Println()
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
