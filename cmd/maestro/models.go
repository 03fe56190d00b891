package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Inspect the model catalog",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every known model with its capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSOURCE\tPARAMS\tMEM(GB)\tCONTEXT\tVALIDATED")
		for _, info := range a.registry.All() {
			caps := info.Capabilities
			validated := "no"
			if info.Validated {
				validated = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%d\t%s\n",
				caps.Name, caps.Source, formatParams(caps.Parameters),
				caps.RecommendedMemoryGB, caps.ContextLength, validated)
		}
		return w.Flush()
	},
}

var modelsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Force a registry refresh and report validation failures",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.registry.Refresh(ctx, true); err != nil {
			return err
		}

		failures := 0
		for _, info := range a.registry.All() {
			if info.Validated {
				fmt.Printf("ok    %s\n", info.Capabilities.Name)
				continue
			}
			failures++
			fmt.Printf("FAIL  %s: %s\n", info.Capabilities.Name, info.ValidationError)
		}
		if failures > 0 {
			return fmt.Errorf("%d model(s) failed validation", failures)
		}
		return nil
	},
}

func formatParams(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.0fM", float64(n)/1e6)
	case n == 0:
		return "-"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsValidateCmd)
}
