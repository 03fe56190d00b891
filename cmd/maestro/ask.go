package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"maestro/internal/cascade"
	"maestro/internal/invoker"
	"maestro/internal/model"
	"maestro/internal/prompt"
)

var (
	askContext     string
	askIntent      string
	askInteractive bool
	askForce       bool
)

var askCmd = &cobra.Command{
	Use:   "ask [request]",
	Short: "Run a request through the cascade and the workflow",
	Long: `Refines the request through the cascade pipeline, then runs the
planner/critic/executor workflow on the refined request.

With --intent the cascade and workflow are skipped and the request goes
straight to a single model with an intent-specific prompt (debug,
generate, explain).

With --interactive, detected ambiguities are presented for clarification
on stdin; otherwise they are skipped and the request runs as written.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askContext, "context", "", "Extra context handed to the planner and executor")
	askCmd.Flags().StringVar(&askIntent, "intent", "", "Direct intent call: debug, generate, or explain")
	askCmd.Flags().BoolVarP(&askInteractive, "interactive", "i", false, "Clarify ambiguities on stdin")
	askCmd.Flags().BoolVar(&askForce, "force", false, "Run even when the request is judged infeasible")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	input := strings.Join(args, " ")
	if askIntent != "" {
		return runIntent(ctx, a, input)
	}

	var resolver cascade.Resolver
	if askInteractive {
		resolver = stdinResolver{in: bufio.NewReader(os.Stdin)}
	}
	pipeline := cascade.NewPipeline(cascade.PipelineOptions{Resolver: resolver})
	state, trace, err := pipeline.Run(ctx, input)
	if err != nil {
		return err
	}
	if verbose {
		for _, st := range trace.Stages {
			fmt.Printf("  %-22s %s\n", st.Name, st.Summary)
		}
	}

	feas := state.Feasibility
	if feas.Status == cascade.StatusInfeasible && !askForce {
		fmt.Printf("Request judged infeasible (estimated %.0fh):\n", feas.EstimatedHours)
		for _, b := range feas.Blockers {
			fmt.Printf("  - %s\n", b)
		}
		if len(feas.Alternatives) > 0 {
			fmt.Println("Alternatives:")
			for _, alt := range feas.Alternatives {
				fmt.Printf("  - %s (%.0fh)\n", alt.Description, alt.EstimatedHours)
			}
		}
		return fmt.Errorf("infeasible request; rerun with --force to proceed anyway")
	}

	result := a.orch.Process(ctx, state.Clarified, askContext, "")
	if !result.Success {
		return fmt.Errorf("workflow failed: %s", result.Error)
	}
	if result.Warning != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", result.Warning)
	}

	fmt.Println(result.Output)
	fmt.Printf("\n[%d iteration(s), models %s, %.1fs]\n",
		result.Iterations, strings.Join(result.ModelsUsed, ", "), result.Duration.Seconds())
	return nil
}

// runIntent is the single-model fast path: no cascade, no critique.
func runIntent(ctx context.Context, a *app, input string) error {
	pcfg, err := a.catalog.ForIntent(prompt.Intent(askIntent))
	if err != nil {
		return err
	}

	snap := a.monitor.Latest()
	cons := a.cfg.Constraints(snap.AvailableGB, snap.Thermal)
	sel, err := a.mapper.Select(model.RoleExecutor, cons, nil, nil)
	if err != nil {
		return err
	}
	if err := a.factory.Load(ctx, sel.Name); err != nil {
		return err
	}
	defer a.factory.Unload(context.WithoutCancel(ctx), sel.Name)

	userPrompt, err := prompt.Format(pcfg.UserTemplate, map[string]string{
		"task":    input,
		"context": askContext,
	})
	if err != nil {
		return err
	}
	resp, err := a.invoker.Invoke(ctx, invoker.Request{
		Model:       sel.Name,
		Prompt:      userPrompt,
		System:      pcfg.SystemPrompt,
		Temperature: pcfg.Temperature,
		MaxTokens:   pcfg.MaxTokens,
		Timeout:     a.cfg.Orchestrator.InvokeTimeout.D(),
	})
	if err != nil {
		return err
	}
	source := "local"
	if info, found := a.registry.Lookup(sel.Name); found {
		source = string(info.Capabilities.Source)
	}
	a.usage.Record(sel.Name, "intent:"+askIntent, source, resp.InputTokens, resp.OutputTokens)

	fmt.Println(resp.Text)
	return nil
}

// stdinResolver asks the terminal user to resolve each ambiguity.
type stdinResolver struct {
	in *bufio.Reader
}

func (r stdinResolver) Resolve(a cascade.Ambiguity, choices []cascade.Choice) (string, string, error) {
	fmt.Printf("Ambiguous %s: %q\n", a.Kind, a.Span)
	for i, c := range choices {
		if c.Parenthetical != "" {
			fmt.Printf("  %d. %s (%s)\n", i+1, c.Label, c.Parenthetical)
		} else {
			fmt.Printf("  %d. %s\n", i+1, c.Label)
		}
	}
	fmt.Print("Choice [enter to skip]: ")

	line, err := r.in.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return cascade.SkipChoiceID, "", nil
	}
	idx, err := strconv.Atoi(line)
	if err != nil || idx < 1 || idx > len(choices) {
		return cascade.SkipChoiceID, "", nil
	}

	choice := choices[idx-1]
	if !choice.ExpectsInput {
		return choice.ID, "", nil
	}
	fmt.Print("Value: ")
	value, err := r.in.ReadString('\n')
	if err != nil {
		return "", "", err
	}
	return choice.ID, strings.TrimSpace(value), nil
}
