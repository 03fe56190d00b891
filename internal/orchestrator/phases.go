package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avast/retry-go"

	"maestro/internal/fault"
	"maestro/internal/invoker"
	"maestro/internal/logging"
	"maestro/internal/metrics"
	"maestro/internal/model"
	"maestro/internal/plan"
	"maestro/internal/prompt"
)

// planAndCritique covers Phases P and C: produce a plan, then iterate
// critique and refinement until the critic accepts or iterations run
// out. The critic model replaces the planner model via a factory
// switch; on exit nothing is resident.
func (o *Orchestrator) planAndCritique(ctx context.Context, userInput, contextStr string) (accepted *plan.Plan, iterations int, warning string, err error) {
	log := logging.Get(logging.CategoryOrchestrator)
	cfg := o.deps.Config.Orchestrator

	plannerName, err := o.loadForRole(ctx, model.RolePlanner)
	if err != nil {
		return nil, 0, "", err
	}

	current, err := o.runPlanning(ctx, plannerName, userInput, contextStr)
	if err != nil {
		o.unloadAll(ctx)
		return nil, 0, "", err
	}

	criticName, err := o.selectForRole(model.RoleCritic)
	if err != nil {
		o.unloadAll(ctx)
		return nil, 0, "", err
	}
	if criticName != plannerName {
		if err := o.deps.Factory.Switch(ctx, plannerName, criticName); err != nil {
			return nil, 0, "", err
		}
		o.noteModel(criticName)
	}
	defer o.unloadAll(ctx)

	stop := o.deps.Profiler.Profile("orchestrator.critique")
	phaseStart := time.Now()
	defer func() {
		stop()
		metrics.PhaseDuration.WithLabelValues("critique").Observe(time.Since(phaseStart).Seconds())
	}()

	for iterations = 1; iterations <= cfg.MaxIterations; iterations++ {
		critique, err := o.runCritique(ctx, criticName, current)
		if err != nil {
			return nil, iterations, "", err
		}

		if critique.IsValid && critique.RiskScore < cfg.RiskThreshold {
			log.Infow("plan accepted", "iteration", iterations, "risk", critique.RiskScore)
			metrics.RefinementIterations.Observe(float64(iterations))
			return current, iterations, "", nil
		}
		log.Debugw("plan rejected", "iteration", iterations,
			"risk", critique.RiskScore, "issues", len(critique.IssuesFound))

		refined, err := o.runRefinement(ctx, criticName, current, critique)
		if err != nil {
			// A failed refinement keeps the current plan for the next
			// critique round rather than aborting the workflow.
			log.Warnw("refinement failed", "iteration", iterations, "error", err)
		} else {
			current = refined
		}

		if iterations < cfg.MaxIterations && cfg.RefineBackoff.D() > 0 {
			select {
			case <-time.After(cfg.RefineBackoff.D()):
			case <-ctx.Done():
				return nil, iterations, "", fault.Wrap(fault.KindCancelled, "orchestrator.critique", ctx.Err())
			}
		}
	}
	iterations = cfg.MaxIterations

	metrics.RefinementIterations.Observe(float64(iterations))
	return current, iterations, "no critique iteration accepted the plan; returning the last valid plan", nil
}

// runPlanning is Phase P under its profiler span.
func (o *Orchestrator) runPlanning(ctx context.Context, plannerName, userInput, contextStr string) (*plan.Plan, error) {
	stop := o.deps.Profiler.Profile("orchestrator.plan")
	phaseStart := time.Now()
	defer func() {
		stop()
		metrics.PhaseDuration.WithLabelValues("plan").Observe(time.Since(phaseStart).Seconds())
	}()

	cfg, err := o.deps.Catalog.ForRole(model.RolePlanner)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "orchestrator.plan", err)
	}
	vars := map[string]string{"task": userInput, "context": contextStr}

	var p plan.Plan
	attempt := func() error {
		raw, err := o.invokeModel(ctx, plannerName, "plan", cfg, vars, contextStr)
		if err != nil {
			return err
		}
		parsed, err := plan.ParsePlan(raw)
		if err != nil {
			return err
		}
		if ok, risk, problems := prompt.ValidatePlan(parsed); !ok {
			return fault.New(fault.KindShape, "orchestrator.plan",
				"planner output failed validation (risk %.2f): %v", risk, problems)
		}
		p = parsed
		return nil
	}
	if err := o.retryShape(attempt); err != nil {
		return nil, err
	}
	return &p, nil
}

// runCritique asks the critic to judge the current plan.
func (o *Orchestrator) runCritique(ctx context.Context, criticName string, current *plan.Plan) (plan.Critique, error) {
	cfg, err := o.deps.Catalog.ForRole(model.RoleCritic)
	if err != nil {
		return plan.Critique{}, fault.Wrap(fault.KindInternal, "orchestrator.critique", err)
	}
	vars := map[string]string{"plan": current.Encode()}

	var c plan.Critique
	attempt := func() error {
		raw, err := o.invokeModel(ctx, criticName, "critique", cfg, vars, "")
		if err != nil {
			return err
		}
		c, err = plan.ParseCritique(raw)
		return err
	}
	if err := o.retryShape(attempt); err != nil {
		return plan.Critique{}, err
	}
	return c, nil
}

// runRefinement asks the critic's model to repair the plan against the
// critique. The refined plan must pass the same shape validation as
// the original.
func (o *Orchestrator) runRefinement(ctx context.Context, criticName string, current *plan.Plan, critique plan.Critique) (*plan.Plan, error) {
	cfg, err := o.deps.Catalog.ForRole(prompt.RoleRefinement)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "orchestrator.refine", err)
	}
	critiqueJSON, _ := encodeCritique(critique)
	vars := map[string]string{"plan": current.Encode(), "critique": critiqueJSON}

	var refined plan.Plan
	attempt := func() error {
		raw, err := o.invokeModel(ctx, criticName, "refine", cfg, vars, "")
		if err != nil {
			return err
		}
		parsed, err := plan.ParsePlan(raw)
		if err != nil {
			return err
		}
		if ok, risk, problems := prompt.ValidatePlan(parsed); !ok {
			return fault.New(fault.KindShape, "orchestrator.refine",
				"refined plan failed validation (risk %.2f): %v", risk, problems)
		}
		refined = parsed
		return nil
	}
	if err := o.retryShape(attempt); err != nil {
		return nil, err
	}
	return &refined, nil
}

// execute is Phase E: load the executor, run the accepted plan, unload.
func (o *Orchestrator) execute(ctx context.Context, accepted *plan.Plan, contextStr, additionalContext string) (string, error) {
	stop := o.deps.Profiler.Profile("orchestrator.execute")
	phaseStart := time.Now()
	defer func() {
		stop()
		metrics.PhaseDuration.WithLabelValues("execute").Observe(time.Since(phaseStart).Seconds())
	}()

	executorName, err := o.loadForRole(ctx, model.RoleExecutor)
	if err != nil {
		return "", err
	}
	defer o.unloadAll(ctx)

	cfg, err := o.deps.Catalog.ForRole(model.RoleExecutor)
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, "orchestrator.execute", err)
	}
	vars := map[string]string{"plan": accepted.Encode(), "context": additionalContext}

	raw, err := o.invokeModel(ctx, executorName, "execute", cfg, vars, contextStr)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return "", fault.New(fault.KindBackend, "orchestrator.execute", "executor returned empty output")
	}
	return raw, nil
}

// selectForRole asks the mapper for the best model under the current
// system constraints.
func (o *Orchestrator) selectForRole(role model.Role) (string, error) {
	snap := o.deps.Monitor.Latest()
	cons := o.deps.Config.Constraints(snap.AvailableGB, snap.Thermal)
	sel, err := o.deps.Mapper.Select(role, cons, nil, nil)
	if err != nil {
		return "", err
	}
	return sel.Name, nil
}

// loadForRole selects and loads a model for a role. A ResourceExhausted
// load triggers one idle cleanup and a single retry.
func (o *Orchestrator) loadForRole(ctx context.Context, role model.Role) (string, error) {
	name, err := o.selectForRole(role)
	if err != nil {
		return "", err
	}
	if err := o.deps.Factory.Load(ctx, name); err != nil {
		if fault.KindOf(err) != fault.KindResourceExhausted {
			return "", err
		}
		maxIdle := time.Duration(o.deps.Config.Orchestrator.MaxIdleSeconds) * time.Second
		freed := o.deps.Factory.CleanupIdle(ctx, maxIdle)
		logging.Get(logging.CategoryOrchestrator).Infow("retrying load after idle cleanup",
			"model", name, "role", role, "freed", freed)
		if err := o.deps.Factory.Load(ctx, name); err != nil {
			return "", err
		}
	}
	o.noteModel(name)
	return name, nil
}

func (o *Orchestrator) noteModel(name string) {
	for _, m := range o.modelsUsed {
		if m == name {
			return
		}
	}
	o.modelsUsed = append(o.modelsUsed, name)
}

// invokeModel formats the prompt and calls the backend, with the cache
// sitting in front of the invoker. Cache keys cover the full formatted
// prompt, the model, and the caller-supplied context string. phase
// labels the call for token accounting; cache hits consume no tokens
// and are not recorded.
func (o *Orchestrator) invokeModel(ctx context.Context, modelName, phase string, cfg prompt.Config, vars map[string]string, cacheContext string) (string, error) {
	userPrompt, err := prompt.Format(cfg.UserTemplate, vars)
	if err != nil {
		return "", fault.Wrap(fault.KindInternal, "orchestrator.invoke", err)
	}

	if cached, ok := o.deps.Cache.Get(userPrompt, modelName, cacheContext); ok {
		logging.Get(logging.CategoryOrchestrator).Debugw("cache hit", "model", modelName)
		return cached, nil
	}

	resp, err := o.deps.Invoker.Invoke(ctx, invoker.Request{
		Model:       modelName,
		Prompt:      userPrompt,
		System:      cfg.SystemPrompt,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     o.deps.Config.Orchestrator.InvokeTimeout.D(),
	})
	if err != nil {
		return "", err
	}
	o.deps.Factory.Touch(modelName)
	o.recordUsage(modelName, phase, resp)
	o.deps.Cache.Set(userPrompt, modelName, cacheContext, resp.Text, map[string]string{
		"tokens": fmt.Sprintf("%d", resp.OutputTokens),
	})
	return resp.Text, nil
}

func (o *Orchestrator) recordUsage(modelName, phase string, resp invoker.Response) {
	if o.deps.Usage == nil {
		return
	}
	source := "local"
	if info, found := o.deps.Registry.Lookup(modelName); found {
		source = string(info.Capabilities.Source)
	}
	o.deps.Usage.Record(modelName, phase, source, resp.InputTokens, resp.OutputTokens)
}

// retryShape runs fn with one automatic retry on ShapeError; all other
// kinds surface immediately.
func (o *Orchestrator) retryShape(fn func() error) error {
	return retry.Do(fn,
		retry.Attempts(2),
		retry.Delay(0),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return fault.KindOf(err) == fault.KindShape
		}),
	)
}

func encodeCritique(c plan.Critique) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "{}", err
	}
	return string(data), nil
}
