package cascade

import (
	"fmt"
	"regexp"
	"strings"
)

// strategiesByObstacle maps an obstacle kind to the adjustment
// strategies worth trying, best-fit first.
var strategiesByObstacle = map[ObstacleKind][]AdjustmentKind{
	ObstacleTimeout:           {AdjustSimplify, AdjustReduceScope, AdjustChangeModel},
	ObstacleResourceLimit:     {AdjustChangeModel, AdjustReduceScope, AdjustSimplify},
	ObstacleError:             {AdjustRefine, AdjustAddContext, AdjustBreakDown},
	ObstacleDependencyFailure: {AdjustRestructure, AdjustAddContext},
	ObstacleQualityIssue:      {AdjustExpand, AdjustRefine, AdjustAddContext},
	ObstaclePerformanceIssue:  {AdjustSimplify, AdjustChangeModel},
	ObstacleUnknown:           {AdjustRefine, AdjustSimplify},
}

// textbookConfidence raises the baseline 0.7 when a strategy is the
// canonical answer to an obstacle kind.
var textbookConfidence = map[ObstacleKind]map[AdjustmentKind]float64{
	ObstacleTimeout:           {AdjustSimplify: 0.9},
	ObstacleResourceLimit:     {AdjustChangeModel: 0.9},
	ObstacleError:             {AdjustRefine: 0.85},
	ObstacleDependencyFailure: {AdjustRestructure: 0.85},
	ObstacleQualityIssue:      {AdjustExpand: 0.85},
	ObstaclePerformanceIssue:  {AdjustSimplify: 0.85},
}

const baselineConfidence = 0.7

var boilerplatePattern = regexp.MustCompile(`(?i)(please ensure that|it is important to|make sure to|be careful to|keep in mind that)\s*`)

// AdjustPrompt generates one candidate adjustment per strategy mapped
// to the obstacle kind. Candidates are ordered as the strategy map
// lists them; Best selects by confidence.
func AdjustPrompt(obstacle Obstacle, subtask Subtask) []PromptAdjustment {
	strategies, ok := strategiesByObstacle[obstacle.Kind]
	if !ok {
		strategies = strategiesByObstacle[ObstacleUnknown]
	}

	out := make([]PromptAdjustment, 0, len(strategies))
	for _, strat := range strategies {
		adjusted, improvement := applyStrategy(strat, subtask, obstacle)
		confidence := baselineConfidence
		if fit, ok := textbookConfidence[obstacle.Kind][strat]; ok {
			confidence = fit
		}
		out = append(out, PromptAdjustment{
			Kind:                strat,
			Original:            subtask.Prompt,
			Adjusted:            adjusted,
			Reason:              fmt.Sprintf("%s obstacle on %q", obstacle.Kind, subtask.Description),
			ExpectedImprovement: improvement,
			Confidence:          confidence,
		})
	}
	return out
}

// BestAdjustment selects the candidate with the highest confidence.
// Ties keep the strategy map's ordering.
func BestAdjustment(candidates []PromptAdjustment) (PromptAdjustment, bool) {
	if len(candidates) == 0 {
		return PromptAdjustment{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Confidence > best.Confidence {
			best = c
		}
	}
	return best, true
}

func applyStrategy(kind AdjustmentKind, subtask Subtask, obstacle Obstacle) (adjusted, improvement string) {
	prompt := subtask.Prompt
	switch kind {
	case AdjustSimplify:
		shorter := boilerplatePattern.ReplaceAllString(prompt, "")
		shorter = strings.Join(strings.Fields(shorter), " ")
		return shorter, "shorter prompt completes within the window"
	case AdjustExpand:
		return prompt + "\nInclude edge cases, error handling, and a short rationale.",
			"more explicit requirements raise output quality"
	case AdjustRefine:
		return fmt.Sprintf("The previous attempt failed (%s). Avoid that failure.\n%s", obstacle.Context, prompt),
			"naming the prior failure steers the model away from it"
	case AdjustRestructure:
		return "Before starting, list the prerequisites and verify each one.\n" + prompt,
			"explicit prerequisite check avoids ordering mistakes"
	case AdjustAddContext:
		ctx := strings.Join(subtask.Context, "\n")
		if ctx == "" {
			ctx = "No additional context is available; state your assumptions."
		}
		return prompt + "\n\nContext:\n" + ctx,
			"grounding context reduces wrong guesses"
	case AdjustReduceScope:
		return prompt + "\nFocus only on the core requirement; skip optional parts.",
			"smaller scope fits the time and resource budget"
	case AdjustChangeModel:
		return fmt.Sprintf("%s\n(target model: %s; keep the output concise and well-structured)", prompt, subtask.RequiredModel),
			"a different model profile may fit this workload better"
	case AdjustBreakDown:
		return prompt + "\nProceed step by step:\n1. Restate the goal.\n2. Solve each part separately.\n3. Combine the parts and verify.",
			"decomposition keeps each piece inside the model's depth"
	default:
		return prompt, "no change"
	}
}
