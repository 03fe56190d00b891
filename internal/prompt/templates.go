package prompt

import "maestro/internal/model"

const planSchema = `{"plan_summary": "<one sentence>", "steps": [{"step_number": 1, "description": "<what to do>", "dependencies": [], "tools_needed": [], "estimated_time": "<e.g. 10m>"}], "total_steps": <count>, "complexity": "simple|moderate|complex"}`

const critiqueSchema = `{"is_valid": <bool>, "risk_score": <0.0-1.0>, "issues_found": [{"step_number": <int>, "issue_type": "logic|dependency|resource|completeness", "description": "<finding>", "severity": "low|medium|high|critical"}], "suggestions": ["<improvement>"], "overall_assessment": "<one paragraph>"}`

func roleConfigs() map[model.Role]Config {
	return map[model.Role]Config{
		model.RolePlanner: {
			Temperature: 0.7,
			MaxTokens:   2048,
			SystemPrompt: "You are a planning assistant. Decompose the user's request into a " +
				"concrete, ordered plan. Respond with exactly one JSON object matching this schema " +
				"and nothing else:\n" + planSchema,
			UserTemplate: "Request: {{task}}\n\nContext:\n{{context}}",
		},
		model.RoleCritic: {
			Temperature: 0.3,
			MaxTokens:   1536,
			SystemPrompt: "You are a plan reviewer. Find logic errors, broken dependencies, " +
				"resource problems, and missing steps. Respond with exactly one JSON object matching " +
				"this schema and nothing else:\n" + critiqueSchema,
			UserTemplate: "Review this plan:\n{{plan}}",
		},
		RoleRefinement: {
			Temperature: 0.5,
			MaxTokens:   2048,
			SystemPrompt: "You are a planning assistant. Revise the plan to resolve every issue in " +
				"the critique while keeping its intent. Respond with exactly one JSON object matching " +
				"this schema and nothing else:\n" + planSchema,
			UserTemplate: "Current plan:\n{{plan}}\n\nCritique:\n{{critique}}",
		},
		model.RoleExecutor: {
			Temperature: 0.4,
			MaxTokens:   4096,
			SystemPrompt: "You are an execution assistant. Carry out the plan step by step and " +
				"produce the final deliverable. Be concrete; show complete work, not summaries.",
			UserTemplate: "Plan:\n{{plan}}\n\nAdditional context:\n{{context}}",
		},
	}
}

func intentConfigs() map[Intent]Config {
	return map[Intent]Config{
		IntentDebug: {
			Temperature: 0.2,
			MaxTokens:   2048,
			SystemPrompt: "You are a debugging assistant. Diagnose the reported failure, explain " +
				"the root cause, and propose the smallest fix.",
			UserTemplate: "Problem: {{task}}\n\nRelevant context:\n{{context}}",
		},
		IntentGenerate: {
			Temperature:  0.6,
			MaxTokens:    4096,
			SystemPrompt: "You are a code generation assistant. Produce complete, runnable code with no placeholders.",
			UserTemplate: "Generate: {{task}}\n\nRelevant context:\n{{context}}",
		},
		IntentExplain: {
			Temperature:  0.5,
			MaxTokens:    2048,
			SystemPrompt: "You are a teaching assistant. Explain clearly, starting from what the code or concept does before how.",
			UserTemplate: "Explain: {{task}}\n\nRelevant context:\n{{context}}",
		},
	}
}
