package config

import "maestro/internal/model"

// defaultModels is the built-in local model catalog. Entries are merged
// with (and overridden by) the daemon's advertised list at discovery.
func defaultModels() []model.Capabilities {
	return []model.Capabilities{
		{
			Name:                "llama3.1:8b",
			DisplayName:         "Llama 3.1 8B",
			Source:              model.SourceLocal,
			ContextLength:       131072,
			Quantization:        model.QuantQ4KM,
			Parameters:          8_000_000_000,
			MemoryEstimateGB:    5.5,
			MinMemoryGB:         5.0,
			RecommendedMemoryGB: 6.5,
			Skills:              model.Skills{Reasoning: 0.65, Coding: 0.6, Creativity: 0.6, Multilingual: 0.7},
			Features:            model.Features{FunctionCalling: true, Tools: true},
			ThermalSensitivity:  0.4,
		},
		{
			Name:                "qwen2.5:14b",
			DisplayName:         "Qwen 2.5 14B",
			Source:              model.SourceLocal,
			ContextLength:       32768,
			Quantization:        model.QuantQ4KM,
			Parameters:          14_000_000_000,
			MemoryEstimateGB:    9.5,
			MinMemoryGB:         9.0,
			RecommendedMemoryGB: 11.0,
			Skills:              model.Skills{Reasoning: 0.75, Coding: 0.7, Creativity: 0.65, Multilingual: 0.8},
			Features:            model.Features{FunctionCalling: true, Tools: true},
			ThermalSensitivity:  0.65,
		},
		{
			Name:                "qwen2.5-coder:7b",
			DisplayName:         "Qwen 2.5 Coder 7B",
			Source:              model.SourceLocal,
			ContextLength:       32768,
			Quantization:        model.QuantQ4KM,
			Parameters:          7_600_000_000,
			MemoryEstimateGB:    5.0,
			MinMemoryGB:         4.5,
			RecommendedMemoryGB: 6.0,
			Skills:              model.Skills{Reasoning: 0.65, Coding: 0.85, Creativity: 0.45, Multilingual: 0.55},
			Features:            model.Features{Tools: true},
			ThermalSensitivity:  0.4,
		},
		{
			Name:                "phi3.5:3.8b",
			DisplayName:         "Phi 3.5 Mini",
			Source:              model.SourceLocal,
			ContextLength:       131072,
			Quantization:        model.QuantQ4KM,
			Parameters:          3_800_000_000,
			MemoryEstimateGB:    2.5,
			MinMemoryGB:         2.2,
			RecommendedMemoryGB: 3.0,
			Skills:              model.Skills{Reasoning: 0.55, Coding: 0.5, Creativity: 0.45, Multilingual: 0.5},
			ThermalSensitivity:  0.2,
		},
	}
}
