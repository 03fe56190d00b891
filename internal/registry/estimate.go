package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"maestro/internal/invoker"
	"maestro/internal/model"
)

var paramTagPattern = regexp.MustCompile(`(?i)[:\-](\d+(?:\.\d+)?)b\b`)

// estimateCapabilities builds a conservative capability record for a
// daemon model that has no configured profile. Memory is derived from
// the on-disk size with working-set overhead; parameters are parsed
// from the usual ":7b" name tag when present.
func estimateCapabilities(lm invoker.ListedModel) model.Capabilities {
	sizeGB := float64(lm.Size) / (1 << 30)
	if sizeGB <= 0 {
		sizeGB = 4
	}

	var params int64
	if m := paramTagPattern.FindStringSubmatch(lm.Name); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			params = int64(f * 1e9)
		}
	}

	caps := model.Capabilities{
		Name:                lm.Name,
		Source:              model.SourceLocal,
		ContextLength:       8192,
		Quantization:        model.QuantQ4KM,
		Parameters:          params,
		MemoryEstimateGB:    sizeGB * 1.2,
		MinMemoryGB:         sizeGB * 1.1,
		RecommendedMemoryGB: sizeGB * 1.5,
		Skills:              model.Skills{Reasoning: 0.5, Coding: 0.5, Creativity: 0.5, Multilingual: 0.5},
		ThermalSensitivity:  estimateThermalSensitivity(sizeGB),
	}
	if strings.Contains(strings.ToLower(lm.Name), "coder") {
		caps.Skills.Coding = 0.7
	}
	return caps.Normalize()
}

// estimateThermalSensitivity scales with model size; big models run hot.
func estimateThermalSensitivity(sizeGB float64) float64 {
	switch {
	case sizeGB >= 20:
		return 0.9
	case sizeGB >= 10:
		return 0.7
	case sizeGB >= 5:
		return 0.5
	default:
		return 0.3
	}
}

func errNoDaemon(name string) error {
	return fmt.Errorf("cannot validate %s: no daemon client configured", name)
}

func errNoCredential(name, provider string) error {
	return fmt.Errorf("cannot validate %s: no credential for provider %s", name, provider)
}
