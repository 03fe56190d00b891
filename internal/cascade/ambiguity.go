package cascade

import (
	"regexp"
	"sort"
	"strings"
)

// detectorFamily owns one pattern set with a fixed base confidence.
type detectorFamily struct {
	kind       AmbiguityKind
	confidence float64
	pattern    *regexp.Regexp
}

// The six families are disjoint by construction: each term appears in
// exactly one pattern set.
var detectorFamilies = []detectorFamily{
	{
		kind:       AmbiguityVagueQuantifier,
		confidence: 0.70,
		pattern:    regexp.MustCompile(`(?i)\b(some|many|few|several|a lot|lots|most|various|a bit|somewhat)\b`),
	},
	{
		kind:       AmbiguityUndefinedTerm,
		confidence: 0.80,
		pattern:    regexp.MustCompile(`(?i)\b(better|faster|slower|improved?|optimized?|enhanced?|modern)\b`),
	},
	{
		kind:       AmbiguityMissingContext,
		confidence: 0.90,
		pattern:    regexp.MustCompile(`(?i)\b(as before|like last time|the usual|as discussed|as we agreed|the same way)\b`),
	},
	{
		kind:       AmbiguityAmbiguousReference,
		confidence: 0.85,
		pattern:    regexp.MustCompile(`(?i)\b(it|this|that|them|they|those|these)\b`),
	},
	{
		kind:       AmbiguityUnclearScope,
		confidence: 0.75,
		pattern:    regexp.MustCompile(`(?i)\b(everything|all of it|the whole thing|entire|completely|fully)\b`),
	},
	{
		kind:       AmbiguitySubjectiveCriteria,
		confidence: 0.65,
		pattern:    regexp.MustCompile(`(?i)\b(nice|clean|elegant|pretty|intuitive|user-friendly|professional|good|modern-looking)\b`),
	},
}

// interpretationTable maps a matched term (lowercased) to the candidate
// readings offered to the user. Terms without an entry fall back to the
// family default.
var interpretationTable = map[string][]string{
	"better":  {"improve performance", "improve quality", "improve UX", "improve features"},
	"faster":  {"improve performance", "reduce latency", "speed up development"},
	"slower":  {"reduce speed deliberately", "throttle output"},
	"improve": {"improve performance", "improve quality", "improve UX"},
	"it":      {"the whole project", "the last thing discussed", "a specific component"},
	"this":    {"the current file", "the current task", "the described behavior"},
	"that":    {"the previous result", "the mentioned component"},
	"some":    {"a small number", "an unspecified subset"},
	"many":    {"a large number", "most of them"},
	"clean":   {"readable code", "minimal design", "no dead code"},
	"nice":    {"visually pleasing", "pleasant to use"},
}

var familyDefaults = map[AmbiguityKind]struct {
	interpretations []string
	suggestions     []string
}{
	AmbiguityVagueQuantifier: {
		interpretations: []string{"an unspecified amount"},
		suggestions:     []string{"state an exact number or range"},
	},
	AmbiguityUndefinedTerm: {
		interpretations: []string{"an unspecified improvement"},
		suggestions:     []string{"name the dimension to improve (performance, quality, UX, features)"},
	},
	AmbiguityMissingContext: {
		interpretations: []string{"a reference to prior shared context"},
		suggestions:     []string{"describe the earlier context explicitly"},
	},
	AmbiguityAmbiguousReference: {
		interpretations: []string{"an unclear referent"},
		suggestions:     []string{"name the thing being referred to"},
	},
	AmbiguityUnclearScope: {
		interpretations: []string{"an unbounded scope"},
		suggestions:     []string{"list the parts that are in scope"},
	},
	AmbiguitySubjectiveCriteria: {
		interpretations: []string{"a taste-dependent criterion"},
		suggestions:     []string{"give a measurable acceptance criterion"},
	},
}

// DetectAmbiguities runs all six detector families over the input and
// returns the merged results sorted by confidence descending, ties
// broken by position so the result is deterministic.
func DetectAmbiguities(input string) []Ambiguity {
	var out []Ambiguity
	for _, fam := range detectorFamilies {
		for _, loc := range fam.pattern.FindAllStringIndex(input, -1) {
			span := input[loc[0]:loc[1]]
			term := strings.ToLower(span)

			interp := interpretationTable[term]
			defaults := familyDefaults[fam.kind]
			if interp == nil {
				interp = defaults.interpretations
			}
			out = append(out, Ambiguity{
				Kind:            fam.kind,
				Span:            span,
				Start:           loc[0],
				End:             loc[1],
				Confidence:      fam.confidence,
				Interpretations: interp,
				Suggestions:     defaults.suggestions,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Start < out[j].Start
	})
	return out
}
