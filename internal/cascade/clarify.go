package cascade

import (
	"fmt"
	"sort"
	"strings"

	"maestro/internal/fault"
)

// SessionState is the clarification dialogue state machine.
type SessionState string

const (
	SessionInitializing      SessionState = "initializing"
	SessionPresentingChoices SessionState = "presenting_choices"
	SessionWaitingForInput   SessionState = "waiting_for_input"
	SessionProcessingInput   SessionState = "processing_input"
	SessionCompleted         SessionState = "completed"
	SessionCancelled         SessionState = "cancelled"
)

// Choice is one option presented for an ambiguity. Choices with
// ExpectsInput substitute the user's free text for the ambiguous span;
// others append a contextual parenthetical.
type Choice struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Parenthetical string `json:"parenthetical,omitempty"`
	ExpectsInput  bool   `json:"expects_input,omitempty"`
}

// SkipChoiceID leaves the ambiguous span untouched.
const SkipChoiceID = "skip"

// choicesFor synthesizes the family-specific options plus the default
// skip.
func choicesFor(a Ambiguity) []Choice {
	var choices []Choice
	switch a.Kind {
	case AmbiguityUndefinedTerm:
		choices = []Choice{
			{ID: "improve_performance", Label: "Improve performance", Parenthetical: "performance: speed, efficiency"},
			{ID: "improve_quality", Label: "Improve quality", Parenthetical: "quality: reliability, correctness"},
			{ID: "improve_ux", Label: "Improve user experience", Parenthetical: "ux: usability, clarity"},
			{ID: "improve_features", Label: "Improve features", Parenthetical: "features: capability, coverage"},
		}
	case AmbiguityVagueQuantifier:
		choices = []Choice{
			{ID: "specify_number", Label: "Give an exact number", ExpectsInput: true},
		}
	case AmbiguityAmbiguousReference:
		choices = []Choice{
			{ID: "specify_target", Label: "Name the thing referred to", ExpectsInput: true},
		}
	case AmbiguityMissingContext:
		choices = []Choice{
			{ID: "provide_context", Label: "Describe the missing context", ExpectsInput: true},
		}
	case AmbiguityUnclearScope:
		choices = []Choice{
			{ID: "limit_scope", Label: "List what is in scope", ExpectsInput: true},
			{ID: "full_scope", Label: "Everything is in scope", Parenthetical: "scope: all components"},
		}
	case AmbiguitySubjectiveCriteria:
		choices = []Choice{
			{ID: "define_criteria", Label: "Give a measurable criterion", ExpectsInput: true},
		}
	}
	return append(choices, Choice{ID: SkipChoiceID, Label: "Keep as written"})
}

// resolution is one accepted answer for an ambiguity.
type resolution struct {
	ambiguity Ambiguity
	choice    Choice
	input     string
}

// ClarificationSession walks the ordered ambiguity list, collecting one
// answer per ambiguity, then produces the clarified request.
type ClarificationSession struct {
	original    string
	ambiguities []Ambiguity
	state       SessionState
	index       int
	resolutions []resolution
}

// NewSession wraps the ordered ambiguity list. A session over zero
// ambiguities completes immediately.
func NewSession(original string, ambiguities []Ambiguity) *ClarificationSession {
	s := &ClarificationSession{
		original:    original,
		ambiguities: ambiguities,
		state:       SessionInitializing,
	}
	if len(ambiguities) == 0 {
		s.state = SessionCompleted
	} else {
		s.state = SessionPresentingChoices
	}
	return s
}

// State reports the current machine state.
func (s *ClarificationSession) State() SessionState { return s.state }

// Current returns the ambiguity under discussion and its choices. The
// session moves to waiting_for_input.
func (s *ClarificationSession) Current() (Ambiguity, []Choice, error) {
	if s.state != SessionPresentingChoices {
		return Ambiguity{}, nil, fault.New(fault.KindInternal, "cascade.clarify",
			fmt.Sprintf("no choices to present in state %s", s.state))
	}
	a := s.ambiguities[s.index]
	s.state = SessionWaitingForInput
	return a, choicesFor(a), nil
}

// Answer feeds back the selected choice for the current ambiguity,
// with optional free-text input. The session advances to the next
// ambiguity or completes.
func (s *ClarificationSession) Answer(choiceID, input string) error {
	if s.state != SessionWaitingForInput {
		return fault.New(fault.KindInternal, "cascade.clarify",
			fmt.Sprintf("answer in state %s", s.state))
	}
	s.state = SessionProcessingInput

	a := s.ambiguities[s.index]
	var chosen *Choice
	for _, c := range choicesFor(a) {
		if c.ID == choiceID {
			chosen = &c
			break
		}
	}
	if chosen == nil {
		s.state = SessionWaitingForInput
		return fault.New(fault.KindInternal, "cascade.clarify",
			fmt.Sprintf("unknown choice %q for %s", choiceID, a.Kind))
	}
	if chosen.ExpectsInput && strings.TrimSpace(input) == "" {
		s.state = SessionWaitingForInput
		return fault.New(fault.KindInternal, "cascade.clarify",
			fmt.Sprintf("choice %q requires input", choiceID))
	}

	s.resolutions = append(s.resolutions, resolution{ambiguity: a, choice: *chosen, input: input})
	s.index++
	if s.index >= len(s.ambiguities) {
		s.state = SessionCompleted
	} else {
		s.state = SessionPresentingChoices
	}
	return nil
}

// Cancel abandons the session.
func (s *ClarificationSession) Cancel() {
	if s.state != SessionCompleted {
		s.state = SessionCancelled
	}
}

// Clarified produces the clarified request from the collected answers.
// Free-text answers replace the ambiguous span; structured choices
// append their parenthetical after it; skips leave it untouched.
// Substitutions are applied back to front so earlier offsets stay valid.
func (s *ClarificationSession) Clarified() (string, error) {
	if s.state != SessionCompleted {
		return "", fault.New(fault.KindInternal, "cascade.clarify",
			fmt.Sprintf("clarified request unavailable in state %s", s.state))
	}

	resolved := make([]resolution, len(s.resolutions))
	copy(resolved, s.resolutions)
	sort.Slice(resolved, func(i, j int) bool {
		return resolved[i].ambiguity.Start > resolved[j].ambiguity.Start
	})

	out := s.original
	for _, r := range resolved {
		a := r.ambiguity
		if a.Start < 0 || a.End > len(out) || a.Start > a.End {
			continue
		}
		var replacement string
		switch {
		case r.choice.ID == SkipChoiceID:
			continue
		case r.choice.ExpectsInput:
			replacement = r.input
		case r.choice.Parenthetical != "":
			replacement = a.Span + " (" + r.choice.Parenthetical + ")"
		default:
			continue
		}
		out = out[:a.Start] + replacement + out[a.End:]
	}
	return out, nil
}
