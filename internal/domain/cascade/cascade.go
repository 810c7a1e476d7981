// Package cascade holds the pure parts of the multi-pass refinement: the stage
// enum, the tighten transition shared by Pass 2 and Pass 3, the backfilling
// combine step and result assembly. Nothing here performs I/O.
package cascade

import (
	"github.com/kailas-cloud/jewelmatch/internal/domain/catalog"
)

// Stage is a state of the cascade. Combine is terminal.
type Stage int

// Cascade stages in execution order.
const (
	Pass1Broad Stage = iota
	Pass2Tighten
	Pass3Refine
	Combine
)

// Label is the provenance name reported to callers.
type Label string

// Provenance labels.
const (
	LabelFirst  Label = "First Pass"
	LabelSecond Label = "Second Pass"
	LabelThird  Label = "Third Pass"
	LabelNone   Label = "None"
)

// Label returns the provenance label of a pass stage.
func (s Stage) Label() Label {
	switch s {
	case Pass1Broad:
		return LabelFirst
	case Pass2Tighten:
		return LabelSecond
	case Pass3Refine:
		return LabelThird
	default:
		return LabelNone
	}
}

// Next returns the following stage. Combine is its own successor.
func (s Stage) Next() Stage {
	if s >= Combine {
		return Combine
	}
	return s + 1
}

func (s Stage) String() string {
	switch s {
	case Pass1Broad:
		return "pass1_broad"
	case Pass2Tighten:
		return "pass2_tighten"
	case Pass3Refine:
		return "pass3_refine"
	case Combine:
		return "combine"
	default:
		return "unknown"
	}
}

// Outcome describes what a pass did with its input.
type Outcome string

// Pass outcomes.
const (
	// Adopted means the filtered set replaced the input.
	Adopted Outcome = "adopted"
	// Reverted means filtering emptied the set and the input was kept.
	Reverted Outcome = "reverted"
	// Skipped means no term was available, or the input was empty.
	Skipped Outcome = "skipped"
)

// Pass is the result of one cascade stage.
type Pass struct {
	Stage Stage
	// Term is the filter term that was adopted, or the first one attempted.
	Term string
	// Source names the rule that produced Term.
	Source string
	// Candidates is the size of the filtered set before the reversion rule.
	Candidates int
	Outcome    Outcome
	// Items is the pass output: the adopted set, or the input on revert/skip.
	Items []catalog.Item
}

// Contributes reports whether the pass produced its own result pool.
// A reverted or skipped filter pass only repeats its input.
func (p Pass) Contributes() bool {
	if p.Stage == Pass1Broad {
		return len(p.Items) > 0
	}
	return p.Outcome == Adopted
}

// Broad wraps the Pass 1 fetch result.
func Broad(items []catalog.Item) Pass {
	items = catalog.Dedupe(items)
	outcome := Adopted
	if len(items) == 0 {
		outcome = Skipped
	}
	return Pass{Stage: Pass1Broad, Candidates: len(items), Outcome: outcome, Items: items}
}

// Tighten is the input -> candidate -> adopted transition shared by the filter
// passes. Each non-empty term is tried in order as a case-insensitive title
// substring; the first producing a non-empty candidate set is adopted. When
// none does, the input is kept unchanged, so a pass never loses results.
func Tighten(stage Stage, source string, input []catalog.Item, terms ...string) Pass {
	p := Pass{Stage: stage, Source: source, Outcome: Skipped, Items: input}
	if len(input) == 0 {
		return p
	}

	for _, term := range terms {
		if term == "" {
			continue
		}
		candidates := filterTitle(input, term)
		if p.Term == "" {
			p.Term = term
			p.Candidates = len(candidates)
			p.Outcome = Reverted
		}
		if len(candidates) > 0 {
			p.Term = term
			p.Candidates = len(candidates)
			p.Outcome = Adopted
			p.Items = candidates
			return p
		}
	}
	return p
}

// Skip records a pass that had nothing to filter by.
func Skip(stage Stage, input []catalog.Item) Pass {
	return Pass{Stage: stage, Outcome: Skipped, Items: input}
}

func filterTitle(items []catalog.Item, term string) []catalog.Item {
	out := make([]catalog.Item, 0)
	for _, it := range items {
		if it.TitleContains(term) {
			out = append(out, it)
		}
	}
	return out
}
