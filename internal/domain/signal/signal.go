// Package signal pulls secondary search terms out of a free-text caption:
// non-standard colors, engraved inscriptions and secondary category tags.
package signal

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/jewelmatch/internal/domain/rules"
)

// Source identifies which rule produced a term.
type Source string

// Signal sources, in priority order.
const (
	SourceColor             Source = "color"
	SourceInscription       Source = "inscription"
	SourceSecondaryCategory Source = "secondary_category"
	SourceAIFallback        Source = "ai_fallback"
	SourceNone              Source = "none"
)

// Signal is a discriminating term and the rule that produced it.
type Signal struct {
	Term   string
	Source Source
}

// None is the empty signal.
var None = Signal{Source: SourceNone}

// IsNone reports whether no term was found.
func (s Signal) IsNone() bool { return s.Term == "" }

// MaxInscriptionWords caps the length of an extracted inscription.
const MaxInscriptionWords = 3

const quoteChars = `"'“”‘’`

var (
	wordRe    = regexp.MustCompile(`[a-z]+`)
	initialRe = regexp.MustCompile(`\binitial\s+([a-z])\b`)
)

// Detector applies the deterministic caption rules of a rule set.
type Detector struct {
	rules     rules.Set
	quotedRe  *regexp.Regexp
	unquoteRe *regexp.Regexp
	phrases   []string
}

// NewDetector compiles the inscription patterns of rs.
func NewDetector(rs rules.Set) *Detector {
	phrases := make([]string, 0, len(rs.FixedPhrases))
	for p := range rs.FixedPhrases {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)

	return &Detector{
		rules: rs,
		// Non-greedy: the first quote after a cue, allowing intervening words.
		quotedRe: regexp.MustCompile(`(?:` + alternation(rs.InscriptionCues) + `)[\s\w]*?[` +
			quoteChars + `]([^` + quoteChars + `]+)[` + quoteChars + `]`),
		unquoteRe: regexp.MustCompile(`(?:` + alternation(rs.UnquotedInscriptionCues) +
			`)\s+([a-z]+(?:\s+[a-z]+)?)`),
		phrases: phrases,
	}
}

// Rules returns the rule set the detector was built from.
func (d *Detector) Rules() rules.Set { return d.rules }

// Color returns the first non-standard palette color mentioned in caption
// that is not in excluded.
func (d *Detector) Color(caption string, excluded Set) string {
	for _, w := range wordRe.FindAllString(strings.ToLower(caption), -1) {
		if d.rules.IsStandardColor(w) || excluded.Has(w) {
			continue
		}
		for _, c := range d.rules.ColorPalette {
			if w == strings.ToLower(c) {
				return w
			}
		}
	}
	return ""
}

// Inscription extracts engraved text from caption. Quoted text after a cue wins,
// then "initial X", then fixed phrases, then one or two unquoted words after
// "engraved"/"inscribed". Returns "" when nothing specific is found.
func (d *Detector) Inscription(caption string) string {
	lower := strings.ToLower(caption)

	if m := d.quotedRe.FindStringSubmatch(lower); m != nil {
		words := strings.Fields(m[1])
		if len(words) > MaxInscriptionWords {
			words = words[:MaxInscriptionWords]
		}
		term := strings.Join(words, " ")
		if term == "" || d.rules.IsStopWordOnly(term) {
			return ""
		}
		return term
	}

	if m := initialRe.FindStringSubmatch(lower); m != nil {
		return "initial " + m[1]
	}

	for _, p := range d.phrases {
		if strings.Contains(lower, strings.ToLower(p)) {
			return d.rules.FixedPhrases[p]
		}
	}

	if m := d.unquoteRe.FindStringSubmatch(lower); m != nil {
		// Only a capture that is itself a generic noun is rejected; "design work"
		// survives even though "design" alone would not.
		if term := strings.TrimSpace(m[1]); !d.rules.IsGenericInscriptionNoun(term) {
			return term
		}
	}
	return ""
}

// SecondaryCategory picks a category not yet used and not generic. Priority
// categories (diamond, pearl, ...) win over the rest; otherwise the first remaining.
func (d *Detector) SecondaryCategory(categories []string, excluded Set) string {
	var first string
	for _, c := range categories {
		if c == "" || excluded.Has(c) || d.rules.IsGenericDesign(c) {
			continue
		}
		if d.rules.IsPriorityCategory(c) {
			return c
		}
		if first == "" {
			first = c
		}
	}
	return first
}

// CoreInscription drops the leading word of a multi-word inscription
// ("our guardian angel" -> "guardian angel"). Returns "" for single words.
func CoreInscription(term string) string {
	words := strings.Fields(term)
	if len(words) < 2 {
		return ""
	}
	return strings.Join(words[1:], " ")
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(strings.ToLower(w)); w != "" {
			quoted = append(quoted, regexp.QuoteMeta(w))
		}
	}
	// Longest first so "words" is preferred over "word".
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })
	return strings.Join(quoted, "|")
}
