package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/jewelmatch/internal/domain/jewelry"
	"github.com/kailas-cloud/jewelmatch/internal/domain/rules"
)

// Source records where a discriminating term came from.
type Source string

// Discriminating term sources.
const (
	SourceNone             Source = "none"
	SourcePrimaryDesign    Source = "primary_design"
	SourceSpecificCategory Source = "specific_category"
	// SourceGenericDesign is a generic design used because no better category exists.
	SourceGenericDesign Source = "generic_design_fallback"
)

// Normalized holds the search terms derived from a structured query.
type Normalized struct {
	SearchTypes          []jewelry.Type
	TitleTerm            string
	StyleTerms           []string
	DiscriminatingTerm   string
	DiscriminatingSource Source
}

// Normalize derives catalog search terms from q. It is a pure function of q and rs.
func Normalize(q jewelry.Query, rs rules.Set) Normalized {
	term, source := discriminator(q, rs)
	return Normalized{
		SearchTypes:          searchTypes(q.Type(), rs),
		TitleTerm:            titleTerm(q.Material(), rs),
		StyleTerms:           styleTerms(q.Categories()),
		DiscriminatingTerm:   term,
		DiscriminatingSource: source,
	}
}

// discriminator picks the Pass 2 term: a specific design, else the first
// specific category, else the generic design itself.
func discriminator(q jewelry.Query, rs rules.Set) (string, Source) {
	design := q.Design()
	if design != "" && !rs.IsGenericDesign(design) {
		return design, SourcePrimaryDesign
	}
	for _, c := range q.Categories() {
		if c != design && !rs.IsGenericDesign(c) {
			return c, SourceSpecificCategory
		}
	}
	if design != "" {
		return design, SourceGenericDesign
	}
	return "", SourceNone
}

// searchTypes applies type aliasing (Charms -> Pendants) and companion facets
// (Pendants also searches Necklaces). Companions key off the original type.
func searchTypes(t jewelry.Type, rs rules.Set) []jewelry.Type {
	key := strings.ToLower(string(t))

	primary := t
	if alias, ok := rs.TypeAliases[key]; ok {
		primary = jewelry.ParseType(alias)
	}
	types := []jewelry.Type{primary}

	if companion, ok := rs.CompanionTypes[key]; ok {
		c := jewelry.ParseType(companion)
		if c != primary {
			types = append(types, c)
		}
	}
	return types
}

// titleTerm maps the material to the wording catalog titles use ("Sterling Silver" -> "Silver").
func titleTerm(material string, rs rules.Set) string {
	m := strings.ToLower(strings.TrimSpace(material))
	for from, to := range rs.MaterialAliases {
		m = strings.ReplaceAll(m, strings.ToLower(from), strings.ToLower(to))
	}
	return truncate(Capitalize(strings.TrimSpace(m)), maxTitleTerm)
}

// maxTitleTerm matches the Title limit on catalog.Criteria.
const maxTitleTerm = 256

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}

func styleTerms(categories []string) []string {
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		out = append(out, Capitalize(c))
	}
	return out
}

// Capitalize upper-cases the first letter and lower-cases the rest, the form the
// catalog uses for title and style facets.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
