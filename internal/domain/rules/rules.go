// Package rules holds every heuristic word list the match cascade consults.
//
// The lists are grouped in one Set so the cascade's decision order can be audited
// and tested without touching the code that calls external APIs. Override values
// come from the "rules" section of the service config; an empty override keeps the
// built-in default.
package rules

import "strings"

// Set is the complete rule table used by query normalization and caption signal extraction.
type Set struct {
	// GenericDesigns are design labels too broad to narrow a result set.
	GenericDesigns []string
	// ColorPalette lists non-standard colors, scanned for in captions.
	ColorPalette []string
	// StandardColors are metal colors already encoded in the broad title search.
	StandardColors []string
	// InscriptionCues introduce quoted engraved text ("engraved with \"MOM\"").
	InscriptionCues []string
	// UnquotedInscriptionCues introduce unquoted engraved text ("engraved mom").
	UnquotedInscriptionCues []string
	// GenericInscriptionNouns are rejected as unquoted inscriptions.
	GenericInscriptionNouns []string
	// StopWordOnly rejects a quoted inscription consisting only of one of these words.
	StopWordOnly []string
	// StopWords are always sent to the keyword suggester as already used.
	StopWords []string
	// GenericFallbackWords are rejected when returned by the keyword suggester.
	GenericFallbackWords []string
	// PriorityCategories are preferred over other secondary categories.
	PriorityCategories []string
	// FixedPhrases map a caption phrase to its canonical catalog term.
	FixedPhrases map[string]string
	// MaterialAliases rewrite material phrases before title search.
	MaterialAliases map[string]string
	// TypeAliases map a jewelry type to the catalog facet searched instead.
	TypeAliases map[string]string
	// CompanionTypes add a second catalog facet searched alongside a type.
	CompanionTypes map[string]string
}

// Default returns the built-in rule table.
func Default() Set {
	return Set{
		GenericDesigns: []string{
			"engraved", "text", "personalized", "abstract", "metal",
			"geometric", "pattern", "solitaire",
		},
		ColorPalette: []string{
			"red", "blue", "green", "black", "purple", "pink", "orange", "brown", "gray",
		},
		StandardColors:          []string{"gold", "silver", "rose"},
		InscriptionCues:         []string{"inscribed", "engraved", "words", "word", "text"},
		UnquotedInscriptionCues: []string{"inscribed", "engraved"},
		GenericInscriptionNouns: []string{
			"text", "words", "detail", "design", "pattern", "with", "on", "style",
		},
		StopWordOnly: []string{"the", "a", "is", "of", "us", "me"},
		StopWords: []string{
			"a", "the", "is", "with", "set", "image", "background", "features",
			"center", "shaped", "pendant", "ring", "metal", "color",
		},
		GenericFallbackWords: []string{"central", "main", "small", "large", "intricate", "detailed"},
		PriorityCategories:   []string{"diamond", "pearl", "gemstone", "cz", "cubic zirconia"},
		FixedPhrases:         map[string]string{"saint christopher": "st. christopher"},
		MaterialAliases:      map[string]string{"sterling silver": "silver"},
		TypeAliases:          map[string]string{"charms": "pendants"},
		CompanionTypes:       map[string]string{"pendants": "necklaces"},
	}
}

// Merge returns s with every non-empty field of override replacing the default.
func (s Set) Merge(override Set) Set {
	out := s
	pickList(&out.GenericDesigns, override.GenericDesigns)
	pickList(&out.ColorPalette, override.ColorPalette)
	pickList(&out.StandardColors, override.StandardColors)
	pickList(&out.InscriptionCues, override.InscriptionCues)
	pickList(&out.UnquotedInscriptionCues, override.UnquotedInscriptionCues)
	pickList(&out.GenericInscriptionNouns, override.GenericInscriptionNouns)
	pickList(&out.StopWordOnly, override.StopWordOnly)
	pickList(&out.StopWords, override.StopWords)
	pickList(&out.GenericFallbackWords, override.GenericFallbackWords)
	pickList(&out.PriorityCategories, override.PriorityCategories)
	pickMap(&out.FixedPhrases, override.FixedPhrases)
	pickMap(&out.MaterialAliases, override.MaterialAliases)
	pickMap(&out.TypeAliases, override.TypeAliases)
	pickMap(&out.CompanionTypes, override.CompanionTypes)
	return out
}

// IsGenericDesign reports whether term is in GenericDesigns.
func (s Set) IsGenericDesign(term string) bool { return contains(s.GenericDesigns, term) }

// IsStandardColor reports whether color is one of the StandardColors.
func (s Set) IsStandardColor(color string) bool { return contains(s.StandardColors, color) }

// IsStopWordOnly reports whether term is a bare stop word.
func (s Set) IsStopWordOnly(term string) bool { return contains(s.StopWordOnly, term) }

// IsGenericInscriptionNoun reports whether term is a generic noun following "engraved".
func (s Set) IsGenericInscriptionNoun(term string) bool {
	return contains(s.GenericInscriptionNouns, term)
}

// IsGenericFallbackWord reports whether term is too vague to accept from the keyword suggester.
func (s Set) IsGenericFallbackWord(term string) bool {
	return contains(s.GenericFallbackWords, term)
}

// IsPriorityCategory reports whether category is preferred for refinement.
func (s Set) IsPriorityCategory(category string) bool {
	return contains(s.PriorityCategories, category)
}

func contains(list []string, term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	for _, v := range list {
		if strings.ToLower(v) == term {
			return true
		}
	}
	return false
}

func pickList(dst *[]string, src []string) {
	if len(src) > 0 {
		*dst = src
	}
}

func pickMap(dst *map[string]string, src map[string]string) {
	if len(src) > 0 {
		*dst = src
	}
}
