package jewelry

import (
	"fmt"
	"strings"
)

// Type is a catalog jewelry facet.
type Type string

// Jewelry type constants.
const (
	Rings     Type = "Rings"
	Earrings  Type = "Earrings"
	Pendants  Type = "Pendants"
	Bracelets Type = "Bracelets"
	Necklaces Type = "Necklaces"
	// Charms has no catalog facet of its own; search treats it as Pendants.
	Charms Type = "Charms"
)

// DefaultType is used whenever the type cannot be resolved.
const DefaultType = Pendants

// MaxCategories is the number of category tags kept on a Query.
const MaxCategories = 3

var allTypes = []Type{Rings, Earrings, Pendants, Bracelets, Necklaces, Charms}

// typeKeywords resolves free-form type words ("stud", "bangle") to a facet.
var typeKeywords = map[string]Type{
	"ring":     Rings,
	"band":     Rings,
	"earring":  Earrings,
	"stud":     Earrings,
	"hoop":     Earrings,
	"dangle":   Earrings,
	"pendant":  Pendants,
	"bracelet": Bracelets,
	"bangle":   Bracelets,
	"cuff":     Bracelets,
	"necklace": Necklaces,
	"chain":    Necklaces,
	"collar":   Necklaces,
	"charm":    Charms,
}

// IsValid checks if the type is one of the six supported facets.
func (t Type) IsValid() bool {
	for _, v := range allTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseType resolves a model-produced type label. Unknown or empty labels
// resolve to DefaultType, so the result is always valid.
func ParseType(s string) Type {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultType
	}
	for _, t := range allTypes {
		if strings.ToLower(string(t)) == s {
			return t
		}
	}
	singular := strings.TrimSuffix(s, "s")
	if t, ok := typeKeywords[singular]; ok {
		return t
	}
	return DefaultType
}

// Query is the structured description of the pictured item.
// It is immutable once built.
type Query struct {
	jewelryType Type
	material    string
	design      string
	categories  []string
}

// NewQuery normalizes extractor output into a Query. Material falls back to
// defaultMaterial when empty. Design and categories are lower-cased, blank and
// duplicate categories dropped, and at most MaxCategories kept.
func NewQuery(jewelryType, material, design string, categories []string, defaultMaterial string) (Query, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		material = strings.TrimSpace(defaultMaterial)
	}
	if material == "" {
		return Query{}, fmt.Errorf("material is required")
	}

	seen := make(map[string]struct{}, len(categories))
	cats := make([]string, 0, MaxCategories)
	for _, c := range categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		cats = append(cats, c)
		if len(cats) == MaxCategories {
			break
		}
	}

	return Query{
		jewelryType: ParseType(jewelryType),
		material:    material,
		design:      strings.ToLower(strings.TrimSpace(design)),
		categories:  cats,
	}, nil
}

// Type returns the jewelry facet.
func (q Query) Type() Type { return q.jewelryType }

// Material returns the material as extracted, e.g. "Sterling Silver".
func (q Query) Material() string { return q.material }

// Design returns the lower-cased primary design, possibly empty.
func (q Query) Design() string { return q.design }

// Categories returns a copy of the lower-cased category tags.
func (q Query) Categories() []string {
	out := make([]string, len(q.categories))
	copy(out, q.categories)
	return out
}

// String renders the query for logs.
func (q Query) String() string {
	return fmt.Sprintf("type=%s material=%q design=%q categories=%v",
		q.jewelryType, q.material, q.design, q.categories)
}
