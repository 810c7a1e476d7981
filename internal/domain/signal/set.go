package signal

import (
	"sort"
	"strings"
)

// Set is a case-insensitive set of terms already used by the cascade.
type Set map[string]struct{}

// NewSet builds a set from terms, skipping blanks.
func NewSet(terms ...string) Set {
	s := make(Set, len(terms))
	s.Add(terms...)
	return s
}

// Add inserts terms, lower-cased and trimmed.
func (s Set) Add(terms ...string) {
	for _, t := range terms {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			s[t] = struct{}{}
		}
	}
}

// Has reports whether term is in the set. A nil set contains nothing.
func (s Set) Has(term string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(term))]
	return ok
}

// Union returns a new set holding the terms of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range other {
		out[k] = struct{}{}
	}
	return out
}

// Sorted returns the terms in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
