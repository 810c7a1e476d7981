package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kailas-cloud/jewelmatch/internal/domain/rules"
)

func newDetector() *Detector { return NewDetector(rules.Default()) }

func TestColor(t *testing.T) {
	d := newDetector()
	tests := []struct {
		name     string
		caption  string
		excluded Set
		want     string
	}{
		{"first palette color", "A blue enamel pendant engraved with \"HOPE\"", nil, "blue"},
		{"standard colors ignored", "A silver and rose gold heart pendant", nil, ""},
		{"caption order wins", "A green stone set in a red enamel band", nil, "green"},
		{"excluded skipped", "A green stone set in a red enamel band", NewSet("green"), "red"},
		{"word boundary", "A covered locket inscribed with a date", nil, ""},
		{"hyphenated", "A blue-green opal ring", NewSet("blue"), "green"},
		{"no color", "A silver heart-shaped pendant with a central diamond", nil, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Color(tc.caption, tc.excluded))
		})
	}
}

func TestInscription(t *testing.T) {
	d := newDetector()
	tests := []struct {
		name    string
		caption string
		want    string
	}{
		{"quoted truncated to three words", `Sterling silver pendant engraved with "FOREVER YOURS MOM"`, "forever yours mom"},
		{"quoted longer phrase", `Gold disc engraved with the words "I love you to the moon"`, "i love you"},
		{"intervening words", `A medal inscribed with a design of angels and the text 'guardian angel'`, "guardian angel"},
		{"single quotes", `Bar necklace with the word 'MAMA' on it`, "mama"},
		{"curly quotes", "Heart locket engraved with “Love”", "love"},
		{"stop word only", `Silver ring engraved with "the"`, ""},
		{"initial", "Gold pendant shaped as the initial P with diamonds", "initial p"},
		{"initial needs single letter", "Initial letter pendant in gold", ""},
		{"fixed phrase", "Round medal showing Saint Christopher carrying a child", "st. christopher"},
		{"unquoted after engraved", "Silver tag engraved mom in script", "mom in"},
		{"generic noun rejected", "Band engraved pattern", ""},
		{"generic lead word kept in two-word capture", "A pendant engraved design work on back", "design work"},
		{"generic single noun rejected", "Cuff inscribed text", ""},
		{"nothing", "A silver heart-shaped pendant with a central diamond", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Inscription(tc.caption))
		})
	}
}

func TestSecondaryCategory(t *testing.T) {
	d := newDetector()
	tests := []struct {
		name     string
		cats     []string
		excluded Set
		want     string
	}{
		{"skips pass two term", []string{"heart", "diamond"}, NewSet("heart"), "diamond"},
		{"priority category wins", []string{"heart", "floral", "pearl"}, NewSet("heart"), "pearl"},
		{"first remaining", []string{"heart", "floral", "leaf"}, NewSet("heart"), "floral"},
		{"generic skipped", []string{"engraved", "personalized"}, nil, ""},
		{"all excluded", []string{"moon"}, NewSet("moon"), ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.SecondaryCategory(tc.cats, tc.excluded))
		})
	}
}

func TestCoreInscription(t *testing.T) {
	assert.Equal(t, "guardian angel", CoreInscription("our guardian angel"))
	assert.Equal(t, "", CoreInscription("mama"))
	assert.Equal(t, "", CoreInscription(""))
}

func TestSet(t *testing.T) {
	s := NewSet(" Heart ", "", "DIAMOND")
	assert.True(t, s.Has("heart"))
	assert.True(t, s.Has("Diamond"))
	assert.False(t, s.Has(""))
	assert.Equal(t, []string{"diamond", "heart"}, s.Sorted())

	u := s.Union(NewSet("moon"))
	assert.Len(t, u, 3)
	assert.Len(t, s, 2)

	var empty Set
	assert.False(t, empty.Has("x"))
}

func TestSignal_IsNone(t *testing.T) {
	assert.True(t, None.IsNone())
	assert.False(t, Signal{Term: "blue", Source: SourceColor}.IsNone())
}
