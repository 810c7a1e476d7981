package jewelry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"Rings", Rings},
		{"rings", Rings},
		{"ring", Rings},
		{"Earrings", Earrings},
		{"studs", Earrings},
		{"hoop", Earrings},
		{"Pendants", Pendants},
		{"pendant", Pendants},
		{"bangle", Bracelets},
		{"Necklaces", Necklaces},
		{"chain", Necklaces},
		{"Charms", Charms},
		{"charm", Charms},
		{"", Pendants},
		{"brooch", Pendants},
		{"  NECKLACES ", Necklaces},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := ParseType(tc.in)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.IsValid())
		})
	}
}

func TestType_IsValid(t *testing.T) {
	assert.True(t, Charms.IsValid())
	assert.False(t, Type("Brooches").IsValid())
	assert.False(t, Type("").IsValid())
}

func TestNewQuery_Normalizes(t *testing.T) {
	q, err := NewQuery("pendant", " Sterling Silver ", " Heart ",
		[]string{"Heart", "heart", " ", "Diamond", "engraved", "floral"}, "Yellow Gold")
	require.NoError(t, err)

	assert.Equal(t, Pendants, q.Type())
	assert.Equal(t, "Sterling Silver", q.Material())
	assert.Equal(t, "heart", q.Design())
	assert.Equal(t, []string{"heart", "diamond", "engraved"}, q.Categories())
}

func TestNewQuery_DefaultMaterial(t *testing.T) {
	q, err := NewQuery("", "", "", nil, "Sterling Silver")
	require.NoError(t, err)
	assert.Equal(t, "Sterling Silver", q.Material())
	assert.Equal(t, Pendants, q.Type())
	assert.Empty(t, q.Categories())
}

func TestNewQuery_MissingMaterial(t *testing.T) {
	_, err := NewQuery("Rings", "", "band", nil, "")
	require.Error(t, err)
}

func TestQuery_CategoriesIsCopy(t *testing.T) {
	q, err := NewQuery("Rings", "gold", "", []string{"knot"}, "")
	require.NoError(t, err)

	cats := q.Categories()
	cats[0] = "mutated"
	assert.Equal(t, []string{"knot"}, q.Categories())
}
