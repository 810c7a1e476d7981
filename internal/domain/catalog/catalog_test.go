package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/jewelmatch/internal/domain"
)

func TestItem_UnmarshalKeepsRecord(t *testing.T) {
	data := []byte(`{"id":"A1","jew_title":"Silver Heart Pendant","jew_desc":"polished","price":42.5}`)

	var it Item
	require.NoError(t, json.Unmarshal(data, &it))
	assert.Equal(t, "A1", it.ID())
	assert.Equal(t, "Silver Heart Pendant", it.Title())
	assert.Equal(t, "polished", it.Description())

	out, err := json.Marshal(it)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(out))
}

func TestItem_NumericAndMissingFields(t *testing.T) {
	var items []Item
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1042,"jew_title":null},{"sku":"x"}]`), &items))
	require.Len(t, items, 2)

	assert.Equal(t, "1042", items[0].ID())
	assert.Equal(t, "", items[0].Title())
	assert.Equal(t, "", items[1].ID())
}

func TestItem_BadID(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{"id":true}`), &it)
	require.Error(t, err)
}

func TestItem_MarshalWithoutRecord(t *testing.T) {
	out, err := json.Marshal(NewItem("7", "Gold Ring", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","jew_title":"Gold Ring","jew_desc":""}`, string(out))
}

func TestItem_TitleContains(t *testing.T) {
	it := NewItem("1", "Sterling Silver HEART Locket", "")
	assert.True(t, it.TitleContains("heart"))
	assert.True(t, it.TitleContains(" Silver heart "))
	assert.False(t, it.TitleContains("diamond"))
	assert.False(t, it.TitleContains(""))
	assert.False(t, NewItem("2", "", "heart").TitleContains("heart"))
}

func TestDedupe(t *testing.T) {
	items := []Item{
		NewItem("1", "a", ""),
		NewItem("2", "b", ""),
		NewItem("1", "a-dup", ""),
		NewItem("", "no id", ""),
		NewItem("", "no id", ""),
		NewItem("", "other", ""),
	}
	got := Dedupe(items)
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].Title())
	assert.Equal(t, "b", got[1].Title())
	assert.Equal(t, "no id", got[2].Title())
	assert.Equal(t, "other", got[3].Title())
}

func TestCriteria_Values(t *testing.T) {
	c := Criteria{Offset: 500, Limit: 500, Title: "Silver", Style: []string{"Heart", "Diamond"}, Type: "Pendants"}
	v := c.Values()
	assert.Equal(t, "500", v.Get("offset"))
	assert.Equal(t, "500", v.Get("limit"))
	assert.Equal(t, "Silver", v.Get("title"))
	assert.Equal(t, []string{"Heart", "Diamond"}, v["style"])
	assert.Equal(t, "Pendants", v.Get("type"))

	c.Type = ""
	_, hasType := c.Values()["type"]
	assert.False(t, hasType)
}

func TestCriteria_Page(t *testing.T) {
	base := Criteria{Title: "Silver", Style: []string{"Heart"}}
	p := base.Page(1000, 250)
	p.Style[0] = "changed"

	assert.Equal(t, 1000, p.Offset)
	assert.Equal(t, 250, p.Limit)
	assert.Equal(t, "Heart", base.Style[0])
}

func TestCriteria_Validate(t *testing.T) {
	ok := Criteria{Offset: 0, Limit: 10, Title: "Gold", Type: "Rings"}
	require.NoError(t, ok.Validate())

	tests := []Criteria{
		{Offset: -1, Limit: 10},
		{Offset: 0, Limit: 0},
		{Offset: 0, Limit: 10, Type: "Brooches"},
		{Offset: 0, Limit: 10, Style: []string{""}},
	}
	for _, c := range tests {
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrInvalidCriteria))
	}
}
