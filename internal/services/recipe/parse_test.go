package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReply(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want *Reply
	}{
		{
			name: "plain object",
			raw:  `{"title":"Pho","ingredients":["1 onion","2 star anise"],"steps":["Char the onion."],"language":"vi"}`,
			want: &Reply{Title: "Pho", Ingredients: []string{"1 onion", "2 star anise"}, Steps: []string{"Char the onion."}, Language: "vi"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"title\":\"Pho\",\"ingredients\":[\"1 onion\"],\"steps\":[]}\n```",
			want: &Reply{Title: "Pho", Ingredients: []string{"1 onion"}, Steps: []string{}},
		},
		{
			name: "bare fence and missing fields",
			raw:  "```\n{\"ingredients\":[\"salt\"]}\n```",
			want: &Reply{Ingredients: []string{"salt"}, Steps: []string{}},
		},
		{
			name: "surrounding prose",
			raw:  "Here is the recipe: {\"title\":\"Tea\",\"steps\":[\"Pour water.\"]} Enjoy!",
			want: &Reply{Title: "Tea", Ingredients: []string{}, Steps: []string{"Pour water."}},
		},
		{
			name: "object items and numbers",
			raw:  `{"title":"Bread","ingredients":[{"text":"500g flour"},{"name":"salt"},3,null,"  "],"steps":null}`,
			want: &Reply{Title: "Bread", Ingredients: []string{"500g flour", "salt", "3"}, Steps: []string{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReply(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseReply_NotARecipe(t *testing.T) {
	_, err := ParseReply(`{"error": "Not a recipe"}`)
	assert.ErrorIs(t, err, ErrNotARecipe)

	_, err = ParseReply("```json\n{\"error\": \"Not a recipe video\"}\n```")
	assert.ErrorIs(t, err, ErrNotARecipe)
}

func TestParseReply_Malformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"I could not find a recipe.",
		`{"title": "Broken"`,
		`["not", "an", "object"]`,
		`null`,
		`{"title":"X","ingredients":"one string"}`,
	} {
		_, err := ParseReply(raw)
		assert.ErrorIs(t, err, ErrMalformedReply, raw)
	}
}
