package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain", "Creamy Tuscan Chicken", "Creamy Tuscan Chicken"},
		{"emoji", "🔥 Spicy Ramen 🍜✨", "Spicy Ramen"},
		{"emoji with joiner", "Family dinner 👨‍👩‍👧", "Family dinner"},
		{"hashtags", "Easy pasta #foodtok #dinner", "Easy pasta"},
		{"recipe on domain", "Lasagna - full recipe on archersfood.com", "Lasagna"},
		{"recipes at", "Banana bread | recipes at my blog", "Banana bread"},
		{"recipe is in", "Best cookies! recipe is in bio", "Best cookies"},
		{"trailing domain", "Garlic butter steak www.chefsite.co.uk", "Garlic butter steak"},
		{"trailing url with path", "Tacos: https://tacos.com/al-pastor", "Tacos"},
		{"keeps inner words", "Recipe for onion soup", "Recipe for onion soup"},
		{"only noise", "🍝 #pasta", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.title))
		})
	}
}

func TestWithAuthorWebsite(t *testing.T) {
	r := &recipe.Recipe{Ingredients: []string{"1 egg"}}
	withAuthorWebsite(r, "https://archersfood.com")

	assert.Equal(t, "https://archersfood.com", r.AuthorWebsiteURL)
	assert.Equal(t, []string{"1 egg", "Full recipe on the creator's website: https://archersfood.com"}, r.Ingredients)
}
