package markup

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

func mustDoc(t *testing.T, page string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	return doc
}

func ldPage(blocks ...string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>Page</title>")
	for _, block := range blocks {
		b.WriteString(`<script type="application/ld+json">`)
		b.WriteString(block)
		b.WriteString("</script>")
	}
	b.WriteString("</head><body></body></html>")
	return b.String()
}

func TestSchemaExtractor_GraphWithSections(t *testing.T) {
	page := ldPage(`{
		"@context": "https://schema.org",
		"@graph": [
			{"@type": "WebPage", "name": "Not this"},
			{
				"@type": ["Recipe", "NewsArticle"],
				"name": "Mac &amp; Cheese",
				"author": [{"@type": "Person", "name": "Jane Cook"}],
				"image": [{"url": "https://img.site.com/mac.jpg"}],
				"inLanguage": "fr",
				"recipeIngredient": ["200g macaroni", "100g cheddar &amp; gruyere"],
				"recipeInstructions": [
					{
						"@type": "HowToSection",
						"name": "Pasta",
						"itemListElement": [
							{"@type": "HowToStep", "text": "1. Boil the macaroni."},
							{"@type": "HowToStep", "text": "Drain well."}
						]
					},
					{"@type": "HowToStep", "name": "Step 3: Stir in the cheese."}
				]
			}
		]
	}`)

	r := NewSchemaExtractor().Extract(mustDoc(t, page), "https://site.com/mac")
	require.NotNil(t, r)

	assert.Equal(t, "Mac & Cheese", r.Title)
	assert.Equal(t, []string{"200g macaroni", "100g cheddar & gruyere"}, r.Ingredients)
	assert.Equal(t, []string{"Boil the macaroni.", "Drain well.", "Stir in the cheese."}, r.Steps)
	assert.Equal(t, "https://img.site.com/mac.jpg", r.ThumbnailURL)
	assert.Equal(t, "fr", r.Language)
	assert.Equal(t, "Jane Cook", r.Author)
	assert.Equal(t, recipe.PlatformWebsite, r.Platform)
	assert.Equal(t, "https://site.com/mac", r.SourceURL)
}

func TestSchemaExtractor_StringInstructionsAndObjectIngredients(t *testing.T) {
	page := ldPage(`{
		"@type": "Recipe",
		"headline": "Toast",
		"ingredients": [{"text": "2 slices bread"}, {"name": "butter"}],
		"recipeInstructions": "Toast the bread.\n\n2) Spread the butter."
	}`)

	r := NewSchemaExtractor().Extract(mustDoc(t, page), "https://site.com/toast")
	require.NotNil(t, r)
	assert.Equal(t, "Toast", r.Title)
	assert.Equal(t, []string{"2 slices bread", "butter"}, r.Ingredients)
	assert.Equal(t, []string{"Toast the bread.", "Spread the butter."}, r.Steps)
	assert.Equal(t, recipe.DefaultLanguage, r.Language)
}

func TestSchemaExtractor_GateRejectsSingleIngredient(t *testing.T) {
	page := ldPage(`{
		"@type": "Recipe",
		"name": "Water",
		"recipeIngredient": ["1 glass water"],
		"recipeInstructions": ["Pour the water.", "Drink it."]
	}`)

	assert.Nil(t, NewSchemaExtractor().Extract(mustDoc(t, page), "https://site.com/water"))
}

func TestSchemaExtractor_SkipsBrokenBlocks(t *testing.T) {
	page := ldPage(
		`{ this is not json`,
		`{"@type": "Organization", "name": "Site"}`,
		`[{"@type": "Recipe", "name": "Salad", "recipeIngredient": ["lettuce", "tomato"], "recipeInstructions": ["Chop everything.", "Toss with dressing."]}]`,
	)

	r := NewSchemaExtractor().Extract(mustDoc(t, page), "https://site.com/salad")
	require.NotNil(t, r)
	assert.Equal(t, "Salad", r.Title)
}

func TestSchemaExtractor_NoJSONLD(t *testing.T) {
	assert.Nil(t, NewSchemaExtractor().Extract(mustDoc(t, "<html><body><h1>Hi</h1></body></html>"), "https://site.com"))
}

func TestCleanStep(t *testing.T) {
	tests := map[string]string{
		"1. Preheat the oven":   "Preheat the oven",
		"Step 2: Mix":           "Mix",
		"3) Bake  for\n20 min":  "Bake for 20 min",
		"Whisk &amp; fold":      "Whisk & fold",
		"<b>Serve</b> warm":     "Serve warm",
		"   ":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanStep(in), in)
	}
}

func TestDomainAuthor(t *testing.T) {
	assert.Equal(t, "archersfood", DomainAuthor("https://www.archersfood.com/pasta"))
	assert.Equal(t, "cooking", DomainAuthor("https://cooking.nytimes.com/recipes/1"))
	assert.Equal(t, "", DomainAuthor("::not a url"))
}
