package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wprmPage = `<html><body>
<div class="wprm-recipe-container"><div class="wprm-recipe">
  <h2 class="wprm-recipe-name">Banana Bread</h2>
  <div class="wprm-recipe-image"><img src="/relative.jpg" data-src="https://cdn.site.com/bread.jpg"></div>
  <ul class="wprm-recipe-ingredients">
    <li class="wprm-recipe-ingredient">3 ripe bananas</li>
    <li class="wprm-recipe-ingredient">2 cups flour</li>
    <li class="wprm-recipe-ingredient">2 cups flour</li>
  </ul>
  <ul class="wprm-recipe-instructions">
    <li class="wprm-recipe-instruction"><div class="wprm-recipe-instruction-text">Mash the bananas.</div></li>
    <li class="wprm-recipe-instruction"><div class="wprm-recipe-instruction-text">Bake for an hour.</div></li>
  </ul>
</div></div>
</body></html>`

func TestPluginExtractor_WPRM(t *testing.T) {
	e := NewPluginExtractor()
	doc := mustDoc(t, wprmPage)

	name, container := e.Detect(doc)
	assert.Equal(t, "wprm", name)
	require.NotNil(t, container)

	r := e.Extract(doc, "https://blog.site.com/banana-bread")
	require.NotNil(t, r)
	assert.Equal(t, "Banana Bread", r.Title)
	assert.Equal(t, []string{"3 ripe bananas", "2 cups flour"}, r.Ingredients)
	assert.Equal(t, []string{"Mash the bananas.", "Bake for an hour."}, r.Steps)
	assert.Equal(t, "https://cdn.site.com/bread.jpg", r.ThumbnailURL)
}

func TestPluginExtractor_Tasty(t *testing.T) {
	page := `<html><body><div class="tasty-recipes">
		<h2 class="tasty-recipes-title">Pancakes</h2>
		<div class="tasty-recipes-ingredients"><ul><li>1 cup flour</li><li>1 egg</li></ul></div>
		<div class="tasty-recipes-instructions"><ol><li>Whisk everything.</li><li>Fry in a pan.</li><li>Ok</li></ol></div>
	</div></body></html>`

	r := NewPluginExtractor().Extract(mustDoc(t, page), "https://site.com/pancakes")
	require.NotNil(t, r)
	assert.Equal(t, "Pancakes", r.Title)
	assert.Equal(t, []string{"1 cup flour", "1 egg"}, r.Ingredients)
	assert.Equal(t, []string{"Whisk everything.", "Fry in a pan."}, r.Steps)
}

func TestPluginExtractor_SingleShot(t *testing.T) {
	// The wprm card fails the gate; the tasty card further down must not be tried.
	page := `<html><body>
	<div class="wprm-recipe"><h2 class="wprm-recipe-name">Broken</h2>
		<ul><li class="wprm-recipe-ingredient">salt</li></ul></div>
	<div class="tasty-recipes">
		<h2 class="tasty-recipes-title">Pancakes</h2>
		<div class="tasty-recipes-ingredients"><ul><li>1 cup flour</li><li>1 egg</li></ul></div>
		<div class="tasty-recipes-instructions"><ol><li>Whisk everything.</li><li>Fry in a pan.</li></ol></div>
	</div></body></html>`

	assert.Nil(t, NewPluginExtractor().Extract(mustDoc(t, page), "https://site.com/mixed"))
}

func TestPluginExtractor_NoPlugin(t *testing.T) {
	e := NewPluginExtractor()
	doc := mustDoc(t, `<html><body><div class="recipe"><h2>Soup</h2></div></body></html>`)

	name, container := e.Detect(doc)
	assert.Empty(t, name)
	assert.Nil(t, container)
	assert.Nil(t, e.Extract(doc, "https://site.com/soup"))
}

func TestPluginExtractor_GenericRule(t *testing.T) {
	page := `<html><body><div class="mv-create-card">
		<h2>Chili</h2>
		<div class="mv-create-ingredients"><ul><li>1 lb beef</li><li>1 can beans</li></ul></div>
		<div class="mv-create-instructions"><ol><li>Brown the beef.</li><li>Add the beans and simmer.</li></ol></div>
	</div></body></html>`

	r := NewPluginExtractor().Extract(mustDoc(t, page), "https://site.com/chili")
	require.NotNil(t, r)
	assert.Equal(t, "Chili", r.Title)
	assert.Equal(t, []string{"1 lb beef", "1 can beans"}, r.Ingredients)
	assert.Len(t, r.Steps, 2)
}
