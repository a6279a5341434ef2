package markup

import (
	"log/slog"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

// pluginRule describes how one WordPress recipe plugin lays out its card.
// Item selectors are alternatives tried in order; the first that yields any
// text wins, then the container fallback is tried.
type pluginRule struct {
	name       string
	signatures []string

	title string

	ingredients         []string
	ingredientContainer string
	ingredientItems     string

	steps         []string
	stepContainer string
	stepItems     string
	minStepLength int
	image         string
}

var genericPluginRule = pluginRule{
	title:               `h2, h3, .recipe-title, [class*="recipe-name"]`,
	ingredientContainer: `[class*="ingredients"], .ingredients-list`,
	ingredientItems:     `li, .ingredient`,
	stepContainer:       `[class*="instructions"], .instructions-list`,
	stepItems:           `li, .instruction`,
	minStepLength:       6,
	image:               `img`,
}

var pluginRules = []pluginRule{
	{
		name:       "wprm",
		signatures: []string{`.wprm-recipe`, `#wprm-recipe-container`, `[class*="wprm-recipe"]`},
		title:      `.wprm-recipe-name, h2.wprm-recipe-name, [class*="recipe-name"]`,
		ingredients: []string{
			`li.wprm-recipe-ingredient`,
			`.wprm-recipe-ingredient`,
			`.wprm-recipe-ingredient-name`,
		},
		ingredientContainer: `.wprm-recipe-ingredients-container, .wprm-recipe-ingredients`,
		ingredientItems:     `li`,
		steps: []string{
			`.wprm-recipe-instruction-text`,
			`li.wprm-recipe-instruction`,
			`[class*="recipe-instruction-text"]`,
		},
		stepContainer: `.wprm-recipe-instructions-container, .wprm-recipe-instructions`,
		stepItems:     `li`,
		minStepLength: 6,
		image:         `.wprm-recipe-image img, .wprm-recipe-image-container img, img[class*="recipe-image"]`,
	},
	{
		name:          "tasty",
		signatures:    []string{`.tasty-recipes`, `.tasty-recipe`, `[class*="tasty-recipe"]`},
		title:         `.tasty-recipes-title, h2.tasty-recipes-title, [class*="tasty-recipes-title"]`,
		ingredients:   []string{`.tasty-recipes-ingredients li, .tasty-recipes-ingredients-body li`},
		steps:         []string{`.tasty-recipes-instructions li, .tasty-recipes-instructions-body li`},
		minStepLength: 6,
		image:         `.tasty-recipes-image img, img[class*="tasty-recipes-image"]`,
	},
	withSignatures(genericPluginRule, "wp_recipe_maker", `.wp-recipe-maker`, `[class*="wp-recipe-maker"]`),
	withSignatures(genericPluginRule, "mv_create", `.mv-create-card`, `[class*="mv-create"]`),
	withSignatures(genericPluginRule, "ziplist", `.ziplist-recipe`, `.zlrecipe-container`),
}

func withSignatures(rule pluginRule, name string, signatures ...string) pluginRule {
	rule.name = name
	rule.signatures = signatures
	return rule
}

// PluginExtractor recognises recipe cards rendered by common WordPress
// recipe plugins.
type PluginExtractor struct {
	rules []pluginRule
}

// NewPluginExtractor creates a new plugin extractor with the built-in rules
func NewPluginExtractor() *PluginExtractor {
	return &PluginExtractor{rules: pluginRules}
}

// Detect returns the name of the first plugin whose signature matches and its
// container element.
func (e *PluginExtractor) Detect(doc *goquery.Document) (string, *goquery.Selection) {
	rule, container := e.detect(doc)
	if rule == nil {
		return "", nil
	}
	return rule.name, container
}

func (e *PluginExtractor) detect(doc *goquery.Document) (*pluginRule, *goquery.Selection) {
	for i := range e.rules {
		rule := &e.rules[i]
		for _, sig := range rule.signatures {
			if c := doc.Find(sig).First(); c.Length() > 0 {
				return rule, c
			}
		}
	}
	return nil, nil
}

// Extract applies the first matching plugin's rules to its container only.
// A page matches at most one plugin, so a failed gate does not fall through
// to the next signature.
func (e *PluginExtractor) Extract(doc *goquery.Document, sourceURL string) *recipe.Recipe {
	rule, container := e.detect(doc)
	if rule == nil {
		return nil
	}

	r := rule.extract(container, sourceURL)
	if r == nil {
		slog.Debug("Plugin card did not pass the gate", "plugin", rule.name, "url", sourceURL)
		return nil
	}
	slog.Debug("Plugin card extracted", "plugin", rule.name, "ingredients", len(r.Ingredients), "steps", len(r.Steps))
	return r
}

func (p *pluginRule) extract(c *goquery.Selection, sourceURL string) *recipe.Recipe {
	title := selectionText(c.Find(p.title).First())
	if title == "" {
		return nil
	}

	ingredients := firstNonEmpty(c, p.ingredients, 2)
	if len(ingredients) == 0 && p.ingredientContainer != "" {
		ingredients = collectTexts(c.Find(p.ingredientContainer).First().Find(p.ingredientItems), 1)
	}

	steps := firstNonEmpty(c, p.steps, p.minStepLength)
	if len(steps) == 0 && p.stepContainer != "" {
		steps = collectTexts(c.Find(p.stepContainer).First().Find(p.stepItems), p.minStepLength)
	}

	var thumbnail string
	c.Find(p.image).EachWithBreak(func(_ int, img *goquery.Selection) bool {
		thumbnail = imageSource(img)
		return thumbnail == ""
	})

	r := newWebsiteRecipe(title, ingredients, steps, sourceURL, thumbnail)
	if !r.MeetsThreshold(StructuredMinIngredients, StructuredMinSteps) {
		return nil
	}
	return r
}

func firstNonEmpty(c *goquery.Selection, selectors []string, minLen int) []string {
	for _, sel := range selectors {
		if texts := collectTexts(c.Find(sel), minLen); len(texts) > 0 {
			return texts
		}
	}
	return nil
}

// collectTexts returns the cleaned, de-duplicated texts of s in document
// order, skipping anything shorter than minLen runes.
func collectTexts(s *goquery.Selection, minLen int) []string {
	var out []string
	seen := make(map[string]bool)
	s.Each(func(_ int, item *goquery.Selection) {
		text := selectionText(item)
		if utf8.RuneCountInString(text) < minLen || seen[text] {
			return
		}
		seen[text] = true
		out = append(out, text)
	})
	return out
}
