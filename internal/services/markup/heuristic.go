package markup

import (
	"sort"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/validation"
)

// Heuristic results are less trustworthy, so the ingredient gate is higher.
const (
	HeuristicMinIngredients = 3
	HeuristicMinSteps       = 2

	maxHeuristicIngredients = 20
	maxHeuristicSteps       = 30
)

var titleSelectors = []string{
	`h1`,
	`h1.recipe-title`,
	`h1[class*="recipe"]`,
	`h1[class*="Recipe"]`,
	`.recipe-title`,
	`[class*="recipe-title"]`,
	`[class*="Recipe-title"]`,
	`h2.recipe-title`,
	`h2[class*="recipe"]`,
}

var ingredientSelectors = []string{
	`.ingredients li`,
	`[class*="ingredient"] li`,
	`[class*="Ingredient"] li`,
	`#ingredients li`,
	`ul.ingredients li`,
	`.recipe-ingredients li`,
	`[id*="ingredient"] li`,
	`.ingredient-list li`,
	`section[class*="ingredient"] li`,
	`div[class*="ingredient"] li`,
}

var instructionSelectors = []string{
	`.instructions li`,
	`.directions li`,
	`.steps li`,
	`[class*="instruction"] li`,
	`[class*="Instruction"] li`,
	`[class*="direction"] li`,
	`[class*="Direction"] li`,
	`[class*="step"] li`,
	`#instructions li`,
	`#directions li`,
	`ul.instructions li`,
	`ol.instructions li`,
	`.recipe-instructions li`,
	`.recipe-directions li`,
	`[id*="instruction"] li`,
	`[id*="direction"] li`,
	`section[class*="instruction"] li`,
	`section[class*="direction"] li`,
	`div[class*="instruction"] li`,
	`div[class*="direction"] li`,
}

// HeuristicExtractor guesses a recipe from common class and id naming when
// a page carries no structured markup.
type HeuristicExtractor struct{}

// NewHeuristicExtractor creates a new heuristic DOM extractor
func NewHeuristicExtractor() *HeuristicExtractor {
	return &HeuristicExtractor{}
}

// Extract applies the title, ingredient and instruction selector lists to
// the whole document.
func (e *HeuristicExtractor) Extract(doc *goquery.Document, sourceURL string) *recipe.Recipe {
	title := heuristicTitle(doc)
	if title == "" {
		return nil
	}

	ingredients := heuristicIngredients(doc)
	if len(ingredients) < HeuristicMinIngredients {
		return nil
	}

	steps := heuristicSteps(doc)
	r := newWebsiteRecipe(title, ingredients, steps, sourceURL, ExtractThumbnail(doc))
	if !r.MeetsThreshold(HeuristicMinIngredients, HeuristicMinSteps) {
		return nil
	}
	return r
}

func heuristicTitle(doc *goquery.Document) string {
	for _, sel := range titleSelectors {
		text := selectionText(doc.Find(sel).First())
		if n := utf8.RuneCountInString(text); n > 3 && n < 200 {
			return text
		}
	}
	return ""
}

// heuristicIngredients accumulates valid items across selectors until enough
// are found, then orders them by where they first appear in the page.
func heuristicIngredients(doc *goquery.Document) []string {
	order := documentOrder(doc)
	firstSeen := make(map[string]int)

	for _, sel := range ingredientSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := selectionText(s)
			if !validation.IsValidIngredient(text) {
				return
			}
			pos := order[s.Get(0)]
			if prev, ok := firstSeen[text]; !ok || pos < prev {
				firstSeen[text] = pos
			}
		})
		if len(firstSeen) >= HeuristicMinIngredients {
			break
		}
	}

	ingredients := make([]string, 0, len(firstSeen))
	for text := range firstSeen {
		ingredients = append(ingredients, text)
	}
	sort.Slice(ingredients, func(i, j int) bool {
		pi, pj := firstSeen[ingredients[i]], firstSeen[ingredients[j]]
		if pi != pj {
			return pi < pj
		}
		return ingredients[i] < ingredients[j]
	})

	if len(ingredients) > maxHeuristicIngredients {
		ingredients = ingredients[:maxHeuristicIngredients]
	}
	return ingredients
}

func heuristicSteps(doc *goquery.Document) []string {
	var steps []string
	seen := make(map[string]bool)

	for _, sel := range instructionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			text := selectionText(s)
			if seen[text] || !validation.IsValidInstruction(text) {
				return
			}
			seen[text] = true
			steps = append(steps, text)
		})
		if len(steps) >= HeuristicMinSteps {
			break
		}
	}

	if len(steps) > maxHeuristicSteps {
		steps = steps[:maxHeuristicSteps]
	}
	return steps
}

// documentOrder numbers every element in pre-order so positions can be
// compared without searching the tree again.
func documentOrder(doc *goquery.Document) map[*html.Node]int {
	order := make(map[*html.Node]int)
	next := 0

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			order[n] = next
			next++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	return order
}
