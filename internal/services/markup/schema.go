package markup

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

// Structured and plugin layers require this many ingredients and steps.
const (
	StructuredMinIngredients = 2
	StructuredMinSteps       = 2
)

var (
	ingredientFields  = []string{"recipeIngredient", "recipeIngredients", "ingredients"}
	instructionFields = []string{"recipeInstructions", "instructions"}
)

// SchemaExtractor reads schema.org Recipe objects from JSON-LD script blocks.
type SchemaExtractor struct{}

// NewSchemaExtractor creates a new JSON-LD extractor
func NewSchemaExtractor() *SchemaExtractor {
	return &SchemaExtractor{}
}

// Extract returns the first Recipe found in the page's JSON-LD blocks that
// passes the structured gate.
func (e *SchemaExtractor) Extract(doc *goquery.Document, sourceURL string) *recipe.Recipe {
	var node *ldObject
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return true
		}
		data, err := decodeLD([]byte(raw))
		if err != nil {
			slog.Debug("Skipping unparseable JSON-LD block", "url", sourceURL, "error", err)
			return true
		}
		node = findRecipeNode(data)
		return node == nil
	})
	if node == nil {
		return nil
	}
	return parseRecipeNode(node, sourceURL)
}

func parseRecipeNode(node *ldObject, sourceURL string) *recipe.Recipe {
	title := CleanText(node.str("name"))
	if title == "" {
		title = CleanText(node.str("headline"))
	}

	r := newWebsiteRecipe(title, ldIngredients(node), ldInstructions(node), sourceURL, ldImage(node))
	r.Language = ldLanguage(node)
	r.Author = ldAuthor(node)

	if !r.MeetsThreshold(StructuredMinIngredients, StructuredMinSteps) {
		return nil
	}
	return r
}

func ldIngredients(node *ldObject) []string {
	for _, field := range ingredientFields {
		raw, ok := node.get(field)
		if !ok {
			continue
		}

		var out []string
		switch t := raw.(type) {
		case string:
			if s := CleanText(t); s != "" {
				out = append(out, s)
			}
		case []any:
			for _, item := range t {
				if s := ingredientItem(item); s != "" {
					out = append(out, s)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func ingredientItem(item any) string {
	switch t := item.(type) {
	case string:
		return CleanText(t)
	case *ldObject:
		if s := t.str("text"); s != "" {
			return CleanText(s)
		}
		return CleanText(t.str("name"))
	}
	return ""
}

func ldInstructions(node *ldObject) []string {
	for _, field := range instructionFields {
		raw, ok := node.get(field)
		if !ok {
			continue
		}
		if steps := parseInstructions(raw); len(steps) > 0 {
			return steps
		}
	}
	return nil
}

// parseInstructions accepts a newline-separated string, a list of strings,
// HowToStep objects, or HowToSection objects holding an itemListElement list.
func parseInstructions(raw any) []string {
	var steps []string
	switch t := raw.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if s := CleanStep(line); s != "" {
				steps = append(steps, s)
			}
		}
	case []any:
		for _, item := range t {
			steps = append(steps, parseInstructionItem(item)...)
		}
	case *ldObject:
		steps = append(steps, parseInstructionItem(t)...)
	}
	return steps
}

func parseInstructionItem(item any) []string {
	switch t := item.(type) {
	case string:
		if s := CleanStep(t); s != "" {
			return []string{s}
		}
	case *ldObject:
		if nested, ok := t.get("itemListElement"); ok {
			return parseInstructions(nested)
		}
		text := t.str("text")
		if text == "" {
			text = t.str("name")
		}
		if s := CleanStep(text); s != "" {
			return []string{s}
		}
	}
	return nil
}

func ldImage(node *ldObject) string {
	raw, _ := node.get("image")
	switch t := raw.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) == 0 {
			return ""
		}
		switch first := t[0].(type) {
		case string:
			return strings.TrimSpace(first)
		case *ldObject:
			return strings.TrimSpace(first.str("url"))
		}
	case *ldObject:
		return strings.TrimSpace(t.str("url"))
	}
	return ""
}

func ldLanguage(node *ldObject) string {
	raw, _ := node.get("inLanguage")
	switch t := raw.(type) {
	case string:
		if t != "" {
			return t
		}
	case *ldObject:
		if v := t.str("@value"); v != "" {
			return v
		}
	}
	return recipe.DefaultLanguage
}

func ldAuthor(node *ldObject) string {
	raw, _ := node.get("author")
	switch t := raw.(type) {
	case string:
		return CleanText(t)
	case *ldObject:
		return CleanText(t.str("name"))
	case []any:
		for _, item := range t {
			switch a := item.(type) {
			case string:
				if s := CleanText(a); s != "" {
					return s
				}
			case *ldObject:
				if s := CleanText(a.str("name")); s != "" {
					return s
				}
			}
		}
	}
	return ""
}
