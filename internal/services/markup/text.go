// Package markup extracts recipes from fetched HTML documents: embedded
// JSON-LD, recipe-plugin containers, popular-site selector sets and generic
// DOM heuristics.
package markup

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

// Extractor is one markup-based extraction layer. A nil result means the
// layer found nothing usable.
type Extractor interface {
	Extract(doc *goquery.Document, sourceURL string) *recipe.Recipe
}

var (
	stepNumberPattern = regexp.MustCompile(`(?i)^\s*(?:step\s*)?\d+[.):\s]+`)
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
)

// CleanText decodes HTML entities, drops inline tags and collapses whitespace.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = html.UnescapeString(s)
	if strings.ContainsRune(s, '<') {
		s = tagPattern.ReplaceAllString(s, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// CleanStep is CleanText plus removal of leading numbering ("1.", "Step 2:").
func CleanStep(s string) string {
	s = html.UnescapeString(s)
	s = stepNumberPattern.ReplaceAllString(s, "")
	return CleanText(s)
}

func selectionText(s *goquery.Selection) string {
	return CleanText(s.Text())
}

// imageSource returns the first of src or data-src that is an absolute URL.
func imageSource(img *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v, ok := img.Attr(attr); ok && strings.Contains(v, "http") {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// DomainAuthor derives a display author from a URL's host: strip "www." and
// keep the label before the first dot.
func DomainAuthor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if host == "" {
		return ""
	}
	label, _, _ := strings.Cut(host, ".")
	return label
}

func newWebsiteRecipe(title string, ingredients, steps []string, sourceURL, thumbnail string) *recipe.Recipe {
	return &recipe.Recipe{
		Title:        title,
		Ingredients:  ingredients,
		Steps:        steps,
		SourceURL:    sourceURL,
		Platform:     recipe.PlatformWebsite,
		Language:     recipe.DefaultLanguage,
		ThumbnailURL: thumbnail,
	}
}
