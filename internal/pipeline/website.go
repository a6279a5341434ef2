package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/socialchef/recipekeeper/internal/errors"
	"github.com/socialchef/recipekeeper/internal/recipe"
	"github.com/socialchef/recipekeeper/internal/services/fetcher"
	"github.com/socialchef/recipekeeper/internal/services/markup"
	generation "github.com/socialchef/recipekeeper/internal/services/recipe"
)

const (
	maxPageText      = 50000
	defaultPageTitle = "Recipe"
)

// WebsiteLayers are the markup layers tried before the language model.
type WebsiteLayers struct {
	Schema    markup.Extractor
	Plugin    markup.Extractor
	Sites     markup.SiteScraper
	Heuristic markup.Extractor
}

// DefaultWebsiteLayers returns the built-in markup layers.
func DefaultWebsiteLayers() WebsiteLayers {
	return WebsiteLayers{
		Schema:    markup.NewSchemaExtractor(),
		Plugin:    markup.NewPluginExtractor(),
		Sites:     markup.NewSiteRegistry(),
		Heuristic: markup.NewHeuristicExtractor(),
	}
}

// WebsiteOrchestrator extracts recipes from web pages, cheapest layer first.
type WebsiteOrchestrator struct {
	pages  PageFetcher
	ai     RecipeExtractor
	layers WebsiteLayers
}

// NewWebsiteOrchestrator creates an orchestrator over the given layers.
func NewWebsiteOrchestrator(pages PageFetcher, ai RecipeExtractor, layers WebsiteLayers) *WebsiteOrchestrator {
	return &WebsiteOrchestrator{pages: pages, ai: ai, layers: layers}
}

// Extract fetches pageURL and runs schema, plugin, site, heuristic and model
// layers in that order, returning the first recipe found and the layer that
// produced it. The recipe's source URL is the page's final URL after
// redirects. A nil recipe with a nil error means no layer found anything.
func (o *WebsiteOrchestrator) Extract(ctx context.Context, pageURL string) (*recipe.Recipe, recipe.Method, error) {
	page, err := o.pages.Fetch(ctx, pageURL)
	if err != nil {
		return nil, "", fetchError(err)
	}

	doc, err := fetcher.Document(page)
	if err != nil {
		return nil, "", apperrors.NewScraperError("Could not read the page content.", "PAGE_PARSE_FAILED", err)
	}

	sourceURL := page.FinalURL
	if sourceURL == "" {
		sourceURL = pageURL
	}
	author := markup.DomainAuthor(sourceURL)

	markupLayers := []struct {
		method    recipe.Method
		extractor markup.Extractor
	}{
		{recipe.MethodSchema, o.layers.Schema},
		{recipe.MethodPlugin, o.layers.Plugin},
	}
	for _, l := range markupLayers {
		if r := o.tryMarkup(ctx, l.method, l.extractor, doc, sourceURL); r != nil {
			r.FillAuthor(author)
			return r, l.method, nil
		}
	}

	if r := o.trySites(ctx, doc, sourceURL); r != nil {
		r.FillAuthor(author)
		return r, recipe.MethodSiteScraper, nil
	}

	if r := o.tryMarkup(ctx, recipe.MethodHeuristic, o.layers.Heuristic, doc, sourceURL); r != nil {
		r.FillAuthor(author)
		return r, recipe.MethodHeuristic, nil
	}

	r, err := o.tryModel(ctx, doc, sourceURL)
	if err != nil {
		return nil, "", err
	}
	if r != nil {
		r.FillAuthor(author)
		return r, recipe.MethodAIText, nil
	}

	slog.Info("All website extraction layers failed", "url", sourceURL)
	return nil, "", nil
}

func (o *WebsiteOrchestrator) tryMarkup(ctx context.Context, method recipe.Method, e markup.Extractor, doc *goquery.Document, sourceURL string) *recipe.Recipe {
	if e == nil {
		recordLayer(ctx, string(method), recipe.PlatformWebsite, sourceURL, resultSkipped)
		return nil
	}
	r := e.Extract(doc, sourceURL)
	if r == nil {
		recordLayer(ctx, string(method), recipe.PlatformWebsite, sourceURL, resultEmpty)
		return nil
	}
	recordLayer(ctx, string(method), recipe.PlatformWebsite, sourceURL, resultFound)
	return r
}

func (o *WebsiteOrchestrator) trySites(ctx context.Context, doc *goquery.Document, sourceURL string) *recipe.Recipe {
	layer := string(recipe.MethodSiteScraper)
	if o.layers.Sites == nil {
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultSkipped)
		return nil
	}

	sr, err := o.layers.Sites.Scrape(ctx, sourceURL, doc)
	switch {
	case errors.Is(err, markup.ErrUnsupportedSite):
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultSkipped)
		return nil
	case err != nil:
		slog.Warn("Site scraper failed", "url", sourceURL, "error", err)
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultError)
		return nil
	}

	title := sr.Title
	if title == "" {
		title = markup.PageTitle(doc, "")
	}
	thumbnail := sr.Image
	if thumbnail == "" {
		thumbnail = markup.ExtractThumbnail(doc)
	}
	r := &recipe.Recipe{
		Title:        title,
		Ingredients:  sr.Ingredients,
		Steps:        sr.Instructions,
		SourceURL:    sourceURL,
		Platform:     recipe.PlatformWebsite,
		Language:     recipe.DefaultLanguage,
		ThumbnailURL: thumbnail,
	}
	if !r.MeetsThreshold(markup.StructuredMinIngredients, markup.StructuredMinSteps) {
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultEmpty)
		return nil
	}
	recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultFound)
	return r
}

func (o *WebsiteOrchestrator) tryModel(ctx context.Context, doc *goquery.Document, sourceURL string) (*recipe.Recipe, error) {
	layer := string(recipe.MethodAIText)
	text := markup.VisibleText(doc, maxPageText)
	if text == "" {
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultSkipped)
		return nil, nil
	}

	r, err := o.ai.ExtractFromText(ctx, generation.TextInput{
		Text:         text,
		Title:        markup.PageTitle(doc, defaultPageTitle),
		SourceURL:    sourceURL,
		Platform:     recipe.PlatformWebsite,
		ThumbnailURL: markup.ExtractThumbnail(doc),
	})
	if err != nil {
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultError)
		return nil, err
	}
	if !r.HasContent() {
		recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultEmpty)
		return nil, nil
	}
	recordLayer(ctx, layer, recipe.PlatformWebsite, sourceURL, resultFound)
	return r, nil
}

// fetchError maps a page fetch failure to the error shown to the caller.
// When the page cannot be fetched no layer can run, so the failure is final.
func fetchError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, fetcher.ErrBlocked) {
		return apperrors.NewAccessBlockedError(
			"The website blocked automated access to this page.",
			"WEBSITE_BLOCKED",
			"Open the page in a browser and share the recipe text, or try another link.",
			err,
		)
	}
	return apperrors.NewScraperError("Could not fetch the recipe page.", "FETCH_FAILED", err)
}
