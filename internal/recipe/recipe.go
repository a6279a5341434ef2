// Package recipe holds the recipe record produced by every extraction layer
// and the provenance tags attached to it.
package recipe

import (
	"slices"
	"strings"
)

// Platform is the content-source category of a URL.
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformWebsite   Platform = "website"
)

// IsVideo reports whether the platform is a short-form video host.
func (p Platform) IsVideo() bool {
	return p == PlatformYouTube || p == PlatformTikTok || p == PlatformInstagram
}

// DisplayName returns the human-readable platform name used in error messages.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformYouTube:
		return "YouTube"
	case PlatformTikTok:
		return "TikTok"
	case PlatformInstagram:
		return "Instagram"
	default:
		return "website"
	}
}

// Method records which layer produced the final recipe.
type Method string

const (
	MethodCache         Method = "cache"
	MethodDescription   Method = "description"
	MethodComment       Method = "comment"
	MethodMultimedia    Method = "multimedia"
	MethodAuthorWebsite Method = "author_website"

	// Website layers
	MethodSchema      Method = "schema"
	MethodPlugin      Method = "plugin"
	MethodSiteScraper Method = "site_scraper"
	MethodHeuristic   Method = "heuristic"
	MethodAIText      Method = "ai_text"
)

const (
	DefaultTitle    = "Untitled Recipe"
	DefaultLanguage = "en"
)

// Recipe is the unit of value produced by the pipeline.
type Recipe struct {
	Title            string   `json:"title"`
	Ingredients      []string `json:"ingredients"`
	Steps            []string `json:"steps"`
	SourceURL        string   `json:"sourceUrl"`
	Platform         Platform `json:"platform"`
	Language         string   `json:"language"`
	ThumbnailURL     string   `json:"thumbnailUrl,omitempty"`
	Author           string   `json:"author,omitempty"`
	AuthorWebsiteURL string   `json:"authorWebsiteUrl,omitempty"`
}

// HasContent reports whether the recipe carries ingredients or steps.
func (r *Recipe) HasContent() bool {
	return r != nil && (len(r.Ingredients) > 0 || len(r.Steps) > 0)
}

// MeetsThreshold reports whether the recipe has a title and at least the given
// number of ingredients and steps.
func (r *Recipe) MeetsThreshold(minIngredients, minSteps int) bool {
	if r == nil || strings.TrimSpace(r.Title) == "" {
		return false
	}
	return len(r.Ingredients) >= minIngredients && len(r.Steps) >= minSteps
}

// FillAuthor sets the author when the extractor did not report one.
func (r *Recipe) FillAuthor(fallback string) {
	if r != nil && r.Author == "" {
		r.Author = fallback
	}
}

// Clone returns a deep copy so callers never share slices across requests.
func (r *Recipe) Clone() *Recipe {
	if r == nil {
		return nil
	}
	c := *r
	c.Ingredients = slices.Clone(r.Ingredients)
	c.Steps = slices.Clone(r.Steps)
	return &c
}
