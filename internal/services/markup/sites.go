package markup

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrUnsupportedSite is returned when no site rule matches the page host.
var ErrUnsupportedSite = errors.New("no scraper registered for site")

// SiteRecipe is what a site-specific scraper reports.
type SiteRecipe struct {
	Title        string
	Ingredients  []string
	Instructions []string
	Image        string
}

// SiteScraper extracts recipes from pages of well-known recipe sites.
type SiteScraper interface {
	Scrape(ctx context.Context, pageURL string, doc *goquery.Document) (*SiteRecipe, error)
}

type siteRule struct {
	hosts        []string
	title        string
	ingredients  string
	instructions string
	image        string
}

var siteRules = []siteRule{
	{
		hosts:        []string{"allrecipes.com"},
		title:        `h1.article-heading, h1`,
		ingredients:  `.mm-recipes-structured-ingredients__list-item, .ingredients-item-name`,
		instructions: `.mm-recipes-steps__content li p, .recipe-directions__list--item`,
		image:        `.primary-image__image, .article-content img`,
	},
	{
		hosts:        []string{"foodnetwork.com", "foodnetwork.co.uk"},
		title:        `.o-AssetTitle__a-HeadlineText, h1`,
		ingredients:  `.o-Ingredients__a-Ingredient--CheckboxLabel, .o-Ingredients__a-Ingredient`,
		instructions: `.o-Method__m-Step`,
		image:        `.m-MediaBlock__a-Image, .o-RecipeLead img`,
	},
	{
		hosts:        []string{"bbcgoodfood.com"},
		title:        `h1.heading-1, h1`,
		ingredients:  `.recipe__ingredients li`,
		instructions: `.recipe__method-steps li`,
		image:        `.post-header__image-container img`,
	},
	{
		hosts:        []string{"seriouseats.com", "simplyrecipes.com"},
		title:        `h1.heading__title, h1`,
		ingredients:  `.structured-ingredients__list-item`,
		instructions: `.structured-project__steps li`,
		image:        `.primary-image img, figure img`,
	},
	{
		hosts:        []string{"epicurious.com", "bonappetit.com"},
		title:        `h1[data-testid="ContentHeaderHed"], h1`,
		ingredients:  `[data-testid="IngredientList"] .ingredient-description, [data-testid="IngredientList"] div div`,
		instructions: `[data-testid="InstructionsWrapper"] li p, [data-testid="InstructionsWrapper"] li`,
		image:        `[data-testid="ContentHeaderLeadAsset"] img`,
	},
	{
		hosts:        []string{"delish.com"},
		title:        `h1`,
		ingredients:  `ul.ingredient-lists li`,
		instructions: `ul.directions li, ol.directions li`,
		image:        `.recipe-lede img, figure img`,
	},
	{
		hosts:        []string{"food.com"},
		title:        `h1.svelte-1muv3s8, h1`,
		ingredients:  `ul.ingredient-list li`,
		instructions: `ul.direction-list li, ol.direction-list li`,
		image:        `.primary-image img`,
	},
	{
		hosts:        []string{"tasteofhome.com"},
		title:        `h1.recipe-title, h1`,
		ingredients:  `.recipe-ingredients__list li`,
		instructions: `.recipe-directions__list li`,
		image:        `.recipe-image-and-meta-sidebar__featured-container img`,
	},
	{
		hosts:        []string{"budgetbytes.com"},
		title:        `h1.entry-title, h1`,
		ingredients:  `.wprm-recipe-ingredient`,
		instructions: `.wprm-recipe-instruction-text`,
		image:        `.wprm-recipe-image img, .entry-content img`,
	},
	{
		hosts:        []string{"cooking.nytimes.com"},
		title:        `h1`,
		ingredients:  `[class*="ingredient_ingredient"]`,
		instructions: `[class*="preparation_step"] p`,
		image:        `[class*="recipeheaderimage"] img`,
	},
}

// SiteRegistry dispatches to a selector set by page host.
type SiteRegistry struct {
	rules []siteRule
}

// NewSiteRegistry creates a registry with the built-in site rules
func NewSiteRegistry() *SiteRegistry {
	return &SiteRegistry{rules: siteRules}
}

// Supports reports whether pageURL belongs to a registered site.
func (r *SiteRegistry) Supports(pageURL string) bool {
	return r.match(pageURL) != nil
}

// Scrape applies the matching site's selectors to the fetched document.
func (r *SiteRegistry) Scrape(ctx context.Context, pageURL string, doc *goquery.Document) (*SiteRecipe, error) {
	rule := r.match(pageURL)
	if rule == nil {
		return nil, ErrUnsupportedSite
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &SiteRecipe{
		Title:       selectionText(doc.Find(rule.title).First()),
		Ingredients: collectTexts(doc.Find(rule.ingredients), 2),
	}

	seen := make(map[string]bool)
	doc.Find(rule.instructions).Each(func(_ int, s *goquery.Selection) {
		step := CleanStep(s.Text())
		if step == "" || seen[step] {
			return
		}
		seen[step] = true
		out.Instructions = append(out.Instructions, step)
	})

	if v, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && v != "" {
		out.Image = strings.TrimSpace(v)
	} else {
		doc.Find(rule.image).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			out.Image = imageSource(img)
			return out.Image == ""
		})
	}

	return out, nil
}

func (r *SiteRegistry) match(pageURL string) *siteRule {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	for i := range r.rules {
		for _, h := range r.rules[i].hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return &r.rules[i]
			}
		}
	}
	return nil
}
