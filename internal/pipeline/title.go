package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

var (
	hashtagPattern      = regexp.MustCompile(`#\S+`)
	recipeOnPattern     = regexp.MustCompile(`(?i)[\s\-|:,.!]*\b(?:full\s+)?recipes?\s+(?:is\s+)?(?:in|on|at|from)\b.*$`)
	trailingURLPattern  = regexp.MustCompile(`(?i)[\s\-|:,]*(?:https?://)?(?:www\.)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}(?:/\S*)?\s*$`)
	trailingPunctuation = " -|:,.;!·•"
)

// CleanTitle turns a video caption into a recipe title: emoji, symbols and
// hashtags go, as do trailing "recipe on ..." phrases and trailing links.
func CleanTitle(title string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case unicode.In(r, unicode.So, unicode.Sk, unicode.Cs, unicode.Co, unicode.Me):
			return -1
		case r == '\u200d' || r == '\ufe0e' || r == '\ufe0f':
			return -1
		}
		return r
	}, title)

	s = hashtagPattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	for {
		prev := s
		s = recipeOnPattern.ReplaceAllString(s, "")
		s = trailingURLPattern.ReplaceAllString(s, "")
		s = strings.TrimRight(s, trailingPunctuation)
		if s == prev {
			break
		}
	}

	return strings.TrimSpace(s)
}

// authorWebsiteLine is the ingredient line pointing readers at the creator's
// site.
func authorWebsiteLine(site string) string {
	return "Full recipe on the creator's website: " + site
}

// withAuthorWebsite attaches the creator's site to a recipe.
func withAuthorWebsite(r *recipe.Recipe, site string) {
	r.AuthorWebsiteURL = site
	r.Ingredients = append(r.Ingredients, authorWebsiteLine(site))
}
