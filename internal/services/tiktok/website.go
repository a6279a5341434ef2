// Package tiktok finds the external website a TikTok creator links to, so a
// recipe that is only published there can still be extracted.
package tiktok

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/socialchef/recipekeeper/internal/services/fetcher"
)

var socialDomains = map[string]bool{
	"tiktok.com":    true,
	"instagram.com": true,
	"twitter.com":   true,
	"x.com":         true,
	"facebook.com":  true,
	"youtube.com":   true,
	"youtu.be":      true,
	"snapchat.com":  true,
	"linkedin.com":  true,
	"pinterest.com": true,
	"twitch.tv":     true,
	"reddit.com":    true,
	"discord.com":   true,
	"telegram.org":  true,
	"t.me":          true,
}

// Shorteners usually point back at social profiles.
var shortenerDomains = map[string]bool{
	"bit.ly":      true,
	"tinyurl.com": true,
	"ow.ly":       true,
	"t.co":        true,
	"goo.gl":      true,
}

var (
	domainPattern    = regexp.MustCompile(`(?:https?://)?(?:www\.)?([a-zA-Z0-9-]+\.[a-zA-Z]{2,}(?:\.[a-zA-Z]{2,})?)`)
	handlePattern    = regexp.MustCompile(`tiktok\.com/@([A-Za-z0-9._-]+)`)
	userInfoPattern  = regexp.MustCompile(`"userInfo":\s*(\{[^}]+?"nickname"[^}]+?\})`)
	nicknamePattern  = regexp.MustCompile(`"nickname":\s*"([^"]+)"`)
	signaturePattern = regexp.MustCompile(`"signature":\s*"([^"]*(?:https?://|www\.)[^"]+)"`)
	bioURLPattern    = regexp.MustCompile(`(?:https?://)?(?:www\.)?[a-zA-Z0-9-]+\.[a-zA-Z]{2,}`)
	textURLPattern   = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")
)

var bioSelectors = []string{
	`h2[data-e2e="user-bio"]`,
	`div[data-e2e="user-bio"]`,
	`div[class*="bio"]`,
	`div[class*="description"]`,
}

// PageFetcher is the part of fetcher.Fetcher the discoverer needs.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (*fetcher.Page, error)
}

// Discoverer looks for a creator's website in a caption and on their profile.
type Discoverer struct {
	pages PageFetcher
}

// NewDiscoverer creates a discoverer that loads profiles with pages.
func NewDiscoverer(pages PageFetcher) *Discoverer {
	return &Discoverer{pages: pages}
}

// Discover checks the caption first and the profile page second. It returns
// "" when neither links to an external site.
func (d *Discoverer) Discover(ctx context.Context, description, profileURL string) string {
	if site := WebsiteFromDescription(description); site != "" {
		slog.Info("Found creator website in description", "website", site)
		return site
	}
	if profileURL == "" {
		return ""
	}
	return d.WebsiteFromProfile(ctx, profileURL)
}

// WebsiteFromDescription returns the first non-social domain mentioned in the
// caption, as an https URL.
func WebsiteFromDescription(description string) string {
	for _, m := range domainPattern.FindAllStringSubmatch(description, -1) {
		candidate := "https://" + m[1]
		if IsExternalSite(candidate) {
			return candidate
		}
	}
	return ""
}

// WebsiteFromProfile loads a profile page and looks for a website in the
// embedded user data, then in links, then in the bio text. Fetch failures
// are logged and read as "not found".
func (d *Discoverer) WebsiteFromProfile(ctx context.Context, profileURL string) string {
	page, err := d.pages.Fetch(ctx, profileURL)
	if err != nil {
		slog.Warn("Could not fetch TikTok profile", "url", profileURL, "error", err)
		return ""
	}

	if site := websiteFromProfileData(page.HTML); site != "" {
		return site
	}

	doc, err := fetcher.Document(page)
	if err != nil {
		slog.Warn("Could not parse TikTok profile", "url", profileURL, "error", err)
		return ""
	}

	var linked string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if strings.Contains(href, "tiktok.com") {
			return true
		}
		if (strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://")) && IsExternalSite(href) {
			linked = href
			return false
		}
		return true
	})
	if linked != "" {
		return linked
	}

	for _, sel := range bioSelectors {
		bio := doc.Find(sel).First()
		if bio.Length() == 0 {
			continue
		}
		for _, u := range textURLPattern.FindAllString(bio.Text(), -1) {
			if IsExternalSite(u) {
				return u
			}
		}
	}

	slog.Info("No external website found in TikTok profile", "url", profileURL)
	return ""
}

// websiteFromProfileData reads the JSON TikTok embeds in profile pages. A
// nickname that looks like a domain counts, as does a link in the signature.
func websiteFromProfileData(html string) string {
	if m := userInfoPattern.FindStringSubmatch(html); m != nil {
		if n := nicknamePattern.FindStringSubmatch(m[1]); n != nil {
			nick := n[1]
			if strings.Contains(nick, ".") && !strings.HasPrefix(nick, "@") &&
				(strings.HasPrefix(nick, "www.") || strings.HasPrefix(nick, "http")) {
				if !strings.HasPrefix(nick, "http") {
					nick = "https://" + nick
				}
				if IsExternalSite(nick) {
					return nick
				}
			}
		}
	}

	if m := signaturePattern.FindStringSubmatch(html); m != nil {
		for _, u := range bioURLPattern.FindAllString(m[1], -1) {
			if !strings.HasPrefix(u, "http") {
				u = "https://" + u
			}
			if IsExternalSite(u) {
				return u
			}
		}
	}
	return ""
}

// IsExternalSite reports whether rawURL points somewhere other than a social
// network or a link shortener.
func IsExternalSite(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if shortenerDomains[host] {
		return false
	}
	for domain := range socialDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return false
		}
	}
	return true
}

// ProfileURL builds the creator's profile URL from the video URL, falling
// back to the uploader URL or id reported by the metadata.
func ProfileURL(videoURL, uploaderURL, uploaderID string) string {
	if m := handlePattern.FindStringSubmatch(videoURL); m != nil {
		return "https://www.tiktok.com/@" + m[1]
	}
	if strings.Contains(uploaderURL, "tiktok.com/@") {
		return uploaderURL
	}
	if id := strings.TrimPrefix(uploaderID, "@"); id != "" && !strings.ContainsAny(id, "/ ") {
		return "https://www.tiktok.com/@" + id
	}
	return ""
}
