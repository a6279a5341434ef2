// Package platform maps URLs to a medium and derives canonical cache keys.
package platform

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

type mediumPatterns struct {
	platform recipe.Platform
	patterns []*regexp.Regexp
}

// Checked in order against the lowercased URL. Video hosts come before the
// website catch-all.
var videoPatterns = []mediumPatterns{
	{
		platform: recipe.PlatformYouTube,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`youtube\.com/watch`),
			regexp.MustCompile(`youtube\.com/shorts`),
			regexp.MustCompile(`youtu\.be/`),
			regexp.MustCompile(`youtube\.com/embed`),
		},
	},
	{
		platform: recipe.PlatformTikTok,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`tiktok\.com/@[\w.-]+/video/\d+`),
			regexp.MustCompile(`vm\.tiktok\.com/\w+`),
			regexp.MustCompile(`tiktok\.com/t/\w+`),
		},
	},
	{
		platform: recipe.PlatformInstagram,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`instagram\.com/reels?/[\w-]+`),
			regexp.MustCompile(`instagram\.com/p/[\w-]+`),
			regexp.MustCompile(`instagram\.com/tv/[\w-]+`),
		},
	},
}

// Special-use names that never host real content (RFC 2606, RFC 6761).
var reservedSuffixes = []string{".example", ".test", ".invalid", ".localhost"}

var reservedDomains = map[string]bool{
	"example.com": true,
	"example.net": true,
	"example.org": true,
	"localhost":   true,
}

// Classify returns the medium of rawURL. ok is false when the URL is not
// something any extractor can handle.
func Classify(rawURL string) (p recipe.Platform, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if lower == "" {
		return "", false
	}

	for _, m := range videoPatterns {
		for _, re := range m.patterns {
			if re.MatchString(lower) {
				return m.platform, true
			}
		}
	}

	if isWebURL(lower) {
		return recipe.PlatformWebsite, true
	}
	return "", false
}

func isWebURL(lower string) bool {
	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	host := u.Hostname()
	if host == "" || net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return false
	}
	return !isReservedHost(host)
}

func isReservedHost(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if reservedDomains[host] {
		return true
	}
	for domain := range reservedDomains {
		if strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	for _, suffix := range reservedSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}
