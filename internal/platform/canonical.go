package platform

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"github.com/socialchef/recipekeeper/internal/recipe"
)

// KeyLength is the number of hex characters kept from the SHA-256 digest.
const KeyLength = 16

var (
	youtubePathID  = regexp.MustCompile(`(?i:youtu\.be/|youtube\.com/(?:embed|shorts|live)/)([A-Za-z0-9_-]{11})`)
	youtubeWatchID = regexp.MustCompile(`(?i:youtube\.com/watch)\?(?:[^#]*&)?v=([A-Za-z0-9_-]{11})`)
	youtubeBareID  = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	tiktokVideoID = regexp.MustCompile(`(?i:tiktok\.com)/@[\w.-]+/video/(\d+)`)
	tiktokShortID = regexp.MustCompile(`(?i:vm\.tiktok\.com|tiktok\.com/t)/(\w+)`)
	tiktokBareID  = regexp.MustCompile(`^(?:\d+|short:\w+)$`)

	instagramID     = regexp.MustCompile(`(?i:instagram\.com)/(?:reels?|p|tv)/([\w-]+)`)
	instagramBareID = regexp.MustCompile(`^[\w-]+$`)
)

// NormalizeAndHash converts a URL into its canonical identity and the cache
// key derived from it. Feeding a canonical id back in yields the same pair.
func NormalizeAndHash(rawURL string, p recipe.Platform) (canonicalID, cacheKey string) {
	canonicalID = Canonicalize(rawURL, p)
	return canonicalID, CacheKey(canonicalID)
}

// Canonicalize returns the canonical id of rawURL for the given medium.
func Canonicalize(rawURL string, p recipe.Platform) string {
	raw := strings.TrimSpace(rawURL)
	raw = strings.TrimPrefix(raw, string(p)+":")

	if p == recipe.PlatformWebsite {
		return string(p) + ":" + normalizeWebsite(raw)
	}
	if id := videoID(raw, p); id != "" {
		return string(p) + ":" + id
	}
	return string(p) + ":" + raw
}

// CacheKey hashes a canonical id into a fixed-length hex key.
func CacheKey(canonicalID string) string {
	sum := sha256.Sum256([]byte(canonicalID))
	return hex.EncodeToString(sum[:])[:KeyLength]
}

func videoID(raw string, p recipe.Platform) string {
	switch p {
	case recipe.PlatformYouTube:
		if youtubeBareID.MatchString(raw) {
			return raw
		}
		if m := youtubeWatchID.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
		if m := youtubePathID.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	case recipe.PlatformTikTok:
		if tiktokBareID.MatchString(raw) {
			return raw
		}
		if m := tiktokVideoID.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
		if m := tiktokShortID.FindStringSubmatch(raw); m != nil {
			return "short:" + m[1]
		}
	case recipe.PlatformInstagram:
		if instagramBareID.MatchString(raw) {
			return raw
		}
		if m := instagramID.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
	}
	return ""
}

func normalizeWebsite(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}

	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	if port := u.Port(); port == "80" || port == "443" {
		u.Host = strings.TrimSuffix(u.Host, ":"+port)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""

	return strings.TrimRight(u.String(), "/")
}
