package markup

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var thumbnailContainers = []string{
	`.recipe-image img`,
	`[class*="recipe-image"] img`,
	`[class*="Recipe-image"] img`,
	`figure img`,
	`article img`,
	`.entry-content img`,
}

// Removed before the page text is handed to a language model.
const nonContentSelector = "script, style, nav, header, footer, aside, noscript"

// ExtractThumbnail picks a representative image: Open Graph, then Twitter
// card, then the first absolute image inside a likely recipe container.
func ExtractThumbnail(doc *goquery.Document) string {
	if v, ok := doc.Find(`meta[property="og:image"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := doc.Find(`meta[name="twitter:image"]`).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	for _, sel := range thumbnailContainers {
		var src string
		doc.Find(sel).EachWithBreak(func(_ int, img *goquery.Selection) bool {
			src = imageSource(img)
			return src == ""
		})
		if src != "" {
			return src
		}
	}
	return ""
}

// PageTitle returns the document's <title> text, or fallback when missing.
func PageTitle(doc *goquery.Document, fallback string) string {
	if t := CleanText(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return fallback
}

// VisibleText returns the page's readable text, one text node per line, with
// scripts, styles and navigation chrome removed. The document is not modified.
func VisibleText(doc *goquery.Document, maxRunes int) string {
	body := doc.Selection.Clone()
	body.Find(nonContentSelector).Remove()

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
				b.WriteString(text)
			}
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range body.Nodes {
		walk(n)
	}

	return truncateRunes(b.String(), maxRunes)
}

func truncateRunes(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
