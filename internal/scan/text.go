package scan

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Extract returns the title, meta description and visible body text of an
// HTML document. Script, style and noscript content is dropped. Unparsable
// input yields empty strings.
func Extract(html string) (title, description, body string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", ""
	}
	title = collapse(doc.Find("title").First().Text())
	if d, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		description = collapse(d)
	}
	doc.Find("script, style, noscript, template").Remove()
	body = collapse(doc.Find("body").Text())
	return title, description, body
}

// VisibleText joins the extracted title, description and body text.
func VisibleText(html string) string {
	title, desc, body := Extract(html)
	parts := make([]string, 0, 3)
	for _, p := range []string{title, desc, body} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}
