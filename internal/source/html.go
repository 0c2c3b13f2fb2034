package source

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// StripHTML converts a product body to plain text, keeping paragraph and list breaks as spaces
func StripHTML(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return strings.Join(strings.Fields(body), " ")
	}

	doc.Find("script, style, iframe").Remove()
	doc.Find("br, p, li, div, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " ")
}
