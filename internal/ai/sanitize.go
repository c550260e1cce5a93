package ai

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SanitizeHTML cleans generated HTML before it is written back to the
// catalog: admin-console links are unwrapped to their text and leftover
// markdown heading markers are dropped. The model is instructed not to
// produce either, but it occasionally does anyway.
func SanitizeHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse generated html: %w", err)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if isAdminLink(href) {
			sel.ReplaceWithHtml(sel.Text())
		}
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("render sanitized html: %w", err)
	}

	lines := strings.Split(out, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "##") || trimmed == "***" || strings.HasPrefix(trimmed, "---") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), nil
}

func isAdminLink(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	return strings.Contains(h, "admin.shopify.com") || strings.Contains(h, "/admin/")
}
