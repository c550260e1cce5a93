package ai

import (
	"fmt"
	"regexp"
	"strings"
)

// Prompt construction for the generation service. The service is treated as
// a black box that takes one free-text instruction and should answer with a
// single JSON object matching the requested shape.

var stopWords = regexp.MustCompile(`(?i)collection|promo|official|products|new arrivals|nouveaut\p{L}s`)

// DeriveKeyword picks the primary keyword: the first meaningful word of the
// collection title, falling back to the product title.
func DeriveKeyword(collectionTitle, productTitle string) string {
	clean := strings.TrimSpace(stopWords.ReplaceAllString(collectionTitle, ""))
	keyword := firstWord(clean)
	if len(keyword) < 3 {
		keyword = firstWord(productTitle)
	}
	return keyword
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// buildProductPrompt renders the product optimization instruction.
func buildProductPrompt(req ProductRequest) string {
	keyword := DeriveKeyword(req.CollectionTitle, req.Title)

	var links strings.Builder
	if req.CollectionHandle != "" {
		fmt.Fprintf(&links, "- collection: /collections/%s (%s)\n", req.CollectionHandle, req.CollectionTitle)
	}
	for _, l := range req.SiblingLinks {
		fmt.Fprintf(&links, "- related product: %s (%s)\n", l.URL, l.Title)
	}

	return fmt.Sprintf(`You are a Shopify SEO and e-commerce copywriting expert.

IMPORTANT: answer with PURE JSON only. No text before or after, no markdown, no code fences.

Optimize the product below following these rules:
- Primary keyword: %q. Use it in the title, meta title, meta description, the first paragraph, and H2/H3 headings (density around 1%%).
- Description between 600 and 800 words, clean HTML only (no markdown, no emojis).
- Slug under 75 characters, lowercase, hyphen-separated, no accents or spaces.
- Meta description at most 155 characters.
- Internal links: use only these storefront URLs, never admin URLs:
%s- NEVER link to admin.shopify.com or any /admin/ path.
- NEVER add phrases like "automatically optimized" or "optimized version".

Return exactly this JSON shape:
{
 "title": "",
 "slug": "",
 "meta_title": "",
 "meta_description": "",
 "description_html": ""
}

Product data:

TITLE: %s
DESCRIPTION: %s
`, keyword, links.String(), req.Title, req.BodyHTML)
}

// buildArticlePrompt renders the auto-blog article instruction.
func buildArticlePrompt(req ArticleRequest) string {
	var context strings.Builder
	if req.CollectionHandle != "" {
		fmt.Fprintf(&context, "Link the collection as /collections/%s.\n", req.CollectionHandle)
	}
	if req.ShowcaseHTML != "" {
		fmt.Fprintf(&context, "Embed this product showcase block verbatim near the end of the article:\n%s\n", req.ShowcaseHTML)
	}

	return fmt.Sprintf(`You are a Shopify SEO expert. Write an optimized blog article about: %q.

IMPORTANT: answer with PURE JSON only. No text before or after, no markdown, no code fences.

Rules:
- Clean HTML, 800-1200 words, H2/H3 structure, no emojis.
%s
Return exactly this JSON shape:
{
 "title": "",
 "content_html": ""
}
`, req.Topic, context.String())
}
