package ai

import (
	"context"
	"fmt"
)

// Generator abstracts the content-generation service. Implementations wrap
// OpenAI-compatible APIs; tests inject stubs.
type Generator interface {
	GenerateProduct(ctx context.Context, req ProductRequest) (*ProductContent, error)
	GenerateArticle(ctx context.Context, req ArticleRequest) (*ArticleContent, error)
}

// InternalLink is a storefront link offered to the model for internal linking.
type InternalLink struct {
	Title string
	URL   string
}

// ProductRequest bundles the subject product text and its resolved context.
type ProductRequest struct {
	Title            string
	BodyHTML         string
	CollectionTitle  string
	CollectionHandle string
	SiblingLinks     []InternalLink
}

// ProductContent is the validated structured output of a product generation.
type ProductContent struct {
	Title           string `json:"title"`
	Slug            string `json:"slug"`
	MetaTitle       string `json:"meta_title"`
	MetaDescription string `json:"meta_description"`
	BodyHTML        string `json:"description_html"`
}

// ArticleRequest bundles the theme and showcase context for a blog article.
type ArticleRequest struct {
	Topic            string
	CollectionHandle string
	ShowcaseHTML     string
}

// ArticleContent is the validated structured output of an article generation.
type ArticleContent struct {
	Title    string `json:"title"`
	BodyHTML string `json:"content_html"`
}

// GenerationError distinguishes "service unreachable" (retryable) from
// "service returned unusable content" (fatal for the item). Raw keeps the
// service's payload for diagnosis.
type GenerationError struct {
	Retryable bool
	Raw       string
	Err       error
}

func (e *GenerationError) Error() string {
	kind := "unusable output"
	if e.Retryable {
		kind = "transient failure"
	}
	return fmt.Sprintf("generation %s: %v", kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
