package seo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Ztola/shopify-ai-seo/internal/ai"
	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/shopify"
)

// fakeCatalog serves a fixed catalog and counts writes.
type fakeCatalog struct {
	products    map[int64]domain.Product
	optimized   map[int64]bool
	collection  *domain.Collection
	siblings    []domain.Product
	markerErr   error
	seoMetaErr  error
	optCheckErr error

	updates     []shopify.ProductUpdate
	markerCalls int
	seoCalls    int
}

func (f *fakeCatalog) GetProduct(_ context.Context, _ domain.Shop, id int64) (*domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, shopify.ErrNotFound)
	}
	return &p, nil
}

func (f *fakeCatalog) IsOptimized(_ context.Context, _ domain.Shop, id int64) (bool, error) {
	if f.optCheckErr != nil {
		return false, f.optCheckErr
	}
	return f.optimized[id], nil
}

func (f *fakeCatalog) CollectionOf(_ context.Context, _ domain.Shop, _ int64) (*domain.Collection, error) {
	return f.collection, nil
}

func (f *fakeCatalog) ProductsOf(_ context.Context, _ domain.Shop, _ int64) ([]domain.Product, error) {
	return f.siblings, nil
}

func (f *fakeCatalog) UpdateProduct(_ context.Context, _ domain.Shop, _ int64, upd shopify.ProductUpdate) error {
	f.updates = append(f.updates, upd)
	return nil
}

func (f *fakeCatalog) SetOptimizedMarker(_ context.Context, _ domain.Shop, _ int64) error {
	f.markerCalls++
	return f.markerErr
}

func (f *fakeCatalog) WriteSEOMeta(_ context.Context, _ domain.Shop, _ int64, _, _ string) error {
	f.seoCalls++
	return f.seoMetaErr
}

// fakeGenerator returns canned content or a canned error.
type fakeGenerator struct {
	content  *ai.ProductContent
	err      error
	requests []ai.ProductRequest
}

func (f *fakeGenerator) GenerateProduct(_ context.Context, req ai.ProductRequest) (*ai.ProductContent, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.content, nil
}

func (f *fakeGenerator) GenerateArticle(_ context.Context, _ ai.ArticleRequest) (*ai.ArticleContent, error) {
	return nil, errors.New("not used")
}

func goodContent() *ai.ProductContent {
	return &ai.ProductContent{
		Title:           "Blue Ceramic Mug",
		Slug:            "blue-ceramic-mug",
		MetaTitle:       "Blue Ceramic Mug",
		MetaDescription: "A handmade blue ceramic mug.",
		BodyHTML:        "<p>A handmade mug.</p>",
	}
}

func catalogWithProduct(id int64) *fakeCatalog {
	return &fakeCatalog{
		products:  map[int64]domain.Product{id: {ID: id, Title: "Blue Mug", Handle: "blue-mug"}},
		optimized: map[int64]bool{},
	}
}

func TestOptimizeCommitsContentAndMarker(t *testing.T) {
	catalog := catalogWithProduct(7)
	gen := &fakeGenerator{content: goodContent()}
	p := NewPipeline(catalog, gen, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false)
	if outcome.Status != StatusCommitted {
		t.Fatalf("expected committed, got %+v", outcome)
	}
	if len(catalog.updates) != 1 {
		t.Fatalf("expected 1 content update, got %d", len(catalog.updates))
	}
	if catalog.updates[0].Handle != "blue-ceramic-mug" {
		t.Fatalf("slug not applied: %+v", catalog.updates[0])
	}
	if catalog.markerCalls != 1 || catalog.seoCalls != 1 {
		t.Fatalf("marker=%d seo=%d, expected 1 each", catalog.markerCalls, catalog.seoCalls)
	}
	if outcome.Applied == nil || outcome.Applied.Slug != "blue-ceramic-mug" {
		t.Fatalf("applied content missing from outcome: %+v", outcome)
	}
}

func TestOptimizeSkipsMarkedProductWithoutWrites(t *testing.T) {
	catalog := catalogWithProduct(7)
	catalog.optimized[7] = true
	gen := &fakeGenerator{content: goodContent()}
	p := NewPipeline(catalog, gen, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false)
	if outcome.Status != StatusSkipped {
		t.Fatalf("expected skip, got %+v", outcome)
	}
	if len(catalog.updates) != 0 || catalog.markerCalls != 0 || catalog.seoCalls != 0 {
		t.Fatalf("skip must not write: updates=%d marker=%d seo=%d",
			len(catalog.updates), catalog.markerCalls, catalog.seoCalls)
	}
	if len(gen.requests) != 0 {
		t.Fatalf("skip must not call the generator")
	}
}

func TestOptimizeForceBypassesMarker(t *testing.T) {
	catalog := catalogWithProduct(7)
	catalog.optimized[7] = true
	gen := &fakeGenerator{content: goodContent()}
	p := NewPipeline(catalog, gen, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, true)
	if outcome.Status != StatusCommitted {
		t.Fatalf("force run must commit, got %+v", outcome)
	}
	if len(catalog.updates) != 1 {
		t.Fatalf("force run must rewrite content")
	}
}

func TestOptimizeMissingProduct(t *testing.T) {
	catalog := catalogWithProduct(7)
	p := NewPipeline(catalog, &fakeGenerator{content: goodContent()}, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 999, false)
	if outcome.Status != StatusFailed || outcome.Reason != ReasonNotFound {
		t.Fatalf("expected not_found failure, got %+v", outcome)
	}
}

func TestOptimizeUnusableGeneration(t *testing.T) {
	catalog := catalogWithProduct(7)
	gen := &fakeGenerator{err: &ai.GenerationError{Raw: "sorry, no", Err: errors.New("no JSON object in output")}}
	p := NewPipeline(catalog, gen, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false)
	if outcome.Status != StatusFailed || outcome.Reason != ReasonGeneration {
		t.Fatalf("expected generation failure, got %+v", outcome)
	}
	if len(catalog.updates) != 0 {
		t.Fatalf("failed generation must not write content")
	}
}

func TestOptimizeMarkerFailureStillCommits(t *testing.T) {
	catalog := catalogWithProduct(7)
	catalog.markerErr = errors.New("metafield write rejected")
	gen := &fakeGenerator{content: goodContent()}
	p := NewPipeline(catalog, gen, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false)
	if outcome.Status != StatusCommitted {
		t.Fatalf("content landed, outcome must be committed: %+v", outcome)
	}
	if len(catalog.updates) != 1 {
		t.Fatalf("content update missing")
	}
}

func TestOptimizeOptCheckFailure(t *testing.T) {
	catalog := catalogWithProduct(7)
	catalog.optCheckErr = errors.New("metafield listing unavailable")
	p := NewPipeline(catalog, &fakeGenerator{content: goodContent()}, 0, nil)

	outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false)
	if outcome.Status != StatusFailed || outcome.Reason != ReasonCatalog {
		t.Fatalf("expected catalog failure, got %+v", outcome)
	}
}

func TestResolveContextBuildsSiblingLinks(t *testing.T) {
	catalog := catalogWithProduct(7)
	catalog.collection = &domain.Collection{ID: 5, Title: "Ceramic Mugs", Handle: "ceramic-mugs"}
	catalog.siblings = []domain.Product{
		{ID: 7, Title: "Blue Mug", Handle: "blue-mug"},
		{ID: 8, Title: "Red Mug", Handle: "red-mug"},
		{ID: 9, Title: "Green Mug", Handle: "green-mug"},
		{ID: 10, Title: "Black Mug", Handle: "black-mug"},
	}
	gen := &fakeGenerator{content: goodContent()}
	p := NewPipeline(catalog, gen, 2, nil)

	if outcome := p.Optimize(context.Background(), domain.Shop{}, 7, false); outcome.Status != StatusCommitted {
		t.Fatalf("optimize failed: %+v", outcome)
	}

	req := gen.requests[0]
	if req.CollectionHandle != "ceramic-mugs" {
		t.Fatalf("collection not resolved: %+v", req)
	}
	if len(req.SiblingLinks) != 2 {
		t.Fatalf("sibling limit not honored: %+v", req.SiblingLinks)
	}
	for _, l := range req.SiblingLinks {
		if l.URL == "/products/blue-mug" {
			t.Fatalf("product linked to itself: %+v", req.SiblingLinks)
		}
	}
}
