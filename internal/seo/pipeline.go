package seo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Ztola/shopify-ai-seo/internal/ai"
	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/internal/shopify"
)

const defaultSiblingLimit = 4

// Catalog is the slice of the catalog gateway the pipeline depends on.
type Catalog interface {
	GetProduct(ctx context.Context, shop domain.Shop, id int64) (*domain.Product, error)
	IsOptimized(ctx context.Context, shop domain.Shop, productID int64) (bool, error)
	CollectionOf(ctx context.Context, shop domain.Shop, productID int64) (*domain.Collection, error)
	ProductsOf(ctx context.Context, shop domain.Shop, collectionID int64) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, shop domain.Shop, id int64, upd shopify.ProductUpdate) error
	SetOptimizedMarker(ctx context.Context, shop domain.Shop, productID int64) error
	WriteSEOMeta(ctx context.Context, shop domain.Shop, productID int64, metaTitle, metaDescription string) error
}

// Pipeline drives one product through fetch, context resolution, content
// generation, validation and commit, resolving every run to a terminal
// Outcome.
type Pipeline struct {
	catalog      Catalog
	generator    ai.Generator
	siblingLimit int
	log          logger.Logger
}

// NewPipeline wires the optimization pipeline.
func NewPipeline(catalog Catalog, generator ai.Generator, siblingLimit int, log logger.Logger) *Pipeline {
	if siblingLimit <= 0 {
		siblingLimit = defaultSiblingLimit
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Pipeline{
		catalog:      catalog,
		generator:    generator,
		siblingLimit: siblingLimit,
		log:          log,
	}
}

// Optimize runs the full flow for one product. Unless force is set, a
// product already carrying the optimization marker is skipped without any
// write. The commit writes content before the marker: if the marker write
// fails the product is left updated but unmarked and is re-processed by the
// next non-forced run, which is the accepted recovery path.
func (p *Pipeline) Optimize(ctx context.Context, shop domain.Shop, productID int64, force bool) Outcome {
	product, err := p.catalog.GetProduct(ctx, shop, productID)
	if err != nil {
		if errors.Is(err, shopify.ErrNotFound) {
			return failed(productID, ReasonNotFound, err)
		}
		return failed(productID, ReasonCatalog, err)
	}

	if !force {
		optimized, err := p.catalog.IsOptimized(ctx, shop, productID)
		if err != nil {
			return failed(productID, ReasonCatalog, err)
		}
		if optimized {
			return Outcome{ProductID: productID, Status: StatusSkipped}
		}
	}

	req, err := p.resolveContext(ctx, shop, *product)
	if err != nil {
		return failed(productID, ReasonCatalog, err)
	}

	content, err := p.generator.GenerateProduct(ctx, req)
	if err != nil {
		var genErr *ai.GenerationError
		if errors.As(err, &genErr) && !genErr.Retryable {
			p.log.ErrorObj("generation output unusable", "generation_unusable", map[string]any{
				"product_id": productID,
				"raw":        genErr.Raw,
				"error":      genErr.Err.Error(),
			})
		}
		return failed(productID, ReasonGeneration, err)
	}

	upd := shopify.ProductUpdate{
		Title:    content.Title,
		BodyHTML: content.BodyHTML,
		Handle:   content.Slug,
	}
	if err := p.catalog.UpdateProduct(ctx, shop, productID, upd); err != nil {
		return failed(productID, ReasonCatalog, err)
	}
	if err := p.catalog.WriteSEOMeta(ctx, shop, productID, content.MetaTitle, content.MetaDescription); err != nil {
		p.log.WarnObj("seo metafield write failed", "seo_meta_error", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
	}
	if err := p.catalog.SetOptimizedMarker(ctx, shop, productID); err != nil {
		// Content landed but the marker did not; the next non-forced run
		// re-optimizes this product rather than leaving it skipped.
		p.log.WarnObj("marker write failed after content commit", "marker_error", map[string]any{
			"product_id": productID,
			"error":      err.Error(),
		})
	}

	p.log.InfoObj("product optimized", "optimize_result", map[string]any{
		"product_id": productID,
		"handle":     content.Slug,
	})
	return Outcome{ProductID: productID, Status: StatusCommitted, Applied: content}
}

// resolveContext gathers the product's collection and a few sibling products
// for internal-link suggestions.
func (p *Pipeline) resolveContext(ctx context.Context, shop domain.Shop, product domain.Product) (ai.ProductRequest, error) {
	req := ai.ProductRequest{
		Title:    product.Title,
		BodyHTML: product.BodyHTML,
	}

	collection, err := p.catalog.CollectionOf(ctx, shop, product.ID)
	if err != nil {
		return ai.ProductRequest{}, fmt.Errorf("resolve collection of product %d: %w", product.ID, err)
	}
	if collection == nil {
		return req, nil
	}
	req.CollectionTitle = collection.Title
	req.CollectionHandle = collection.Handle

	siblings, err := p.catalog.ProductsOf(ctx, shop, collection.ID)
	if err != nil {
		return ai.ProductRequest{}, fmt.Errorf("resolve siblings in collection %d: %w", collection.ID, err)
	}
	for _, s := range siblings {
		if s.ID == product.ID {
			continue
		}
		req.SiblingLinks = append(req.SiblingLinks, ai.InternalLink{
			Title: s.Title,
			URL:   "/products/" + s.Handle,
		})
		if len(req.SiblingLinks) >= p.siblingLimit {
			break
		}
	}
	return req, nil
}

func failed(productID int64, reason string, err error) Outcome {
	return Outcome{
		ProductID: productID,
		Status:    StatusFailed,
		Reason:    reason,
		Error:     err.Error(),
	}
}
