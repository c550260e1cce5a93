package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
)

const (
	// OptimizedTag is the sentinel tag marking an already-optimized product.
	OptimizedTag = "optimized"

	markerNamespace = "ai_seo"
	markerKey       = "optimized"
	markerValue     = "true"

	seoNamespace = "seo"
)

// Gateway exposes typed catalog operations over the rate-limited paging
// client. All operations are parameterized by shop.
type Gateway struct {
	client *Client
	log    logger.Logger
}

// NewGateway wires a catalog gateway over the paging client.
func NewGateway(client *Client, log logger.Logger) *Gateway {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Gateway{client: client, log: log}
}

// Wire payloads ------------------------------------------------------------

// productPayload mirrors the Admin API product shape; tags travel as a
// single comma-separated string on the wire.
type productPayload struct {
	ID       int64            `json:"id,omitempty"`
	Title    string           `json:"title,omitempty"`
	BodyHTML string           `json:"body_html,omitempty"`
	Handle   string           `json:"handle,omitempty"`
	Tags     string           `json:"tags,omitempty"`
	Images   []domain.Image   `json:"images,omitempty"`
	Variants []domain.Variant `json:"variants,omitempty"`
}

func (p productPayload) toDomain() domain.Product {
	return domain.Product{
		ID:       p.ID,
		Title:    p.Title,
		BodyHTML: p.BodyHTML,
		Handle:   p.Handle,
		Tags:     splitTags(p.Tags),
		Images:   p.Images,
		Variants: p.Variants,
	}
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func joinTags(tags []string) string { return strings.Join(tags, ", ") }

type metafieldPayload struct {
	ID            int64  `json:"id,omitempty"`
	Namespace     string `json:"namespace"`
	Key           string `json:"key"`
	Value         string `json:"value"`
	Type          string `json:"type,omitempty"`
	OwnerResource string `json:"owner_resource,omitempty"`
	OwnerID       int64  `json:"owner_id,omitempty"`
}

type collectPayload struct {
	ID           int64 `json:"id"`
	CollectionID int64 `json:"collection_id"`
	ProductID    int64 `json:"product_id"`
}

// Products ------------------------------------------------------------------

// GetProduct fetches one product. Absent products surface ErrNotFound.
func (g *Gateway) GetProduct(ctx context.Context, shop domain.Shop, id int64) (*domain.Product, error) {
	resp, err := g.client.Do(ctx, shop, http.MethodGet, fmt.Sprintf("/products/%d.json", id), nil)
	if err != nil {
		return nil, err
	}
	var payload productPayload
	if err := decodeEnvelopeObject(resp.Body, "product", &payload); err != nil {
		return nil, err
	}
	product := payload.toDomain()
	return &product, nil
}

// ListProducts returns every product in the shop across all pages.
func (g *Gateway) ListProducts(ctx context.Context, shop domain.Shop) ([]domain.Product, error) {
	raw, err := g.client.FetchAll(ctx, shop, fmt.Sprintf("/products.json?limit=%d", MaxPageSize), "products")
	if err != nil {
		return nil, err
	}
	return decodeProducts(raw)
}

// ProductUpdate carries a partial product update; empty fields are left
// untouched by the platform.
type ProductUpdate struct {
	Title    string
	BodyHTML string
	Handle   string
}

// UpdateProduct applies a partial content update to the product.
func (g *Gateway) UpdateProduct(ctx context.Context, shop domain.Shop, id int64, upd ProductUpdate) error {
	payload := productPayload{
		ID:       id,
		Title:    upd.Title,
		BodyHTML: upd.BodyHTML,
		Handle:   upd.Handle,
	}
	_, err := g.client.Do(ctx, shop, http.MethodPut, fmt.Sprintf("/products/%d.json", id),
		map[string]productPayload{"product": payload})
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}
	return nil
}

// Collections ---------------------------------------------------------------

// CollectionOf resolves the collection a product belongs to, or nil when it
// belongs to none. When a product appears in several collections the lowest
// collection id wins; the platform's own membership order is not a business
// rule and is not preserved.
func (g *Gateway) CollectionOf(ctx context.Context, shop domain.Shop, productID int64) (*domain.Collection, error) {
	resp, err := g.client.Do(ctx, shop, http.MethodGet,
		fmt.Sprintf("/collects.json?product_id=%s&limit=%d", queryInt(productID), MaxPageSize), nil)
	if err != nil {
		return nil, err
	}

	var collects []collectPayload
	raw, err := decodeEnvelopeList(resp.Body, "collects")
	if err != nil {
		return nil, err
	}
	for _, r := range raw {
		var c collectPayload
		if err := json.Unmarshal(r, &c); err != nil {
			return nil, fmt.Errorf("decode collect: %w", err)
		}
		collects = append(collects, c)
	}
	if len(collects) == 0 {
		return nil, nil
	}

	collectionID := collects[0].CollectionID
	for _, c := range collects[1:] {
		if c.CollectionID < collectionID {
			collectionID = c.CollectionID
		}
	}

	cresp, err := g.client.Do(ctx, shop, http.MethodGet, fmt.Sprintf("/collections/%d.json", collectionID), nil)
	if err != nil {
		return nil, err
	}
	var collection domain.Collection
	if err := decodeEnvelopeObject(cresp.Body, "collection", &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

// ProductsOf lists a collection's products, deduplicated by id. Paginated
// listings can repeat members across page boundaries; duplicates are
// dropped before returning.
func (g *Gateway) ProductsOf(ctx context.Context, shop domain.Shop, collectionID int64) ([]domain.Product, error) {
	raw, err := g.client.FetchAll(ctx, shop,
		fmt.Sprintf("/collections/%d/products.json?limit=%d", collectionID, MaxPageSize), "products")
	if err != nil {
		return nil, err
	}
	products, err := decodeProducts(raw)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(products))
	deduped := products[:0]
	for _, p := range products {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		deduped = append(deduped, p)
	}
	return deduped, nil
}

// ListCollections returns all custom and smart collections merged.
func (g *Gateway) ListCollections(ctx context.Context, shop domain.Shop) ([]domain.Collection, error) {
	custom, err := g.client.FetchAll(ctx, shop,
		fmt.Sprintf("/custom_collections.json?limit=%d", MaxPageSize), "custom_collections")
	if err != nil {
		return nil, err
	}
	smart, err := g.client.FetchAll(ctx, shop,
		fmt.Sprintf("/smart_collections.json?limit=%d", MaxPageSize), "smart_collections")
	if err != nil {
		return nil, err
	}

	collections := make([]domain.Collection, 0, len(custom)+len(smart))
	for _, r := range append(custom, smart...) {
		var c domain.Collection
		if err := json.Unmarshal(r, &c); err != nil {
			return nil, fmt.Errorf("decode collection: %w", err)
		}
		collections = append(collections, c)
	}
	return collections, nil
}

// Optimization marker -------------------------------------------------------

// SetOptimizedMarker records the "already optimized" fact both as the
// sentinel tag and as the namespaced metafield. Idempotent: the tag is
// added only when absent and the metafield write is an upsert.
func (g *Gateway) SetOptimizedMarker(ctx context.Context, shop domain.Shop, productID int64) error {
	product, err := g.GetProduct(ctx, shop, productID)
	if err != nil {
		return fmt.Errorf("read tags for product %d: %w", productID, err)
	}

	if !product.HasTag(OptimizedTag) {
		tags := append(append([]string(nil), product.Tags...), OptimizedTag)
		_, err = g.client.Do(ctx, shop, http.MethodPut, fmt.Sprintf("/products/%d.json", productID),
			map[string]productPayload{"product": {ID: productID, Tags: joinTags(tags)}})
		if err != nil {
			return fmt.Errorf("tag product %d: %w", productID, err)
		}
	}

	return g.upsertMetafield(ctx, shop, productID, metafieldPayload{
		Namespace:     markerNamespace,
		Key:           markerKey,
		Value:         markerValue,
		Type:          "single_line_text_field",
		OwnerResource: "product",
		OwnerID:       productID,
	})
}

// IsOptimized reports whether the product carries the optimization
// metafield with the expected value. This is the idempotency gate.
func (g *Gateway) IsOptimized(ctx context.Context, shop domain.Shop, productID int64) (bool, error) {
	fields, err := g.productMetafields(ctx, shop, productID)
	if err != nil {
		return false, err
	}
	for _, m := range fields {
		if m.Namespace == markerNamespace && m.Key == markerKey && m.Value == markerValue {
			return true, nil
		}
	}
	return false, nil
}

// WriteSEOMeta stores meta title/description metafields for storefront SEO.
func (g *Gateway) WriteSEOMeta(ctx context.Context, shop domain.Shop, productID int64, metaTitle, metaDescription string) error {
	if metaTitle != "" {
		err := g.upsertMetafield(ctx, shop, productID, metafieldPayload{
			Namespace:     seoNamespace,
			Key:           "meta_title",
			Value:         metaTitle,
			Type:          "single_line_text_field",
			OwnerResource: "product",
			OwnerID:       productID,
		})
		if err != nil {
			return err
		}
	}
	if metaDescription != "" {
		err := g.upsertMetafield(ctx, shop, productID, metafieldPayload{
			Namespace:     seoNamespace,
			Key:           "meta_description",
			Value:         metaDescription,
			Type:          "multi_line_text_field",
			OwnerResource: "product",
			OwnerID:       productID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// upsertMetafield updates the existing record for (owner, namespace, key)
// when one exists instead of appending a duplicate.
func (g *Gateway) upsertMetafield(ctx context.Context, shop domain.Shop, productID int64, field metafieldPayload) error {
	existing, err := g.productMetafields(ctx, shop, productID)
	if err != nil {
		return fmt.Errorf("list metafields for product %d: %w", productID, err)
	}

	for _, m := range existing {
		if m.Namespace != field.Namespace || m.Key != field.Key {
			continue
		}
		if m.Value == field.Value {
			return nil
		}
		_, err := g.client.Do(ctx, shop, http.MethodPut, fmt.Sprintf("/metafields/%d.json", m.ID),
			map[string]metafieldPayload{"metafield": {ID: m.ID, Namespace: field.Namespace, Key: field.Key, Value: field.Value, Type: field.Type}})
		if err != nil {
			return fmt.Errorf("update metafield %s.%s on product %d: %w", field.Namespace, field.Key, productID, err)
		}
		return nil
	}

	_, err = g.client.Do(ctx, shop, http.MethodPost, "/metafields.json",
		map[string]metafieldPayload{"metafield": field})
	if err != nil {
		return fmt.Errorf("create metafield %s.%s on product %d: %w", field.Namespace, field.Key, productID, err)
	}
	return nil
}

func (g *Gateway) productMetafields(ctx context.Context, shop domain.Shop, productID int64) ([]metafieldPayload, error) {
	resp, err := g.client.Do(ctx, shop, http.MethodGet, fmt.Sprintf("/products/%d/metafields.json", productID), nil)
	if err != nil {
		return nil, err
	}
	raw, err := decodeEnvelopeList(resp.Body, "metafields")
	if err != nil {
		return nil, err
	}
	fields := make([]metafieldPayload, 0, len(raw))
	for _, r := range raw {
		var m metafieldPayload
		if err := json.Unmarshal(r, &m); err != nil {
			return nil, fmt.Errorf("decode metafield: %w", err)
		}
		fields = append(fields, m)
	}
	return fields, nil
}

// Blogs & articles ----------------------------------------------------------

// ListBlogs returns the shop's blogs.
func (g *Gateway) ListBlogs(ctx context.Context, shop domain.Shop) ([]domain.Blog, error) {
	resp, err := g.client.Do(ctx, shop, http.MethodGet, "/blogs.json", nil)
	if err != nil {
		return nil, err
	}
	raw, err := decodeEnvelopeList(resp.Body, "blogs")
	if err != nil {
		return nil, err
	}
	blogs := make([]domain.Blog, 0, len(raw))
	for _, r := range raw {
		var b domain.Blog
		if err := json.Unmarshal(r, &b); err != nil {
			return nil, fmt.Errorf("decode blog: %w", err)
		}
		blogs = append(blogs, b)
	}
	return blogs, nil
}

// ListArticles returns every article of the blog across all pages.
func (g *Gateway) ListArticles(ctx context.Context, shop domain.Shop, blogID int64) ([]domain.Article, error) {
	raw, err := g.client.FetchAll(ctx, shop,
		fmt.Sprintf("/articles.json?blog_id=%s&limit=%d", queryInt(blogID), MaxPageSize), "articles")
	if err != nil {
		return nil, err
	}
	articles := make([]domain.Article, 0, len(raw))
	for _, r := range raw {
		var a domain.Article
		if err := json.Unmarshal(r, &a); err != nil {
			return nil, fmt.Errorf("decode article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, nil
}

// ArticleDraft is the content for a new blog article.
type ArticleDraft struct {
	Title       string
	BodyHTML    string
	PublishedAt *time.Time
}

// CreateArticle publishes a new article on the blog.
func (g *Gateway) CreateArticle(ctx context.Context, shop domain.Shop, blogID int64, draft ArticleDraft) (*domain.Article, error) {
	body := map[string]any{
		"article": map[string]any{
			"blog_id":   blogID,
			"title":     draft.Title,
			"body_html": draft.BodyHTML,
		},
	}
	if draft.PublishedAt != nil {
		body["article"].(map[string]any)["published_at"] = draft.PublishedAt.Format(time.RFC3339)
	}

	resp, err := g.client.Do(ctx, shop, http.MethodPost, "/articles.json", body)
	if err != nil {
		return nil, fmt.Errorf("create article on blog %d: %w", blogID, err)
	}
	var article domain.Article
	if err := decodeEnvelopeObject(resp.Body, "article", &article); err != nil {
		return nil, err
	}
	return &article, nil
}

// decodeProducts converts raw envelope items into domain products.
func decodeProducts(raw []json.RawMessage) ([]domain.Product, error) {
	products := make([]domain.Product, 0, len(raw))
	for _, r := range raw {
		var p productPayload
		if err := json.Unmarshal(r, &p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		products = append(products, p.toDomain())
	}
	return products, nil
}
