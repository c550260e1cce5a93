package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
)

// fakeAdmin records every request so tests can assert on write traffic.
type fakeAdmin struct {
	mux *http.ServeMux
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newFakeAdmin(t *testing.T) *fakeAdmin {
	t.Helper()
	f := &fakeAdmin{mux: http.NewServeMux()}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		f.mu.Unlock()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		f.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAdmin) gateway(t *testing.T) *Gateway {
	t.Helper()
	creds := NewCredentialResolver(testShop())
	client := NewClient(creds, Options{
		BaseURL:     f.srv.URL,
		MinInterval: time.Millisecond,
		MaxAttempts: 1,
	}, nil)
	return NewGateway(client, nil)
}

func (f *fakeAdmin) writes(method, pathPrefix string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			out = append(out, r)
		}
	}
	return out
}

func TestGetProductDecodesTags(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/products/7.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"product":{"id":7,"title":"Mug","handle":"mug","tags":"new, sale , optimized"}}`)
	})

	g := f.gateway(t)
	p, err := g.GetProduct(context.Background(), domain.Shop{}, 7)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if len(p.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", p.Tags)
	}
	if !p.HasTag("optimized") {
		t.Fatalf("tag lookup failed for %v", p.Tags)
	}
}

func TestProductsOfDeduplicatesAcrossPages(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/collections/5/products.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/%s/collections/5/products.json?page_info=p2>; rel="next"`, f.srv.URL, APIVersion))
			fmt.Fprint(w, `{"products":[{"id":1,"title":"A"},{"id":2,"title":"B"},{"id":3,"title":"C"}]}`)
			return
		}
		// Page boundary repeats the last item of the previous page.
		fmt.Fprint(w, `{"products":[{"id":3,"title":"C"},{"id":4,"title":"D"}]}`)
	})

	g := f.gateway(t)
	products, err := g.ProductsOf(context.Background(), domain.Shop{}, 5)
	if err != nil {
		t.Fatalf("ProductsOf: %v", err)
	}
	if len(products) != 4 {
		t.Fatalf("expected 4 unique products, got %d", len(products))
	}
	for i, want := range []int64{1, 2, 3, 4} {
		if products[i].ID != want {
			t.Fatalf("order not preserved: position %d has id %d", i, products[i].ID)
		}
	}
}

func TestCollectionOfPicksLowestCollectionID(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/collects.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collects":[{"id":1,"collection_id":30,"product_id":7},{"id":2,"collection_id":10,"product_id":7},{"id":3,"collection_id":20,"product_id":7}]}`)
	})
	f.mux.HandleFunc("/collections/10.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collection":{"id":10,"title":"Mugs","handle":"mugs"}}`)
	})

	g := f.gateway(t)
	c, err := g.CollectionOf(context.Background(), domain.Shop{}, 7)
	if err != nil {
		t.Fatalf("CollectionOf: %v", err)
	}
	if c == nil || c.ID != 10 {
		t.Fatalf("expected collection 10, got %+v", c)
	}
}

func TestCollectionOfReturnsNilWhenUncollected(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/collects.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"collects":[]}`)
	})

	g := f.gateway(t)
	c, err := g.CollectionOf(context.Background(), domain.Shop{}, 7)
	if err != nil {
		t.Fatalf("CollectionOf: %v", err)
	}
	if c != nil {
		t.Fatalf("expected nil collection, got %+v", c)
	}
}

func TestListCollectionsMergesCustomAndSmart(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/custom_collections.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"custom_collections":[{"id":1,"title":"Picks","handle":"picks"}]}`)
	})
	f.mux.HandleFunc("/smart_collections.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"smart_collections":[{"id":2,"title":"Sale","handle":"sale"}]}`)
	})

	g := f.gateway(t)
	collections, err := g.ListCollections(context.Background(), domain.Shop{})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if len(collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(collections))
	}
}

func TestSetOptimizedMarkerAddsTagOnce(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/products/7.json", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			fmt.Fprint(w, `{"product":{"id":7}}`)
			return
		}
		fmt.Fprint(w, `{"product":{"id":7,"title":"Mug","tags":"new"}}`)
	})
	f.mux.HandleFunc("/products/7/metafields.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"metafields":[]}`)
	})
	f.mux.HandleFunc("/metafields.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"metafield":{"id":99}}`)
	})

	g := f.gateway(t)
	if err := g.SetOptimizedMarker(context.Background(), domain.Shop{}, 7); err != nil {
		t.Fatalf("SetOptimizedMarker: %v", err)
	}

	puts := f.writes(http.MethodPut, "/products/7.json")
	if len(puts) != 1 {
		t.Fatalf("expected 1 tag update, got %d", len(puts))
	}
	if !strings.Contains(puts[0].Body, `"new, optimized"`) {
		t.Fatalf("tag payload did not preserve existing tags: %s", puts[0].Body)
	}
	if posts := f.writes(http.MethodPost, "/metafields.json"); len(posts) != 1 {
		t.Fatalf("expected 1 metafield create, got %d", len(posts))
	}
}

func TestSetOptimizedMarkerIsIdempotent(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/products/7.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"product":{"id":7,"title":"Mug","tags":"new, optimized"}}`)
	})
	f.mux.HandleFunc("/products/7/metafields.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"metafields":[{"id":99,"namespace":"ai_seo","key":"optimized","value":"true"}]}`)
	})

	g := f.gateway(t)
	if err := g.SetOptimizedMarker(context.Background(), domain.Shop{}, 7); err != nil {
		t.Fatalf("SetOptimizedMarker: %v", err)
	}

	if puts := f.writes(http.MethodPut, "/"); len(puts) != 0 {
		t.Fatalf("marked product must not be re-tagged, saw %v", puts)
	}
	if posts := f.writes(http.MethodPost, "/"); len(posts) != 0 {
		t.Fatalf("existing metafield must not be re-created, saw %v", posts)
	}
}

func TestUpsertMetafieldUpdatesInsteadOfAppending(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/products/7/metafields.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"metafields":[{"id":55,"namespace":"seo","key":"meta_title","value":"old title"}]}`)
	})
	f.mux.HandleFunc("/metafields/55.json", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"metafield":{"id":55}}`)
	})

	g := f.gateway(t)
	if err := g.WriteSEOMeta(context.Background(), domain.Shop{}, 7, "new title", ""); err != nil {
		t.Fatalf("WriteSEOMeta: %v", err)
	}

	if puts := f.writes(http.MethodPut, "/metafields/55.json"); len(puts) != 1 {
		t.Fatalf("expected update of existing metafield, got %d puts", len(puts))
	}
	if posts := f.writes(http.MethodPost, "/metafields.json"); len(posts) != 0 {
		t.Fatalf("duplicate metafield created: %v", posts)
	}
}

func TestIsOptimized(t *testing.T) {
	f := newFakeAdmin(t)
	marked := true
	f.mux.HandleFunc("/products/7/metafields.json", func(w http.ResponseWriter, _ *http.Request) {
		if marked {
			fmt.Fprint(w, `{"metafields":[{"id":1,"namespace":"ai_seo","key":"optimized","value":"true"}]}`)
			return
		}
		fmt.Fprint(w, `{"metafields":[{"id":1,"namespace":"seo","key":"meta_title","value":"x"}]}`)
	})

	g := f.gateway(t)
	ok, err := g.IsOptimized(context.Background(), domain.Shop{}, 7)
	if err != nil || !ok {
		t.Fatalf("expected optimized, got ok=%v err=%v", ok, err)
	}

	marked = false
	ok, err = g.IsOptimized(context.Background(), domain.Shop{}, 7)
	if err != nil || ok {
		t.Fatalf("expected not optimized, got ok=%v err=%v", ok, err)
	}
}

func TestCreateArticleSendsPublishedAt(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/articles.json", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var env map[string]map[string]any
		if err := json.Unmarshal(body, &env); err != nil {
			t.Fatalf("decode article payload: %v", err)
		}
		art := env["article"]
		if art["title"] != "Hello" || art["blog_id"] != float64(3) {
			t.Fatalf("unexpected payload %v", art)
		}
		if _, ok := art["published_at"]; !ok {
			t.Fatalf("published_at missing from payload %v", art)
		}
		fmt.Fprint(w, `{"article":{"id":42,"blog_id":3,"title":"Hello"}}`)
	})

	g := f.gateway(t)
	when := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	article, err := g.CreateArticle(context.Background(), domain.Shop{}, 3, ArticleDraft{
		Title:       "Hello",
		BodyHTML:    "<p>hi</p>",
		PublishedAt: &when,
	})
	if err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	if article.ID != 42 {
		t.Fatalf("unexpected article id %d", article.ID)
	}
}

func TestListProductsSpansPages(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/products.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/%s/products.json?page_info=p2>; rel="next"`, f.srv.URL, APIVersion))
			fmt.Fprint(w, `{"products":[{"id":1,"title":"A"}]}`)
			return
		}
		fmt.Fprint(w, `{"products":[{"id":2,"title":"B"}]}`)
	})

	g := f.gateway(t)
	products, err := g.ListProducts(context.Background(), domain.Shop{})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
}

func TestListArticles(t *testing.T) {
	f := newFakeAdmin(t)
	f.mux.HandleFunc("/articles.json", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("blog_id"); got != "3" {
			t.Fatalf("blog_id not forwarded, got %q", got)
		}
		fmt.Fprint(w, `{"articles":[{"id":1,"blog_id":3,"title":"First"}]}`)
	})

	g := f.gateway(t)
	articles, err := g.ListArticles(context.Background(), domain.Shop{}, 3)
	if err != nil {
		t.Fatalf("ListArticles: %v", err)
	}
	if len(articles) != 1 || articles[0].Title != "First" {
		t.Fatalf("unexpected articles %+v", articles)
	}
}

func TestSplitJoinTags(t *testing.T) {
	tags := splitTags(" a, b ,, c ")
	if len(tags) != 3 || tags[0] != "a" || tags[2] != "c" {
		t.Fatalf("splitTags mismatch: %v", tags)
	}
	if got := joinTags(tags); got != "a, b, c" {
		t.Fatalf("joinTags mismatch: %q", got)
	}
	if splitTags("   ") != nil {
		t.Fatalf("blank tag string must yield nil")
	}
}
