package autoblog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Ztola/shopify-ai-seo/internal/ai"
	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/internal/shopify"
	"github.com/Ztola/shopify-ai-seo/internal/storage"
	"github.com/Ztola/shopify-ai-seo/pkg/notify"
)

const showcaseLimit = 4

var timeOfDayRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Catalog is the slice of the catalog gateway the publisher depends on.
type Catalog interface {
	ListBlogs(ctx context.Context, shop domain.Shop) ([]domain.Blog, error)
	ListCollections(ctx context.Context, shop domain.Shop) ([]domain.Collection, error)
	ProductsOf(ctx context.Context, shop domain.Shop, collectionID int64) ([]domain.Product, error)
	CreateArticle(ctx context.Context, shop domain.Shop, blogID int64, draft shopify.ArticleDraft) (*domain.Article, error)
}

// Publisher generates and publishes one blog article per day at the
// configured time, rotating round-robin through the active shop's
// collections so every collection is eventually featured. All of its state
// lives in the durable schedule record and survives restarts.
type Publisher struct {
	store     storage.ScheduleStore
	catalog   Catalog
	generator ai.Generator
	fanout    *notify.Fanout
	log       logger.Logger
	now       func() time.Time
}

// NewPublisher wires the recurring publisher. fanout may be nil.
func NewPublisher(store storage.ScheduleStore, catalog Catalog, generator ai.Generator, fanout *notify.Fanout, log logger.Logger) *Publisher {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Publisher{
		store:     store,
		catalog:   catalog,
		generator: generator,
		fanout:    fanout,
		log:       log,
		now:       time.Now,
	}
}

// Start enables the schedule for the given time of day and shop. This is
// the only mutation path for the active shop; no request handler changes
// scheduler state as a side effect.
func (p *Publisher) Start(timeOfDay string, shop domain.Shop) (domain.ScheduleConfig, error) {
	timeOfDay = strings.TrimSpace(timeOfDay)
	if timeOfDay == "" {
		timeOfDay = domain.DefaultTimeOfDay
	}
	if !timeOfDayRe.MatchString(timeOfDay) {
		return domain.ScheduleConfig{}, fmt.Errorf("invalid time of day %q (expected HH:MM)", timeOfDay)
	}
	if !shop.Configured() {
		return domain.ScheduleConfig{}, fmt.Errorf("start schedule: %w", shopify.ErrCredentialsMissing)
	}

	cfg, err := p.store.Update(func(cfg *domain.ScheduleConfig) error {
		cfg.Enabled = true
		cfg.TimeOfDay = timeOfDay
		cfg.Shop = &shop
		return nil
	})
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("persist schedule start: %w", err)
	}

	p.log.InfoObj("auto-blog schedule started", "schedule", map[string]any{
		"time_of_day": cfg.TimeOfDay,
		"shop":        shop.Domain,
	})
	return cfg, nil
}

// Stop disables the schedule. Safe to call when already disabled.
func (p *Publisher) Stop() (domain.ScheduleConfig, error) {
	cfg, err := p.store.Update(func(cfg *domain.ScheduleConfig) error {
		cfg.Enabled = false
		return nil
	})
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("persist schedule stop: %w", err)
	}
	p.log.InfoObj("auto-blog schedule stopped", "schedule", cfg)
	return cfg, nil
}

// Status returns the current schedule record.
func (p *Publisher) Status() (domain.ScheduleConfig, error) {
	return p.store.Load()
}

// Run drives one tick per minute until the context is cancelled.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	p.log.InfoObj("auto-blog loop starting", "publisher_state", map[string]any{
		"tick": "1m",
	})

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("auto-blog loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.log.ErrorObj("auto-blog tick failed", "error", err)
			}
		}
	}
}

// Tick runs at most one publish action per matching minute. The minute is
// claimed by persisting lastRunAt inside the same read-modify-write that
// checks it, so re-entrant ticks within one minute cannot double-fire.
func (p *Publisher) Tick(ctx context.Context) error {
	cfg, err := p.store.Load()
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	if !cfg.Enabled {
		return nil
	}
	if cfg.Shop == nil || !cfg.Shop.Configured() {
		p.log.DebugObj("auto-blog tick skipped: no active shop", "schedule", cfg)
		return nil
	}

	now := p.now()
	if now.Format("15:04") != cfg.TimeOfDay {
		return nil
	}

	claimed := false
	cfg, err = p.store.Update(func(c *domain.ScheduleConfig) error {
		if c.LastRunAt != nil && sameMinute(*c.LastRunAt, now) {
			return nil
		}
		t := now
		c.LastRunAt = &t
		claimed = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("claim publish minute: %w", err)
	}
	if !claimed {
		return nil
	}

	return p.publishOnce(ctx, cfg)
}

// publishOnce runs the simplified generation+publish flow for the active shop.
func (p *Publisher) publishOnce(ctx context.Context, cfg domain.ScheduleConfig) error {
	shop := *cfg.Shop

	blogs, err := p.catalog.ListBlogs(ctx, shop)
	if err != nil {
		return fmt.Errorf("list blogs: %w", err)
	}
	if len(blogs) == 0 {
		p.log.WarnObj("auto-blog publish skipped: shop has no blog", "shop", shop.Domain)
		return nil
	}
	blog := blogs[0]

	collections, err := p.catalog.ListCollections(ctx, shop)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(collections) == 0 {
		p.log.WarnObj("auto-blog publish skipped: shop has no collections", "shop", shop.Domain)
		return nil
	}

	// Round-robin through collections so every one is eventually featured.
	var cursor int
	if _, err := p.store.Update(func(c *domain.ScheduleConfig) error {
		cursor = c.RotationCursor
		c.RotationCursor = c.RotationCursor + 1
		return nil
	}); err != nil {
		return fmt.Errorf("advance rotation cursor: %w", err)
	}
	collection := collections[cursor%len(collections)]

	products, err := p.catalog.ProductsOf(ctx, shop, collection.ID)
	if err != nil {
		return fmt.Errorf("list products of collection %d: %w", collection.ID, err)
	}

	content, err := p.generator.GenerateArticle(ctx, ai.ArticleRequest{
		Topic:            collection.Title,
		CollectionHandle: collection.Handle,
		ShowcaseHTML:     buildShowcase(products),
	})
	if err != nil {
		return fmt.Errorf("generate article for collection %q: %w", collection.Title, err)
	}

	article, err := p.catalog.CreateArticle(ctx, shop, blog.ID, shopify.ArticleDraft{
		Title:    content.Title,
		BodyHTML: content.BodyHTML,
	})
	if err != nil {
		return fmt.Errorf("create article on blog %d: %w", blog.ID, err)
	}

	p.log.InfoObj("auto-blog article published", "publish_result", map[string]any{
		"shop":       shop.Domain,
		"blog_id":    blog.ID,
		"article_id": article.ID,
		"collection": collection.Title,
	})
	p.notifyPublished(ctx, shop, article)
	return nil
}

func (p *Publisher) notifyPublished(ctx context.Context, shop domain.Shop, article *domain.Article) {
	if p.fanout == nil || p.fanout.Size() == 0 {
		return
	}
	evt := notify.NewEvent(notify.KindArticlePublished, shop.Domain)
	evt.ArticleID = article.ID
	evt.Status = "published"
	if _, err := p.fanout.Publish(ctx, evt); err != nil {
		p.log.WarnObj("publish event delivery failed", "notify_error", map[string]any{
			"article_id": article.ID,
			"error":      err.Error(),
		})
	}
}

// buildShowcase renders up to four collection products as an HTML block the
// generated article embeds.
func buildShowcase(products []domain.Product) string {
	if len(products) == 0 {
		return ""
	}
	if len(products) > showcaseLimit {
		products = products[:showcaseLimit]
	}

	var b strings.Builder
	b.WriteString(`<div class="collection-showcase"><ul>`)
	for _, p := range products {
		fmt.Fprintf(&b, `<li><a href="/products/%s">%s</a></li>`, p.Handle, p.Title)
	}
	b.WriteString("</ul></div>")
	return b.String()
}

func sameMinute(a, b time.Time) bool {
	return a.Truncate(time.Minute).Equal(b.Truncate(time.Minute))
}
