package app

import (
	"context"
	"fmt"
	"os"

	"github.com/Ztola/shopify-ai-seo/internal/ai"
	"github.com/Ztola/shopify-ai-seo/internal/autoblog"
	"github.com/Ztola/shopify-ai-seo/internal/config"
	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/internal/seo"
	"github.com/Ztola/shopify-ai-seo/internal/shopify"
	"github.com/Ztola/shopify-ai-seo/internal/storage"
	"github.com/Ztola/shopify-ai-seo/pkg/notify"
)

// App wires the catalog gateway, generation gateway, pipeline, batch
// coordinator and recurring publisher into one runtime. It is the boundary
// a thin transport layer (CLI today) calls into.
type App struct {
	cfg       *config.Config
	log       logger.Logger
	store     storage.ScheduleStore
	gateway   *shopify.Gateway
	pipeline  *seo.Pipeline
	batch     *seo.Coordinator
	publisher *autoblog.Publisher
	fanout    *notify.Fanout
}

// New builds the runtime from config.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	creds := shopify.NewCredentialResolver(domain.Shop{
		Domain:      cfg.ShopDomain,
		AccessToken: cfg.ShopAccessToken,
	})
	client := shopify.NewClient(creds, shopify.Options{
		Timeout:     cfg.ShopifyTimeout,
		MinInterval: cfg.ShopifyMinInterval,
		MaxAttempts: cfg.ShopifyRetryAttempts,
	}, log)
	gateway := shopify.NewGateway(client, log)

	generator := ai.NewOpenAIClient(cfg.OpenAIAPIKey, log,
		ai.WithBaseURL(cfg.OpenAIBaseURL),
		ai.WithModel(cfg.OpenAIModel),
		ai.WithMaxAttempts(cfg.GenerationMaxAttempts),
	)

	store, err := storage.NewStore("bbolt", cfg.ScheduleDBPath)
	if err != nil {
		return nil, fmt.Errorf("init schedule storage: %w", err)
	}
	log.InfoObj("schedule storage initialized", "storage_config", map[string]any{
		"path": cfg.ScheduleDBPath,
	})

	fanout, err := buildFanout(ctx, cfg.SinksFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	pipeline := seo.NewPipeline(gateway, generator, cfg.SiblingLinkLimit, log)
	batch := seo.NewCoordinator(pipeline, cfg.BatchChunkSize, cfg.BatchPause, fanout, log)
	publisher := autoblog.NewPublisher(store, gateway, generator, fanout, log)

	return &App{
		cfg:       cfg,
		log:       log,
		store:     store,
		gateway:   gateway,
		pipeline:  pipeline,
		batch:     batch,
		publisher: publisher,
		fanout:    fanout,
	}, nil
}

// buildFanout loads the notification sinks; no sinks file means no fanout.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*notify.Fanout, error) {
	if path == "" {
		return notify.NewFanout(nil), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WarnObj("sinks file not found; notifications disabled", "sinks_file", path)
		return notify.NewFanout(nil), nil
	}

	reg, err := notify.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks registry: %w", err)
	}
	sinks, err := notify.BuildAll(ctx, notify.DefaultRegistry(), reg.Enabled(), log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	log.InfoObj("notification sinks loaded", "sinks_meta", map[string]any{
		"count": len(sinks),
	})
	return notify.NewFanout(sinks), nil
}

// Optimize runs the pipeline for one product using default credentials.
func (a *App) Optimize(ctx context.Context, productID int64, force bool) seo.Outcome {
	return a.pipeline.Optimize(ctx, domain.Shop{}, productID, force)
}

// RunBatch drives the pipeline over many products and returns the ledger.
func (a *App) RunBatch(ctx context.Context, productIDs []int64, force bool) (*seo.Ledger, error) {
	return a.batch.Run(ctx, domain.Shop{}, productIDs, force)
}

// StartSchedule arms the auto-blog schedule for the default shop.
func (a *App) StartSchedule(timeOfDay string) (domain.ScheduleConfig, error) {
	return a.publisher.Start(timeOfDay, domain.Shop{
		Domain:      a.cfg.ShopDomain,
		AccessToken: a.cfg.ShopAccessToken,
	})
}

// StopSchedule disarms the auto-blog schedule.
func (a *App) StopSchedule() (domain.ScheduleConfig, error) {
	return a.publisher.Stop()
}

// ScheduleStatus reports the persisted schedule record.
func (a *App) ScheduleStatus() (domain.ScheduleConfig, error) {
	return a.publisher.Status()
}

// RunPublisher blocks on the auto-blog tick loop until ctx is cancelled.
func (a *App) RunPublisher(ctx context.Context) error {
	return a.publisher.Run(ctx)
}

// Close releases the runtime's resources.
func (a *App) Close() {
	if a == nil || a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.ErrorObj("schedule storage close failed", "error", err)
	}
}
