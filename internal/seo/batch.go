package seo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Ztola/shopify-ai-seo/internal/domain"
	"github.com/Ztola/shopify-ai-seo/internal/logger"
	"github.com/Ztola/shopify-ai-seo/pkg/notify"
)

const (
	defaultChunkSize = 250
	defaultPause     = 2 * time.Second
)

// Optimizer is the single-product entrypoint the coordinator drives.
type Optimizer interface {
	Optimize(ctx context.Context, shop domain.Shop, productID int64, force bool) Outcome
}

// Ledger is the full per-product record of one batch run.
type Ledger struct {
	RunID    string    `json:"run_id"`
	Results  []Outcome `json:"results"`
	Failures int       `json:"failures"`
}

// Coordinator runs the pipeline over many product ids without letting one
// failure abort the rest. Items are processed sequentially to keep all
// catalog calls for a shop serialized; a fixed pause separates chunks.
type Coordinator struct {
	optimizer Optimizer
	chunkSize int
	pause     time.Duration
	fanout    *notify.Fanout
	log       logger.Logger
}

// NewCoordinator wires a batch coordinator. fanout may be nil when no
// downstream sinks are configured.
func NewCoordinator(optimizer Optimizer, chunkSize int, pause time.Duration, fanout *notify.Fanout, log logger.Logger) *Coordinator {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if pause < 0 {
		pause = defaultPause
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Coordinator{
		optimizer: optimizer,
		chunkSize: chunkSize,
		pause:     pause,
		fanout:    fanout,
		log:       log,
	}
}

// Run processes all product ids in chunks and returns the complete ledger.
// Whether any failed entries warrant a re-run is the caller's decision.
func (c *Coordinator) Run(ctx context.Context, shop domain.Shop, productIDs []int64, force bool) (*Ledger, error) {
	ledger := &Ledger{
		RunID:   uuid.New().String(),
		Results: make([]Outcome, 0, len(productIDs)),
	}

	c.log.InfoObj("batch run starting", "batch_meta", map[string]any{
		"run_id":     ledger.RunID,
		"shop":       shop.Domain,
		"products":   len(productIDs),
		"chunk_size": c.chunkSize,
		"force":      force,
	})

	for start := 0; start < len(productIDs); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(productIDs) {
			end = len(productIDs)
		}

		for _, id := range productIDs[start:end] {
			if err := ctx.Err(); err != nil {
				return ledger, err
			}
			outcome := c.optimizer.Optimize(ctx, shop, id, force)
			ledger.Results = append(ledger.Results, outcome)
			if outcome.Failed() {
				ledger.Failures++
			}
			c.publish(ctx, shop, ledger.RunID, outcome)
		}

		if end < len(productIDs) {
			if err := pause(ctx, c.pause); err != nil {
				return ledger, err
			}
		}
	}

	c.log.InfoObj("batch run completed", "batch_meta", map[string]any{
		"run_id":   ledger.RunID,
		"results":  len(ledger.Results),
		"failures": ledger.Failures,
	})
	return ledger, nil
}

// publish forwards the per-product outcome downstream; delivery failures are
// logged, never propagated into the ledger.
func (c *Coordinator) publish(ctx context.Context, shop domain.Shop, runID string, outcome Outcome) {
	if c.fanout == nil || c.fanout.Size() == 0 {
		return
	}
	evt := notify.NewEvent(notify.KindProductOptimized, shop.Domain)
	evt.RunID = runID
	evt.ProductID = outcome.ProductID
	evt.Status = string(outcome.Status)
	evt.Reason = outcome.Reason
	if _, err := c.fanout.Publish(ctx, evt); err != nil {
		c.log.WarnObj("outcome event delivery failed", "notify_error", map[string]any{
			"run_id":     runID,
			"product_id": outcome.ProductID,
			"error":      err.Error(),
		})
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
