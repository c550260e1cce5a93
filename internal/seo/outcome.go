package seo

import "github.com/Ztola/shopify-ai-seo/internal/ai"

// OutcomeStatus is the terminal state of one optimization attempt.
type OutcomeStatus string

const (
	StatusCommitted OutcomeStatus = "committed"
	StatusSkipped   OutcomeStatus = "skipped_already_optimized"
	StatusFailed    OutcomeStatus = "failed"
)

// Failure reasons reported on StatusFailed outcomes.
const (
	ReasonNotFound   = "not_found"
	ReasonGeneration = "generation_failed"
	ReasonCatalog    = "catalog_error"
)

// Outcome is the per-product result of the optimization pipeline. The
// pipeline always resolves to a terminal outcome; it never panics or throws
// past its own boundary.
type Outcome struct {
	ProductID int64              `json:"product_id"`
	Status    OutcomeStatus      `json:"status"`
	Reason    string             `json:"reason,omitempty"`
	Error     string             `json:"error,omitempty"`
	Applied   *ai.ProductContent `json:"applied,omitempty"`
}

// Failed reports whether the outcome is terminal-failed.
func (o Outcome) Failed() bool { return o.Status == StatusFailed }
