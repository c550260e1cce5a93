package notify

import "time"

// Event kinds emitted by the optimization and auto-blog flows.
const (
	KindProductOptimized = "product_optimized"
	KindArticlePublished = "article_published"
)

// Event is the payload delivered to downstream sinks.
type Event struct {
	Kind       string    `json:"kind"`
	Shop       string    `json:"shop"`
	RunID      string    `json:"run_id,omitempty"`
	ProductID  int64     `json:"product_id,omitempty"`
	ArticleID  int64     `json:"article_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event of the given kind for the shop.
func NewEvent(kind, shop string) Event {
	return Event{
		Kind:       kind,
		Shop:       shop,
		OccurredAt: time.Now().UTC(),
	}
}
