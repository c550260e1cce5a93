package notify

import "context"

// Sink delivers events to a downstream system (HTTP, SQS, SNS, Pub/Sub).
type Sink interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}
