package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

type fakeSQSClient struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestSQSSinkPublish(t *testing.T) {
	client := &fakeSQSClient{}
	sink := &sqsSink{
		id:       "events-queue",
		typ:      TypeSQS,
		queueURL: "https://sqs.eu-west-1.amazonaws.com/123/seo-events",
		client:   client,
		log:      ensureLogger(nil),
	}

	evt := NewEvent(KindProductOptimized, "test.myshopify.com")
	evt.ProductID = 7
	if err := sink.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(client.inputs) != 1 {
		t.Fatalf("expected 1 send, got %d", len(client.inputs))
	}
	input := client.inputs[0]
	if *input.QueueUrl != sink.queueURL {
		t.Fatalf("queue url mismatch: %s", *input.QueueUrl)
	}

	var decoded Event
	if err := json.Unmarshal([]byte(*input.MessageBody), &decoded); err != nil {
		t.Fatalf("message body is not the event: %v", err)
	}
	if decoded.ProductID != 7 {
		t.Fatalf("event payload mismatch: %+v", decoded)
	}
	if *input.MessageAttributes["kind"].StringValue != KindProductOptimized {
		t.Fatalf("kind attribute missing")
	}
	if *input.MessageAttributes["shop"].StringValue != "test.myshopify.com" {
		t.Fatalf("shop attribute missing")
	}
}

func TestSQSSinkPublishError(t *testing.T) {
	sink := &sqsSink{
		id:       "events-queue",
		typ:      TypeSQS,
		queueURL: "https://q",
		client:   &fakeSQSClient{err: errors.New("throttled")},
		log:      ensureLogger(nil),
	}
	if err := sink.Publish(context.Background(), Event{Kind: KindProductOptimized}); err == nil {
		t.Fatalf("expected send error")
	}
}
