// Package pubsub publishes newly found domains to a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"

	"github.com/JakeFAU/domainscan/internal/metrics"
	"github.com/JakeFAU/domainscan/internal/scanner"
)

// HitMessage is the JSON payload published for each new hit.
type HitMessage struct {
	RunID   string    `json:"run_id"`
	N       int       `json:"n"`
	Domain  string    `json:"domain"`
	URL     string    `json:"url"`
	Price   string    `json:"price,omitempty"`
	FoundAt time.Time `json:"found_at"`
}

// Notifier implements scanner.ResultSink. Only newly recorded hits are published.
type Notifier struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	runID  string
}

// New connects to Pub/Sub and binds the topic. The topic must already exist.
func New(ctx context.Context, projectID, topicID, runID string, opts ...option.ClientOption) (*Notifier, error) {
	if projectID == "" || topicID == "" {
		return nil, fmt.Errorf("notify.projectId and notify.topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Notifier{client: client, topic: client.Topic(topicID), runID: runID}, nil
}

// Consume publishes result when it is a new hit and waits for the server ack.
func (n *Notifier) Consume(ctx context.Context, result scanner.ScanResult) error {
	if result.Outcome() != scanner.OutcomeHit {
		return nil
	}
	data, err := json.Marshal(HitMessage{
		RunID:   n.runID,
		N:       result.N,
		Domain:  result.Domain,
		URL:     result.URL,
		Price:   result.Price,
		FoundAt: result.CheckedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal hit message: %w", err)
	}
	msg := &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"run_id": n.runID, "domain": result.Domain},
	}
	if _, err := n.topic.Publish(ctx, msg).Get(ctx); err != nil {
		metrics.ObserveSinkFailure("pubsub")
		return fmt.Errorf("publish hit %s: %w", result.Domain, err)
	}
	return nil
}

// Close flushes pending messages and closes the client.
func (n *Notifier) Close() error {
	n.topic.Stop()
	if err := n.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
