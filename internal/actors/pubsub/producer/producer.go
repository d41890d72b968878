package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/racketbuddy/internal/core/model"
)

const (
	kindAttribute    = "kind"
	eventIDAttribute = "event_id"
)

// NewProducer creates a new producer.
func NewProducer(topic *pubsub.Topic) (*Producer, error) {
	if topic == nil {
		return nil, errors.New("topic is nil")
	}
	return &Producer{topic: topic}, nil
}

// Producer is the pubsub producer of activities.
type Producer struct {
	topic *pubsub.Topic
}

// Send publishes the activity as JSON. The kind and event id are copied into the attributes
// so subscriptions can filter on them.
func (p *Producer) Send(ctx context.Context, activity model.Activity) error {
	data, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("error marshaling activity: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			kindAttribute:    string(activity.Kind),
			eventIDAttribute: activity.EventID.String(),
		},
	})
	// Block until the result is returned and a server-generated
	// ID is returned for the published message.
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: result.Get: %w", err)
	}
	return nil
}
