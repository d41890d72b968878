package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/rbroggi/racketbuddy/internal/core/ports"

	log "github.com/sirupsen/logrus"
)

// SubscriberArgs contain the mandatory arguments to build a subscriber.
type SubscriberArgs struct {
	// Subscription is a pubsub subscription
	Subscription *pubsub.Subscription

	// AuditRequestHandler runs the requested audits.
	AuditRequestHandler ports.AuditRequestHandler
}

// Subscriber is a pubsub async subscriber of audit requests.
type Subscriber struct {
	subscription *pubsub.Subscription
	handler      ports.AuditRequestHandler
}

// NewSubscriber creates a subscriber
func NewSubscriber(args SubscriberArgs) *Subscriber {
	return &Subscriber{
		subscription: args.Subscription,
		handler:      args.AuditRequestHandler,
	}
}

// Consume starts the subscriber. This is a blocking method and should be started in it's own go-routine.
// The way to terminate the method is to cancel the context in input.
func (s *Subscriber) Consume(ctx context.Context) error {
	if err := s.subscription.Receive(ctx, s.receive); err != nil {
		return fmt.Errorf("error receiving messages from subscription: %w", err)
	}
	return nil
}

func (s *Subscriber) receive(ctx context.Context, msg *pubsub.Message) {
	request, err := decodeAuditRequest(msg)
	if err != nil {
		// redelivery cannot fix a malformed request
		log.WithError(err).WithField("message-id", msg.ID).Error("dropping undecodable audit request")
		msg.Ack()
		return
	}

	if err := s.handler.Handle(ctx, *request); err != nil {
		log.WithError(err).WithField("message-id", msg.ID).Error("error in audit request handler")
		msg.Nack()
		return
	}
	msg.Ack()
}

type auditRequestMessage struct {
	DryRun bool `json:"dry_run"`
}

func decodeAuditRequest(msg *pubsub.Message) (*model.AuditRequest, error) {
	if msg == nil {
		return nil, errors.New("cannot decode nil pubsub msg")
	}
	payload := new(auditRequestMessage)
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, payload); err != nil {
			return nil, fmt.Errorf("json unmarshal error: %w", err)
		}
	}
	return &model.AuditRequest{ID: msg.ID, DryRun: payload.DryRun}, nil
}
