package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rbroggi/racketbuddy/internal/core/model"
	"github.com/segmentio/kafka-go"
)

const schemaVersion = 1

// MessageWriter is the subset of *kafka.Writer used by the Producer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ProducerArgs contain the mandatory arguments to build a producer.
type ProducerArgs struct {
	// Writer writes to the activity topic.
	Writer MessageWriter
}

// Producer publishes activities on a kafka topic, keyed by event id so the activities of one
// event keep their order within a partition.
type Producer struct {
	writer MessageWriter
}

// NewWriter builds a synchronous writer that waits for all in-sync replicas.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 20 * time.Millisecond,
		Compression:  kafka.Snappy,
	}
}

// NewProducer creates a new producer.
func NewProducer(args ProducerArgs) (*Producer, error) {
	if args.Writer == nil {
		return nil, errors.New("writer is nil")
	}
	return &Producer{writer: args.Writer}, nil
}

// Send writes the activity and blocks until the brokers acknowledge it.
func (p *Producer) Send(ctx context.Context, activity model.Activity) error {
	msg, err := toMessage(activity)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

func toMessage(activity model.Activity) (kafka.Message, error) {
	payload, err := json.Marshal(activity)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("error marshaling activity: %w", err)
	}
	return kafka.Message{
		Key:   []byte(activity.EventID.String()),
		Value: payload,
		Time:  activity.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(activity.Kind)},
			{Key: "version", Value: []byte(strconv.Itoa(schemaVersion))},
		},
	}, nil
}
