package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/crimson-sun/botsight/internal/model"
	"github.com/crimson-sun/botsight/internal/output"
)

// Scheme is the routing-key scheme for this sink.
const Scheme = "kafka"

const writeTimeout = 5 * time.Second

func init() {
	output.Register(Scheme, func(target string) (output.Output, error) {
		brokers, topic, err := ParseTarget(target)
		if err != nil {
			return nil, err
		}
		return New(brokers, topic), nil
	})
}

// messageWriter is the part of *kafka.Writer used by Output.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Output writes each telemetry event as a JSON message. Messages are keyed
// by conversation id so one conversation stays on one partition.
type Output struct {
	writer messageWriter
	topic  string
}

// ParseTarget splits "broker1:9092,broker2:9092/topic".
func ParseTarget(target string) ([]string, string, error) {
	i := strings.LastIndexByte(target, '/')
	if i < 0 {
		return nil, "", fmt.Errorf("kafka: target %q must be brokers/topic", target)
	}
	topic := strings.TrimSpace(target[i+1:])
	var brokers []string
	for _, b := range strings.Split(target[:i], ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 || topic == "" {
		return nil, "", fmt.Errorf("kafka: target %q needs at least one broker and a topic", target)
	}
	return brokers, topic, nil
}

// New creates a Kafka output that writes telemetry events to the given topic.
// Call Close when shutting down.
func New(brokers []string, topic string) *Output {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Output{writer: writer, topic: topic}
}

// Topic returns the destination topic.
func (o *Output) Topic() string { return o.topic }

// Write serializes the event as JSON and writes it to the topic, bounded by
// a short timeout so a slow broker does not block callers indefinitely.
func (o *Output) Write(ctx context.Context, event model.TelemetryEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	msg := kafka.Message{
		Key:   []byte(messageKey(event)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Name)},
			{Key: "kind", Value: []byte(event.Kind)},
		},
	}
	if err := o.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("kafka: write %s: %w", o.topic, err)
	}
	return nil
}

// Close closes the writer, flushing pending batches.
func (o *Output) Close() error {
	return o.writer.Close()
}

func messageKey(event model.TelemetryEvent) string {
	if conv, ok := event.Properties.Get(model.KeyConversationID); ok && conv != "" {
		return conv
	}
	return event.ID
}
