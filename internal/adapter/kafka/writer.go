package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/vatnor/runway-selector/internal/config"
	"github.com/vatnor/runway-selector/internal/domain"
	"github.com/vatnor/runway-selector/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces decisions to a Kafka topic.
// It implements pipeline.DecisionSink.
type Publisher struct {
	writer  messageWriter
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured decision topic.
func NewPublisher(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaDecisionTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, clock: clockwork.NewRealClock(), metrics: metrics, logger: logger}
}

// PublishDecisions serializes and publishes one message per decision in a
// single WriteMessages call. Messages are keyed by ICAO so each airport's
// decisions stay ordered within a partition.
func (p *Publisher) PublishDecisions(ctx context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	now := p.clock.Now().UTC()
	msgs := make([]kafkago.Message, len(decisions))
	for i := range decisions {
		msg, err := serializeToMessage(decisions[i], now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish decisions: %w", err)
	}
	p.metrics.DecisionsPublished.Add(float64(len(msgs)))
	p.logger.Debug("decisions published", "count", len(msgs))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a Decision into a Kafka message.
func serializeToMessage(d domain.Decision, decidedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize decision: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(d.ICAO),
		Value: data,
		Time:  decidedAt,
		Headers: []kafkago.Header{
			{Key: "decision_kind", Value: []byte(d.Kind)},
			{Key: "decided_at", Value: []byte(decidedAt.Format(time.RFC3339))},
		},
	}, nil
}
