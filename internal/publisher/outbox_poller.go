package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_bookstore/internal/domain"
	"github.com/fjod/go_bookstore/internal/metrics"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "bookstore-sales"
	batchSize    = 100
)

type OutboxStore interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkEventAsPublished(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxPoller relays sale.recorded rows to Kafka. Delivery is at-least-once:
// an event is marked only after the broker accepted it.
type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	repo      OutboxStore
	writer    MessageWriter
	log       *slog.Logger
	metrics   *metrics.Metrics
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewOutboxPoller(repo OutboxStore, writer MessageWriter, log *slog.Logger, m *metrics.Metrics) *OutboxPoller {
	if log == nil {
		log = slog.Default()
	}
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		repo:      repo,
		writer:    writer,
		log:       log.With("component", "outbox"),
		metrics:   m,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnpublishedEvents(ctx, batchSize)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.WarnContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			continue
		}

		if err := p.repo.MarkEventAsPublished(ctx, event.ID); err != nil {
			p.log.WarnContext(ctx, "failed to mark outbox event as published", "event_id", event.ID, "error", err)
			continue
		}
		if p.metrics != nil {
			p.metrics.OutboxPublished.WithLabelValues(event.EventType).Inc()
		}
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *domain.OutboxEvent) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // sale id keeps a sale's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
