package publisher

import (
	"context"
	"time"

	"github.com/mbsaloka/lume-cashier-app/internal/logger"
	"github.com/mbsaloka/lume-cashier-app/internal/store"
	"github.com/segmentio/kafka-go"
)

// EventStore is the outbox side of the backend repository
type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*store.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPoller struct {
	tick      time.Duration
	batchSize int
	repo      EventStore
	writer    MessageWriter
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewOutboxPoller(repo EventStore, writer MessageWriter, tick time.Duration, batchSize int) *OutboxPoller {
	if tick <= 0 {
		tick = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxPoller{tick: tick, batchSize: batchSize, repo: repo, writer: writer}
}

// Run publishes pending events every tick until ctx is done
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents returns how many events were published and marked
func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) int {
	log := logger.WithContext(ctx)

	events, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch outbox events")
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			log.Warn().Err(err).Int64("event_id", event.ID).Msg("failed to publish outbox event")
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			log.Warn().Err(err).Int64("event_id", event.ID).Msg("failed to mark outbox event as processed")
			continue
		}
		published++
	}
	return published
}

func (p *OutboxPoller) publish(ctx context.Context, event *store.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
