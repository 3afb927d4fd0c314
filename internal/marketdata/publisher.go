// Package marketdata periodically publishes an enriched snapshot to a
// market-data Kafka topic, distinct from (and using a different client
// library than) the per-trade broadcaster. There is no direct teacher
// equivalent — kafka-go is a domain dependency present in the teacher's
// go.mod but never imported by any teacher code, so this package gives it
// a concrete home alongside sarama's trade-broadcast role.
package marketdata

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"lobengine/internal/analytics"
	"lobengine/internal/orderbook"
)

// Producer wraps a kafka-go writer. Grounded on the teacher's
// infra/kafka/producer.go Producer{writer}/NewProducer/Send/Close shape.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer constructs a synchronous, require-all-acks kafka-go writer
// targeting topic across brokers.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send publishes one message with the given key/value.
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
}

// Close closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// sender is the subset of Producer's behavior Publisher depends on,
// narrow enough to fake in tests without a real Kafka broker.
type sender interface {
	Send(ctx context.Context, key, value []byte) error
}

// Publisher periodically builds an enriched snapshot of book and sends it
// to the market-data topic via a sender (normally a Producer).
type Publisher struct {
	producer sender
	book     *orderbook.OrderBook
	depth    int
	flags    analytics.MetricFlag
	interval time.Duration
}

// NewPublisher constructs a Publisher for book, publishing the top depth
// levels with flags-selected metrics every interval.
func NewPublisher(producer *Producer, book *orderbook.OrderBook, depth int, flags analytics.MetricFlag, interval time.Duration) *Publisher {
	return newPublisherWithSender(producer, book, depth, flags, interval)
}

func newPublisherWithSender(s sender, book *orderbook.OrderBook, depth int, flags analytics.MetricFlag, interval time.Duration) *Publisher {
	return &Publisher{producer: s, book: book, depth: depth, flags: flags, interval: interval}
}

// Run publishes on a ticker until ctx is cancelled. A failed publish is
// swallowed (next tick tries again) rather than aborting the loop,
// matching the teacher's own snapshot job, which continues past a
// failed write.
func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.publishOnce(ctx)
		}
	}
}

func (p *Publisher) publishOnce(ctx context.Context) error {
	snap := analytics.BuildEnrichedSnapshot(p.book, p.depth, p.flags)
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.producer.Send(ctx, []byte(snap.Symbol), payload)
}
