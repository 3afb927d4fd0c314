// Package broadcaster publishes every trade the matching engine emits to
// a Kafka topic, decoupled from the matching hot path by an internal
// buffered channel rather than a synchronous publish inside the trade
// listener callback.
package broadcaster

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"lobengine/internal/orderbook"
)

// tradeEvent is the wire shape published to Kafka. Grounded on the
// teacher's jobs/broadcaster/broadcaster.go Event{V,Type,ID,Seq}, widened
// with the trade fields actually needed downstream.
type tradeEvent struct {
	V             int    `json:"v"`
	Type          string `json:"type"`
	Symbol        string `json:"symbol"`
	MakerOrderID  string `json:"maker_order_id"`
	TakerOrderID  string `json:"taker_order_id"`
	Price         uint64 `json:"price"`
	Quantity      uint64 `json:"quantity"`
	AggressorSide string `json:"aggressor_side"`
	TimestampNs   int64  `json:"timestamp_ns"`
}

// Broadcaster owns a synchronous sarama producer and a bounded queue of
// trades waiting to be published. Grounded on the teacher's
// jobs/broadcaster/broadcaster.go Broadcaster{exitWAL,producer,topic}
// shape, with the exit-WAL replay loop replaced by draining an in-process
// channel fed directly from OrderBook.OnTrade, since this engine has no
// exit WAL of its own to replay from.
type Broadcaster struct {
	producer sarama.SyncProducer
	topic    string
	trades   chan orderbook.Trade
}

// New dials brokers and constructs a Broadcaster publishing to topic.
// Mirrors the teacher's own producer configuration: require acks from
// every broker in the set, retry up to 5 times.
func New(brokers []string, topic string) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	return newWithProducer(producer, topic), nil
}

func newWithProducer(producer sarama.SyncProducer, topic string) *Broadcaster {
	return &Broadcaster{
		producer: producer,
		topic:    topic,
		trades:   make(chan orderbook.Trade, 4096),
	}
}

// ListenTo subscribes to book's trade feed and enqueues every trade for
// publication, dropping it instead of blocking the matching loop if the
// queue is ever full. Returns the subscription's unsubscribe function.
func (b *Broadcaster) ListenTo(book *orderbook.OrderBook) func() {
	return book.OnTrade(func(t orderbook.Trade) {
		select {
		case b.trades <- t:
		default:
		}
	})
}

// Run drains the trade queue and publishes each trade until ctx is
// cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-b.trades:
			_ = b.publish(t)
		}
	}
}

func (b *Broadcaster) publish(t orderbook.Trade) error {
	payload, err := json.Marshal(tradeEvent{
		V:             1,
		Type:          "trade",
		Symbol:        t.Symbol,
		MakerOrderID:  t.MakerOrderID.String(),
		TakerOrderID:  t.TakerOrderID.String(),
		Price:         t.Price,
		Quantity:      t.Quantity,
		AggressorSide: t.AggressorSide.String(),
		TimestampNs:   t.Timestamp.UnixNano(),
	})
	if err != nil {
		return err
	}

	_, _, err = b.producer.SendMessage(&sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(t.Symbol),
		Value: sarama.ByteEncoder(payload),
	})
	return err
}

// Close closes the underlying producer, waiting out any in-flight send.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

// QueueDepth reports how many trades are currently buffered for
// publication, useful for a health check or metric.
func (b *Broadcaster) QueueDepth() int {
	return len(b.trades)
}
