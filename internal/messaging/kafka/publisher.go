// Package kafka publishes order lifecycle events to Kafka.
package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/recregt/e-kktc/internal/domain/checkout"
	"github.com/recregt/e-kktc/internal/domain/order"
)

// EventOrderPlaced is the type of the event emitted after an order commits.
const EventOrderPlaced = "order.placed"

// DefaultTopic receives order events when no topic is configured.
const DefaultTopic = "kktc.orders"

var _ checkout.EventPublisher = (*Publisher)(nil)

// Publisher sends order events through a synchronous producer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

// NewPublisher connects an idempotent producer to brokers.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return newPublisher(producer, topic), nil
}

func newPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer: producer, topic: topic}
}

// PublishOrderPlaced sends an order.placed event keyed by order id.
func (p *Publisher) PublishOrderPlaced(ctx context.Context, rec order.Record, items []order.Item) error {
	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(rec.ID),
		Value:     sarama.ByteEncoder(EncodeOrderPlaced(rec, items)),
		Timestamp: time.Now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(EventOrderPlaced)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send %s for order %s: %w", EventOrderPlaced, rec.ID, err)
	}

	zctx.From(ctx).Debug("Event published",
		zap.String("topic", p.topic),
		zap.String("order_id", rec.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *Publisher) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}

// EncodeOrderPlaced renders the event payload. Money is encoded as decimal
// strings with two fraction digits.
func EncodeOrderPlaced(rec order.Record, items []order.Item) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(EventOrderPlaced)
	e.FieldStart("orderId")
	e.Str(rec.ID)
	e.FieldStart("orderNumber")
	e.Str(rec.Number)
	e.FieldStart("userId")
	e.Str(rec.UserID)
	e.FieldStart("paymentMethod")
	e.Str(string(rec.PaymentMethod))
	e.FieldStart("total")
	e.Str(rec.Total.StringFixed(2))
	e.FieldStart("placedAt")
	e.Str(rec.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("sellerId")
		if it.SellerID != nil {
			e.Str(*it.SellerID)
		} else {
			e.Null()
		}
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		e.Str(it.UnitPrice.StringFixed(2))
		e.FieldStart("total")
		e.Str(it.Total.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}
