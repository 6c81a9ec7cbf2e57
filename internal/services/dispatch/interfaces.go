package dispatch

import (
	"context"
	"time"

	"github.com/BearBump/ShipBridge/internal/broker/kafka"
	"github.com/BearBump/ShipBridge/internal/broker/messages"
	"github.com/BearBump/ShipBridge/internal/models"
)

// ShipmentStore is the write side of the shipment registry used by the dispatcher.
type ShipmentStore interface {
	Put(sh models.Shipment)
}

// ReplySender delivers a reply to the outbound topic and reports completion.
type ReplySender interface {
	Send(ctx context.Context, reply messages.FulfillmentReply, partitionKey string) error
}

// ProcessedStore хранит обработанные messageId для дедупликации повторных доставок.
type ProcessedStore interface {
	// IsProcessed returns true if messageID was handled and its ttl has not expired.
	IsProcessed(ctx context.Context, messageID string) (bool, error)
	// MarkProcessed must be idempotent.
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) error
}

// Producer is the raw durable-log writer behind ReplyEmitter.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Consumer interface {
	Consume(ctx context.Context, handler kafka.Handler) error
}
