package dispatch

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/BearBump/ShipBridge/internal/broker/messages"
)

// ReplyEmitter publishes fulfillment replies to the reply topic. No retry, no backoff:
// the caller decides what to do with a failed send.
type ReplyEmitter struct {
	producer Producer
	topic    string
}

func NewReplyEmitter(producer Producer, topic string) *ReplyEmitter {
	return &ReplyEmitter{producer: producer, topic: topic}
}

func (e *ReplyEmitter) Send(ctx context.Context, reply messages.FulfillmentReply, partitionKey string) error {
	b, err := json.Marshal(reply)
	if err != nil {
		return errors.Wrap(err, "marshal fulfillment reply")
	}
	return e.producer.Publish(ctx, e.topic, []byte(partitionKey), b)
}
