package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/internal/broker/messages"
	"github.com/BearBump/ShipBridge/internal/models"
)

const DefaultProcessedTTL = 24 * time.Hour

// Dispatcher turns dispatch commands into shipments and fulfillment replies.
// Commands of one consumption unit are handled strictly one after another:
// HandleMessage returns only after the reply send has completed.
type Dispatcher struct {
	logger    *zap.Logger
	store     ShipmentStore
	replies   ReplySender
	processed ProcessedStore
	ttl       time.Duration
	now       func() time.Time

	// решения, по которым ответ ещё не ушёл: при повторной доставке
	// переотправляем тот же ответ, а не создаём вторую отгрузку
	pendingMu sync.Mutex
	pending   map[string]messages.FulfillmentReply

	startedAt   time.Time
	received    atomic.Int64
	accepted    atomic.Int64
	rejected    atomic.Int64
	dropped     atomic.Int64
	duplicates  atomic.Int64
	replyErrors atomic.Int64
	lastErrorMu sync.Mutex
	lastError   string
}

func New(logger *zap.Logger, store ShipmentStore, replies ReplySender) *Dispatcher {
	return &Dispatcher{
		logger:    logger,
		store:     store,
		replies:   replies,
		ttl:       DefaultProcessedTTL,
		now:       time.Now,
		pending:   make(map[string]messages.FulfillmentReply),
		startedAt: time.Now().UTC(),
	}
}

// WithProcessedStore enables messageId deduplication. A nil store disables it.
func (d *Dispatcher) WithProcessedStore(s ProcessedStore, ttl time.Duration) *Dispatcher {
	d.processed = s
	if ttl > 0 {
		d.ttl = ttl
	}
	return d
}

// Run consumes commands until ctx is cancelled or a transport error stops the loop.
func (d *Dispatcher) Run(ctx context.Context, c Consumer) error {
	d.logger.Info("dispatch command consumer started")
	err := c.Consume(ctx, d.HandleMessage)
	if err != nil && ctx.Err() == nil {
		d.logger.Error("dispatch command consumer stopped", zap.Error(err))
	}
	return err
}

// HandleMessage is the per-message fault boundary. Malformed payloads and duplicates
// return nil (the message is consumed); only transport failures are returned.
func (d *Dispatcher) HandleMessage(ctx context.Context, key, value []byte) error {
	d.received.Add(1)

	cmd, err := messages.ParseDispatchCommand(value)
	if err != nil {
		d.dropped.Add(1)
		d.logger.Warn("malformed dispatch command dropped",
			zap.Error(err),
			zap.ByteString("key", key),
		)
		return nil
	}

	log := d.logger.With(
		zap.String("message_id", cmd.MessageID),
		zap.String("request_id", cmd.RequestID),
		zap.String("order_id", cmd.OrderID),
	)

	if d.processed != nil {
		seen, err := d.processed.IsProcessed(ctx, cmd.MessageID)
		if err != nil {
			d.setLastError(err)
			return errors.Wrap(err, "check processed message")
		}
		if seen {
			d.duplicates.Add(1)
			log.Info("dispatch command already processed, skipping")
			return nil
		}
	}

	reply, ok := d.pendingReply(cmd.MessageID)
	if ok {
		d.duplicates.Add(1)
		log.Info("redelivered dispatch command, resending previous reply", zap.String("status", string(reply.Status)))
	} else {
		reply = d.decide(cmd)
		d.setPending(cmd.MessageID, reply)
	}

	if err := d.replies.Send(ctx, reply, cmd.OrderID); err != nil {
		d.replyErrors.Add(1)
		d.setLastError(err)
		return errors.Wrap(err, "send fulfillment reply")
	}
	d.clearPending(cmd.MessageID)

	if d.processed != nil {
		// ответ уже ушёл: ошибку отметки только логируем, иначе повторная доставка
		// создаст дубль
		if err := d.processed.MarkProcessed(ctx, cmd.MessageID, d.ttl); err != nil {
			d.setLastError(err)
			log.Warn("failed to mark dispatch command processed", zap.Error(err))
		}
	}

	log.Info("fulfillment reply sent", zap.String("status", string(reply.Status)))
	return nil
}

func (d *Dispatcher) decide(cmd messages.DispatchCommand) messages.FulfillmentReply {
	reply := messages.FulfillmentReply{
		RequestID: cmd.RequestID,
		OrderID:   cmd.OrderID,
		RepliedAt: d.now().UTC().Format(time.RFC3339Nano),
	}

	if _, ok := ParseRequestedAt(cmd.RequestedAt); !ok {
		reason := messages.RejectionInvalidRequestedAt
		reply.Status = messages.ReplyStatusRejected
		reply.RejectionReason = &reason
		d.rejected.Add(1)
		return reply
	}

	sh := models.NewShipment(cmd.OrderID, cmd.Carrier)
	d.store.Put(*sh)

	trackingID := sh.TrackingNumber
	reply.Status = messages.ReplyStatusAccepted
	reply.TrackingID = &trackingID
	d.accepted.Add(1)
	return reply
}

func (d *Dispatcher) pendingReply(messageID string) (messages.FulfillmentReply, bool) {
	d.pendingMu.Lock()
	defer d.pendingMu.Unlock()
	r, ok := d.pending[messageID]
	return r, ok
}

func (d *Dispatcher) setPending(messageID string, r messages.FulfillmentReply) {
	d.pendingMu.Lock()
	d.pending[messageID] = r
	d.pendingMu.Unlock()
}

func (d *Dispatcher) clearPending(messageID string) {
	d.pendingMu.Lock()
	delete(d.pending, messageID)
	d.pendingMu.Unlock()
}

func (d *Dispatcher) setLastError(err error) {
	d.lastErrorMu.Lock()
	d.lastError = err.Error()
	d.lastErrorMu.Unlock()
}

type Stats struct {
	StartedAt   time.Time `json:"startedAt"`
	Received    int64     `json:"received"`
	Accepted    int64     `json:"accepted"`
	Rejected    int64     `json:"rejected"`
	Dropped     int64     `json:"dropped"`
	Duplicates  int64     `json:"duplicates"`
	ReplyErrors int64     `json:"replyErrors"`
	Pending     int       `json:"pending"`
	LastError   string    `json:"lastError,omitempty"`
}

func (d *Dispatcher) Stats() Stats {
	st := Stats{
		StartedAt:   d.startedAt,
		Received:    d.received.Load(),
		Accepted:    d.accepted.Load(),
		Rejected:    d.rejected.Load(),
		Dropped:     d.dropped.Load(),
		Duplicates:  d.duplicates.Load(),
		ReplyErrors: d.replyErrors.Load(),
	}
	d.pendingMu.Lock()
	st.Pending = len(d.pending)
	d.pendingMu.Unlock()
	d.lastErrorMu.Lock()
	st.LastError = d.lastError
	d.lastErrorMu.Unlock()
	return st
}
