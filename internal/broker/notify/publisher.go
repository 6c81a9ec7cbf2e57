package notify

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/internal/broker/messages"
)

// State is a step of a single publish attempt:
// IDLE -> CONNECTING -> {PUBLISHING -> DONE, FAILED_CONNECT -> DONE, TIMED_OUT -> DONE}.
type State string

const (
	StateIdle          State = "IDLE"
	StateConnecting    State = "CONNECTING"
	StatePublishing    State = "PUBLISHING"
	StateFailedConnect State = "FAILED_CONNECT"
	StateTimedOut      State = "TIMED_OUT"
	StateDone          State = "DONE"
)

const DefaultTimeout = time.Second

// Conn is one broker connection, opened per attempt.
type Conn interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Close() error
}

type Dialer func(ctx context.Context) (Conn, error)

// Outcome describes which edge led an attempt to DONE.
type Outcome struct {
	Edge     State
	Err      error
	Duration time.Duration
}

type Stats struct {
	Attempted     int64 `json:"attempted"`
	Delivered     int64 `json:"delivered"`
	Failed        int64 `json:"failed"`
	FailedConnect int64 `json:"failedConnect"`
	TimedOut      int64 `json:"timedOut"`
}

// Publisher доставляет уведомления по принципу best-effort: без очереди, без ретраев,
// ошибки только логируются.
type Publisher struct {
	logger  *zap.Logger
	dial    Dialer
	channel string
	timeout time.Duration

	wg sync.WaitGroup

	attempted     atomic.Int64
	delivered     atomic.Int64
	failed        atomic.Int64
	failedConnect atomic.Int64
	timedOut      atomic.Int64
}

func New(logger *zap.Logger, dial Dialer, channel string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Publisher{
		logger:  logger,
		dial:    dial,
		channel: channel,
		timeout: timeout,
	}
}

// Publish starts one attempt in the background and returns immediately.
func (p *Publisher) Publish(ev messages.AnalyticsNotification) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.Attempt(context.Background(), ev)
	}()
}

// Attempt runs a single attempt synchronously. It returns no later than the timeout budget,
// and the connection is closed exactly once whichever edge fires first.
func (p *Publisher) Attempt(ctx context.Context, ev messages.AnalyticsNotification) Outcome {
	p.attempted.Add(1)
	start := time.Now()

	payload, err := json.Marshal(ev)
	if err != nil {
		p.failed.Add(1)
		p.logger.Error("notification encode failed", zap.Error(err), zap.String("notification_id", ev.NotificationID))
		return Outcome{Edge: StateIdle, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	a := &attempt{}
	results := make(chan Outcome, 1)

	// CONNECTING
	go func() {
		conn, err := p.dial(ctx)
		if err != nil {
			results <- Outcome{Edge: StateFailedConnect, Err: err}
			return
		}
		if !a.bind(conn) {
			// попытку уже бросили по таймауту, соединение никому не нужно
			_ = conn.Close()
			return
		}
		results <- Outcome{Edge: StatePublishing, Err: conn.Publish(ctx, p.channel, payload)}
	}()

	var out Outcome
	select {
	case out = <-results:
	case <-ctx.Done():
		out = Outcome{Edge: StateTimedOut, Err: ctx.Err()}
	}
	a.teardown()
	out.Duration = time.Since(start)

	p.record(ev, out)
	return out
}

// Wait blocks until background attempts finish or ctx is done.
func (p *Publisher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Attempted:     p.attempted.Load(),
		Delivered:     p.delivered.Load(),
		Failed:        p.failed.Load(),
		FailedConnect: p.failedConnect.Load(),
		TimedOut:      p.timedOut.Load(),
	}
}

func (p *Publisher) record(ev messages.AnalyticsNotification, out Outcome) {
	fields := []zap.Field{
		zap.String("notification_id", ev.NotificationID),
		zap.String("request_id", ev.RequestID),
		zap.String("channel", p.channel),
		zap.String("edge", string(out.Edge)),
		zap.Duration("duration", out.Duration),
	}
	switch {
	case out.Edge == StatePublishing && out.Err == nil:
		p.delivered.Add(1)
		p.logger.Debug("notification published", fields...)
	case out.Edge == StateFailedConnect:
		p.failedConnect.Add(1)
		p.logger.Warn("notification broker unreachable, dropped", append(fields, zap.Error(out.Err))...)
	case out.Edge == StateTimedOut:
		p.timedOut.Add(1)
		p.logger.Warn("notification publish timed out, dropped", append(fields, zap.Error(out.Err))...)
	default:
		p.failed.Add(1)
		p.logger.Warn("notification publish failed, dropped", append(fields, zap.Error(out.Err))...)
	}
}

// attempt owns the connection of one publish attempt and guards its teardown.
type attempt struct {
	mu     sync.Mutex
	conn   Conn
	closed bool
	once   sync.Once
}

func (a *attempt) bind(c Conn) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.conn = c
	return true
}

func (a *attempt) teardown() {
	a.once.Do(func() {
		a.mu.Lock()
		a.closed = true
		c := a.conn
		a.mu.Unlock()
		if c != nil {
			_ = c.Close()
		}
	})
}

// Noop drops every notification. Used when no notification broker is configured.
type Noop struct{}

func (Noop) Publish(messages.AnalyticsNotification) {}
