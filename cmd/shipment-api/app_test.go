package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/config"
	"github.com/BearBump/ShipBridge/internal/broker/kafka"
	"github.com/BearBump/ShipBridge/internal/broker/messages"
	"github.com/BearBump/ShipBridge/internal/broker/notify"
)

// fakeConsumer отдаёт заранее заданные сообщения, затем ждёт отмены ctx.
type fakeConsumer struct {
	values  [][]byte
	failErr error

	mu     sync.Mutex
	closed bool
}

func (c *fakeConsumer) Consume(ctx context.Context, handler kafka.Handler) error {
	for _, v := range c.values {
		if err := handler(ctx, nil, v); err != nil {
			return err
		}
	}
	if c.failErr != nil {
		return c.failErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (c *fakeConsumer) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type sentMessage struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	mu     sync.Mutex
	sent   []sentMessage
	err    error
	closed bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: string(key), value: value})
	return nil
}

func (p *fakeProducer) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *fakeProducer) messages() []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sentMessage(nil), p.sent...)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.HTTP.Host = "127.0.0.1"
	cfg.HTTP.Port = 0
	cfg.Notify.RedisAddr = ""
	cfg.Shutdown.Settle = time.Second
	return &cfg
}

func testFactories(c *fakeConsumer, p *fakeProducer, dial notify.Dialer) appFactories {
	return appFactories{
		newConsumer: func(*config.Config, *zap.Logger) commandConsumer { return c },
		newProducer: func(*config.Config) replyProducer { return p },
		newDialer:   func(*config.Config) notify.Dialer { return dial },
	}
}

func startApp(t *testing.T, app *shipmentAPIApp) (string, chan error) {
	t.Helper()
	addrCh := make(chan string, 1)
	app.opts.onListen = func(addr string) { addrCh <- addr }

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	select {
	case addr := <-addrCh:
		return "http://" + addr, errCh
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for listener")
	}
	return "", nil
}

func TestShipmentAPI_EndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Notify.RedisAddr = mr.Addr()
	cfg.Dedup.RedisAddr = mr.Addr()

	cmd := []byte(`{"messageId":"m1","requestId":"r1","orderId":"o-1","carrier":"DHL","requestedAt":"2024-05-01T10:00:00Z"}`)
	bad := []byte(`{"messageId":"m2","requestId":"r2","orderId":"o-2","carrier":"","requestedAt":"not-a-date"}`)
	consumer := &fakeConsumer{values: [][]byte{cmd, bad, cmd, []byte(`{broken`)}}
	producer := &fakeProducer{}

	sub := mr.NewSubscriber()
	sub.Subscribe(cfg.Notify.Channel)

	ctx, cancel := context.WithCancel(context.Background())
	app := bootstrapShipmentAPI(ctx, cancel, cfg, zap.NewNop(), testFactories(consumer, producer, notify.RedisDialer(mr.Addr())))
	base, errCh := startApp(t, app)

	// принятая, отклонённая, повтор принятой (отброшен дедупом), мусор
	require.Eventually(t, func() bool { return app.dispatcher.Stats().Received == 4 }, 2*time.Second, 10*time.Millisecond)

	sent := producer.messages()
	require.Len(t, sent, 2)
	require.Equal(t, cfg.Kafka.FulfillmentReplyTopic, sent[0].topic)
	require.Equal(t, "o-1", sent[0].key)
	require.Equal(t, "o-2", sent[1].key)

	var accepted messages.FulfillmentReply
	require.NoError(t, json.Unmarshal(sent[0].value, &accepted))
	require.Equal(t, messages.ReplyStatusAccepted, accepted.Status)
	require.Equal(t, "r1", accepted.RequestID)

	var rejected messages.FulfillmentReply
	require.NoError(t, json.Unmarshal(sent[1].value, &rejected))
	require.Equal(t, messages.ReplyStatusRejected, rejected.Status)
	require.Nil(t, rejected.TrackingID)

	list := app.store.List("o-1")
	require.Len(t, list, 1)
	require.Equal(t, *accepted.TrackingID, list[0].TrackingNumber)
	require.Equal(t, 1, app.store.Len())

	resp, err := http.Post(base+"/shipments", "application/json",
		strings.NewReader(`{"orderId":"o-3","destinationPostalCode":"10001"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	select {
	case msg := <-sub.Messages():
		var ev messages.AnalyticsNotification
		require.NoError(t, json.Unmarshal([]byte(msg.Message), &ev))
		require.Equal(t, "Shipment created", ev.Title)
		require.Equal(t, messages.PriorityNormal, ev.Priority)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}

	resp, err = http.Get(base + "/stats")
	require.NoError(t, err)
	var stats map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	resp.Body.Close()
	require.Contains(t, stats, "dispatch")
	require.Contains(t, stats, "notify")
	require.JSONEq(t, "2", string(stats["shipments"]))

	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	app.Close()
	require.True(t, consumer.closed)
	require.True(t, producer.closed)

	_, err = http.Get(base + "/healthz")
	require.Error(t, err)
}

func TestShipmentAPI_ReplyFailureHalts(t *testing.T) {
	cmd := []byte(`{"messageId":"m1","requestId":"r1","orderId":"o-1","carrier":"","requestedAt":"2024-05-01"}`)
	boom := errors.New("leader not available")
	consumer := &fakeConsumer{values: [][]byte{cmd}}
	producer := &fakeProducer{err: boom}

	ctx, cancel := context.WithCancel(context.Background())
	app := bootstrapShipmentAPI(ctx, cancel, testConfig(), zap.NewNop(), testFactories(consumer, producer, nil))
	defer app.Close()

	_, errCh := startApp(t, app)
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not halt on reply failure")
	}
	require.Equal(t, int64(1), app.dispatcher.Stats().ReplyErrors)
}

func TestShipmentAPI_ConsumerTransportErrorHalts(t *testing.T) {
	boom := errors.New("fetch failed")
	consumer := &fakeConsumer{failErr: boom}

	ctx, cancel := context.WithCancel(context.Background())
	app := bootstrapShipmentAPI(ctx, cancel, testConfig(), zap.NewNop(), testFactories(consumer, &fakeProducer{}, nil))
	defer app.Close()

	_, errCh := startApp(t, app)
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not halt on consumer error")
	}
}

func TestShipmentAPI_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.Port = 70000

	ctx, cancel := context.WithCancel(context.Background())
	app := bootstrapShipmentAPI(ctx, cancel, cfg, zap.NewNop(), testFactories(&fakeConsumer{}, &fakeProducer{}, nil))
	defer app.Close()

	require.Error(t, app.Run())
}

func TestDefaultAppFactories(t *testing.T) {
	cfg := testConfig()
	f := defaultAppFactories()

	require.Nil(t, f.newDialer(cfg))
	cfg.Notify.RedisAddr = "127.0.0.1:1"
	require.NotNil(t, f.newDialer(cfg))

	p := f.newProducer(cfg)
	require.NoError(t, p.Close())
	c := f.newConsumer(cfg, zap.NewNop())
	require.NoError(t, c.Close())
}
