package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/config"
	shipmentsapi "github.com/BearBump/ShipBridge/internal/api/shipments_api"
	"github.com/BearBump/ShipBridge/internal/broker/kafka"
	"github.com/BearBump/ShipBridge/internal/broker/notify"
	"github.com/BearBump/ShipBridge/internal/cache/rediscache"
	"github.com/BearBump/ShipBridge/internal/logging"
	"github.com/BearBump/ShipBridge/internal/services/dispatch"
	"github.com/BearBump/ShipBridge/internal/services/shipments"
	"github.com/BearBump/ShipBridge/internal/shutdown"
	"github.com/BearBump/ShipBridge/internal/storage/memshipments"
)

const serviceName = "shipment-api"

type commandConsumer interface {
	dispatch.Consumer
	Close() error
}

type replyProducer interface {
	dispatch.Producer
	Close() error
}

type appFactories struct {
	newConsumer func(cfg *config.Config, logger *zap.Logger) commandConsumer
	newProducer func(cfg *config.Config) replyProducer
	// nil-диалер означает, что уведомления отключены
	newDialer func(cfg *config.Config) notify.Dialer
}

func defaultAppFactories() appFactories {
	return appFactories{
		newConsumer: func(cfg *config.Config, logger *zap.Logger) commandConsumer {
			return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.DispatchCommandTopic, cfg.Kafka.ConsumerGroup)
		},
		newProducer: func(cfg *config.Config) replyProducer {
			return kafka.NewProducer(cfg.Kafka.Brokers)
		},
		newDialer: func(cfg *config.Config) notify.Dialer {
			if cfg.Notify.RedisAddr == "" {
				return nil
			}
			return notify.RedisDialer(cfg.Notify.RedisAddr)
		},
	}
}

type shipmentAPIApp struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	opts   shipmentAPIOpts

	router     http.Handler
	store      *memshipments.Store
	dispatcher *dispatch.Dispatcher
	consumer   commandConsumer
	shutdown   *shutdown.Manager
}

func mustBootstrapShipmentAPI() *shipmentAPIApp {
	cfg, err := config.Load(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("ошибка парсинга конфига, %v", err))
	}

	logger, err := logging.New(logging.Config{
		ServiceName: serviceName,
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
	})
	if err != nil {
		panic(fmt.Sprintf("ошибка создания логгера, %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return bootstrapShipmentAPI(ctx, cancel, cfg, logger, defaultAppFactories())
}

// bootstrapShipmentAPI собирает граф зависимостей. Функции остановки регистрируются
// в порядке создания и выполняются в обратном.
func bootstrapShipmentAPI(
	ctx context.Context,
	cancel context.CancelFunc,
	cfg *config.Config,
	logger *zap.Logger,
	f appFactories,
) *shipmentAPIApp {
	sm := shutdown.New(cfg.Shutdown.Settle, logger)
	store := memshipments.New()

	producer := f.newProducer(cfg)
	sm.Add("kafka producer", shutdown.Closer(producer))
	replies := dispatch.NewReplyEmitter(producer, cfg.Kafka.FulfillmentReplyTopic)

	d := dispatch.New(logger.Named("dispatch"), store, replies)
	if cfg.Dedup.Enabled {
		if cfg.Dedup.RedisAddr != "" {
			ps := rediscache.NewProcessedStore(cfg.Dedup.RedisAddr)
			sm.Add("dedup redis", shutdown.Closer(ps))
			d.WithProcessedStore(ps, cfg.Dedup.TTL)
		} else {
			d.WithProcessedStore(dispatch.NewMemoryProcessedStore(), cfg.Dedup.TTL)
		}
	}

	var notifier shipments.Notifier = notify.Noop{}
	var publisher *notify.Publisher
	if dial := f.newDialer(cfg); dial != nil {
		publisher = notify.New(logger.Named("notify"), dial, cfg.Notify.Channel, cfg.Notify.Timeout)
		sm.Add("notification drain", publisher.Wait)
		notifier = publisher
	} else {
		logger.Info("notification broker not configured, notifications disabled")
	}

	consumer := f.newConsumer(cfg, logger.Named("kafka"))
	sm.Add("kafka consumer", shutdown.Closer(consumer))

	svc := shipments.New(store, notifier)
	api := shipmentsapi.New(svc, logger.Named("http"))
	router := shipmentsapi.NewRouter(api, shipmentsapi.RouterOpts{
		SwaggerPath: cfg.App.SwaggerPath,
		Stats: func() any {
			out := map[string]any{
				"dispatch":  d.Stats(),
				"shipments": store.Len(),
			}
			if publisher != nil {
				out["notify"] = publisher.Stats()
			}
			return out
		},
	})

	return &shipmentAPIApp{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
		opts: shipmentAPIOpts{
			httpAddr:      cfg.HTTPAddr(),
			topic:         cfg.Kafka.DispatchCommandTopic,
			consumerGroup: cfg.Kafka.ConsumerGroup,
		},
		router:     router,
		store:      store,
		dispatcher: d,
		consumer:   consumer,
		shutdown:   sm,
	}
}

func (a *shipmentAPIApp) Run() error {
	return runShipmentAPI(a.ctx, a.logger, a.opts, a.router, a.dispatcher, a.consumer, a.shutdown)
}

func (a *shipmentAPIApp) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.shutdown.Shutdown()
	logging.Sync(a.logger)
}
