package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/BearBump/ShipBridge/internal/services/dispatch"
	"github.com/BearBump/ShipBridge/internal/shutdown"
)

type shipmentAPIOpts struct {
	httpAddr      string
	topic         string
	consumerGroup string

	onListen func(httpAddr string)
}

// runShipmentAPI поднимает HTTP и цикл потребления команд. Ошибка транспорта
// в цикле потребления останавливает весь процесс: ретраев внутри нет.
func runShipmentAPI(
	ctx context.Context,
	logger *zap.Logger,
	opts shipmentAPIOpts,
	handler http.Handler,
	d *dispatch.Dispatcher,
	consumer dispatch.Consumer,
	sm *shutdown.Manager,
) error {
	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return errors.Wrap(err, "http listen")
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	// регистрируется последним, значит останавливается первым
	sm.Add("http server", shutdown.HTTPServer(srv))

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	consumerErr := make(chan error, 1)
	go func() {
		logger.Info("kafka consumer starting",
			zap.String("topic", opts.topic),
			zap.String("group", opts.consumerGroup))
		consumerErr <- d.Run(ctx, consumer)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-httpErr:
		return errors.Wrap(err, "http server")
	case err := <-consumerErr:
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return errors.New("dispatch consumer stopped unexpectedly")
		}
		return errors.Wrap(err, "dispatch consumer")
	}
}
