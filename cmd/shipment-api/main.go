package main

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	app := mustBootstrapShipmentAPI()

	err := app.Run()
	app.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Fatal("shipment-api stopped", zap.Error(err))
	}
}
