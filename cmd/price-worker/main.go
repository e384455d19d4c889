package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/PriceBox/config"
)

func main() {
	cfg, err := config.LoadConfig(os.Getenv("configPath"))
	if err != nil {
		panic(fmt.Sprintf("failed to parse config: %v", err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := workerHTTPOpts{
		httpAddr:    cfg.PriceBox.WorkerHTTPAddr,
		swaggerPath: os.Getenv("swaggerPath"),
	}
	if err := RunPriceWorker(ctx, cfg, defaultWorkerFactories(), opts); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
