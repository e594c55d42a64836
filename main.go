package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"thai-search-proxy/bootstrap"
	"thai-search-proxy/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx); err != nil {
		if logger.Logger != nil {
			logger.Logger.Error("service exited with error", "err", err)
		}
		os.Exit(1)
	}
}
