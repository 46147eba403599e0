package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkfinite/internal/app"
	"inkfinite/internal/config"
	"inkfinite/internal/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "inkfinite: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Level(cfg.LogLevel), logger.Format(cfg.LogFormat))

	a := app.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Startup(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "inkfinite: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Shutdown(shutdownCtx)
}
