package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/inlet"
	customlog "github.com/scottastone/MouseTracker/pkg/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Bootstrap("inlet", args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "inlet: %v\n", err)
		return 2
	}

	logger, logCloser, err := customlog.NewLogrusLogger(customlog.Options{
		Level:   cfg.Logging.Level,
		Console: os.Stderr,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "inlet: failed to initialize logger: %v\n", err)
		return 1
	}
	defer logCloser.Close()

	in, err := inlet.New(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to create inlet: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := inlet.NewPrinter(os.Stdout)
	if err := in.Run(ctx, printer.Handle); err != nil {
		logger.Errorf("Inlet stopped: %v", err)
		return 1
	}
	return 0
}
