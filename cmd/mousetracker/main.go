package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scottastone/MouseTracker/domain/tracker"
	"github.com/scottastone/MouseTracker/pkg/api"
	"github.com/scottastone/MouseTracker/pkg/config"
	"github.com/scottastone/MouseTracker/pkg/console"
	"github.com/scottastone/MouseTracker/pkg/cursor"
	customlog "github.com/scottastone/MouseTracker/pkg/log"
	"github.com/scottastone/MouseTracker/pkg/metrics"
	"github.com/scottastone/MouseTracker/pkg/outlet"
)

// Exit codes
const (
	exitOK      = 0
	exitRuntime = 1
	exitUsage   = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Bootstrap("mousetracker", args, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(os.Stderr, "mousetracker: %v\n", err)
		return exitUsage
	}

	terminal, err := console.Open(os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mousetracker: %v\n", err)
		return exitRuntime
	}
	defer terminal.Restore()
	out := terminal.Writer()

	logger, logCloser, err := customlog.NewLogrusLogger(customlog.Options{
		Level:   cfg.Logging.Level,
		LogDir:  cfg.Logging.LogPath,
		Console: out,
	})
	if err != nil {
		terminal.Restore()
		fmt.Fprintf(os.Stderr, "mousetracker: failed to initialize logger: %v\n", err)
		return exitRuntime
	}
	defer logCloser.Close()

	logger.Infof("Mouse tracker starting: %d Hz, source=%s, backend=%s, encoding=%s",
		cfg.Sampling.Hertz, cfg.Sampling.Source, cfg.Stream.Backend, cfg.Stream.Encoding)

	source, err := cursor.NewSource(cfg.Sampling.Source)
	if err != nil {
		logger.Errorf("Failed to open cursor source: %v", err)
		return exitRuntime
	}

	stream, err := outlet.New(cfg.Stream, cfg.Sampling.Hertz, logger)
	if err != nil {
		logger.Errorf("Failed to create outlet: %v", err)
		return exitRuntime
	}

	collector := metrics.NewCollector()
	loop, err := tracker.NewLoop(tracker.Options{
		Hertz:             cfg.Sampling.Hertz,
		Source:            source,
		Publisher:         stream,
		Input:             terminal.Input(),
		Output:            out,
		State:             tracker.NewState(cfg.Stream.Enabled, cfg.Display.Enabled),
		Pacer:             newPacer(cfg.Sampling),
		SkipAcquireErrors: cfg.Sampling.OnError == config.OnErrorSkip,
		Metrics:           collector,
		Logger:            logger.WithField("component", "tracker"),
	})
	if err != nil {
		stream.Close()
		logger.Errorf("Failed to create sampling loop: %v", err)
		return exitRuntime
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var server *api.Server
	if cfg.ServerRequired() {
		server = api.NewServer(cfg.Server, logger.WithField("component", "http"))
		api.RegisterStatusRoutes(server.App(), loop, stream, cfg, collector.Handler(), logger)
		if ws, ok := stream.Transport().(*outlet.WebSocketTransport); ok {
			server.MountStream(cfg.Stream.WebSocket.Path, ws)
		}

		// A server that cannot listen stops the loop
		serverErrs := server.Start()
		go func() {
			if err, ok := <-serverErrs; ok && err != nil {
				cancel(err)
			}
		}()
	}

	runErr := loop.Run(ctx)
	if runErr == nil {
		if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
			runErr = cause
		}
	}

	teardown(terminal, stream, server, logger)

	if runErr != nil {
		logger.Errorf("Mouse tracker stopped: %v", runErr)
		return exitRuntime
	}
	logger.Infof("Mouse tracker exited after %d samples", loop.Status().Ticks)
	return exitOK
}

func newPacer(cfg config.SamplingConfig) tracker.Pacer {
	interval := tracker.Interval(cfg.Hertz)
	if cfg.Scheduling == config.SchedulingDeadline {
		return tracker.NewDeadlinePacer(interval)
	}
	return tracker.NewSleepPacer(interval, nil)
}

// teardown restores the terminal, closes the outlet and stops the HTTP server,
// in that order.
func teardown(terminal *console.Terminal, stream io.Closer, server *api.Server, logger customlog.Logger) {
	if err := terminal.Restore(); err != nil {
		logger.Warnf("Failed to restore terminal: %v", err)
	}
	if err := stream.Close(); err != nil {
		logger.Warnf("Failed to close outlet: %v", err)
	}
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Warnf("%v", err)
		}
	}
}
