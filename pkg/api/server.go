package api

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/scottastone/MouseTracker/pkg/config"
	customlog "github.com/scottastone/MouseTracker/pkg/log"
	"github.com/scottastone/MouseTracker/pkg/outlet"
)

// Server is the optional HTTP surface: health, status, metrics and the
// websocket outlet route.
type Server struct {
	app    *fiber.App
	port   int
	logger customlog.Logger
}

// NewServer creates the fiber app with the base routes.
func NewServer(cfg config.ServerConfig, logger customlog.Logger) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Mouse Tracker",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})

	// Request lines go to the debug log, not the terminal the telemetry uses.
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logWriter{logger: logger}}))
	app.Use(recover.New())

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "online",
			"service": "mousetracker",
		})
	})

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	return &Server{app: app, port: cfg.HTTPPort, logger: logger}
}

// App exposes the fiber app for route registration.
func (s *Server) App() *fiber.App {
	return s.app
}

// MountStream serves the websocket outlet at path.
func (s *Server) MountStream(path string, ws *outlet.WebSocketTransport) {
	ws.Mount(s.app, path)
	s.logger.Infof("Websocket outlet available at ws://localhost:%d%s", s.port, path)
}

// Start listens on the configured port in the background. Listen errors are
// sent on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Server starting on port %d", s.port)
		if err := s.app.Listen(fmt.Sprintf(":%d", s.port)); err != nil {
			errCh <- fmt.Errorf("failed to start server: %w", err)
		}
		close(errCh)
	}()
	return errCh
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.app.Listener(ln)
}

// Shutdown stops the server, waiting for open requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infof("Shutting down server...")
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Infof("Server exited properly")
	return nil
}

// Custom error handler
func customErrorHandler(c *fiber.Ctx, err error) error {
	// Default 500 status code
	code := fiber.StatusInternalServerError

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Return JSON response
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// logWriter forwards fiber request log lines to the debug log.
type logWriter struct {
	logger customlog.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte("\n")) {
		if l := strings.TrimSpace(string(line)); l != "" {
			w.logger.Debugf("http: %s", l)
		}
	}
	return len(p), nil
}
