package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/scottastone/MouseTracker/domain/tracker"
	"github.com/scottastone/MouseTracker/pkg/config"
	customlog "github.com/scottastone/MouseTracker/pkg/log"
	"github.com/scottastone/MouseTracker/pkg/outlet"
	"gopkg.in/yaml.v3"
)

// StatusProvider reports the sampling loop state. *tracker.Loop implements it.
type StatusProvider interface {
	Status() tracker.Status
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Loop   tracker.Status     `json:"loop"`
	Stream *outlet.StreamInfo `json:"stream,omitempty"`
}

// StatusHandler holds dependencies for the status endpoints.
type StatusHandler struct {
	loop   StatusProvider
	stream outlet.Outlet
	cfg    *config.Config
	logger customlog.Logger
}

// RegisterStatusRoutes registers /api/status, /api/config and, when metrics is
// not nil, /metrics. stream may be nil.
func RegisterStatusRoutes(app *fiber.App, loop StatusProvider, stream outlet.Outlet, cfg *config.Config, metrics http.Handler, logger customlog.Logger) {
	h := &StatusHandler{loop: loop, stream: stream, cfg: cfg, logger: logger}

	apiGroup := app.Group("/api")
	apiGroup.Get("/status", h.handleGetStatus)
	apiGroup.Get("/config", h.handleGetConfig)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	logger.Infof("Registered status API endpoints under /api")
}

// handleGetStatus returns the loop snapshot and the stream description.
func (h *StatusHandler) handleGetStatus(c *fiber.Ctx) error {
	resp := StatusResponse{Loop: h.loop.Status()}
	if h.stream != nil {
		info := h.stream.Info()
		resp.Stream = &info
	}
	return c.JSON(resp)
}

// handleGetConfig returns the effective configuration as YAML.
func (h *StatusHandler) handleGetConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/config")
	yamlData, err := yaml.Marshal(h.cfg)
	if err != nil {
		h.logger.Errorf("Failed to marshal configuration: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "failed to render configuration")
	}
	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Status(http.StatusOK).Send(yamlData)
}
