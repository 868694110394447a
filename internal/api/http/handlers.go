package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/relay"
)

// OutcomeHeader tells the client how the relay classified a forward.
const OutcomeHeader = "X-Relay-Outcome"

const (
	serviceName    = "Remote Relay"
	serviceVersion = "1.0.0"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	relay   *relay.Relay
	metrics *monitoring.Metrics
}

// NewHandlers creates a new handler set. metrics may be nil.
func NewHandlers(r *relay.Relay, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		relay:   r,
		metrics: metrics,
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "online",
		"service":     serviceName,
		"version":     serviceVersion,
		"device_port": relay.ControlPort,
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{"status": "healthy"}

	if h.metrics != nil {
		resp["metrics"] = h.metrics.Snapshot()
	}
	if breakers := h.relay.Breakers(); breakers != nil {
		resp["breakers"] = breakerStates(breakers.States())
	}

	c.JSON(http.StatusOK, resp)
}

// Keypress forwards a key press to the device
func (h *Handlers) Keypress(c *gin.Context) {
	outcome, err := h.relay.Keypress(c.Request.Context(), c.Param("address"), operand(c, "key"))
	h.render(c, outcome, err)
}

// Launch starts an application on the device
func (h *Handlers) Launch(c *gin.Context) {
	outcome, err := h.relay.Launch(c.Request.Context(), c.Param("address"), operand(c, "appId"))
	h.render(c, outcome, err)
}

// Query reads device state
func (h *Handlers) Query(c *gin.Context) {
	outcome, err := h.relay.Query(c.Request.Context(), c.Param("address"), operand(c, "queryPath"))
	h.render(c, outcome, err)
}

// DeviceSummary reports the identity of the device at address
func (h *Handlers) DeviceSummary(c *gin.Context) {
	summary, outcome, err := h.relay.Describe(c.Request.Context(), c.Param("address"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header(OutcomeHeader, outcome.Kind.String())
	if !outcome.Reached() {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   outcome.Err.Error(),
			"valid":   false,
			"address": summary.Address,
		})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// render writes a forward's outcome. Device responses are passed through
// verbatim whatever their status.
func (h *Handlers) render(c *gin.Context, outcome relay.Outcome, err error) {
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			status = http.StatusInternalServerError
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.Header(OutcomeHeader, outcome.Kind.String())

	if !outcome.Reached() {
		_ = c.Error(outcome.Err)
		c.String(http.StatusBadGateway, "Relay error: %s", outcome.Err.Error())
		return
	}

	c.Data(outcome.Response.StatusCode, outcome.Response.ContentType, outcome.Response.Body)
}

func isValidationError(err error) bool {
	return errors.Is(err, relay.ErrInvalidAddress) ||
		errors.Is(err, relay.ErrEmptyOperand) ||
		errors.Is(err, relay.ErrInvalidOperand) ||
		errors.Is(err, relay.ErrUnknownOperation)
}

// operand returns a catch-all path parameter without its leading slash.
func operand(c *gin.Context, name string) string {
	return strings.TrimPrefix(c.Param(name), "/")
}
