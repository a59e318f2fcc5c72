// Package health provides liveness and readiness handlers for the admin
// HTTP server.
package health

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Prober exposes the piece of server state the readiness probe inspects.
type Prober interface {
	// Addr returns the chat listener address, or nil before it is bound.
	Addr() net.Addr
}

// Handler serves the health endpoints.
type Handler struct {
	srv Prober
}

// NewHandler creates a health handler probing the given server.
func NewHandler(srv Prober) *Handler {
	return &Handler{srv: srv}
}

// Liveness reports that the process is up.
func (h *Handler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Readiness reports whether the chat listener is accepting connections.
func (h *Handler) Readiness(c *gin.Context) {
	if h.srv == nil || h.srv.Addr() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"addr":   h.srv.Addr().String(),
	})
}
