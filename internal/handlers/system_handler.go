package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	db             Pinger
	signerDegraded bool
	publicKeyPEM   []byte
}

// NewSystemHandler takes the PEM public key clients pin; nil when the
// server runs without a signing key.
func NewSystemHandler(db Pinger, signerDegraded bool, publicKeyPEM []byte) *SystemHandler {
	return &SystemHandler{db: db, signerDegraded: signerDegraded, publicKeyPEM: publicKeyPEM}
}

func (h *SystemHandler) Health(c *gin.Context) {
	signer := "active"
	if h.signerDegraded {
		signer = "degraded"
	}

	status := http.StatusOK
	database := "ok"
	if err := h.db.Ping(c.Request.Context()); err != nil {
		status = http.StatusServiceUnavailable
		database = "unavailable"
	}

	c.JSON(status, gin.H{
		"status":   "IronLock Server Online",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"signer":   signer,
		"database": database,
	})
}

func (h *SystemHandler) PublicKey(c *gin.Context) {
	if len(h.publicKeyPEM) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Signing is not configured"})
		return
	}
	c.Data(http.StatusOK, "application/x-pem-file", h.publicKeyPEM)
}
