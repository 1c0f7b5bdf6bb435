package handler

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WorkerWS authenticates an MIT worker and hands the upgraded connection
// to the dispatcher for the rest of its life.
func (h *Handler) WorkerWS(c *gin.Context) {
	secret := c.GetHeader("x-secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		c.Status(http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("worker upgrade failed", zap.Error(err))
		return
	}

	h.dispatcher.RunWorkerSession(c.Request.Context(), conn)
}
