package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imagetrans/internal/apperr"
	"imagetrans/internal/dispatch"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/domain/repositories"
)

// StatusV1 returns the current view of a task without subscribing: the
// live progress snapshot when the task is in flight, otherwise whatever
// the database remembers.
func (h *Handler) StatusV1(c *gin.Context) {
	id := c.Param("id")

	if p, ok := h.dispatcher.Subscribe(id); ok {
		msg, _ := p.Latest()
		c.JSON(http.StatusOK, h.progressView(msg))
		return
	}

	task, err := h.tasks.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			err = apperr.ErrNotFound
		}
		apperr.Respond(c, err)
		return
	}

	if res := task.Result(); res != nil {
		c.JSON(http.StatusOK, resultMsg(h.store.PublicURL(res.TranslationMask)))
		return
	}
	if task.State == models.TaskStateError {
		c.JSON(http.StatusOK, errorMsg(nil))
		return
	}
	c.JSON(http.StatusOK, notFoundMsg())
}

// EventV1 upgrades to a WebSocket and streams progress messages for one
// task until a terminal message is sent or the client leaves.
func (h *Handler) EventV1(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Debug("event upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	id := c.Param("id")
	ctx := c.Request.Context()

	if p, ok := h.dispatcher.Subscribe(id); ok {
		h.follow(ctx, conn, p)
		return
	}

	// Not in flight. A finished task still gets its result, a missing row
	// is reported as not found, and a storage failure surfaces as an opaque
	// error id rather than a false not_found.
	task, err := h.tasks.FindByID(ctx, id)
	if err == nil {
		if res := task.Result(); res != nil {
			h.writeEvent(conn, resultMsg(h.store.PublicURL(res.TranslationMask)))
			return
		}
	} else if !errors.Is(err, repositories.ErrNotFound) {
		errID := uuid.New().String()
		h.log.Error("load task for event stream",
			zap.String("task_id", id),
			zap.String("error_id", errID),
			zap.Error(err))
		h.writeEvent(conn, errorMsg(&errID))
		return
	}

	h.writeEvent(conn, notFoundMsg())
}

// follow streams a progress cell to one subscriber. The snapshot is sent
// first; afterwards each change is relayed until a terminal message.
func (h *Handler) follow(ctx context.Context, conn *websocket.Conn, p *dispatch.Progress) {
	// Reading keeps control frames flowing and detects the client leaving.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		changed := p.Changed()
		msg, closed := p.Latest()

		if err := h.writeEvent(conn, h.progressView(msg)); err != nil {
			return
		}
		if msg.Terminal() || closed {
			return
		}

		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-changed:
		}
	}
}

func (h *Handler) writeEvent(conn *websocket.Conn, msg gin.H) error {
	err := conn.WriteJSON(msg)
	if err != nil {
		h.log.Debug("event write failed", zap.Error(err))
	}
	return err
}
