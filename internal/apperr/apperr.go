// Package apperr maps application errors to HTTP responses. Client errors
// carry their message; everything else is logged under a fresh error id and
// only the id leaves the process.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"imagetrans/internal/logger"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// BadRequest is a client error whose message is safe to return verbatim.
type BadRequest struct {
	Msg string
}

func (e *BadRequest) Error() string { return e.Msg }

// BadRequestf builds a BadRequest from a format string.
func BadRequestf(format string, args ...any) error {
	return &BadRequest{Msg: fmt.Sprintf(format, args...)}
}

// Respond writes the HTTP response for err.
func Respond(c *gin.Context, err error) {
	var br *BadRequest
	switch {
	case errors.As(err, &br):
		c.JSON(http.StatusBadRequest, gin.H{"error": br.Msg})
	case errors.Is(err, ErrNotFound):
		c.Status(http.StatusNotFound)
	default:
		id := uuid.New().String()
		logger.Get().Error("request failed",
			zap.String("error_id", id),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error_id": id})
	}
}
