package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"imagetrans/internal/dispatch"
)

// taskResultView is the result object returned to subscribers. The stored
// blob key is mapped to its public URL.
type taskResultView struct {
	TranslationMask string `json:"translation_mask"`
}

// createResponse is the body of the task-creation endpoints.
type createResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result *taskResultView `json:"result"`
}

// Subscriber-facing message envelopes, discriminated by "type".

func pendingMsg(pos int) gin.H {
	return gin.H{"type": "pending", "pos": pos}
}

func statusMsg(status string) gin.H {
	return gin.H{"type": "status", "status": status}
}

func resultMsg(url string) gin.H {
	return gin.H{"type": "result", "result": taskResultView{TranslationMask: url}}
}

func errorMsg(errorID *string) gin.H {
	return gin.H{"type": "error", "error_id": errorID}
}

func notFoundMsg() gin.H {
	return gin.H{"type": "not_found"}
}

// progressView converts a live progress value into its JSON envelope.
func (h *Handler) progressView(msg dispatch.ProgressMessage) gin.H {
	switch msg.Kind {
	case dispatch.KindPending:
		return pendingMsg(msg.Pos)
	case dispatch.KindStatus:
		return statusMsg(msg.Status)
	case dispatch.KindResult:
		return resultMsg(h.store.PublicURL(msg.Result.TranslationMask))
	default:
		retry := strconv.FormatBool(msg.Retry)
		return errorMsg(&retry)
	}
}
