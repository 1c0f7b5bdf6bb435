package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imagetrans/internal/apperr"
)

type twitterCreateRequest struct {
	Tweet string `json:"tweet"`
	Photo int    `json:"photo"`
	taskParamFields
}

// TwitterPutV1 creates a task for one photo of a tweet.
func (h *Handler) TwitterPutV1(c *gin.Context) {
	h.twitterV1(c, false)
}

// TwitterPostV1 is the retry form of TwitterPutV1.
func (h *Handler) TwitterPostV1(c *gin.Context) {
	h.twitterV1(c, true)
}

func (h *Handler) twitterV1(c *gin.Context, retry bool) {
	var req twitterCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.BadRequestf("invalid request body: %v", err))
		return
	}
	if req.Tweet == "" {
		apperr.Respond(c, apperr.BadRequestf("missing tweet"))
		return
	}

	param, err := req.taskParamFields.parse()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	ctx := c.Request.Context()

	sourceID, png, err := h.twitter.TweetImage(ctx, req.Tweet, req.Photo)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	sub, err := h.dispatcher.UpsertAndDispatch(ctx, sourceID, param, retry, png)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, h.creationResponse(sub))
}
