package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"imagetrans/internal/apperr"
)

type pixivCreateRequest struct {
	Artwork int64 `json:"artwork"`
	Page    int   `json:"page"`
	taskParamFields
}

// PixivPutV1 creates a task for one page of a pixiv artwork.
func (h *Handler) PixivPutV1(c *gin.Context) {
	h.pixivV1(c, false)
}

// PixivPostV1 is the retry form of PixivPutV1.
func (h *Handler) PixivPostV1(c *gin.Context) {
	h.pixivV1(c, true)
}

func (h *Handler) pixivV1(c *gin.Context, retry bool) {
	var req pixivCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Respond(c, apperr.BadRequestf("invalid request body: %v", err))
		return
	}
	if req.Artwork == 0 {
		apperr.Respond(c, apperr.BadRequestf("missing artwork"))
		return
	}

	param, err := req.taskParamFields.parse()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	ctx := c.Request.Context()

	sourceID, png, err := h.pixiv.ArtworkImage(ctx, req.Artwork, req.Page)
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
