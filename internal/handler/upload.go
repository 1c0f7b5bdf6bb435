package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"imagetrans/internal/apperr"
	"imagetrans/internal/blob"
	"imagetrans/internal/dispatch"
	"imagetrans/internal/domain/models"
	"imagetrans/internal/imageproc"
)

// UploadPutV1 creates a task for a directly uploaded image.
func (h *Handler) UploadPutV1(c *gin.Context) {
	h.uploadV1(c, false)
}

// UploadPostV1 is the retry form of UploadPutV1.
func (h *Handler) UploadPostV1(c *gin.Context) {
	h.uploadV1(c, true)
}

func (h *Handler) uploadV1(c *gin.Context, retry bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperr.Respond(c, apperr.BadRequestf("missing file"))
		return
	}

	fields := taskParamFields{
		TargetLanguage: c.PostForm("target_language"),
		Detector:       c.PostForm("detector"),
		Direction:      c.PostForm("direction"),
		Translator:     c.PostForm("translator"),
		Size:           c.PostForm("size"),
	}
	param, err := fields.parse()
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	// The retry field in the body takes precedence over the method.
	if v := c.PostForm("retry"); v != "" {
		r, err := strconv.ParseBool(v)
		if err != nil {
			apperr.Respond(c, apperr.BadRequestf("invalid retry value: %q", v))
			return
		}
		retry = r
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperr.Respond(c, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	h.log.Info("upload received",
		zap.Int("file_len", len(data)),
		zap.Any("param", param),
		zap.Bool("retry", retry))

	img, err := imageproc.Normalize(data)
	if err != nil {
		apperr.Respond(c, apperr.BadRequestf("unreadable image: %v", err))
		return
	}

	ctx := c.Request.Context()

	key := blob.UploadImageKey(img.Sha)
	if err := h.store.Put(ctx, key, img.PNG); err != nil {
		apperr.Respond(c, err)
		return
	}

	sourceID, err := h.images.Upsert(ctx, models.NewSourceImage(img.Hash, key, img.Width, img.Height), retry)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	sub, err := h.dispatcher.UpsertAndDispatch(ctx, sourceID, param, retry, img.PNG)
	if err != nil {
		apperr.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, h.creationResponse(sub))
}

// creationResponse maps a dispatch outcome to the creation response body.
func (h *Handler) creationResponse(sub *dispatch.Submission) createResponse {
	if sub.Result != nil {
		return createResponse{
			ID:     sub.Task.ID,
			Status: string(sub.Task.State),
			Result: &taskResultView{
				TranslationMask: h.store.PublicURL(sub.Result.TranslationMask),
			},
		}
	}
	return createResponse{
		ID:     sub.Task.ID,
		Status: string(models.TaskStatePending),
		Result: nil,
	}
}
