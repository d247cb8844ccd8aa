package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fitlife/fitlife/storage"
	"github.com/fitlife/fitlife/utils"
)

type UploadController struct {
	store    storage.BlobStore
	maxBytes int64
	logger   *zap.Logger
}

func NewUploadController(store storage.BlobStore, maxMB int, logger *zap.Logger) *UploadController {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxMB <= 0 {
		maxMB = 10
	}
	return &UploadController{store: store, maxBytes: int64(maxMB) << 20, logger: logger}
}

// Upload stores the multipart field "file" in the bucket named by the path, images only.
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	bucket := ctx.Param("bucket")
	if !storage.ValidBucket(bucket) {
		utils.Error(ctx, http.StatusNotFound, 40420, "unknown bucket")
		return
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40040, "missing file")
		return
	}
	if fh.Size > u.maxBytes {
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40041, "unreadable file")
		return
	}
	defer f.Close()

	data, ext, err := storage.SniffImage(f, u.maxBytes)
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		utils.Error(ctx, http.StatusRequestEntityTooLarge, 41301, "file too large")
		return
	case errors.Is(err, storage.ErrNotImage):
		utils.Error(ctx, http.StatusUnsupportedMediaType, 41501, "only images can be uploaded")
		return
	case err != nil:
		utils.Error(ctx, http.StatusBadRequest, 40041, "unreadable file")
		return
	}

	objectPath := storage.ObjectPath(userID, ext, time.Now())
	url, err := u.store.Put(ctx.Request.Context(), bucket, objectPath, bytes.NewReader(data))
	if err != nil {
		u.logger.Error("store upload failed", zap.String("bucket", bucket), zap.String("path", objectPath), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to store file")
		return
	}
	utils.Created(ctx, gin.H{"url": url, "bucket": bucket, "path": objectPath})
}
