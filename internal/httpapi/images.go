package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

var errUploadTooLarge = errors.New("uploaded file exceeds the size limit")

func (h *Handler) handleListImages(c *gin.Context) {
	p := listParams(c)
	images, total, err := h.images.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list images")
		return
	}
	writeList(c, p, total, images)
}

func (h *Handler) handleGetImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, err := h.images.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load image")
		return
	}
	writeData(c, http.StatusOK, image)
}

func (h *Handler) handleGetImageFile(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, err := h.images.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load image")
		return
	}

	f, err := h.media.Open(image.Token)
	if err != nil {
		h.respondError(c, postgres.ErrImageNotFound, "failed to open image file")
		return
	}
	defer f.Close()

	c.Header("Content-Type", image.ContentType)
	c.Status(http.StatusOK)
	io.Copy(c.Writer, f)
}

// handleCreateImage accepts a multipart upload under the "file" field,
// records the metadata row, and stores the binary keyed by the row's
// token. The metadata row is rolled back if the binary cannot be stored.
func (h *Handler) handleCreateImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, "multipart field 'file' is required", err)
		return
	}
	if header.Size > h.maxUpload {
		writeError(c, http.StatusBadRequest, "uploaded file exceeds the size limit", errUploadTooLarge)
		return
	}

	f, err := header.Open()
	if err != nil {
		h.respondError(c, err, "failed to read upload")
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	image, err := h.images.Create(c.Request.Context(), callerID(c), header.Filename, contentType, header.Size)
	if err != nil {
		h.respondError(c, err, "failed to create image")
		return
	}

	if _, err := h.media.Save(image.Token, f); err != nil {
		if derr := h.images.Delete(c.Request.Context(), image.ID); derr != nil {
			h.log.Error("orphaned image metadata after failed save",
				zap.Int64("imageID", image.ID), zap.Error(derr))
		}
		h.respondError(c, err, "failed to store image file")
		return
	}

	writeData(c, http.StatusCreated, image)
}

// ownedImage loads an image and checks the caller may modify it: the
// owner always may, editors and admins may modify any image.
func (h *Handler) ownedImage(c *gin.Context, id int64) (postgres.Image, bool) {
	image, err := h.images.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load image")
		return postgres.Image{}, false
	}
	if image.OwnerID != callerID(c) && !callerIsEditor(c) {
		writeError(c, http.StatusForbidden, "image belongs to another user", errNotOwner)
		return postgres.Image{}, false
	}
	return image, true
}

func (h *Handler) handleUpdateImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownedImage(c, id); !ok {
		return
	}
	var req struct {
		Filename string `json:"filename"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Filename == "" {
		writeError(c, http.StatusBadRequest, "filename is required", errNameRequired)
		return
	}

	image, err := h.images.Update(c.Request.Context(), id, req.Filename)
	if err != nil {
		h.respondError(c, err, "failed to update image")
		return
	}
	writeData(c, http.StatusOK, image)
}

func (h *Handler) handleDeleteImage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	image, ok := h.ownedImage(c, id)
	if !ok {
		return
	}

	if err := h.images.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete image")
		return
	}
	if err := h.media.Remove(image.Token); err != nil {
		h.log.Warn("failed to remove image file", zap.String("token", image.Token), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}
