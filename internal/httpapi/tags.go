package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errNameRequired = errors.New("name is required")

type tagRequest struct {
	Name string `json:"name"`
}

func (h *Handler) handleListTags(c *gin.Context) {
	p := listParams(c)
	tags, total, err := h.tags.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list tags")
		return
	}
	writeList(c, p, total, tags)
}

func (h *Handler) handleGetTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	tag, err := h.tags.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load tag")
		return
	}
	writeData(c, http.StatusOK, tag)
}

func (h *Handler) handleCreateTag(c *gin.Context) {
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	tag, err := h.tags.Create(c.Request.Context(), req.Name)
	if err != nil {
		h.respondError(c, err, "failed to create tag")
		return
	}
	writeData(c, http.StatusCreated, tag)
}

func (h *Handler) handleUpdateTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req tagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	tag, err := h.tags.Update(c.Request.Context(), id, req.Name)
	if err != nil {
		h.respondError(c, err, "failed to update tag")
		return
	}
	writeData(c, http.StatusOK, tag)
}

func (h *Handler) handleDeleteTag(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.tags.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete tag")
		return
	}
	c.Status(http.StatusNoContent)
}
