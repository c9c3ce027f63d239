package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type skillRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleListSkills(c *gin.Context) {
	p := listParams(c)
	skills, total, err := h.skills.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list skills")
		return
	}
	writeList(c, p, total, skills)
}

func (h *Handler) handleGetSkill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	skill, err := h.skills.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load skill")
		return
	}
	writeData(c, http.StatusOK, skill)
}

func (h *Handler) handleCreateSkill(c *gin.Context) {
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	skill, err := h.skills.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(c, err, "failed to create skill")
		return
	}
	writeData(c, http.StatusCreated, skill)
}

func (h *Handler) handleUpdateSkill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req skillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	skill, err := h.skills.Update(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondError(c, err, "failed to update skill")
		return
	}
	writeData(c, http.StatusOK, skill)
}

func (h *Handler) handleDeleteSkill(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.skills.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete skill")
		return
	}
	c.Status(http.StatusNoContent)
}
