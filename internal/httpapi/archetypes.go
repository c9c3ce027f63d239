package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type archetypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleListArchetypes(c *gin.Context) {
	p := listParams(c)
	archetypes, total, err := h.archetypes.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list archetypes")
		return
	}
	writeList(c, p, total, archetypes)
}

func (h *Handler) handleGetArchetype(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	archetype, err := h.archetypes.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load archetype")
		return
	}
	writeData(c, http.StatusOK, archetype)
}

func (h *Handler) handleCreateArchetype(c *gin.Context) {
	var req archetypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	archetype, err := h.archetypes.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		h.respondError(c, err, "failed to create archetype")
		return
	}
	writeData(c, http.StatusCreated, archetype)
}

func (h *Handler) handleUpdateArchetype(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req archetypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return
	}

	archetype, err := h.archetypes.Update(c.Request.Context(), id, req.Name, req.Description)
	if err != nil {
		h.respondError(c, err, "failed to update archetype")
		return
	}
	writeData(c, http.StatusOK, archetype)
}

func (h *Handler) handleDeleteArchetype(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.archetypes.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete archetype")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleArchetypeAttachSkill(c *gin.Context) {
	h.association(c, "failed to attach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.archetypes.AttachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleArchetypeDetachSkill(c *gin.Context) {
	h.association(c, "failed to detach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.archetypes.DetachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleArchetypeAttachTag(c *gin.Context) {
	h.association(c, "failed to attach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.archetypes.AttachTag(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleArchetypeDetachTag(c *gin.Context) {
	h.association(c, "failed to detach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.archetypes.DetachTag(c.Request.Context(), ownerID, refID)
	})
}
