package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

type itemRequest struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Kind        string                `json:"kind"`
	Bonuses     character.ItemBonuses `json:"bonuses"`
}

func (r itemRequest) validate(c *gin.Context) bool {
	if r.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return false
	}
	if !postgres.ValidKind(r.Kind) {
		writeError(c, http.StatusBadRequest, "invalid item kind", postgres.ErrInvalidKind)
		return false
	}
	if err := character.ValidateBonuses(r.Bonuses); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), err)
		return false
	}
	return true
}

func (h *Handler) handleListItems(c *gin.Context) {
	p := listParams(c)
	items, total, err := h.items.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list items")
		return
	}
	writeList(c, p, total, items)
}

func (h *Handler) handleGetItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	item, err := h.items.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load item")
		return
	}
	writeData(c, http.StatusOK, item)
}

func (h *Handler) handleCreateItem(c *gin.Context) {
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	item, err := h.items.Create(c.Request.Context(), req.Name, req.Description, req.Kind, req.Bonuses)
	if err != nil {
		h.respondError(c, err, "failed to create item")
		return
	}
	writeData(c, http.StatusCreated, item)
}

func (h *Handler) handleUpdateItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req itemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	item, err := h.items.Update(c.Request.Context(), id, req.Name, req.Description, req.Kind, req.Bonuses)
	if err != nil {
		h.respondError(c, err, "failed to update item")
		return
	}
	writeData(c, http.StatusOK, item)
}

func (h *Handler) handleDeleteItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.items.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete item")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleItemAttachSkill(c *gin.Context) {
	h.association(c, "failed to attach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.items.AttachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleItemDetachSkill(c *gin.Context) {
	h.association(c, "failed to detach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.items.DetachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleItemAttachTag(c *gin.Context) {
	h.association(c, "failed to attach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.items.AttachTag(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleItemDetachTag(c *gin.Context) {
	h.association(c, "failed to detach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.items.DetachTag(c.Request.Context(), ownerID, refID)
	})
}
