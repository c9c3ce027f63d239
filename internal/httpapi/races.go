package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkrasner/grimoire/internal/game/character"
)

type raceRequest struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Modifiers   character.RaceModifiers `json:"modifiers"`
}

func (r raceRequest) validate(c *gin.Context) bool {
	if r.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return false
	}
	if err := character.ValidateModifiers(r.Modifiers); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), err)
		return false
	}
	return true
}

func (h *Handler) handleListRaces(c *gin.Context) {
	p := listParams(c)
	races, total, err := h.races.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list races")
		return
	}
	writeList(c, p, total, races)
}

func (h *Handler) handleGetRace(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	race, err := h.races.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load race")
		return
	}
	writeData(c, http.StatusOK, race)
}

func (h *Handler) handleCreateRace(c *gin.Context) {
	var req raceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	race, err := h.races.Create(c.Request.Context(), req.Name, req.Description, req.Modifiers)
	if err != nil {
		h.respondError(c, err, "failed to create race")
		return
	}
	writeData(c, http.StatusCreated, race)
}

func (h *Handler) handleUpdateRace(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req raceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	race, err := h.races.Update(c.Request.Context(), id, req.Name, req.Description, req.Modifiers)
	if err != nil {
		h.respondError(c, err, "failed to update race")
		return
	}
	writeData(c, http.StatusOK, race)
}

func (h *Handler) handleDeleteRace(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.races.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete race")
		return
	}
	c.Status(http.StatusNoContent)
}

// association reruns the attach/detach pattern shared by the content
// entities: parse both IDs, call fn, answer 204 on success.
func (h *Handler) association(c *gin.Context, fallback string, fn func(ctx *gin.Context, ownerID, refID int64) error) {
	ownerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	refID, ok := pathID(c, "refId")
	if !ok {
		return
	}
	if err := fn(c, ownerID, refID); err != nil {
		h.respondError(c, err, fallback)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleRaceAttachSkill(c *gin.Context) {
	h.association(c, "failed to attach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.races.AttachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleRaceDetachSkill(c *gin.Context) {
	h.association(c, "failed to detach skill", func(c *gin.Context, ownerID, refID int64) error {
		return h.races.DetachSkill(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleRaceAttachTag(c *gin.Context) {
	h.association(c, "failed to attach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.races.AttachTag(c.Request.Context(), ownerID, refID)
	})
}

func (h *Handler) handleRaceDetachTag(c *gin.Context) {
	h.association(c, "failed to detach tag", func(c *gin.Context, ownerID, refID int64) error {
		return h.races.DetachTag(c.Request.Context(), ownerID, refID)
	})
}
