package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

var errNotOwner = errors.New("character belongs to another user")

type characterRequest struct {
	Name        string                   `json:"name"`
	Surname     *string                  `json:"surname"`
	Nickname    *string                  `json:"nickname"`
	Description *string                  `json:"description"`
	AvatarID    *int64                   `json:"avatarId"`
	Visible     bool                     `json:"visible"`
	RaceID      int64                    `json:"raceId"`
	ArchetypeID int64                    `json:"archetypeId"`
	Base        character.BaseAttributes `json:"baseAttributes"`
}

func (r characterRequest) validate(c *gin.Context) bool {
	if r.Name == "" {
		writeError(c, http.StatusBadRequest, "name is required", errNameRequired)
		return false
	}
	if r.RaceID < 1 || r.ArchetypeID < 1 {
		writeError(c, http.StatusBadRequest, "raceId and archetypeId are required", errMissingFK)
		return false
	}
	if err := character.ValidateBase(r.Base); err != nil {
		writeError(c, http.StatusBadRequest, err.Error(), err)
		return false
	}
	return true
}

var errMissingFK = errors.New("race and archetype references are required")

func (h *Handler) handleListCharacters(c *gin.Context) {
	p := listParams(c)
	chars, total, err := h.characters.List(c.Request.Context(), p)
	if err != nil {
		h.respondError(c, err, "failed to list characters")
		return
	}
	writeList(c, p, total, chars)
}

func (h *Handler) handleGetCharacter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ch, err := h.characters.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load character")
		return
	}
	writeData(c, http.StatusOK, ch)
}

func (h *Handler) handleCreateCharacter(c *gin.Context) {
	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	// Deactivated users keep a valid token until it expires; they still
	// may not take ownership of new characters.
	owner, err := h.users.GetByID(c.Request.Context(), callerID(c))
	if err != nil {
		h.respondError(c, err, "failed to load character owner")
		return
	}
	if !owner.Active {
		h.respondError(c, postgres.ErrUserInactive, "failed to create character")
		return
	}

	ch, err := h.characters.Create(c.Request.Context(), &character.Character{
		UserID:      callerID(c),
		Name:        req.Name,
		Surname:     req.Surname,
		Nickname:    req.Nickname,
		Description: req.Description,
		AvatarID:    req.AvatarID,
		Visible:     req.Visible,
		RaceID:      req.RaceID,
		ArchetypeID: req.ArchetypeID,
		Base:        req.Base,
	})
	if err != nil {
		h.respondError(c, err, "failed to create character")
		return
	}
	writeData(c, http.StatusCreated, ch)
}

// ownedCharacter loads a character and checks the caller may modify it:
// the owner always may, editors and admins may modify any character.
func (h *Handler) ownedCharacter(c *gin.Context, id int64) (*character.Character, bool) {
	ch, err := h.characters.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to load character")
		return nil, false
	}
	if ch.UserID != callerID(c) && !callerIsEditor(c) {
		writeError(c, http.StatusForbidden, "character belongs to another user", errNotOwner)
		return nil, false
	}
	return ch, true
}

func (h *Handler) handleUpdateCharacter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ch, ok := h.ownedCharacter(c, id)
	if !ok {
		return
	}

	var req characterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if !req.validate(c) {
		return
	}

	ch.Name = req.Name
	ch.Surname = req.Surname
	ch.Nickname = req.Nickname
	ch.Description = req.Description
	ch.AvatarID = req.AvatarID
	ch.Visible = req.Visible
	ch.RaceID = req.RaceID
	ch.ArchetypeID = req.ArchetypeID
	ch.Base = req.Base

	updated, err := h.characters.Update(c.Request.Context(), ch)
	if err != nil {
		h.respondError(c, err, "failed to update character")
		return
	}
	writeData(c, http.StatusOK, updated)
}

func (h *Handler) handleDeleteCharacter(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if _, ok := h.ownedCharacter(c, id); !ok {
		return
	}
	if err := h.characters.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err, "failed to delete character")
		return
	}
	c.Status(http.StatusNoContent)
}

// pathSlot parses the slot path parameter. On failure it writes a 400
// and reports ok=false.
func pathSlot(c *gin.Context) (character.Slot, bool) {
	slot := character.Slot(c.Param("slot"))
	if !character.ValidSlot(slot) {
		writeError(c, http.StatusBadRequest, "unknown equipment slot", errUnknownSlot)
		return "", false
	}
	return slot, true
}

var errUnknownSlot = errors.New("slot must be one of the seven equipment slots")

type equipRequest struct {
	ItemID int64 `json:"itemId"`
}

func (h *Handler) handleEquip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slot, ok := pathSlot(c)
	if !ok {
		return
	}
	if _, ok := h.ownedCharacter(c, id); !ok {
		return
	}

	var req equipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}
	if req.ItemID < 1 {
		writeError(c, http.StatusBadRequest, "itemId is required", errInvalidID)
		return
	}

	ch, err := h.characters.Equip(c.Request.Context(), id, slot, req.ItemID)
	if err != nil {
		h.respondError(c, err, "failed to equip item")
		return
	}
	writeData(c, http.StatusOK, ch)
}

func (h *Handler) handleUnequip(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	slot, ok := pathSlot(c)
	if !ok {
		return
	}
	if _, ok := h.ownedCharacter(c, id); !ok {
		return
	}

	ch, err := h.characters.Unequip(c.Request.Context(), id, slot)
	if err != nil {
		h.respondError(c, err, "failed to unequip slot")
		return
	}
	writeData(c, http.StatusOK, ch)
}

func (h *Handler) handleListInventory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	items, err := h.characters.ListInventory(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err, "failed to list inventory")
		return
	}
	writeData(c, http.StatusOK, items)
}

func (h *Handler) handleAddInventoryItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "refId")
	if !ok {
		return
	}
	if _, ok := h.ownedCharacter(c, id); !ok {
		return
	}
	if err := h.characters.AddItem(c.Request.Context(), id, itemID); err != nil {
		h.respondError(c, err, "failed to add item")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleRemoveInventoryItem(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "refId")
	if !ok {
		return
	}
	if _, ok := h.ownedCharacter(c, id); !ok {
		return
	}
	if err := h.characters.RemoveItem(c.Request.Context(), id, itemID); err != nil {
		h.respondError(c, err, "failed to remove item")
		return
	}
	c.Status(http.StatusNoContent)
}
