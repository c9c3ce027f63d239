// Package httpapi exposes the game entities over a gin REST API.
package httpapi

import (
	"context"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dkrasner/grimoire/internal/auth"
	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

// UserStore is the persistence surface the user and auth handlers need.
type UserStore interface {
	Create(ctx context.Context, username, email, password string) (postgres.User, error)
	Authenticate(ctx context.Context, username, password string) (postgres.User, error)
	GetByID(ctx context.Context, id int64) (postgres.User, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.User, int64, error)
	Update(ctx context.Context, id int64, email, role string, active bool) (postgres.User, error)
	Delete(ctx context.Context, id int64) error
}

// SkillStore is the persistence surface the skill handlers need.
type SkillStore interface {
	Create(ctx context.Context, name, description string) (postgres.Skill, error)
	GetByID(ctx context.Context, id int64) (postgres.Skill, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Skill, int64, error)
	Update(ctx context.Context, id int64, name, description string) (postgres.Skill, error)
	Delete(ctx context.Context, id int64) error
}

// TagStore is the persistence surface the tag handlers need.
type TagStore interface {
	Create(ctx context.Context, name string) (postgres.Tag, error)
	GetByID(ctx context.Context, id int64) (postgres.Tag, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Tag, int64, error)
	Update(ctx context.Context, id int64, name string) (postgres.Tag, error)
	Delete(ctx context.Context, id int64) error
}

// RaceStore is the persistence surface the race handlers need.
type RaceStore interface {
	Create(ctx context.Context, name, description string, m character.RaceModifiers) (postgres.Race, error)
	GetByID(ctx context.Context, id int64) (postgres.Race, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Race, int64, error)
	Update(ctx context.Context, id int64, name, description string, m character.RaceModifiers) (postgres.Race, error)
	Delete(ctx context.Context, id int64) error
	AttachSkill(ctx context.Context, raceID, skillID int64) error
	DetachSkill(ctx context.Context, raceID, skillID int64) error
	AttachTag(ctx context.Context, raceID, tagID int64) error
	DetachTag(ctx context.Context, raceID, tagID int64) error
}

// ArchetypeStore is the persistence surface the archetype handlers need.
type ArchetypeStore interface {
	Create(ctx context.Context, name, description string) (postgres.Archetype, error)
	GetByID(ctx context.Context, id int64) (postgres.Archetype, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Archetype, int64, error)
	Update(ctx context.Context, id int64, name, description string) (postgres.Archetype, error)
	Delete(ctx context.Context, id int64) error
	AttachSkill(ctx context.Context, archetypeID, skillID int64) error
	DetachSkill(ctx context.Context, archetypeID, skillID int64) error
	AttachTag(ctx context.Context, archetypeID, tagID int64) error
	DetachTag(ctx context.Context, archetypeID, tagID int64) error
}

// ItemStore is the persistence surface the item handlers need.
type ItemStore interface {
	Create(ctx context.Context, name, description, kind string, b character.ItemBonuses) (postgres.Item, error)
	GetByID(ctx context.Context, id int64) (postgres.Item, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Item, int64, error)
	Update(ctx context.Context, id int64, name, description, kind string, b character.ItemBonuses) (postgres.Item, error)
	Delete(ctx context.Context, id int64) error
	AttachSkill(ctx context.Context, itemID, skillID int64) error
	DetachSkill(ctx context.Context, itemID, skillID int64) error
	AttachTag(ctx context.Context, itemID, tagID int64) error
	DetachTag(ctx context.Context, itemID, tagID int64) error
}

// ImageStore is the persistence surface the image handlers need.
type ImageStore interface {
	Create(ctx context.Context, ownerID int64, filename, contentType string, sizeBytes int64) (postgres.Image, error)
	GetByID(ctx context.Context, id int64) (postgres.Image, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Image, int64, error)
	Update(ctx context.Context, id int64, filename string) (postgres.Image, error)
	Delete(ctx context.Context, id int64) error
}

// MediaStore persists image binaries, keyed by the metadata row's token.
type MediaStore interface {
	Save(token string, r io.Reader) (int64, error)
	Open(token string) (io.ReadCloser, error)
	Remove(token string) error
}

// CharacterStore is the persistence surface the character handlers need.
// Every read returns characters hydrated with race modifiers, equipment
// bonuses, and freshly computed aggregates.
type CharacterStore interface {
	Create(ctx context.Context, c *character.Character) (*character.Character, error)
	GetByID(ctx context.Context, id int64) (*character.Character, error)
	List(ctx context.Context, p postgres.ListParams) ([]*character.Character, int64, error)
	Update(ctx context.Context, c *character.Character) (*character.Character, error)
	Delete(ctx context.Context, id int64) error
	Equip(ctx context.Context, id int64, slot character.Slot, itemID int64) (*character.Character, error)
	Unequip(ctx context.Context, id int64, slot character.Slot) (*character.Character, error)
	AddItem(ctx context.Context, id, itemID int64) error
	RemoveItem(ctx context.Context, id, itemID int64) error
	ListInventory(ctx context.Context, id int64) ([]postgres.Item, error)
}

// Handler holds the API's dependencies and registers its routes.
type Handler struct {
	log  *zap.Logger
	auth *auth.Service

	users      UserStore
	skills     SkillStore
	tags       TagStore
	races      RaceStore
	archetypes ArchetypeStore
	items      ItemStore
	images     ImageStore
	characters CharacterStore

	media     MediaStore
	maxUpload int64
}

// Stores bundles the per-entity repositories the handler serves.
type Stores struct {
	Users      UserStore
	Skills     SkillStore
	Tags       TagStore
	Races      RaceStore
	Archetypes ArchetypeStore
	Items      ItemStore
	Images     ImageStore
	Characters CharacterStore
	Media      MediaStore
}

// NewHandler creates a Handler serving the given stores. maxUploadBytes
// caps the size of a single image upload.
func NewHandler(log *zap.Logger, authService *auth.Service, stores Stores, maxUploadBytes int64) *Handler {
	return &Handler{
		log:        log,
		auth:       authService,
		users:      stores.Users,
		skills:     stores.Skills,
		tags:       stores.Tags,
		races:      stores.Races,
		archetypes: stores.Archetypes,
		items:      stores.Items,
		images:     stores.Images,
		characters: stores.Characters,
		media:      stores.Media,
		maxUpload:  maxUploadBytes,
	}
}

// RegisterRoutes mounts all API routes on the given engine. Reads are
// public; content mutation requires the editor role, user administration
// the admin role, and character or image mutation an authenticated owner.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.handleRegister)
	authGroup.POST("/login", h.handleLogin)
	authGroup.GET("/me", h.requireAuth(), h.handleMe)

	users := api.Group("/users", h.requireAuth(), h.requireRole(postgres.RoleAdmin))
	users.GET("", h.handleListUsers)
	users.GET("/:id", h.handleGetUser)
	users.POST("", h.handleCreateUser)
	users.PUT("/:id", h.handleUpdateUser)
	users.DELETE("/:id", h.handleDeleteUser)

	h.registerContentRoutes(api)
	h.registerCharacterRoutes(api)
	h.registerImageRoutes(api)
}

func (h *Handler) registerContentRoutes(api *gin.RouterGroup) {
	editor := h.requireRole(postgres.RoleEditor)

	skills := api.Group("/skills")
	skills.GET("", h.handleListSkills)
	skills.GET("/:id", h.handleGetSkill)
	skills.POST("", h.requireAuth(), editor, h.handleCreateSkill)
	skills.PUT("/:id", h.requireAuth(), editor, h.handleUpdateSkill)
	skills.DELETE("/:id", h.requireAuth(), editor, h.handleDeleteSkill)

	tags := api.Group("/tags")
	tags.GET("", h.handleListTags)
	tags.GET("/:id", h.handleGetTag)
	tags.POST("", h.requireAuth(), editor, h.handleCreateTag)
	tags.PUT("/:id", h.requireAuth(), editor, h.handleUpdateTag)
	tags.DELETE("/:id", h.requireAuth(), editor, h.handleDeleteTag)

	races := api.Group("/races")
	races.GET("", h.handleListRaces)
	races.GET("/:id", h.handleGetRace)
	races.POST("", h.requireAuth(), editor, h.handleCreateRace)
	races.PUT("/:id", h.requireAuth(), editor, h.handleUpdateRace)
	races.DELETE("/:id", h.requireAuth(), editor, h.handleDeleteRace)
	races.POST("/:id/skills/:refId", h.requireAuth(), editor, h.handleRaceAttachSkill)
	races.DELETE("/:id/skills/:refId", h.requireAuth(), editor, h.handleRaceDetachSkill)
	races.POST("/:id/tags/:refId", h.requireAuth(), editor, h.handleRaceAttachTag)
	races.DELETE("/:id/tags/:refId", h.requireAuth(), editor, h.handleRaceDetachTag)

	archetypes := api.Group("/archetypes")
	archetypes.GET("", h.handleListArchetypes)
	archetypes.GET("/:id", h.handleGetArchetype)
	archetypes.POST("", h.requireAuth(), editor, h.handleCreateArchetype)
	archetypes.PUT("/:id", h.requireAuth(), editor, h.handleUpdateArchetype)
	archetypes.DELETE("/:id", h.requireAuth(), editor, h.handleDeleteArchetype)
	archetypes.POST("/:id/skills/:refId", h.requireAuth(), editor, h.handleArchetypeAttachSkill)
	archetypes.DELETE("/:id/skills/:refId", h.requireAuth(), editor, h.handleArchetypeDetachSkill)
	archetypes.POST("/:id/tags/:refId", h.requireAuth(), editor, h.handleArchetypeAttachTag)
	archetypes.DELETE("/:id/tags/:refId", h.requireAuth(), editor, h.handleArchetypeDetachTag)

	items := api.Group("/items")
	items.GET("", h.handleListItems)
	items.GET("/:id", h.handleGetItem)
	items.POST("", h.requireAuth(), editor, h.handleCreateItem)
	items.PUT("/:id", h.requireAuth(), editor, h.handleUpdateItem)
	items.DELETE("/:id", h.requireAuth(), editor, h.handleDeleteItem)
	items.POST("/:id/skills/:refId", h.requireAuth(), editor, h.handleItemAttachSkill)
	items.DELETE("/:id/skills/:refId", h.requireAuth(), editor, h.handleItemDetachSkill)
	items.POST("/:id/tags/:refId", h.requireAuth(), editor, h.handleItemAttachTag)
	items.DELETE("/:id/tags/:refId", h.requireAuth(), editor, h.handleItemDetachTag)
}

func (h *Handler) registerCharacterRoutes(api *gin.RouterGroup) {
	characters := api.Group("/characters")
	characters.GET("", h.handleListCharacters)
	characters.GET("/:id", h.handleGetCharacter)
	characters.POST("", h.requireAuth(), h.handleCreateCharacter)
	characters.PUT("/:id", h.requireAuth(), h.handleUpdateCharacter)
	characters.DELETE("/:id", h.requireAuth(), h.handleDeleteCharacter)
	characters.PUT("/:id/slots/:slot", h.requireAuth(), h.handleEquip)
	characters.DELETE("/:id/slots/:slot", h.requireAuth(), h.handleUnequip)
	characters.GET("/:id/inventory", h.handleListInventory)
	characters.POST("/:id/inventory/:refId", h.requireAuth(), h.handleAddInventoryItem)
	characters.DELETE("/:id/inventory/:refId", h.requireAuth(), h.handleRemoveInventoryItem)
}

func (h *Handler) registerImageRoutes(api *gin.RouterGroup) {
	images := api.Group("/images")
	images.GET("", h.handleListImages)
	images.GET("/:id", h.handleGetImage)
	images.GET("/:id/file", h.handleGetImageFile)
	images.POST("", h.requireAuth(), h.handleCreateImage)
	images.PUT("/:id", h.requireAuth(), h.handleUpdateImage)
	images.DELETE("/:id", h.requireAuth(), h.handleDeleteImage)
}
