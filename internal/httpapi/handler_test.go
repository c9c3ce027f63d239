package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dkrasner/grimoire/internal/auth"
	"github.com/dkrasner/grimoire/internal/config"
	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

type fakeUserStore struct {
	users  map[int64]postgres.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]postgres.User{}, nextID: 1}
}

func (s *fakeUserStore) Create(_ context.Context, username, email, password string) (postgres.User, error) {
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return postgres.User{}, postgres.ErrUserExists
		}
	}
	hash, err := postgres.HashPassword(password)
	if err != nil {
		return postgres.User{}, err
	}
	u := postgres.User{
		ID: s.nextID, Username: username, Email: email, PasswordHash: hash,
		Role: postgres.RolePlayer, Active: true,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	s.users[u.ID] = u
	s.nextID++
	return u, nil
}

func (s *fakeUserStore) Authenticate(_ context.Context, username, password string) (postgres.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			if !u.Active {
				return postgres.User{}, postgres.ErrUserInactive
			}
			if !postgres.CheckPassword(password, u.PasswordHash) {
				return postgres.User{}, postgres.ErrInvalidCredentials
			}
			return u, nil
		}
	}
	return postgres.User{}, postgres.ErrInvalidCredentials
}

func (s *fakeUserStore) GetByID(_ context.Context, id int64) (postgres.User, error) {
	u, ok := s.users[id]
	if !ok {
		return postgres.User{}, postgres.ErrUserNotFound
	}
	return u, nil
}

func (s *fakeUserStore) List(_ context.Context, _ postgres.ListParams) ([]postgres.User, int64, error) {
	out := make([]postgres.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeUserStore) Update(_ context.Context, id int64, email, role string, active bool) (postgres.User, error) {
	u, ok := s.users[id]
	if !ok {
		return postgres.User{}, postgres.ErrUserNotFound
	}
	u.Email, u.Role, u.Active = email, role, active
	s.users[id] = u
	return u, nil
}

func (s *fakeUserStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return postgres.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

type fakeSkillStore struct {
	skills map[int64]postgres.Skill
	nextID int64
}

func newFakeSkillStore() *fakeSkillStore {
	return &fakeSkillStore{skills: map[int64]postgres.Skill{}, nextID: 1}
}

func (s *fakeSkillStore) Create(_ context.Context, name, description string) (postgres.Skill, error) {
	for _, sk := range s.skills {
		if sk.Name == name {
			return postgres.Skill{}, postgres.ErrSkillExists
		}
	}
	sk := postgres.Skill{ID: s.nextID, Name: name, Description: description}
	s.skills[sk.ID] = sk
	s.nextID++
	return sk, nil
}

func (s *fakeSkillStore) GetByID(_ context.Context, id int64) (postgres.Skill, error) {
	sk, ok := s.skills[id]
	if !ok {
		return postgres.Skill{}, postgres.ErrSkillNotFound
	}
	return sk, nil
}

func (s *fakeSkillStore) List(_ context.Context, _ postgres.ListParams) ([]postgres.Skill, int64, error) {
	out := make([]postgres.Skill, 0, len(s.skills))
	for _, sk := range s.skills {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeSkillStore) Update(_ context.Context, id int64, name, description string) (postgres.Skill, error) {
	sk, ok := s.skills[id]
	if !ok {
		return postgres.Skill{}, postgres.ErrSkillNotFound
	}
	sk.Name, sk.Description = name, description
	s.skills[id] = sk
	return sk, nil
}

func (s *fakeSkillStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.skills[id]; !ok {
		return postgres.ErrSkillNotFound
	}
	delete(s.skills, id)
	return nil
}

type fakeCharacterStore struct {
	chars  map[int64]*character.Character
	nextID int64
}

func newFakeCharacterStore() *fakeCharacterStore {
	return &fakeCharacterStore{chars: map[int64]*character.Character{}, nextID: 1}
}

func (s *fakeCharacterStore) hydrate(c *character.Character) *character.Character {
	out := *c
	out.Recompute()
	return &out
}

func (s *fakeCharacterStore) Create(_ context.Context, c *character.Character) (*character.Character, error) {
	stored := *c
	stored.ID = s.nextID
	s.chars[stored.ID] = &stored
	s.nextID++
	return s.hydrate(&stored), nil
}

func (s *fakeCharacterStore) GetByID(_ context.Context, id int64) (*character.Character, error) {
	c, ok := s.chars[id]
	if !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	return s.hydrate(c), nil
}

func (s *fakeCharacterStore) List(_ context.Context, _ postgres.ListParams) ([]*character.Character, int64, error) {
	out := make([]*character.Character, 0, len(s.chars))
	for _, c := range s.chars {
		out = append(out, s.hydrate(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeCharacterStore) Update(_ context.Context, c *character.Character) (*character.Character, error) {
	if _, ok := s.chars[c.ID]; !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	stored := *c
	s.chars[c.ID] = &stored
	return s.hydrate(&stored), nil
}

func (s *fakeCharacterStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.chars[id]; !ok {
		return postgres.ErrCharacterNotFound
	}
	delete(s.chars, id)
	return nil
}

func (s *fakeCharacterStore) Equip(_ context.Context, id int64, slot character.Slot, itemID int64) (*character.Character, error) {
	c, ok := s.chars[id]
	if !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	*c.SlotID(slot) = &itemID
	return s.hydrate(c), nil
}

func (s *fakeCharacterStore) Unequip(_ context.Context, id int64, slot character.Slot) (*character.Character, error) {
	c, ok := s.chars[id]
	if !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	*c.SlotID(slot) = nil
	return s.hydrate(c), nil
}

func (s *fakeCharacterStore) AddItem(_ context.Context, id, itemID int64) error {
	if _, ok := s.chars[id]; !ok {
		return postgres.ErrCharacterNotFound
	}
	return nil
}

func (s *fakeCharacterStore) RemoveItem(_ context.Context, id, itemID int64) error {
	if _, ok := s.chars[id]; !ok {
		return postgres.ErrCharacterNotFound
	}
	return nil
}

func (s *fakeCharacterStore) ListInventory(_ context.Context, id int64) ([]postgres.Item, error) {
	if _, ok := s.chars[id]; !ok {
		return nil, postgres.ErrCharacterNotFound
	}
	return []postgres.Item{}, nil
}

type fakeImageStore struct {
	images map[int64]postgres.Image
	nextID int64
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{images: map[int64]postgres.Image{}, nextID: 1}
}

func (s *fakeImageStore) Create(_ context.Context, ownerID int64, filename, contentType string, sizeBytes int64) (postgres.Image, error) {
	img := postgres.Image{
		ID: s.nextID, OwnerID: ownerID, Filename: filename,
		ContentType: contentType, SizeBytes: sizeBytes, Token: "tok",
	}
	s.images[img.ID] = img
	s.nextID++
	return img, nil
}

func (s *fakeImageStore) GetByID(_ context.Context, id int64) (postgres.Image, error) {
	img, ok := s.images[id]
	if !ok {
		return postgres.Image{}, postgres.ErrImageNotFound
	}
	return img, nil
}

func (s *fakeImageStore) List(_ context.Context, _ postgres.ListParams) ([]postgres.Image, int64, error) {
	out := make([]postgres.Image, 0, len(s.images))
	for _, img := range s.images {
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (s *fakeImageStore) Update(_ context.Context, id int64, filename string) (postgres.Image, error) {
	img, ok := s.images[id]
	if !ok {
		return postgres.Image{}, postgres.ErrImageNotFound
	}
	img.Filename = filename
	s.images[id] = img
	return img, nil
}

func (s *fakeImageStore) Delete(_ context.Context, id int64) error {
	if _, ok := s.images[id]; !ok {
		return postgres.ErrImageNotFound
	}
	delete(s.images, id)
	return nil
}

type fixture struct {
	router     *gin.Engine
	auth       *auth.Service
	users      *fakeUserStore
	skills     *fakeSkillStore
	characters *fakeCharacterStore
	images     *fakeImageStore
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authService := auth.NewService(config.AuthConfig{
		Secret:   "handler-test-secret",
		TokenTTL: time.Hour,
	})

	f := &fixture{
		auth:       authService,
		users:      newFakeUserStore(),
		skills:     newFakeSkillStore(),
		characters: newFakeCharacterStore(),
		images:     newFakeImageStore(),
	}

	h := NewHandler(zaptest.NewLogger(t), authService, Stores{
		Users:      f.users,
		Skills:     f.skills,
		Characters: f.characters,
		Images:     f.images,
	}, 1<<20)

	f.router = gin.New()
	h.RegisterRoutes(f.router)
	return f
}

// seedUser creates a user with the given role and returns its bearer token.
func (f *fixture) seedUser(t *testing.T, username, role string) (postgres.User, string) {
	t.Helper()
	u, err := f.users.Create(context.Background(), username, username+"@example.com", "password123")
	require.NoError(t, err)
	u.Role = role
	f.users.users[u.ID] = u

	token, _, err := f.auth.Issue(u.ID, role)
	require.NoError(t, err)
	return u, token
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// decodeData unwraps the success envelope and decodes its data field.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	decode(t, rec, &envelope)
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestRegisterAndLogin(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var registered map[string]any
	decodeData(t, rec, &registered)
	assert.NotEmpty(t, registered["token"])

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateUsernameConflicts(t *testing.T) {
	f := setup(t)
	f.seedUser(t, "alice", postgres.RolePlayer)

	rec := f.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSkillMutationRequiresEditor(t *testing.T) {
	f := setup(t)
	_, playerToken := f.seedUser(t, "player", postgres.RolePlayer)
	_, editorToken := f.seedUser(t, "editor", postgres.RoleEditor)

	body := map[string]string{"name": "Tracking", "description": "Follow a trail"}

	rec := f.do(t, http.MethodPost, "/api/skills", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/skills", playerToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/skills", editorToken, body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSkillDuplicateNameConflicts(t *testing.T) {
	f := setup(t)
	_, editorToken := f.seedUser(t, "editor", postgres.RoleEditor)

	body := map[string]string{"name": "Tracking"}
	rec := f.do(t, http.MethodPost, "/api/skills", editorToken, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/skills", editorToken, body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSkillListEnvelope(t *testing.T) {
	f := setup(t)
	_, err := f.skills.Create(context.Background(), "Tracking", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/skills?page=1&page_size=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success    bool             `json:"success"`
		Data       []postgres.Skill `json:"data"`
		Pagination pagination       `json:"pagination"`
	}
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Pagination.Page)
	assert.Equal(t, 10, resp.Pagination.PageSize)
	assert.Equal(t, int64(1), resp.Pagination.Total)
}

func TestSkillGetUnknownIs404(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/skills/999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/skills/not-a-number", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUserRoutesRequireAdmin(t *testing.T) {
	f := setup(t)
	_, editorToken := f.seedUser(t, "editor", postgres.RoleEditor)
	_, adminToken := f.seedUser(t, "admin", postgres.RoleAdmin)

	rec := f.do(t, http.MethodGet, "/api/users", editorToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/users", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func validCharacterBody(raceID, archetypeID int64) map[string]any {
	return map[string]any{
		"name":        "Aldric",
		"visible":     true,
		"raceId":      raceID,
		"archetypeId": archetypeID,
		"baseAttributes": map[string]int{
			"health": 100, "stamina": 80, "mana": 50,
			"strength": 15, "dexterity": 12, "constitution": 14,
			"intelligence": 10, "wisdom": 11, "charisma": 13,
		},
	}
}

func TestCreateCharacterSetsOwnerAndAggregates(t *testing.T) {
	f := setup(t)
	owner, token := f.seedUser(t, "player", postgres.RolePlayer)

	rec := f.do(t, http.MethodPost, "/api/characters", token, validCharacterBody(1, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	var ch character.Character
	decodeData(t, rec, &ch)
	assert.Equal(t, owner.ID, ch.UserID)
	// No race modifiers or equipment in the fake, so aggregates equal base.
	assert.Equal(t, 100, ch.Aggregates.Health)
	assert.Equal(t, 15, ch.Aggregates.Strength)
}

func TestCreateCharacterRejectsOutOfRangeAbility(t *testing.T) {
	f := setup(t)
	_, token := f.seedUser(t, "player", postgres.RolePlayer)

	body := validCharacterBody(1, 1)
	body["baseAttributes"].(map[string]int)["strength"] = 21

	rec := f.do(t, http.MethodPost, "/api/characters", token, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCharacterForbiddenForNonOwner(t *testing.T) {
	f := setup(t)
	owner, ownerToken := f.seedUser(t, "owner", postgres.RolePlayer)
	_, otherToken := f.seedUser(t, "other", postgres.RolePlayer)
	_, editorToken := f.seedUser(t, "editor", postgres.RoleEditor)

	rec := f.do(t, http.MethodPost, "/api/characters", ownerToken, validCharacterBody(1, 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	var ch character.Character
	decodeData(t, rec, &ch)
	require.Equal(t, owner.ID, ch.UserID)

	body := validCharacterBody(1, 1)
	rec = f.do(t, http.MethodPut, "/api/characters/1", otherToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/characters/1", editorToken, body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEquipUpdatesAggregates(t *testing.T) {
	f := setup(t)
	_, token := f.seedUser(t, "player", postgres.RolePlayer)

	rec := f.do(t, http.MethodPost, "/api/characters", token, validCharacterBody(1, 1))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/characters/1/slots/primaryWeapon", token, map[string]int64{"itemId": 3})
	require.Equal(t, http.StatusOK, rec.Code)

	var ch character.Character
	decodeData(t, rec, &ch)
	require.NotNil(t, ch.PrimaryWeaponID)
	assert.Equal(t, int64(3), *ch.PrimaryWeaponID)

	rec = f.do(t, http.MethodPut, "/api/characters/1/slots/helmet", token, map[string]int64{"itemId": 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/characters/1/slots/primaryWeapon", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &ch)
	assert.Nil(t, ch.PrimaryWeaponID)
}

func TestSingleResourceUsesSuccessEnvelope(t *testing.T) {
	f := setup(t)
	created, err := f.skills.Create(context.Background(), "Tracking", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/skills/1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope map[string]any
	decode(t, rec, &envelope)
	assert.Equal(t, true, envelope["success"])
	require.Contains(t, envelope, "data")

	var skill postgres.Skill
	decodeData(t, rec, &skill)
	assert.Equal(t, created.Name, skill.Name)
}

func TestCreateCharacterInactiveOwnerConflicts(t *testing.T) {
	f := setup(t)
	owner, token := f.seedUser(t, "player", postgres.RolePlayer)

	// Deactivation after token issue must still block new characters.
	u := f.users.users[owner.ID]
	u.Active = false
	f.users.users[owner.ID] = u

	rec := f.do(t, http.MethodPost, "/api/characters", token, validCharacterBody(1, 1))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateImageForbiddenForNonOwner(t *testing.T) {
	f := setup(t)
	owner, ownerToken := f.seedUser(t, "owner", postgres.RolePlayer)
	_, otherToken := f.seedUser(t, "other", postgres.RolePlayer)
	_, editorToken := f.seedUser(t, "editor", postgres.RoleEditor)

	img, err := f.images.Create(context.Background(), owner.ID, "portrait.png", "image/png", 42)
	require.NoError(t, err)

	body := map[string]string{"filename": "renamed.png"}

	rec := f.do(t, http.MethodPut, "/api/images/1", otherToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "portrait.png", f.images.images[img.ID].Filename)

	rec = f.do(t, http.MethodPut, "/api/images/1", ownerToken, body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/images/1", editorToken, map[string]string{"filename": "editor.png"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMalformedBearerTokenIs401(t *testing.T) {
	f := setup(t)

	rec := f.do(t, http.MethodGet, "/api/auth/me", "not-a-real-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, err := http.NewRequest(http.MethodGet, "/api/auth/me", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{postgres.ErrRaceNotFound, http.StatusNotFound},
		{postgres.ErrCharacterNotFound, http.StatusNotFound},
		{postgres.ErrNotAttached, http.StatusNotFound},
		{postgres.ErrMissingReference, http.StatusNotFound},
		{postgres.ErrItemExists, http.StatusConflict},
		{postgres.ErrUserInactive, http.StatusConflict},
		{postgres.ErrAlreadyAttached, http.StatusConflict},
		{postgres.ErrTagInUse, http.StatusConflict},
		{postgres.ErrInvalidCredentials, http.StatusUnauthorized},
		{postgres.ErrInvalidRole, http.StatusBadRequest},
		{postgres.ErrInvalidKind, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, errorStatus(tc.err), "error %v", tc.err)
	}
}
