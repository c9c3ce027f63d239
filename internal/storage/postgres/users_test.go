package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/dkrasner/grimoire/internal/storage/postgres"
	"github.com/dkrasner/grimoire/internal/testutil"
)

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

func TestHashPassword(t *testing.T) {
	hash, err := postgres.HashPassword("secret123")
	assert.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, "secret123", hash)
}

func TestCheckPassword(t *testing.T) {
	hash, err := postgres.HashPassword("mypassword")
	require.NoError(t, err)
	assert.True(t, postgres.CheckPassword("mypassword", hash))
	assert.False(t, postgres.CheckPassword("wrongpassword", hash))
}

// Property: HashPassword always produces a hash that CheckPassword verifies.
func TestPropertyHashAndCheck(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		// bcrypt has a max input length of 72 bytes
		password := rapid.StringMatching(`[a-zA-Z0-9!@#$%^&*]{1,64}`).Draw(t, "password")
		hash, err := postgres.HashPassword(password)
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if !postgres.CheckPassword(password, hash) {
			t.Fatalf("CheckPassword failed for password %q", password)
		}
	})
}

func TestValidRole(t *testing.T) {
	assert.True(t, postgres.ValidRole(postgres.RolePlayer))
	assert.True(t, postgres.ValidRole(postgres.RoleEditor))
	assert.True(t, postgres.ValidRole(postgres.RoleAdmin))
	assert.False(t, postgres.ValidRole(""))
	assert.False(t, postgres.ValidRole("superadmin"))
}

func setupUserRepo(t *testing.T) *postgres.UserRepository {
	t.Helper()
	return postgres.NewUserRepository(testutil.NewPool(t))
}

func TestUserRepository_CreateAndAuthenticate(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("alice")

	created, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))
	assert.Equal(t, postgres.RolePlayer, created.Role)
	assert.True(t, created.Active)
	assert.NotEqual(t, "password123", created.PasswordHash)

	authed, err := repo.Authenticate(ctx, username, "password123")
	require.NoError(t, err)
	assert.Equal(t, created.ID, authed.ID)

	_, err = repo.Authenticate(ctx, username, "wrong-password")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)

	_, err = repo.Authenticate(ctx, uniqueName("nobody"), "password123")
	assert.ErrorIs(t, err, postgres.ErrInvalidCredentials)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("bob")

	_, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)

	_, err = repo.Create(ctx, username, uniqueName("other")+"@example.com", "password123")
	assert.ErrorIs(t, err, postgres.ErrUserExists)
}

func TestUserRepository_InactiveCannotAuthenticate(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("carol")

	created, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)

	_, err = repo.Update(ctx, created.ID, created.Email, created.Role, false)
	require.NoError(t, err)

	_, err = repo.Authenticate(ctx, username, "password123")
	assert.ErrorIs(t, err, postgres.ErrUserInactive)
}

func TestUserRepository_SetRole(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("dave")

	created, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, repo.SetRole(ctx, created.ID, postgres.RoleEditor))
	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, postgres.RoleEditor, fetched.Role)

	assert.ErrorIs(t, repo.SetRole(ctx, created.ID, "emperor"), postgres.ErrInvalidRole)
	assert.ErrorIs(t, repo.SetRole(ctx, 99999999, postgres.RoleEditor), postgres.ErrUserNotFound)
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("erin")

	created, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)

	fetched, err := repo.GetByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	_, err = repo.GetByUsername(ctx, uniqueName("missing"))
	assert.ErrorIs(t, err, postgres.ErrUserNotFound)
}

func TestUserRepository_Delete(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()
	username := uniqueName("frank")

	created, err := repo.Create(ctx, username, username+"@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, postgres.ErrUserNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, created.ID), postgres.ErrUserNotFound)
}

func TestUserRepository_ListSearch(t *testing.T) {
	repo := setupUserRepo(t)
	ctx := context.Background()

	needle := uniqueName("searchable")
	_, err := repo.Create(ctx, needle, needle+"@example.com", "password123")
	require.NoError(t, err)

	users, total, err := repo.List(ctx, postgres.ListParams{Search: needle})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, needle, users[0].Username)
}
