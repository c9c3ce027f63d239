package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
	"github.com/dkrasner/grimoire/internal/testutil"
)

func TestSkillRepository_CRUD(t *testing.T) {
	repo := postgres.NewSkillRepository(testutil.NewPool(t))
	ctx := context.Background()
	name := uniqueName("skill")

	created, err := repo.Create(ctx, name, "a test skill")
	require.NoError(t, err)
	assert.Greater(t, created.ID, int64(0))

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, fetched.Name)
	assert.Equal(t, "a test skill", fetched.Description)

	renamed := uniqueName("skill_renamed")
	updated, err := repo.Update(ctx, created.ID, renamed, "updated")
	require.NoError(t, err)
	assert.Equal(t, renamed, updated.Name)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, postgres.ErrSkillNotFound)
}

func TestSkillRepository_DuplicateName(t *testing.T) {
	repo := postgres.NewSkillRepository(testutil.NewPool(t))
	ctx := context.Background()
	name := uniqueName("skill")

	_, err := repo.Create(ctx, name, "")
	require.NoError(t, err)
	_, err = repo.Create(ctx, name, "")
	assert.ErrorIs(t, err, postgres.ErrSkillExists)
}

func TestSkillRepository_DeleteAttachedIsInUse(t *testing.T) {
	pool := testutil.NewPool(t)
	skills := postgres.NewSkillRepository(pool)
	races := postgres.NewRaceRepository(pool)
	ctx := context.Background()

	skill, err := skills.Create(ctx, uniqueName("skill"), "")
	require.NoError(t, err)
	race, err := races.Create(ctx, uniqueName("race"), "", character.RaceModifiers{})
	require.NoError(t, err)
	require.NoError(t, races.AttachSkill(ctx, race.ID, skill.ID))

	assert.ErrorIs(t, skills.Delete(ctx, skill.ID), postgres.ErrSkillInUse)

	require.NoError(t, races.DetachSkill(ctx, race.ID, skill.ID))
	assert.NoError(t, skills.Delete(ctx, skill.ID))
}

func TestTagRepository_CRUD(t *testing.T) {
	repo := postgres.NewTagRepository(testutil.NewPool(t))
	ctx := context.Background()
	name := uniqueName("tag")

	created, err := repo.Create(ctx, name)
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, fetched.Name)

	_, err = repo.Create(ctx, name)
	assert.ErrorIs(t, err, postgres.ErrTagExists)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, postgres.ErrTagNotFound)
}

func TestListParams_PageSizeCap(t *testing.T) {
	repo := postgres.NewTagRepository(testutil.NewPool(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, uniqueName("cap_tag"))
		require.NoError(t, err)
	}

	tags, _, err := repo.List(ctx, postgres.ListParams{Search: "cap_tag", PageSize: 10000})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tags), postgres.MaxPageSize)
}

func TestListParams_UnknownSortFallsBack(t *testing.T) {
	repo := postgres.NewTagRepository(testutil.NewPool(t))
	ctx := context.Background()

	first, err := repo.Create(ctx, uniqueName("sort_tag"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, uniqueName("sort_tag"))
	require.NoError(t, err)

	// An unrecognised sort column must not error; it falls back to id asc.
	tags, _, err := repo.List(ctx, postgres.ListParams{
		Search: "sort_tag",
		Sort:   "evil; DROP TABLE tags",
	})
	require.NoError(t, err)
	require.NotEmpty(t, tags)
	assert.Equal(t, first.ID, tags[0].ID)
}
