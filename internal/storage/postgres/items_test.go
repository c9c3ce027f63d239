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

func TestValidKind(t *testing.T) {
	for _, kind := range []string{
		postgres.KindWeapon, postgres.KindShield, postgres.KindArmor,
		postgres.KindRing, postgres.KindAmulet, postgres.KindTrinket,
	} {
		assert.True(t, postgres.ValidKind(kind), "kind %q", kind)
	}
	assert.False(t, postgres.ValidKind(""))
	assert.False(t, postgres.ValidKind("hat"))
}

func TestItemRepository_CRUD(t *testing.T) {
	repo := postgres.NewItemRepository(testutil.NewPool(t))
	ctx := context.Background()
	name := uniqueName("item")

	bonuses := character.ItemBonuses{Strength: 3, Dexterity: 1, Health: 5}
	created, err := repo.Create(ctx, name, "a fine sword", postgres.KindWeapon, bonuses)
	require.NoError(t, err)
	assert.Equal(t, bonuses, created.Bonuses)
	assert.Equal(t, postgres.KindWeapon, created.Kind)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, bonuses, fetched.Bonuses)

	bonuses.Wisdom = 2
	updated, err := repo.Update(ctx, created.ID, name, "a finer sword", postgres.KindWeapon, bonuses)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Bonuses.Wisdom)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, postgres.ErrItemNotFound)
}

func TestItemRepository_DuplicateName(t *testing.T) {
	repo := postgres.NewItemRepository(testutil.NewPool(t))
	ctx := context.Background()
	name := uniqueName("item")

	_, err := repo.Create(ctx, name, "", postgres.KindRing, character.ItemBonuses{})
	require.NoError(t, err)
	_, err = repo.Create(ctx, name, "", postgres.KindRing, character.ItemBonuses{})
	assert.ErrorIs(t, err, postgres.ErrItemExists)
}

func TestItemRepository_InvalidKindRejected(t *testing.T) {
	repo := postgres.NewItemRepository(testutil.NewPool(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, uniqueName("item"), "", "hat", character.ItemBonuses{})
	assert.ErrorIs(t, err, postgres.ErrInvalidKind)
}

func TestItemRepository_Associations(t *testing.T) {
	pool := testutil.NewPool(t)
	items := postgres.NewItemRepository(pool)
	skills := postgres.NewSkillRepository(pool)
	ctx := context.Background()

	item, err := items.Create(ctx, uniqueName("item"), "", postgres.KindAmulet, character.ItemBonuses{})
	require.NoError(t, err)
	skill, err := skills.Create(ctx, uniqueName("skill"), "")
	require.NoError(t, err)

	require.NoError(t, items.AttachSkill(ctx, item.ID, skill.ID))
	assert.ErrorIs(t, items.AttachSkill(ctx, item.ID, skill.ID), postgres.ErrAlreadyAttached)

	fetched, err := items.GetByID(ctx, item.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Skills, 1)
	assert.Equal(t, skill.ID, fetched.Skills[0].ID)

	require.NoError(t, items.DetachSkill(ctx, item.ID, skill.ID))
}
