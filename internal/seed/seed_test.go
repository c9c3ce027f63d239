package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

func writeContent(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadDirMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "skills.yaml", `
skills:
  - name: Tracking
    description: Follow a trail.
tags:
  - name: martial
`)
	writeContent(t, dir, "races.yaml", `
races:
  - name: Dwarf
    description: Stout mountain folk.
    modifiers:
      health: 10
      constitution: 2
      charisma: -1
    skills: [Tracking]
    tags: [martial]
`)

	c, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Len(t, c.Skills, 1)
	assert.Len(t, c.Tags, 1)
	require.Len(t, c.Races, 1)
	assert.Equal(t, 10, c.Races[0].Modifiers.Health)
	assert.Equal(t, -1, c.Races[0].Modifiers.Charisma)
	assert.Equal(t, []string{"Tracking"}, c.Races[0].Skills)
}

func TestLoadDirRejectsUnknownReference(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "races.yaml", `
races:
  - name: Dwarf
    skills: [Undefined Skill]
`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown skill")
}

func TestLoadDirRejectsOutOfRangeModifier(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "races.yaml", `
races:
  - name: Giant
    modifiers:
      strength: 11
`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strengthModifier")
}

func TestLoadDirRejectsUnknownItemKind(t *testing.T) {
	dir := t.TempDir()
	writeContent(t, dir, "items.yaml", `
items:
  - name: Cursed Hat
    kind: hat
`)

	_, err := LoadDir(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown kind")
}

type fakeSkills struct {
	byID    map[int64]postgres.Skill
	nextID  int64
	creates int
}

func (f *fakeSkills) Create(_ context.Context, name, description string) (postgres.Skill, error) {
	for _, s := range f.byID {
		if s.Name == name {
			return postgres.Skill{}, postgres.ErrSkillExists
		}
	}
	f.creates++
	s := postgres.Skill{ID: f.nextID, Name: name, Description: description}
	f.byID[s.ID] = s
	f.nextID++
	return s, nil
}

func (f *fakeSkills) List(_ context.Context, _ postgres.ListParams) ([]postgres.Skill, int64, error) {
	out := make([]postgres.Skill, 0, len(f.byID))
	for _, s := range f.byID {
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

type fakeTags struct {
	byID   map[int64]postgres.Tag
	nextID int64
}

func (f *fakeTags) Create(_ context.Context, name string) (postgres.Tag, error) {
	for _, tg := range f.byID {
		if tg.Name == name {
			return postgres.Tag{}, postgres.ErrTagExists
		}
	}
	tg := postgres.Tag{ID: f.nextID, Name: name}
	f.byID[tg.ID] = tg
	f.nextID++
	return tg, nil
}

func (f *fakeTags) List(_ context.Context, _ postgres.ListParams) ([]postgres.Tag, int64, error) {
	out := make([]postgres.Tag, 0, len(f.byID))
	for _, tg := range f.byID {
		out = append(out, tg)
	}
	return out, int64(len(out)), nil
}

type attachment struct{ owner, ref int64 }

type fakeRaces struct {
	byID     map[int64]postgres.Race
	nextID   int64
	skills   map[attachment]bool
	tagPairs map[attachment]bool
}

func (f *fakeRaces) Create(_ context.Context, name, description string, m character.RaceModifiers) (postgres.Race, error) {
	for _, r := range f.byID {
		if r.Name == name {
			return postgres.Race{}, postgres.ErrRaceExists
		}
	}
	r := postgres.Race{ID: f.nextID, Name: name, Description: description, Modifiers: m}
	f.byID[r.ID] = r
	f.nextID++
	return r, nil
}

func (f *fakeRaces) List(_ context.Context, _ postgres.ListParams) ([]postgres.Race, int64, error) {
	out := make([]postgres.Race, 0, len(f.byID))
	for _, r := range f.byID {
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRaces) AttachSkill(_ context.Context, raceID, skillID int64) error {
	key := attachment{raceID, skillID}
	if f.skills[key] {
		return postgres.ErrAlreadyAttached
	}
	f.skills[key] = true
	return nil
}

func (f *fakeRaces) AttachTag(_ context.Context, raceID, tagID int64) error {
	key := attachment{raceID, tagID}
	if f.tagPairs[key] {
		return postgres.ErrAlreadyAttached
	}
	f.tagPairs[key] = true
	return nil
}

type fakeArchetypes struct {
	byID   map[int64]postgres.Archetype
	nextID int64
}

func (f *fakeArchetypes) Create(_ context.Context, name, description string) (postgres.Archetype, error) {
	for _, a := range f.byID {
		if a.Name == name {
			return postgres.Archetype{}, postgres.ErrArchetypeExists
		}
	}
	a := postgres.Archetype{ID: f.nextID, Name: name, Description: description}
	f.byID[a.ID] = a
	f.nextID++
	return a, nil
}

func (f *fakeArchetypes) List(_ context.Context, _ postgres.ListParams) ([]postgres.Archetype, int64, error) {
	out := make([]postgres.Archetype, 0, len(f.byID))
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeArchetypes) AttachSkill(context.Context, int64, int64) error { return nil }
func (f *fakeArchetypes) AttachTag(context.Context, int64, int64) error   { return nil }

type fakeItems struct {
	byID   map[int64]postgres.Item
	nextID int64
}

func (f *fakeItems) Create(_ context.Context, name, description, kind string, b character.ItemBonuses) (postgres.Item, error) {
	for _, it := range f.byID {
		if it.Name == name {
			return postgres.Item{}, postgres.ErrItemExists
		}
	}
	it := postgres.Item{ID: f.nextID, Name: name, Description: description, Kind: kind, Bonuses: b}
	f.byID[it.ID] = it
	f.nextID++
	return it, nil
}

func (f *fakeItems) List(_ context.Context, _ postgres.ListParams) ([]postgres.Item, int64, error) {
	out := make([]postgres.Item, 0, len(f.byID))
	for _, it := range f.byID {
		out = append(out, it)
	}
	return out, int64(len(out)), nil
}

func (f *fakeItems) AttachSkill(context.Context, int64, int64) error { return nil }
func (f *fakeItems) AttachTag(context.Context, int64, int64) error   { return nil }

func newSeederFixture(t *testing.T) (*Seeder, *fakeSkills, *fakeRaces) {
	t.Helper()
	skills := &fakeSkills{byID: map[int64]postgres.Skill{}, nextID: 1}
	tags := &fakeTags{byID: map[int64]postgres.Tag{}, nextID: 1}
	races := &fakeRaces{
		byID:     map[int64]postgres.Race{},
		nextID:   1,
		skills:   map[attachment]bool{},
		tagPairs: map[attachment]bool{},
	}
	archetypes := &fakeArchetypes{byID: map[int64]postgres.Archetype{}, nextID: 1}
	items := &fakeItems{byID: map[int64]postgres.Item{}, nextID: 1}
	return NewSeeder(zaptest.NewLogger(t), skills, tags, races, archetypes, items), skills, races
}

func TestApplyIsIdempotent(t *testing.T) {
	seeder, skills, races := newSeederFixture(t)

	content := Content{
		Skills: []SkillDef{{Name: "Tracking"}},
		Tags:   []TagDef{{Name: "martial"}},
		Races: []RaceDef{{
			Name:      "Dwarf",
			Modifiers: character.RaceModifiers{Health: 10},
			Skills:    []string{"Tracking"},
			Tags:      []string{"martial"},
		}},
	}
	require.NoError(t, content.Validate())

	require.NoError(t, seeder.Apply(context.Background(), content))
	require.NoError(t, seeder.Apply(context.Background(), content))

	assert.Equal(t, 1, skills.creates)
	assert.Len(t, races.byID, 1)
	assert.Len(t, races.skills, 1)
	assert.Len(t, races.tagPairs, 1)
}
