// Package seed loads game content definitions from YAML files and applies
// them to the database. Seeding is idempotent: entities that already exist
// are resolved by name and reused, and existing associations are kept.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dkrasner/grimoire/internal/game/character"
	"github.com/dkrasner/grimoire/internal/storage/postgres"
)

// SkillDef is a skill entry in a content file.
type SkillDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// TagDef is a tag entry in a content file.
type TagDef struct {
	Name string `yaml:"name"`
}

// RaceDef is a race entry in a content file. Skills and Tags reference
// other entries by name.
type RaceDef struct {
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Modifiers   character.RaceModifiers `yaml:"modifiers"`
	Skills      []string                `yaml:"skills,omitempty"`
	Tags        []string                `yaml:"tags,omitempty"`
}

// ArchetypeDef is an archetype entry in a content file.
type ArchetypeDef struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Skills      []string `yaml:"skills,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

// ItemDef is an item entry in a content file.
type ItemDef struct {
	Name        string                `yaml:"name"`
	Description string                `yaml:"description"`
	Kind        string                `yaml:"kind"`
	Bonuses     character.ItemBonuses `yaml:"bonuses"`
	Skills      []string              `yaml:"skills,omitempty"`
	Tags        []string              `yaml:"tags,omitempty"`
}

// Content is the merged set of definitions loaded from a content directory.
type Content struct {
	Skills     []SkillDef     `yaml:"skills,omitempty"`
	Tags       []TagDef       `yaml:"tags,omitempty"`
	Races      []RaceDef      `yaml:"races,omitempty"`
	Archetypes []ArchetypeDef `yaml:"archetypes,omitempty"`
	Items      []ItemDef      `yaml:"items,omitempty"`
}

// LoadDir reads every .yaml file in dir and merges the definitions.
//
// Precondition: dir must exist.
// Postcondition: returns validated content, or an error naming the first
// offending file or definition.
func LoadDir(dir string) (Content, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Content{}, fmt.Errorf("reading content directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var merged Content
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return Content{}, fmt.Errorf("reading %s: %w", name, err)
		}
		var c Content
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Content{}, fmt.Errorf("parsing %s: %w", name, err)
		}
		merged.Skills = append(merged.Skills, c.Skills...)
		merged.Tags = append(merged.Tags, c.Tags...)
		merged.Races = append(merged.Races, c.Races...)
		merged.Archetypes = append(merged.Archetypes, c.Archetypes...)
		merged.Items = append(merged.Items, c.Items...)
	}

	if err := merged.Validate(); err != nil {
		return Content{}, err
	}
	return merged, nil
}

// Validate checks every definition: names must be non-empty, race
// modifiers and item bonuses must be in range, item kinds must be
// recognised, and skill/tag references must resolve to definitions in
// the same content set.
func (c Content) Validate() error {
	var errs []string

	skillNames := map[string]bool{}
	for i, s := range c.Skills {
		if s.Name == "" {
			errs = append(errs, fmt.Sprintf("skill %d: name is required", i))
			continue
		}
		skillNames[s.Name] = true
	}

	tagNames := map[string]bool{}
	for i, t := range c.Tags {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("tag %d: name is required", i))
			continue
		}
		tagNames[t.Name] = true
	}

	checkRefs := func(owner string, skills, tags []string) {
		for _, s := range skills {
			if !skillNames[s] {
				errs = append(errs, fmt.Sprintf("%s: unknown skill %q", owner, s))
			}
		}
		for _, t := range tags {
			if !tagNames[t] {
				errs = append(errs, fmt.Sprintf("%s: unknown tag %q", owner, t))
			}
		}
	}

	for i, r := range c.Races {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("race %d: name is required", i))
			continue
		}
		if err := character.ValidateModifiers(r.Modifiers); err != nil {
			errs = append(errs, fmt.Sprintf("race %q: %v", r.Name, err))
		}
		checkRefs("race "+r.Name, r.Skills, r.Tags)
	}

	for i, a := range c.Archetypes {
		if a.Name == "" {
			errs = append(errs, fmt.Sprintf("archetype %d: name is required", i))
			continue
		}
		checkRefs("archetype "+a.Name, a.Skills, a.Tags)
	}

	for i, it := range c.Items {
		if it.Name == "" {
			errs = append(errs, fmt.Sprintf("item %d: name is required", i))
			continue
		}
		if !postgres.ValidKind(it.Kind) {
			errs = append(errs, fmt.Sprintf("item %q: unknown kind %q", it.Name, it.Kind))
		}
		if err := character.ValidateBonuses(it.Bonuses); err != nil {
			errs = append(errs, fmt.Sprintf("item %q: %v", it.Name, err))
		}
		checkRefs("item "+it.Name, it.Skills, it.Tags)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// SkillStore is the skill persistence surface the seeder needs.
type SkillStore interface {
	Create(ctx context.Context, name, description string) (postgres.Skill, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Skill, int64, error)
}

// TagStore is the tag persistence surface the seeder needs.
type TagStore interface {
	Create(ctx context.Context, name string) (postgres.Tag, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Tag, int64, error)
}

// RaceStore is the race persistence surface the seeder needs.
type RaceStore interface {
	Create(ctx context.Context, name, description string, m character.RaceModifiers) (postgres.Race, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Race, int64, error)
	AttachSkill(ctx context.Context, raceID, skillID int64) error
	AttachTag(ctx context.Context, raceID, tagID int64) error
}

// ArchetypeStore is the archetype persistence surface the seeder needs.
type ArchetypeStore interface {
	Create(ctx context.Context, name, description string) (postgres.Archetype, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Archetype, int64, error)
	AttachSkill(ctx context.Context, archetypeID, skillID int64) error
	AttachTag(ctx context.Context, archetypeID, tagID int64) error
}

// ItemStore is the item persistence surface the seeder needs.
type ItemStore interface {
	Create(ctx context.Context, name, description, kind string, b character.ItemBonuses) (postgres.Item, error)
	List(ctx context.Context, p postgres.ListParams) ([]postgres.Item, int64, error)
	AttachSkill(ctx context.Context, itemID, skillID int64) error
	AttachTag(ctx context.Context, itemID, tagID int64) error
}

// Seeder applies loaded content to the database.
type Seeder struct {
	log        *zap.Logger
	skills     SkillStore
	tags       TagStore
	races      RaceStore
	archetypes ArchetypeStore
	items      ItemStore
}

// NewSeeder creates a Seeder writing through the given stores.
func NewSeeder(log *zap.Logger, skills SkillStore, tags TagStore, races RaceStore, archetypes ArchetypeStore, items ItemStore) *Seeder {
	return &Seeder{
		log:        log,
		skills:     skills,
		tags:       tags,
		races:      races,
		archetypes: archetypes,
		items:      items,
	}
}

// Apply creates every definition in c that does not already exist and
// wires the named skill/tag associations. Safe to run repeatedly.
//
// Precondition: c must have passed Validate.
func (s *Seeder) Apply(ctx context.Context, c Content) error {
	skillIDs := map[string]int64{}
	for _, def := range c.Skills {
		id, err := s.ensureSkill(ctx, def)
		if err != nil {
			return fmt.Errorf("seeding skill %q: %w", def.Name, err)
		}
		skillIDs[def.Name] = id
	}

	tagIDs := map[string]int64{}
	for _, def := range c.Tags {
		id, err := s.ensureTag(ctx, def)
		if err != nil {
			return fmt.Errorf("seeding tag %q: %w", def.Name, err)
		}
		tagIDs[def.Name] = id
	}

	for _, def := range c.Races {
		id, err := s.ensureRace(ctx, def)
		if err != nil {
			return fmt.Errorf("seeding race %q: %w", def.Name, err)
		}
		if err := s.attachAll(ctx, def.Skills, def.Tags, skillIDs, tagIDs,
			func(skillID int64) error { return s.races.AttachSkill(ctx, id, skillID) },
			func(tagID int64) error { return s.races.AttachTag(ctx, id, tagID) },
		); err != nil {
			return fmt.Errorf("associating race %q: %w", def.Name, err)
		}
	}

	for _, def := range c.Archetypes {
		id, err := s.ensureArchetype(ctx, def)
		if err != nil {
			return fmt.Errorf("seeding archetype %q: %w", def.Name, err)
		}
		if err := s.attachAll(ctx, def.Skills, def.Tags, skillIDs, tagIDs,
			func(skillID int64) error { return s.archetypes.AttachSkill(ctx, id, skillID) },
			func(tagID int64) error { return s.archetypes.AttachTag(ctx, id, tagID) },
		); err != nil {
			return fmt.Errorf("associating archetype %q: %w", def.Name, err)
		}
	}

	for _, def := range c.Items {
		id, err := s.ensureItem(ctx, def)
		if err != nil {
			return fmt.Errorf("seeding item %q: %w", def.Name, err)
		}
		if err := s.attachAll(ctx, def.Skills, def.Tags, skillIDs, tagIDs,
			func(skillID int64) error { return s.items.AttachSkill(ctx, id, skillID) },
			func(tagID int64) error { return s.items.AttachTag(ctx, id, tagID) },
		); err != nil {
			return fmt.Errorf("associating item %q: %w", def.Name, err)
		}
	}

	s.log.Info("seed applied",
		zap.Int("skills", len(c.Skills)),
		zap.Int("tags", len(c.Tags)),
		zap.Int("races", len(c.Races)),
		zap.Int("archetypes", len(c.Archetypes)),
		zap.Int("items", len(c.Items)),
	)
	return nil
}

func (s *Seeder) attachAll(ctx context.Context, skills, tags []string, skillIDs, tagIDs map[string]int64, attachSkill, attachTag func(int64) error) error {
	for _, name := range skills {
		if err := attachSkill(skillIDs[name]); err != nil && !errors.Is(err, postgres.ErrAlreadyAttached) {
			return err
		}
	}
	for _, name := range tags {
		if err := attachTag(tagIDs[name]); err != nil && !errors.Is(err, postgres.ErrAlreadyAttached) {
			return err
		}
	}
	return nil
}

// byName searches a name-indexed list for an exact match. List search is
// a substring match, so the page is filtered again here.
func byName(name string) postgres.ListParams {
	return postgres.ListParams{Search: name, PageSize: postgres.MaxPageSize}
}

func (s *Seeder) ensureSkill(ctx context.Context, def SkillDef) (int64, error) {
	created, err := s.skills.Create(ctx, def.Name, def.Description)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, postgres.ErrSkillExists) {
		return 0, err
	}
	existing, _, err := s.skills.List(ctx, byName(def.Name))
	if err != nil {
		return 0, err
	}
	for _, sk := range existing {
		if sk.Name == def.Name {
			return sk.ID, nil
		}
	}
	return 0, postgres.ErrSkillNotFound
}

func (s *Seeder) ensureTag(ctx context.Context, def TagDef) (int64, error) {
	created, err := s.tags.Create(ctx, def.Name)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, postgres.ErrTagExists) {
		return 0, err
	}
	existing, _, err := s.tags.List(ctx, byName(def.Name))
	if err != nil {
		return 0, err
	}
	for _, t := range existing {
		if t.Name == def.Name {
			return t.ID, nil
		}
	}
	return 0, postgres.ErrTagNotFound
}

func (s *Seeder) ensureRace(ctx context.Context, def RaceDef) (int64, error) {
	created, err := s.races.Create(ctx, def.Name, def.Description, def.Modifiers)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, postgres.ErrRaceExists) {
		return 0, err
	}
	existing, _, err := s.races.List(ctx, byName(def.Name))
	if err != nil {
		return 0, err
	}
	for _, r := range existing {
		if r.Name == def.Name {
			return r.ID, nil
		}
	}
	return 0, postgres.ErrRaceNotFound
}

func (s *Seeder) ensureArchetype(ctx context.Context, def ArchetypeDef) (int64, error) {
	created, err := s.archetypes.Create(ctx, def.Name, def.Description)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, postgres.ErrArchetypeExists) {
		return 0, err
	}
	existing, _, err := s.archetypes.List(ctx, byName(def.Name))
	if err != nil {
		return 0, err
	}
	for _, a := range existing {
		if a.Name == def.Name {
			return a.ID, nil
		}
	}
	return 0, postgres.ErrArchetypeNotFound
}

func (s *Seeder) ensureItem(ctx context.Context, def ItemDef) (int64, error) {
	created, err := s.items.Create(ctx, def.Name, def.Description, def.Kind, def.Bonuses)
	if err == nil {
		return created.ID, nil
	}
	if !errors.Is(err, postgres.ErrItemExists) {
		return 0, err
	}
	existing, _, err := s.items.List(ctx, byName(def.Name))
	if err != nil {
		return 0, err
	}
	for _, it := range existing {
		if it.Name == def.Name {
			return it.ID, nil
		}
	}
	return 0, postgres.ErrItemNotFound
}
