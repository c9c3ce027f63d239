package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkrasner/grimoire/internal/game/character"
)

// Race represents a playable race with its nine attribute modifiers.
// Skills and Tags are hydrated on single-row reads.
type Race struct {
	ID          int64                   `json:"id"`
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Modifiers   character.RaceModifiers `json:"modifiers"`
	Skills      []Skill                 `json:"skills,omitempty"`
	Tags        []Tag                   `json:"tags,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// RaceRepository provides race persistence operations.
type RaceRepository struct {
	db *pgxpool.Pool
}

// NewRaceRepository creates a RaceRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRaceRepository(db *pgxpool.Pool) *RaceRepository {
	return &RaceRepository{db: db}
}

var raceSkills = assocSpec{
	table: "race_skills", ownerTable: "races",
	ownerCol: "race_id", refCol: "skill_id",
	ownerMissing: ErrRaceNotFound, refMissing: ErrSkillNotFound,
}

var raceTags = assocSpec{
	table: "race_tags", ownerTable: "races",
	ownerCol: "race_id", refCol: "tag_id",
	ownerMissing: ErrRaceNotFound, refMissing: ErrTagNotFound,
}

const raceColumns = `id, name, description,
	health_modifier, stamina_modifier, mana_modifier,
	strength_modifier, dexterity_modifier, constitution_modifier,
	intelligence_modifier, wisdom_modifier, charisma_modifier,
	created_at, updated_at`

func scanRace(row pgx.Row) (Race, error) {
	var r Race
	err := row.Scan(
		&r.ID, &r.Name, &r.Description,
		&r.Modifiers.Health, &r.Modifiers.Stamina, &r.Modifiers.Mana,
		&r.Modifiers.Strength, &r.Modifiers.Dexterity, &r.Modifiers.Constitution,
		&r.Modifiers.Intelligence, &r.Modifiers.Wisdom, &r.Modifiers.Charisma,
		&r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// Create inserts a new race.
//
// Precondition: modifiers must already be range-checked to [-10,10].
// Postcondition: Returns the created Race or ErrRaceExists on duplicate name.
func (r *RaceRepository) Create(ctx context.Context, name, description string, m character.RaceModifiers) (Race, error) {
	race, err := scanRace(r.db.QueryRow(ctx, `
		INSERT INTO races
			(name, description,
			 health_modifier, stamina_modifier, mana_modifier,
			 strength_modifier, dexterity_modifier, constitution_modifier,
			 intelligence_modifier, wisdom_modifier, charisma_modifier)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING `+raceColumns,
		name, description,
		m.Health, m.Stamina, m.Mana,
		m.Strength, m.Dexterity, m.Constitution,
		m.Intelligence, m.Wisdom, m.Charisma,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Race{}, ErrRaceExists
		}
		return Race{}, fmt.Errorf("inserting race: %w", err)
	}
	return race, nil
}

// GetByID retrieves a race with its skills and tags hydrated.
//
// Postcondition: Returns the Race or ErrRaceNotFound.
func (r *RaceRepository) GetByID(ctx context.Context, id int64) (Race, error) {
	race, err := scanRace(r.db.QueryRow(ctx,
		`SELECT `+raceColumns+` FROM races WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Race{}, ErrRaceNotFound
		}
		return Race{}, fmt.Errorf("querying race: %w", err)
	}

	if race.Skills, err = raceSkills.loadSkills(ctx, r.db, id); err != nil {
		return Race{}, err
	}
	if race.Tags, err = raceTags.loadTags(ctx, r.db, id); err != nil {
		return Race{}, err
	}
	return race, nil
}

var raceSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

// List returns a page of races and the total row count for the filter.
// Skills and tags are not hydrated on list pages.
func (r *RaceRepository) List(ctx context.Context, p ListParams) ([]Race, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM races WHERE name ILIKE $1 OR description ILIKE $1`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting races: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+raceColumns+` FROM races
		 WHERE name ILIKE $1 OR description ILIKE $1 `+
			p.orderBy(raceSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing races: %w", err)
	}
	defer rows.Close()

	races := make([]Race, 0, limit)
	for rows.Next() {
		race, err := scanRace(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning race row: %w", err)
		}
		races = append(races, race)
	}
	return races, total, rows.Err()
}

// Update changes a race's name, description, and modifiers.
//
// Precondition: modifiers must already be range-checked to [-10,10].
// Postcondition: Returns the updated Race, ErrRaceExists on duplicate name,
// or ErrRaceNotFound.
func (r *RaceRepository) Update(ctx context.Context, id int64, name, description string, m character.RaceModifiers) (Race, error) {
	race, err := scanRace(r.db.QueryRow(ctx, `
		UPDATE races SET
			name = $2, description = $3,
			health_modifier = $4, stamina_modifier = $5, mana_modifier = $6,
			strength_modifier = $7, dexterity_modifier = $8, constitution_modifier = $9,
			intelligence_modifier = $10, wisdom_modifier = $11, charisma_modifier = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+raceColumns,
		id, name, description,
		m.Health, m.Stamina, m.Mana,
		m.Strength, m.Dexterity, m.Constitution,
		m.Intelligence, m.Wisdom, m.Charisma,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Race{}, ErrRaceNotFound
		}
		if isDuplicateKeyError(err) {
			return Race{}, ErrRaceExists
		}
		return Race{}, fmt.Errorf("updating race: %w", err)
	}
	return race, nil
}

// Delete removes a race.
//
// Postcondition: Returns nil on success, ErrRaceNotFound if absent, or
// ErrRaceInUse while characters still reference the race. The reference
// check and the delete are a single statement, so there is no window for
// a concurrent character create to slip through.
func (r *RaceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM races WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrRaceInUse
		}
		return fmt.Errorf("deleting race: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRaceNotFound
	}
	return nil
}

// AttachSkill associates a skill with the race.
func (r *RaceRepository) AttachSkill(ctx context.Context, raceID, skillID int64) error {
	return raceSkills.attach(ctx, r.db, raceID, skillID)
}

// DetachSkill removes a skill association from the race.
func (r *RaceRepository) DetachSkill(ctx context.Context, raceID, skillID int64) error {
	return raceSkills.detach(ctx, r.db, raceID, skillID)
}

// AttachTag associates a tag with the race.
func (r *RaceRepository) AttachTag(ctx context.Context, raceID, tagID int64) error {
	return raceTags.attach(ctx, r.db, raceID, tagID)
}

// DetachTag removes a tag association from the race.
func (r *RaceRepository) DetachTag(ctx context.Context, raceID, tagID int64) error {
	return raceTags.detach(ctx, r.db, raceID, tagID)
}
