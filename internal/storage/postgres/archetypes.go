package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Archetype represents a character class or calling. Skills and Tags are
// hydrated on single-row reads.
type Archetype struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Skills      []Skill   `json:"skills,omitempty"`
	Tags        []Tag     `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ArchetypeRepository provides archetype persistence operations.
type ArchetypeRepository struct {
	db *pgxpool.Pool
}

// NewArchetypeRepository creates an ArchetypeRepository backed by the given pool.
func NewArchetypeRepository(db *pgxpool.Pool) *ArchetypeRepository {
	return &ArchetypeRepository{db: db}
}

var archetypeSkills = assocSpec{
	table: "archetype_skills", ownerTable: "archetypes",
	ownerCol: "archetype_id", refCol: "skill_id",
	ownerMissing: ErrArchetypeNotFound, refMissing: ErrSkillNotFound,
}

var archetypeTags = assocSpec{
	table: "archetype_tags", ownerTable: "archetypes",
	ownerCol: "archetype_id", refCol: "tag_id",
	ownerMissing: ErrArchetypeNotFound, refMissing: ErrTagNotFound,
}

const archetypeColumns = `id, name, description, created_at, updated_at`

func scanArchetype(row pgx.Row) (Archetype, error) {
	var a Archetype
	err := row.Scan(&a.ID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// Create inserts a new archetype.
//
// Postcondition: Returns the created Archetype or ErrArchetypeExists on
// duplicate name.
func (r *ArchetypeRepository) Create(ctx context.Context, name, description string) (Archetype, error) {
	a, err := scanArchetype(r.db.QueryRow(ctx,
		`INSERT INTO archetypes (name, description) VALUES ($1, $2)
		 RETURNING `+archetypeColumns,
		name, description,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Archetype{}, ErrArchetypeExists
		}
		return Archetype{}, fmt.Errorf("inserting archetype: %w", err)
	}
	return a, nil
}

// GetByID retrieves an archetype with its skills and tags hydrated.
//
// Postcondition: Returns the Archetype or ErrArchetypeNotFound.
func (r *ArchetypeRepository) GetByID(ctx context.Context, id int64) (Archetype, error) {
	a, err := scanArchetype(r.db.QueryRow(ctx,
		`SELECT `+archetypeColumns+` FROM archetypes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Archetype{}, ErrArchetypeNotFound
		}
		return Archetype{}, fmt.Errorf("querying archetype: %w", err)
	}

	if a.Skills, err = archetypeSkills.loadSkills(ctx, r.db, id); err != nil {
		return Archetype{}, err
	}
	if a.Tags, err = archetypeTags.loadTags(ctx, r.db, id); err != nil {
		return Archetype{}, err
	}
	return a, nil
}

var archetypeSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

// List returns a page of archetypes and the total row count for the filter.
func (r *ArchetypeRepository) List(ctx context.Context, p ListParams) ([]Archetype, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM archetypes WHERE name ILIKE $1 OR description ILIKE $1`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting archetypes: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+archetypeColumns+` FROM archetypes
		 WHERE name ILIKE $1 OR description ILIKE $1 `+
			p.orderBy(archetypeSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing archetypes: %w", err)
	}
	defer rows.Close()

	archetypes := make([]Archetype, 0, limit)
	for rows.Next() {
		a, err := scanArchetype(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning archetype row: %w", err)
		}
		archetypes = append(archetypes, a)
	}
	return archetypes, total, rows.Err()
}

// Update changes an archetype's name and description.
//
// Postcondition: Returns the updated Archetype, ErrArchetypeExists on
// duplicate name, or ErrArchetypeNotFound.
func (r *ArchetypeRepository) Update(ctx context.Context, id int64, name, description string) (Archetype, error) {
	a, err := scanArchetype(r.db.QueryRow(ctx,
		`UPDATE archetypes SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+archetypeColumns,
		id, name, description,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Archetype{}, ErrArchetypeNotFound
		}
		if isDuplicateKeyError(err) {
			return Archetype{}, ErrArchetypeExists
		}
		return Archetype{}, fmt.Errorf("updating archetype: %w", err)
	}
	return a, nil
}

// Delete removes an archetype.
//
// Postcondition: Returns nil on success, ErrArchetypeNotFound if absent,
// or ErrArchetypeInUse while characters still reference it.
func (r *ArchetypeRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM archetypes WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrArchetypeInUse
		}
		return fmt.Errorf("deleting archetype: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrArchetypeNotFound
	}
	return nil
}

// AttachSkill associates a skill with the archetype.
func (r *ArchetypeRepository) AttachSkill(ctx context.Context, archetypeID, skillID int64) error {
	return archetypeSkills.attach(ctx, r.db, archetypeID, skillID)
}

// DetachSkill removes a skill association from the archetype.
func (r *ArchetypeRepository) DetachSkill(ctx context.Context, archetypeID, skillID int64) error {
	return archetypeSkills.detach(ctx, r.db, archetypeID, skillID)
}

// AttachTag associates a tag with the archetype.
func (r *ArchetypeRepository) AttachTag(ctx context.Context, archetypeID, tagID int64) error {
	return archetypeTags.attach(ctx, r.db, archetypeID, tagID)
}

// DetachTag removes a tag association from the archetype.
func (r *ArchetypeRepository) DetachTag(ctx context.Context, archetypeID, tagID int64) error {
	return archetypeTags.detach(ctx, r.db, archetypeID, tagID)
}
