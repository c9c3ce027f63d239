package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Skill represents a learnable ability attachable to races, archetypes,
// and items.
type Skill struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SkillRepository provides skill persistence operations.
type SkillRepository struct {
	db *pgxpool.Pool
}

// NewSkillRepository creates a SkillRepository backed by the given pool.
func NewSkillRepository(db *pgxpool.Pool) *SkillRepository {
	return &SkillRepository{db: db}
}

const skillColumns = `id, name, description, created_at, updated_at`

func scanSkill(row pgx.Row) (Skill, error) {
	var s Skill
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a new skill.
//
// Postcondition: Returns the created Skill or ErrSkillExists on duplicate name.
func (r *SkillRepository) Create(ctx context.Context, name, description string) (Skill, error) {
	s, err := scanSkill(r.db.QueryRow(ctx,
		`INSERT INTO skills (name, description) VALUES ($1, $2)
		 RETURNING `+skillColumns,
		name, description,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Skill{}, ErrSkillExists
		}
		return Skill{}, fmt.Errorf("inserting skill: %w", err)
	}
	return s, nil
}

// GetByID retrieves a skill by its primary key.
//
// Postcondition: Returns the Skill or ErrSkillNotFound.
func (r *SkillRepository) GetByID(ctx context.Context, id int64) (Skill, error) {
	s, err := scanSkill(r.db.QueryRow(ctx,
		`SELECT `+skillColumns+` FROM skills WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Skill{}, ErrSkillNotFound
		}
		return Skill{}, fmt.Errorf("querying skill: %w", err)
	}
	return s, nil
}

var skillSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

// List returns a page of skills and the total row count for the filter.
func (r *SkillRepository) List(ctx context.Context, p ListParams) ([]Skill, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM skills WHERE name ILIKE $1 OR description ILIKE $1`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting skills: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+skillColumns+` FROM skills
		 WHERE name ILIKE $1 OR description ILIKE $1 `+
			p.orderBy(skillSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing skills: %w", err)
	}
	defer rows.Close()

	skills := make([]Skill, 0, limit)
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning skill row: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, total, rows.Err()
}

// Update changes a skill's name and description.
//
// Postcondition: Returns the updated Skill, ErrSkillExists on duplicate
// name, or ErrSkillNotFound.
func (r *SkillRepository) Update(ctx context.Context, id int64, name, description string) (Skill, error) {
	s, err := scanSkill(r.db.QueryRow(ctx,
		`UPDATE skills SET name = $2, description = $3, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+skillColumns,
		id, name, description,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Skill{}, ErrSkillNotFound
		}
		if isDuplicateKeyError(err) {
			return Skill{}, ErrSkillExists
		}
		return Skill{}, fmt.Errorf("updating skill: %w", err)
	}
	return s, nil
}

// Delete removes a skill.
//
// Postcondition: Returns nil on success, ErrSkillNotFound if absent, or
// ErrSkillInUse while races, archetypes, or items still reference it.
func (r *SkillRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM skills WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrSkillInUse
		}
		return fmt.Errorf("deleting skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSkillNotFound
	}
	return nil
}
