package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// assocSpec describes one many-to-many join table. All identifiers are
// compile-time constants supplied by the repositories, never user input.
type assocSpec struct {
	table      string
	ownerTable string
	ownerCol   string
	refCol     string
	// ownerMissing is returned when the owning entity does not exist.
	ownerMissing error
	// refMissing is returned when the associated entity does not exist.
	refMissing error
}

// attach inserts an association row.
//
// Postcondition: Returns nil on success, ErrAlreadyAttached on duplicate,
// or the configured missing-entity error when a foreign key target is absent.
func (s assocSpec) attach(ctx context.Context, db *pgxpool.Pool, ownerID, refID int64) error {
	_, err := db.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (%s, %s) VALUES ($1, $2)`,
		s.table, s.ownerCol, s.refCol,
	), ownerID, refID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrAlreadyAttached
		}
		if isForeignKeyError(err) {
			// Distinguish which side is missing with an existence probe.
			var exists bool
			probe := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.ownerTable)
			if perr := db.QueryRow(ctx, probe, ownerID).Scan(&exists); perr == nil && !exists {
				return s.ownerMissing
			}
			return s.refMissing
		}
		return fmt.Errorf("attaching %s: %w", s.table, err)
	}
	return nil
}

// loadSkills returns the skills attached to one owner row, name-ordered.
func (s assocSpec) loadSkills(ctx context.Context, db *pgxpool.Pool, ownerID int64) ([]Skill, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT s.id, s.name, s.description, s.created_at, s.updated_at
		 FROM skills s JOIN %s j ON j.%s = s.id
		 WHERE j.%s = $1 ORDER BY s.name ASC`,
		s.table, s.refCol, s.ownerCol,
	), ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading skills via %s: %w", s.table, err)
	}
	defer rows.Close()

	skills := make([]Skill, 0)
	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning skill row: %w", err)
		}
		skills = append(skills, sk)
	}
	return skills, rows.Err()
}

// loadTags returns the tags attached to one owner row, name-ordered.
func (s assocSpec) loadTags(ctx context.Context, db *pgxpool.Pool, ownerID int64) ([]Tag, error) {
	rows, err := db.Query(ctx, fmt.Sprintf(
		`SELECT t.id, t.name, t.created_at
		 FROM tags t JOIN %s j ON j.%s = t.id
		 WHERE j.%s = $1 ORDER BY t.name ASC`,
		s.table, s.refCol, s.ownerCol,
	), ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading tags via %s: %w", s.table, err)
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// detach removes an association row.
//
// Postcondition: Returns nil on success or ErrNotAttached when the pair
// was not associated.
func (s assocSpec) detach(ctx context.Context, db *pgxpool.Pool, ownerID, refID int64) error {
	tag, err := db.Exec(ctx, fmt.Sprintf(
		`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		s.table, s.ownerCol, s.refCol,
	), ownerID, refID)
	if err != nil {
		return fmt.Errorf("detaching %s: %w", s.table, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotAttached
	}
	return nil
}
