package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Tag is a free-form label attachable to races, archetypes, and items.
type Tag struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// TagRepository provides tag persistence operations.
type TagRepository struct {
	db *pgxpool.Pool
}

// NewTagRepository creates a TagRepository backed by the given pool.
func NewTagRepository(db *pgxpool.Pool) *TagRepository {
	return &TagRepository{db: db}
}

func scanTag(row pgx.Row) (Tag, error) {
	var t Tag
	err := row.Scan(&t.ID, &t.Name, &t.CreatedAt)
	return t, err
}

// Create inserts a new tag.
//
// Postcondition: Returns the created Tag or ErrTagExists on duplicate name.
func (r *TagRepository) Create(ctx context.Context, name string) (Tag, error) {
	t, err := scanTag(r.db.QueryRow(ctx,
		`INSERT INTO tags (name) VALUES ($1) RETURNING id, name, created_at`,
		name,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Tag{}, ErrTagExists
		}
		return Tag{}, fmt.Errorf("inserting tag: %w", err)
	}
	return t, nil
}

// GetByID retrieves a tag by its primary key.
//
// Postcondition: Returns the Tag or ErrTagNotFound.
func (r *TagRepository) GetByID(ctx context.Context, id int64) (Tag, error) {
	t, err := scanTag(r.db.QueryRow(ctx,
		`SELECT id, name, created_at FROM tags WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, ErrTagNotFound
		}
		return Tag{}, fmt.Errorf("querying tag: %w", err)
	}
	return t, nil
}

var tagSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"created_at": "created_at",
}

// List returns a page of tags and the total row count for the filter.
func (r *TagRepository) List(ctx context.Context, p ListParams) ([]Tag, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tags WHERE name ILIKE $1`, search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting tags: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT id, name, created_at FROM tags WHERE name ILIKE $1 `+
			p.orderBy(tagSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing tags: %w", err)
	}
	defer rows.Close()

	tags := make([]Tag, 0, limit)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning tag row: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, total, rows.Err()
}

// Update renames a tag.
//
// Postcondition: Returns the updated Tag, ErrTagExists on duplicate name,
// or ErrTagNotFound.
func (r *TagRepository) Update(ctx context.Context, id int64, name string) (Tag, error) {
	t, err := scanTag(r.db.QueryRow(ctx,
		`UPDATE tags SET name = $2 WHERE id = $1 RETURNING id, name, created_at`,
		id, name,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, ErrTagNotFound
		}
		if isDuplicateKeyError(err) {
			return Tag{}, ErrTagExists
		}
		return Tag{}, fmt.Errorf("updating tag: %w", err)
	}
	return t, nil
}

// Delete removes a tag.
//
// Postcondition: Returns nil on success, ErrTagNotFound if absent, or
// ErrTagInUse while races, archetypes, or items still reference it.
func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrTagInUse
		}
		return fmt.Errorf("deleting tag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTagNotFound
	}
	return nil
}
