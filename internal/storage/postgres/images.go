package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Image represents an uploaded image's metadata. Token is the opaque
// identifier used in serving URLs; the binary itself lives outside the
// database.
type Image struct {
	ID          int64     `json:"id"`
	Token       string    `json:"token"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	OwnerID     int64     `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ImageRepository provides image metadata persistence operations.
type ImageRepository struct {
	db *pgxpool.Pool
}

// NewImageRepository creates an ImageRepository backed by the given pool.
func NewImageRepository(db *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{db: db}
}

const imageColumns = `id, token, filename, content_type, size_bytes, owner_id, created_at`

func scanImage(row pgx.Row) (Image, error) {
	var im Image
	err := row.Scan(&im.ID, &im.Token, &im.Filename, &im.ContentType, &im.SizeBytes, &im.OwnerID, &im.CreatedAt)
	return im, err
}

// Create records a new image owned by the given user. A fresh random token
// is assigned.
//
// Postcondition: Returns the created Image or ErrUserNotFound when the
// owner does not exist.
func (r *ImageRepository) Create(ctx context.Context, ownerID int64, filename, contentType string, sizeBytes int64) (Image, error) {
	token := uuid.New().String()

	im, err := scanImage(r.db.QueryRow(ctx,
		`INSERT INTO images (token, filename, content_type, size_bytes, owner_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+imageColumns,
		token, filename, contentType, sizeBytes, ownerID,
	))
	if err != nil {
		if isForeignKeyError(err) {
			return Image{}, ErrUserNotFound
		}
		return Image{}, fmt.Errorf("inserting image: %w", err)
	}
	return im, nil
}

// GetByID retrieves an image by its primary key.
//
// Postcondition: Returns the Image or ErrImageNotFound.
func (r *ImageRepository) GetByID(ctx context.Context, id int64) (Image, error) {
	im, err := scanImage(r.db.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Image{}, ErrImageNotFound
		}
		return Image{}, fmt.Errorf("querying image: %w", err)
	}
	return im, nil
}

// GetByToken retrieves an image by its serving token.
//
// Postcondition: Returns the Image or ErrImageNotFound.
func (r *ImageRepository) GetByToken(ctx context.Context, token string) (Image, error) {
	im, err := scanImage(r.db.QueryRow(ctx,
		`SELECT `+imageColumns+` FROM images WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Image{}, ErrImageNotFound
		}
		return Image{}, fmt.Errorf("querying image: %w", err)
	}
	return im, nil
}

var imageSortColumns = map[string]string{
	"id":         "id",
	"filename":   "filename",
	"created_at": "created_at",
}

// List returns a page of images and the total row count for the filter.
func (r *ImageRepository) List(ctx context.Context, p ListParams) ([]Image, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM images WHERE filename ILIKE $1`, search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting images: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+imageColumns+` FROM images WHERE filename ILIKE $1 `+
			p.orderBy(imageSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0, limit)
	for rows.Next() {
		im, err := scanImage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning image row: %w", err)
		}
		images = append(images, im)
	}
	return images, total, rows.Err()
}

// Update changes an image's filename.
//
// Postcondition: Returns the updated Image or ErrImageNotFound.
func (r *ImageRepository) Update(ctx context.Context, id int64, filename string) (Image, error) {
	im, err := scanImage(r.db.QueryRow(ctx,
		`UPDATE images SET filename = $2 WHERE id = $1 RETURNING `+imageColumns,
		id, filename,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Image{}, ErrImageNotFound
		}
		return Image{}, fmt.Errorf("updating image: %w", err)
	}
	return im, nil
}

// Delete removes an image's metadata.
//
// Postcondition: Returns nil on success, ErrImageNotFound if absent, or
// ErrImageInUse while a character uses the image as its avatar.
func (r *ImageRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrImageInUse
		}
		return fmt.Errorf("deleting image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}
