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

// Kind constants for Item.Kind.
const (
	KindWeapon  = "weapon"
	KindShield  = "shield"
	KindArmor   = "armor"
	KindRing    = "ring"
	KindAmulet  = "amulet"
	KindTrinket = "trinket"
)

// validKinds is the set of valid item kinds.
var validKinds = map[string]bool{
	KindWeapon:  true,
	KindShield:  true,
	KindArmor:   true,
	KindRing:    true,
	KindAmulet:  true,
	KindTrinket: true,
}

// ValidKind reports whether kind is a recognised item kind.
func ValidKind(kind string) bool {
	return validKinds[kind]
}

// ErrInvalidKind is returned when an unrecognised item kind is supplied.
var ErrInvalidKind = errors.New("invalid item kind")

// Item represents an equippable or carryable item with its seven bonus
// fields. Skills and Tags are hydrated on single-row reads.
type Item struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Kind        string                `json:"kind"`
	Bonuses     character.ItemBonuses `json:"bonuses"`
	Skills      []Skill               `json:"skills,omitempty"`
	Tags        []Tag                 `json:"tags,omitempty"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// ItemRepository provides item persistence operations.
type ItemRepository struct {
	db *pgxpool.Pool
}

// NewItemRepository creates an ItemRepository backed by the given pool.
func NewItemRepository(db *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: db}
}

var itemSkills = assocSpec{
	table: "item_skills", ownerTable: "items",
	ownerCol: "item_id", refCol: "skill_id",
	ownerMissing: ErrItemNotFound, refMissing: ErrSkillNotFound,
}

var itemTags = assocSpec{
	table: "item_tags", ownerTable: "items",
	ownerCol: "item_id", refCol: "tag_id",
	ownerMissing: ErrItemNotFound, refMissing: ErrTagNotFound,
}

const itemColumns = `id, name, description, kind,
	bonus_strength, bonus_dexterity, bonus_constitution,
	bonus_intelligence, bonus_wisdom, bonus_charisma, bonus_health,
	created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var i Item
	err := row.Scan(
		&i.ID, &i.Name, &i.Description, &i.Kind,
		&i.Bonuses.Strength, &i.Bonuses.Dexterity, &i.Bonuses.Constitution,
		&i.Bonuses.Intelligence, &i.Bonuses.Wisdom, &i.Bonuses.Charisma, &i.Bonuses.Health,
		&i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}

// Create inserts a new item.
//
// Precondition: bonuses must already be range-checked to [0,50]; kind must
// be validated with ValidKind.
// Postcondition: Returns the created Item, ErrInvalidKind, or ErrItemExists
// on duplicate name.
func (r *ItemRepository) Create(ctx context.Context, name, description, kind string, b character.ItemBonuses) (Item, error) {
	if !ValidKind(kind) {
		return Item{}, ErrInvalidKind
	}

	item, err := scanItem(r.db.QueryRow(ctx, `
		INSERT INTO items
			(name, description, kind,
			 bonus_strength, bonus_dexterity, bonus_constitution,
			 bonus_intelligence, bonus_wisdom, bonus_charisma, bonus_health)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING `+itemColumns,
		name, description, kind,
		b.Strength, b.Dexterity, b.Constitution,
		b.Intelligence, b.Wisdom, b.Charisma, b.Health,
	))
	if err != nil {
		if isDuplicateKeyError(err) {
			return Item{}, ErrItemExists
		}
		return Item{}, fmt.Errorf("inserting item: %w", err)
	}
	return item, nil
}

// GetByID retrieves an item with its skills and tags hydrated.
//
// Postcondition: Returns the Item or ErrItemNotFound.
func (r *ItemRepository) GetByID(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.db.QueryRow(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("querying item: %w", err)
	}

	if item.Skills, err = itemSkills.loadSkills(ctx, r.db, id); err != nil {
		return Item{}, err
	}
	if item.Tags, err = itemTags.loadTags(ctx, r.db, id); err != nil {
		return Item{}, err
	}
	return item, nil
}

var itemSortColumns = map[string]string{
	"id":         "id",
	"name":       "name",
	"kind":       "kind",
	"created_at": "created_at",
}

// List returns a page of items and the total row count for the filter.
func (r *ItemRepository) List(ctx context.Context, p ListParams) ([]Item, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM items WHERE name ILIKE $1 OR description ILIKE $1`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE name ILIKE $1 OR description ILIKE $1 `+
			p.orderBy(itemSortColumns)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

// Update changes an item's name, description, kind, and bonuses.
//
// Precondition: bonuses must already be range-checked to [0,50].
// Postcondition: Returns the updated Item, ErrInvalidKind, ErrItemExists on
// duplicate name, or ErrItemNotFound.
func (r *ItemRepository) Update(ctx context.Context, id int64, name, description, kind string, b character.ItemBonuses) (Item, error) {
	if !ValidKind(kind) {
		return Item{}, ErrInvalidKind
	}

	item, err := scanItem(r.db.QueryRow(ctx, `
		UPDATE items SET
			name = $2, description = $3, kind = $4,
			bonus_strength = $5, bonus_dexterity = $6, bonus_constitution = $7,
			bonus_intelligence = $8, bonus_wisdom = $9, bonus_charisma = $10,
			bonus_health = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING `+itemColumns,
		id, name, description, kind,
		b.Strength, b.Dexterity, b.Constitution,
		b.Intelligence, b.Wisdom, b.Charisma, b.Health,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		if isDuplicateKeyError(err) {
			return Item{}, ErrItemExists
		}
		return Item{}, fmt.Errorf("updating item: %w", err)
	}
	return item, nil
}

// Delete removes an item.
//
// Postcondition: Returns nil on success, ErrItemNotFound if absent, or
// ErrItemInUse while the item is equipped in any slot or held in any
// character's inventory.
func (r *ItemRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyError(err) {
			return ErrItemInUse
		}
		return fmt.Errorf("deleting item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// AttachSkill associates a skill with the item.
func (r *ItemRepository) AttachSkill(ctx context.Context, itemID, skillID int64) error {
	return itemSkills.attach(ctx, r.db, itemID, skillID)
}

// DetachSkill removes a skill association from the item.
func (r *ItemRepository) DetachSkill(ctx context.Context, itemID, skillID int64) error {
	return itemSkills.detach(ctx, r.db, itemID, skillID)
}

// AttachTag associates a tag with the item.
func (r *ItemRepository) AttachTag(ctx context.Context, itemID, tagID int64) error {
	return itemTags.attach(ctx, r.db, itemID, tagID)
}

// DetachTag removes a tag association from the item.
func (r *ItemRepository) DetachTag(ctx context.Context, itemID, tagID int64) error {
	return itemTags.detach(ctx, r.db, itemID, tagID)
}
