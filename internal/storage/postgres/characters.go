package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dkrasner/grimoire/internal/game/character"
)

// querier is the subset of pgx operations shared by pools and transactions,
// letting hydration run inside or outside a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CharacterRepository provides character persistence operations. Every read
// returns characters hydrated with race modifiers and equipped-item bonuses,
// with aggregate stats recomputed.
type CharacterRepository struct {
	db *pgxpool.Pool
}

// NewCharacterRepository creates a CharacterRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewCharacterRepository(db *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{db: db}
}

var characterItems = assocSpec{
	table: "character_items", ownerTable: "characters",
	ownerCol: "character_id", refCol: "item_id",
	ownerMissing: ErrCharacterNotFound, refMissing: ErrItemNotFound,
}

// slotColumns maps equipment slots onto their characters-table columns.
var slotColumns = map[character.Slot]string{
	character.SlotPrimaryWeapon:   "primary_weapon_id",
	character.SlotSecondaryWeapon: "secondary_weapon_id",
	character.SlotShield:          "shield_id",
	character.SlotArmor:           "armor_id",
	character.SlotFirstRing:       "first_ring_id",
	character.SlotSecondRing:      "second_ring_id",
	character.SlotAmulet:          "amulet_id",
}

const characterColumns = `
	c.id, c.user_id, c.name, c.surname, c.nickname, c.description,
	c.avatar_id, c.visible, c.race_id, c.archetype_id,
	c.health, c.stamina, c.mana,
	c.strength, c.dexterity, c.constitution,
	c.intelligence, c.wisdom, c.charisma,
	c.primary_weapon_id, c.secondary_weapon_id, c.shield_id, c.armor_id,
	c.first_ring_id, c.second_ring_id, c.amulet_id,
	c.created_at, c.updated_at,
	r.health_modifier, r.stamina_modifier, r.mana_modifier,
	r.strength_modifier, r.dexterity_modifier, r.constitution_modifier,
	r.intelligence_modifier, r.wisdom_modifier, r.charisma_modifier`

const characterFrom = ` FROM characters c JOIN races r ON r.id = c.race_id`

func scanCharacter(row pgx.Row) (*character.Character, error) {
	var c character.Character
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Surname, &c.Nickname, &c.Description,
		&c.AvatarID, &c.Visible, &c.RaceID, &c.ArchetypeID,
		&c.Base.Health, &c.Base.Stamina, &c.Base.Mana,
		&c.Base.Strength, &c.Base.Dexterity, &c.Base.Constitution,
		&c.Base.Intelligence, &c.Base.Wisdom, &c.Base.Charisma,
		&c.PrimaryWeaponID, &c.SecondaryWeaponID, &c.ShieldID, &c.ArmorID,
		&c.FirstRingID, &c.SecondRingID, &c.AmuletID,
		&c.CreatedAt, &c.UpdatedAt,
		&c.Race.Health, &c.Race.Stamina, &c.Race.Mana,
		&c.Race.Strength, &c.Race.Dexterity, &c.Race.Constitution,
		&c.Race.Intelligence, &c.Race.Wisdom, &c.Race.Charisma,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// loadEquipment fills in the bonus sets of every occupied slot for the given
// characters, then recomputes their aggregates. Works across a whole list
// page with a single items query.
func loadEquipment(ctx context.Context, q querier, chars []*character.Character) error {
	idSet := map[int64]struct{}{}
	for _, c := range chars {
		for _, s := range character.Slots {
			if id := *c.SlotID(s); id != nil {
				idSet[*id] = struct{}{}
			}
		}
	}

	bonuses := map[int64]*character.ItemBonuses{}
	if len(idSet) > 0 {
		ids := make([]int64, 0, len(idSet))
		for id := range idSet {
			ids = append(ids, id)
		}
		rows, err := q.Query(ctx, `
			SELECT id, bonus_strength, bonus_dexterity, bonus_constitution,
			       bonus_intelligence, bonus_wisdom, bonus_charisma, bonus_health
			FROM items WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("loading equipped items: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			var b character.ItemBonuses
			if err := rows.Scan(&id, &b.Strength, &b.Dexterity, &b.Constitution,
				&b.Intelligence, &b.Wisdom, &b.Charisma, &b.Health); err != nil {
				return fmt.Errorf("scanning item bonuses: %w", err)
			}
			bonuses[id] = &b
		}
		if err := rows.Err(); err != nil {
			return err
		}
	}

	slotTargets := func(c *character.Character) map[character.Slot]**character.ItemBonuses {
		return map[character.Slot]**character.ItemBonuses{
			character.SlotPrimaryWeapon:   &c.Equipment.PrimaryWeapon,
			character.SlotSecondaryWeapon: &c.Equipment.SecondaryWeapon,
			character.SlotShield:          &c.Equipment.Shield,
			character.SlotArmor:           &c.Equipment.Armor,
			character.SlotFirstRing:       &c.Equipment.FirstRing,
			character.SlotSecondRing:      &c.Equipment.SecondRing,
			character.SlotAmulet:          &c.Equipment.Amulet,
		}
	}

	for _, c := range chars {
		targets := slotTargets(c)
		for _, s := range character.Slots {
			if id := *c.SlotID(s); id != nil {
				*targets[s] = bonuses[*id]
			}
		}
		c.Recompute()
	}
	return nil
}

func getCharacter(ctx context.Context, q querier, id int64) (*character.Character, error) {
	c, err := scanCharacter(q.QueryRow(ctx,
		`SELECT `+characterColumns+characterFrom+` WHERE c.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCharacterNotFound
		}
		return nil, fmt.Errorf("querying character: %w", err)
	}
	if err := loadEquipment(ctx, q, []*character.Character{c}); err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new character and returns the hydrated read-after-write
// representation, aggregates included.
//
// Precondition: c.Base must already pass character.ValidateBase.
// Postcondition: Returns the created character with ID, relations, and
// aggregates set; ErrCharacterExists on duplicate name within the owning
// user; or ErrMissingReference when a referenced race, archetype, user,
// item, or avatar does not exist.
func (r *CharacterRepository) Create(ctx context.Context, c *character.Character) (*character.Character, error) {
	var out *character.Character
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		var id int64
		err := tx.QueryRow(ctx, `
			INSERT INTO characters
				(user_id, name, surname, nickname, description, avatar_id, visible,
				 race_id, archetype_id,
				 health, stamina, mana,
				 strength, dexterity, constitution, intelligence, wisdom, charisma,
				 primary_weapon_id, secondary_weapon_id, shield_id, armor_id,
				 first_ring_id, second_ring_id, amulet_id)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
			        $19,$20,$21,$22,$23,$24,$25)
			RETURNING id`,
			c.UserID, c.Name, c.Surname, c.Nickname, c.Description, c.AvatarID, c.Visible,
			c.RaceID, c.ArchetypeID,
			c.Base.Health, c.Base.Stamina, c.Base.Mana,
			c.Base.Strength, c.Base.Dexterity, c.Base.Constitution,
			c.Base.Intelligence, c.Base.Wisdom, c.Base.Charisma,
			c.PrimaryWeaponID, c.SecondaryWeaponID, c.ShieldID, c.ArmorID,
			c.FirstRingID, c.SecondRingID, c.AmuletID,
		).Scan(&id)
		if err != nil {
			return err
		}
		out, err = getCharacter(ctx, tx, id)
		return err
	})
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrCharacterExists
		}
		if isForeignKeyError(err) {
			return nil, ErrMissingReference
		}
		return nil, fmt.Errorf("inserting character: %w", err)
	}
	return out, nil
}

// GetByID retrieves a character with race modifiers, equipment bonuses, and
// aggregates hydrated.
//
// Postcondition: Returns the Character or ErrCharacterNotFound.
func (r *CharacterRepository) GetByID(ctx context.Context, id int64) (*character.Character, error) {
	return getCharacter(ctx, r.db, id)
}

var characterSortColumns = map[string]string{
	"id":         "c.id",
	"name":       "c.name",
	"created_at": "c.created_at",
}

// characterOrderBy mirrors ListParams.orderBy for the aliased characters
// query.
func characterOrderBy(p ListParams) string {
	col, ok := characterSortColumns[p.Sort]
	if !ok {
		col = "c.id"
	}
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	if col == "c.id" {
		return fmt.Sprintf("ORDER BY c.id %s", dir)
	}
	return fmt.Sprintf("ORDER BY %s %s, c.id ASC", col, dir)
}

// List returns a page of fully hydrated characters and the total row count.
//
// Postcondition: Every returned character has race modifiers, equipment,
// and aggregates populated.
func (r *CharacterRepository) List(ctx context.Context, p ListParams) ([]*character.Character, int64, error) {
	p = p.normalized()
	search := "%" + p.Search + "%"

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM characters WHERE name ILIKE $1 OR nickname ILIKE $1`,
		search,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting characters: %w", err)
	}

	limit, offset := p.limitOffset()
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+characterFrom+`
		 WHERE c.name ILIKE $1 OR c.nickname ILIKE $1 `+
			characterOrderBy(p)+` LIMIT $2 OFFSET $3`,
		search, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("listing characters: %w", err)
	}
	defer rows.Close()

	chars := make([]*character.Character, 0, limit)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := loadEquipment(ctx, r.db, chars); err != nil {
		return nil, 0, err
	}
	return chars, total, nil
}

// ListByUser returns all characters owned by the given user, hydrated,
// ordered by creation time.
func (r *CharacterRepository) ListByUser(ctx context.Context, userID int64) ([]*character.Character, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+characterColumns+characterFrom+`
		 WHERE c.user_id = $1 ORDER BY c.created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing characters by user: %w", err)
	}
	defer rows.Close()

	chars := make([]*character.Character, 0)
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		chars = append(chars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := loadEquipment(ctx, r.db, chars); err != nil {
		return nil, err
	}
	return chars, nil
}

// Update rewrites a character's mutable fields and returns the hydrated
// read-after-write representation.
//
// Precondition: c.Base must already pass character.ValidateBase; c.ID must
// be set.
// Postcondition: Returns the updated character with aggregates recomputed,
// ErrCharacterExists on duplicate name, ErrMissingReference on a missing
// foreign-key target, or ErrCharacterNotFound.
func (r *CharacterRepository) Update(ctx context.Context, c *character.Character) (*character.Character, error) {
	var out *character.Character
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE characters SET
				name = $2, surname = $3, nickname = $4, description = $5,
				avatar_id = $6, visible = $7, race_id = $8, archetype_id = $9,
				health = $10, stamina = $11, mana = $12,
				strength = $13, dexterity = $14, constitution = $15,
				intelligence = $16, wisdom = $17, charisma = $18,
				updated_at = NOW()
			WHERE id = $1`,
			c.ID, c.Name, c.Surname, c.Nickname, c.Description,
			c.AvatarID, c.Visible, c.RaceID, c.ArchetypeID,
			c.Base.Health, c.Base.Stamina, c.Base.Mana,
			c.Base.Strength, c.Base.Dexterity, c.Base.Constitution,
			c.Base.Intelligence, c.Base.Wisdom, c.Base.Charisma,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCharacterNotFound
		}
		out, err = getCharacter(ctx, tx, c.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		if isDuplicateKeyError(err) {
			return nil, ErrCharacterExists
		}
		if isForeignKeyError(err) {
			return nil, ErrMissingReference
		}
		return nil, fmt.Errorf("updating character: %w", err)
	}
	return out, nil
}

// Delete removes a character. Inventory rows cascade.
//
// Postcondition: Returns nil on success or ErrCharacterNotFound.
func (r *CharacterRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM characters WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting character: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

// Equip places an item in the given slot, replacing any current occupant,
// and returns the hydrated character.
//
// Postcondition: Returns the character with recomputed aggregates,
// ErrCharacterNotFound, ErrItemNotFound when the item does not exist, or
// an error naming an invalid slot.
func (r *CharacterRepository) Equip(ctx context.Context, id int64, slot character.Slot, itemID int64) (*character.Character, error) {
	return r.setSlot(ctx, id, slot, &itemID)
}

// Unequip clears the given slot and returns the hydrated character.
//
// Postcondition: Returns the character with recomputed aggregates,
// ErrCharacterNotFound, or an error naming an invalid slot. Clearing an
// already-empty slot is not an error.
func (r *CharacterRepository) Unequip(ctx context.Context, id int64, slot character.Slot) (*character.Character, error) {
	return r.setSlot(ctx, id, slot, nil)
}

func (r *CharacterRepository) setSlot(ctx context.Context, id int64, slot character.Slot, itemID *int64) (*character.Character, error) {
	col, ok := slotColumns[slot]
	if !ok {
		return nil, fmt.Errorf("unknown equipment slot %q", slot)
	}

	var out *character.Character
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, fmt.Sprintf(
			`UPDATE characters SET %s = $2, updated_at = NOW() WHERE id = $1`, col),
			id, itemID,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrCharacterNotFound
		}
		out, err = getCharacter(ctx, tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrCharacterNotFound) {
			return nil, ErrCharacterNotFound
		}
		if isForeignKeyError(err) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("updating equipment slot: %w", err)
	}
	return out, nil
}

// AddItem places an item in the character's general inventory.
func (r *CharacterRepository) AddItem(ctx context.Context, id, itemID int64) error {
	return characterItems.attach(ctx, r.db, id, itemID)
}

// RemoveItem removes an item from the character's general inventory.
func (r *CharacterRepository) RemoveItem(ctx context.Context, id, itemID int64) error {
	return characterItems.detach(ctx, r.db, id, itemID)
}

// ListInventory returns the items in the character's general inventory,
// name-ordered.
//
// Postcondition: Returns a slice (may be empty) or ErrCharacterNotFound
// when the character does not exist.
func (r *CharacterRepository) ListInventory(ctx context.Context, id int64) ([]Item, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM characters WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking character: %w", err)
	}
	if !exists {
		return nil, ErrCharacterNotFound
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+itemColumns+` FROM items
		 JOIN character_items ci ON ci.item_id = items.id
		 WHERE ci.character_id = $1 ORDER BY items.name ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
