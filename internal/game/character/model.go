// Package character defines the character domain model and the pure
// aggregate-stat computation applied to every character read.
package character

import "time"

// BaseAttributes holds the nine stored attribute values for a character.
//
// The six ability scores (Strength through Charisma) are constrained to
// [1,20] at create/update time; the three pools (Health, Stamina, Mana)
// must be >= 1. See ValidateBase.
type BaseAttributes struct {
	Health       int `json:"health"`
	Stamina      int `json:"stamina"`
	Mana         int `json:"mana"`
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// RaceModifiers holds a race's nine attribute modifiers, each in [-10,10].
type RaceModifiers struct {
	Health       int `json:"healthModifier"`
	Stamina      int `json:"staminaModifier"`
	Mana         int `json:"manaModifier"`
	Strength     int `json:"strengthModifier"`
	Dexterity    int `json:"dexterityModifier"`
	Constitution int `json:"constitutionModifier"`
	Intelligence int `json:"intelligenceModifier"`
	Wisdom       int `json:"wisdomModifier"`
	Charisma     int `json:"charismaModifier"`
}

// ItemBonuses holds the seven bonus fields of an equippable item, each in
// [0,50]. Stamina and mana have no bonus counterpart.
type ItemBonuses struct {
	Strength     int `json:"bonusStrength"`
	Dexterity    int `json:"bonusDexterity"`
	Constitution int `json:"bonusConstitution"`
	Intelligence int `json:"bonusIntelligence"`
	Wisdom       int `json:"bonusWisdom"`
	Charisma     int `json:"bonusCharisma"`
	Health       int `json:"bonusHealth"`
}

// Slot identifies one of the seven equipment slots.
type Slot string

// Equipment slot identifiers, in canonical order.
const (
	SlotPrimaryWeapon   Slot = "primaryWeapon"
	SlotSecondaryWeapon Slot = "secondaryWeapon"
	SlotShield          Slot = "shield"
	SlotArmor           Slot = "armor"
	SlotFirstRing       Slot = "firstRing"
	SlotSecondRing      Slot = "secondRing"
	SlotAmulet          Slot = "amulet"
)

// Slots lists the seven equipment slots in canonical order.
var Slots = []Slot{
	SlotPrimaryWeapon, SlotSecondaryWeapon, SlotShield, SlotArmor,
	SlotFirstRing, SlotSecondRing, SlotAmulet,
}

// ValidSlot reports whether s names a recognised equipment slot.
func ValidSlot(s Slot) bool {
	switch s {
	case SlotPrimaryWeapon, SlotSecondaryWeapon, SlotShield, SlotArmor,
		SlotFirstRing, SlotSecondRing, SlotAmulet:
		return true
	}
	return false
}

// Equipment holds the bonus sets of the items currently occupying a
// character's seven equipment slots. A nil slot is empty and contributes
// nothing to the aggregates.
type Equipment struct {
	PrimaryWeapon   *ItemBonuses `json:"primaryWeapon"`
	SecondaryWeapon *ItemBonuses `json:"secondaryWeapon"`
	Shield          *ItemBonuses `json:"shield"`
	Armor           *ItemBonuses `json:"armor"`
	FirstRing       *ItemBonuses `json:"firstRing"`
	SecondRing      *ItemBonuses `json:"secondRing"`
	Amulet          *ItemBonuses `json:"amulet"`
}

// slots returns the seven slot values in canonical order, nil entries
// included.
func (e Equipment) slots() [7]*ItemBonuses {
	return [7]*ItemBonuses{
		e.PrimaryWeapon, e.SecondaryWeapon, e.Shield, e.Armor,
		e.FirstRing, e.SecondRing, e.Amulet,
	}
}

// AggregateStats holds the nine derived stats exposed to clients. They are
// never stored; they are recomputed from current base attributes, race
// modifiers, and equipment on every read.
type AggregateStats struct {
	Health       int `json:"aggregateHealth"`
	Stamina      int `json:"aggregateStamina"`
	Mana         int `json:"aggregateMana"`
	Strength     int `json:"aggregateStrength"`
	Dexterity    int `json:"aggregateDexterity"`
	Constitution int `json:"aggregateConstitution"`
	Intelligence int `json:"aggregateIntelligence"`
	Wisdom       int `json:"aggregateWisdom"`
	Charisma     int `json:"aggregateCharisma"`
}

// Character represents a character's persistent state together with the
// relations hydrated by the persistence layer.
//
// ID and the timestamps are set by the persistence layer; zero values
// indicate an unsaved character. Race and Equipment are populated on every
// read so that Aggregates can be computed without a second query.
type Character struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"userId"`

	Name        string  `json:"name"`
	Surname     *string `json:"surname"`
	Nickname    *string `json:"nickname"`
	Description *string `json:"description"`
	AvatarID    *int64  `json:"avatarId"`
	Visible     bool    `json:"visible"`

	RaceID      int64 `json:"raceId"`
	ArchetypeID int64 `json:"archetypeId"`

	Base BaseAttributes `json:"baseAttributes"`

	// Equipped item IDs, one per slot, nil when the slot is empty.
	PrimaryWeaponID   *int64 `json:"primaryWeaponId"`
	SecondaryWeaponID *int64 `json:"secondaryWeaponId"`
	ShieldID          *int64 `json:"shieldId"`
	ArmorID           *int64 `json:"armorId"`
	FirstRingID       *int64 `json:"firstRingId"`
	SecondRingID      *int64 `json:"secondRingId"`
	AmuletID          *int64 `json:"amuletId"`

	Race       RaceModifiers  `json:"raceModifiers"`
	Equipment  Equipment      `json:"equipment"`
	Aggregates AggregateStats `json:"aggregates"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SlotID returns a pointer to the equipped-item ID field for the given
// slot, or nil if s is not a recognised slot.
func (c *Character) SlotID(s Slot) **int64 {
	switch s {
	case SlotPrimaryWeapon:
		return &c.PrimaryWeaponID
	case SlotSecondaryWeapon:
		return &c.SecondaryWeaponID
	case SlotShield:
		return &c.ShieldID
	case SlotArmor:
		return &c.ArmorID
	case SlotFirstRing:
		return &c.FirstRingID
	case SlotSecondRing:
		return &c.SecondRingID
	case SlotAmulet:
		return &c.AmuletID
	}
	return nil
}
