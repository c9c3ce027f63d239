package character

import (
	"errors"
	"fmt"
	"strings"
)

// Ability score bounds for stored base attributes. Aggregates are derived
// values and are never checked against these.
const (
	MinAbility = 1
	MaxAbility = 20
)

// ValidateBase checks the nine base attributes against their stored ranges:
// the six ability scores must be in [MinAbility, MaxAbility] and the three
// pools must be >= 1.
//
// Postcondition: returns nil iff all nine attributes are in range; the
// error message names every violation.
func ValidateBase(b BaseAttributes) error {
	var errs []string

	pools := []struct {
		name  string
		value int
	}{
		{"health", b.Health},
		{"stamina", b.Stamina},
		{"mana", b.Mana},
	}
	for _, p := range pools {
		if p.value < 1 {
			errs = append(errs, fmt.Sprintf("%s must be >= 1, got %d", p.name, p.value))
		}
	}

	abilities := []struct {
		name  string
		value int
	}{
		{"strength", b.Strength},
		{"dexterity", b.Dexterity},
		{"constitution", b.Constitution},
		{"intelligence", b.Intelligence},
		{"wisdom", b.Wisdom},
		{"charisma", b.Charisma},
	}
	for _, a := range abilities {
		if a.value < MinAbility || a.value > MaxAbility {
			errs = append(errs, fmt.Sprintf("%s must be %d-%d, got %d", a.name, MinAbility, MaxAbility, a.value))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Race modifier bounds.
const (
	MinModifier = -10
	MaxModifier = 10
)

// Item bonus bounds.
const (
	MinBonus = 0
	MaxBonus = 50
)

// ValidateModifiers checks the nine race modifiers against
// [MinModifier, MaxModifier].
//
// Postcondition: returns nil iff all nine modifiers are in range; the
// error message names every violation.
func ValidateModifiers(m RaceModifiers) error {
	fields := []struct {
		name  string
		value int
	}{
		{"healthModifier", m.Health},
		{"staminaModifier", m.Stamina},
		{"manaModifier", m.Mana},
		{"strengthModifier", m.Strength},
		{"dexterityModifier", m.Dexterity},
		{"constitutionModifier", m.Constitution},
		{"intelligenceModifier", m.Intelligence},
		{"wisdomModifier", m.Wisdom},
		{"charismaModifier", m.Charisma},
	}

	var errs []string
	for _, f := range fields {
		if f.value < MinModifier || f.value > MaxModifier {
			errs = append(errs, fmt.Sprintf("%s must be %d-%d, got %d", f.name, MinModifier, MaxModifier, f.value))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateBonuses checks the seven item bonus fields against
// [MinBonus, MaxBonus].
//
// Postcondition: returns nil iff all seven bonuses are in range; the
// error message names every violation.
func ValidateBonuses(b ItemBonuses) error {
	fields := []struct {
		name  string
		value int
	}{
		{"bonusStrength", b.Strength},
		{"bonusDexterity", b.Dexterity},
		{"bonusConstitution", b.Constitution},
		{"bonusIntelligence", b.Intelligence},
		{"bonusWisdom", b.Wisdom},
		{"bonusCharisma", b.Charisma},
		{"bonusHealth", b.Health},
	}

	var errs []string
	for _, f := range fields {
		if f.value < MinBonus || f.value > MaxBonus {
			errs = append(errs, fmt.Sprintf("%s must be %d-%d, got %d", f.name, MinBonus, MaxBonus, f.value))
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
