package character

// statTerm describes how one aggregate field is assembled: base attribute
// plus race modifier, plus the item-bonus total when the stat has a bonus
// counterpart. Stamina and mana carry a nil bonus accessor and therefore
// never receive item contributions.
type statTerm struct {
	base  func(BaseAttributes) int
	mod   func(RaceModifiers) int
	bonus func(ItemBonuses) int
	out   func(*AggregateStats) *int
}

// statTable lists the nine aggregate computations. The two entries with a
// nil bonus accessor (stamina, mana) are the documented exclusion: those
// aggregates stop at base + race modifier.
var statTable = []statTerm{
	{
		base:  func(b BaseAttributes) int { return b.Health },
		mod:   func(r RaceModifiers) int { return r.Health },
		bonus: func(i ItemBonuses) int { return i.Health },
		out:   func(a *AggregateStats) *int { return &a.Health },
	},
	{
		base: func(b BaseAttributes) int { return b.Stamina },
		mod:  func(r RaceModifiers) int { return r.Stamina },
		out:  func(a *AggregateStats) *int { return &a.Stamina },
	},
	{
		base: func(b BaseAttributes) int { return b.Mana },
		mod:  func(r RaceModifiers) int { return r.Mana },
		out:  func(a *AggregateStats) *int { return &a.Mana },
	},
	{
		base:  func(b BaseAttributes) int { return b.Strength },
		mod:   func(r RaceModifiers) int { return r.Strength },
		bonus: func(i ItemBonuses) int { return i.Strength },
		out:   func(a *AggregateStats) *int { return &a.Strength },
	},
	{
		base:  func(b BaseAttributes) int { return b.Dexterity },
		mod:   func(r RaceModifiers) int { return r.Dexterity },
		bonus: func(i ItemBonuses) int { return i.Dexterity },
		out:   func(a *AggregateStats) *int { return &a.Dexterity },
	},
	{
		base:  func(b BaseAttributes) int { return b.Constitution },
		mod:   func(r RaceModifiers) int { return r.Constitution },
		bonus: func(i ItemBonuses) int { return i.Constitution },
		out:   func(a *AggregateStats) *int { return &a.Constitution },
	},
	{
		base:  func(b BaseAttributes) int { return b.Intelligence },
		mod:   func(r RaceModifiers) int { return r.Intelligence },
		bonus: func(i ItemBonuses) int { return i.Intelligence },
		out:   func(a *AggregateStats) *int { return &a.Intelligence },
	},
	{
		base:  func(b BaseAttributes) int { return b.Wisdom },
		mod:   func(r RaceModifiers) int { return r.Wisdom },
		bonus: func(i ItemBonuses) int { return i.Wisdom },
		out:   func(a *AggregateStats) *int { return &a.Wisdom },
	},
	{
		base:  func(b BaseAttributes) int { return b.Charisma },
		mod:   func(r RaceModifiers) int { return r.Charisma },
		bonus: func(i ItemBonuses) int { return i.Charisma },
		out:   func(a *AggregateStats) *int { return &a.Charisma },
	},
}

// totalBonuses sums the bonus fields of every occupied equipment slot.
// Empty slots contribute zero. An item equipped in two slots is counted
// once per slot, not deduplicated.
func totalBonuses(eq Equipment) ItemBonuses {
	var t ItemBonuses
	for _, ib := range eq.slots() {
		if ib == nil {
			continue
		}
		t.Strength += ib.Strength
		t.Dexterity += ib.Dexterity
		t.Constitution += ib.Constitution
		t.Intelligence += ib.Intelligence
		t.Wisdom += ib.Wisdom
		t.Charisma += ib.Charisma
		t.Health += ib.Health
	}
	return t
}

// ComputeAggregates derives the nine aggregate stats from base attributes,
// race modifiers, and equipment. Every aggregate is base + race modifier;
// health and the six ability scores additionally fold in the summed bonuses
// of occupied equipment slots, while stamina and mana do not.
//
// The function performs no validation and no clamping: inputs are assumed
// to have been range-checked at entity create/update time, and outputs may
// exceed the ranges that constrain base attributes.
func ComputeAggregates(base BaseAttributes, race RaceModifiers, eq Equipment) AggregateStats {
	totals := totalBonuses(eq)

	var agg AggregateStats
	for _, t := range statTable {
		v := t.base(base) + t.mod(race)
		if t.bonus != nil {
			v += t.bonus(totals)
		}
		*t.out(&agg) = v
	}
	return agg
}

// Recompute refreshes c.Aggregates from c.Base, c.Race, and c.Equipment.
// The persistence layer calls this immediately after hydrating a character.
func (c *Character) Recompute() {
	c.Aggregates = ComputeAggregates(c.Base, c.Race, c.Equipment)
}
