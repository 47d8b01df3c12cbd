package actor

import "github.com/jwebster45206/passage-engine/pkg/vars"

// Hero is a read-only view of the hero attributes held in the variable store.
type Hero struct {
	vars vars.Store
}

func HeroOf(s vars.Store) Hero {
	return Hero{vars: s}
}

func (h Hero) HP() int       { return h.vars.Num(vars.HP) }
func (h Hero) MaxHP() int    { return vars.HeroMaxHP }
func (h Hero) Strength() int { return h.vars.Num(vars.Strength) }

// IsDefeated returns true if the hero's HP is 0 or less.
func (h Hero) IsDefeated() bool {
	return h.HP() <= 0
}
