package vars

import (
	"maps"
	"slices"
)

// Hero variable names.
const (
	HP         = "hp"
	Strength   = "str"
	Dexterity  = "dex"
	Intellect  = "int"
	Possession = "possession"
)

// HeroMaxHP is the hero's fixed hit point ceiling.
const HeroMaxHP = 20

// Store maps variable names to values. The zero value is not usable for writes; use
// Defaults or make a Store.
type Store map[string]Value

// Defaults returns the starting hero attributes.
func Defaults() Store {
	return Store{
		HP:         Int(HeroMaxHP),
		Strength:   Int(2),
		Dexterity:  Int(2),
		Intellect:  Int(2),
		Possession: Int(0),
	}
}

// Clone returns an independent copy of the store.
func (s Store) Clone() Store {
	out := make(Store, len(s))
	maps.Copy(out, s)
	return out
}

// Get returns the value for name and whether it is set.
func (s Store) Get(name string) (Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Num returns the numeric value of name. Unset and non-numeric variables read as 0.
func (s Store) Num(name string) int {
	return s[name].Int()
}

// ApplyDelta adds each increment to the current value, treating unset or non-numeric
// variables as 0. It returns the names it touched in sorted order.
func (s Store) ApplyDelta(delta map[string]int) []string {
	touched := make([]string, 0, len(delta))
	for name, inc := range delta {
		s[name] = Int(s.Num(name) + inc)
		touched = append(touched, name)
	}
	slices.Sort(touched)
	return touched
}

// Assign overwrites each named variable. It returns the names it touched in sorted order.
func (s Store) Assign(set map[string]Value) []string {
	touched := make([]string, 0, len(set))
	for name, v := range set {
		s[name] = v
		touched = append(touched, name)
	}
	slices.Sort(touched)
	return touched
}

// ClampHP keeps hero hit points within [0, HeroMaxHP]. Non-numeric hp is left alone.
func (s Store) ClampHP() {
	v, ok := s[HP]
	if !ok || v.Kind() != KindNumber {
		return
	}
	s[HP] = Int(Clamp(v.Int(), 0, HeroMaxHP))
}

// Damage removes n hit points from the hero, clamped.
func (s Store) Damage(n int) {
	s[HP] = Int(Clamp(s.Num(HP)-n, 0, HeroMaxHP))
}

// Equal reports whether both stores hold the same variables with the same values.
func (s Store) Equal(other Store) bool {
	return maps.Equal(s, other)
}

// Names returns the variable names in sorted order.
func (s Store) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Plain converts the store to plain Go values, handy for rendering.
func (s Store) Plain() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v.Interface()
	}
	return out
}

func Clamp(n, lo, hi int) int {
	return max(lo, min(hi, n))
}
