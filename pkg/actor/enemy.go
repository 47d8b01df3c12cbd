package actor

import (
	"fmt"

	"github.com/jwebster45206/d20"
)

// AttrPower is the d20 attribute holding an enemy's attack bonus.
const AttrPower = "power"

// DefaultAC is the armor class given to enemy stat blocks. Combat here is an opposed
// roll, so AC is informational only.
const DefaultAC = 10

// Enemy is the stat block of a combat opponent. It is immutable; an encounter tracks
// the enemy's current hit points separately.
type Enemy struct {
	ID    string
	Name  string
	Actor *d20.Actor
}

// NewEnemy builds an enemy stat block. maxHP must be positive.
func NewEnemy(id, name string, maxHP, power int) (*Enemy, error) {
	if name == "" {
		return nil, fmt.Errorf("enemy %q: name is required", id)
	}
	if maxHP <= 0 {
		return nil, fmt.Errorf("enemy %q: max_hp must be positive, got %d", id, maxHP)
	}

	a, err := d20.NewActor(id).
		WithHP(maxHP).
		WithAC(DefaultAC).
		WithAttributes(map[string]int{AttrPower: power}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build enemy %q: %w", id, err)
	}

	return &Enemy{ID: id, Name: name, Actor: a}, nil
}

// MaxHP returns the enemy's starting hit points.
func (e *Enemy) MaxHP() int {
	return e.Actor.MaxHP()
}

// Power returns the bonus added to the enemy's attack roll.
func (e *Enemy) Power() int {
	if v, ok := e.Actor.Attribute(AttrPower); ok {
		return v
	}
	return 0
}
