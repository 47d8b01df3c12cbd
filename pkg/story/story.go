package story

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/jwebster45206/passage-engine/pkg/actor"
	"github.com/jwebster45206/passage-engine/pkg/conditionals"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

var (
	// ErrUnknownPassage is returned when a passage id is not part of the graph.
	ErrUnknownPassage = errors.New("unknown passage")
	// ErrInvalidStory wraps every structural problem found while validating a graph.
	ErrInvalidStory = errors.New("invalid story")
)

// Story is the static passage graph. It is read-only once loaded.
type Story struct {
	ID       string              `json:"-" yaml:"-"`                                   // Set from the file name
	Title    string              `json:"title,omitempty" yaml:"title,omitempty"`       // Display name for story listings
	Start    string              `json:"start" yaml:"start"`                           // Passage the session starts on
	Defaults vars.Store          `json:"defaults,omitempty" yaml:"defaults,omitempty"` // Overrides/extends the hero defaults
	Passages map[string]*Passage `json:"passages" yaml:"passages"`
}

// Passage is a node of the graph. It carries either choices or a combat descriptor.
type Passage struct {
	ID      string   `json:"-" yaml:"-"`
	Title   string   `json:"title" yaml:"title"`
	Body    string   `json:"body" yaml:"body"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
	Combat  *Combat  `json:"combat,omitempty" yaml:"combat,omitempty"`
}

// Choice is an edge to another passage.
type Choice struct {
	Text  string                `json:"text" yaml:"text"`
	To    string                `json:"to" yaml:"to"`
	If    *conditionals.When    `json:"if,omitempty" yaml:"if,omitempty"`       // Hidden when false
	Set   map[string]vars.Value `json:"set,omitempty" yaml:"set,omitempty"`     // Absolute assignments, applied last
	Delta map[string]int        `json:"delta,omitempty" yaml:"delta,omitempty"` // Increments, applied first
}

// Combat describes the encounter started when its passage is entered.
type Combat struct {
	Enemy     Enemy  `json:"enemy" yaml:"enemy"`
	OnVictory string `json:"on_victory" yaml:"on_victory"`
	OnDefeat  string `json:"on_defeat" yaml:"on_defeat"`
}

// Enemy is the declarative enemy definition in a story document.
type Enemy struct {
	Name  string `json:"name" yaml:"name"`
	MaxHP int    `json:"max_hp" yaml:"max_hp"`
	Power int    `json:"power" yaml:"power"`
}

func (p *Passage) IsCombat() bool {
	return p.Combat != nil
}

// Passage returns the passage with the given id.
func (s *Story) Passage(id string) (*Passage, error) {
	p, ok := s.Passages[id]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPassage, id)
	}
	return p, nil
}

// StartPassage returns the designated start passage.
func (s *Story) StartPassage() (*Passage, error) {
	return s.Passage(s.Start)
}

// Enemy builds a fresh stat block for a combat passage.
func (s *Story) Enemy(passageID string) (*actor.Enemy, error) {
	p, err := s.Passage(passageID)
	if err != nil {
		return nil, err
	}
	if p.Combat == nil {
		return nil, fmt.Errorf("passage %q has no combat", passageID)
	}
	return actor.NewEnemy(passageID, p.Combat.Enemy.Name, p.Combat.Enemy.MaxHP, p.Combat.Enemy.Power)
}

// InitialVars returns the hero defaults merged with the story's own defaults.
func (s *Story) InitialVars() vars.Store {
	out := vars.Defaults()
	maps.Copy(out, s.Defaults)
	out.ClampHP()
	return out
}

// PassageIDs returns every passage id in sorted order.
func (s *Story) PassageIDs() []string {
	return slices.Sorted(maps.Keys(s.Passages))
}

// Validate checks the graph is closed and well formed without modifying it. Every
// problem is reported, joined into one error that wraps ErrInvalidStory; dangling
// references also wrap ErrUnknownPassage.
func (s *Story) Validate() error {
	var errs []error
	fail := func(err error) {
		errs = append(errs, err)
	}

	if len(s.Passages) == 0 {
		fail(errors.New("story has no passages"))
	}
	if s.Start == "" {
		fail(errors.New("start passage is not set"))
	} else if _, ok := s.Passages[s.Start]; !ok {
		fail(fmt.Errorf("start: %w: %q", ErrUnknownPassage, s.Start))
	}
	if v, ok := s.Defaults[vars.HP]; ok && v.Kind() != vars.KindNumber {
		fail(fmt.Errorf("defaults: %s must be a number, got %s", vars.HP, v.Kind()))
	}

	ref := func(from, field, to string) {
		if _, ok := s.Passages[to]; !ok {
			fail(fmt.Errorf("passage %q %s: %w: %q", from, field, ErrUnknownPassage, to))
		}
	}

	for _, id := range s.PassageIDs() {
		p := s.Passages[id]
		if p == nil {
			fail(fmt.Errorf("passage %q is empty", id))
			continue
		}

		switch {
		case p.Combat != nil && len(p.Choices) > 0:
			fail(fmt.Errorf("passage %q has both choices and combat", id))
		case p.Combat == nil && len(p.Choices) == 0:
			fail(fmt.Errorf("passage %q has neither choices nor combat", id))
		}

		for i, c := range p.Choices {
			field := fmt.Sprintf("choice %d", i)
			if c.Text == "" {
				fail(fmt.Errorf("passage %q %s has no text", id, field))
			}
			if c.To == "" {
				fail(fmt.Errorf("passage %q %s has no target", id, field))
			} else {
				ref(id, field, c.To)
			}
			if c.If != nil && c.If.IsEmpty() {
				fail(fmt.Errorf("passage %q %s has an empty condition", id, field))
			}
			if v, ok := c.Set[vars.HP]; ok && v.Kind() != vars.KindNumber {
				fail(fmt.Errorf("passage %q %s: set %s must be a number, got %s", id, field, vars.HP, v.Kind()))
			}
		}

		if p.Combat != nil {
			ref(id, "on_victory", p.Combat.OnVictory)
			ref(id, "on_defeat", p.Combat.OnDefeat)
			if _, err := actor.NewEnemy(id, p.Combat.Enemy.Name, p.Combat.Enemy.MaxHP, p.Combat.Enemy.Power); err != nil {
				fail(fmt.Errorf("passage %q: %w", id, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidStory, errors.Join(errs...))
	}
	return nil
}

// Targets returns every passage id directly reachable from p, in document order.
func (p *Passage) Targets() []string {
	if p.Combat != nil {
		return []string{p.Combat.OnVictory, p.Combat.OnDefeat}
	}
	out := make([]string, 0, len(p.Choices))
	for _, c := range p.Choices {
		out = append(out, c.To)
	}
	return out
}

// Reachable returns the ids of all passages reachable from the start passage, sorted.
// Conditions are ignored: a guarded choice still counts as an edge.
func (s *Story) Reachable() []string {
	seen := make(map[string]bool)
	queue := []string{s.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		p, ok := s.Passages[id]
		if !ok || p == nil {
			continue
		}
		seen[id] = true
		queue = append(queue, p.Targets()...)
	}
	return slices.Sorted(maps.Keys(seen))
}

// Unreachable returns passages that cannot be reached from the start passage, sorted.
func (s *Story) Unreachable() []string {
	reach := make(map[string]bool)
	for _, id := range s.Reachable() {
		reach[id] = true
	}
	var out []string
	for _, id := range s.PassageIDs() {
		if !reach[id] {
			out = append(out, id)
		}
	}
	return out
}
