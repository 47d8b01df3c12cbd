// Package engine implements the passage and combat state machine. Operations take a
// *state.GameState and return a new one; the input is never modified, so a failed
// call leaves the caller's state exactly as it was.
package engine

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jwebster45206/passage-engine/pkg/actor"
	"github.com/jwebster45206/passage-engine/pkg/conditionals"
	"github.com/jwebster45206/passage-engine/pkg/dice"
	"github.com/jwebster45206/passage-engine/pkg/state"
	"github.com/jwebster45206/passage-engine/pkg/story"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

var (
	// ErrInvalidChoice is returned when a choice index is outside the visible choices.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrNoActiveCombat is returned when attacking outside an encounter.
	ErrNoActiveCombat = errors.New("no active combat")
)

const (
	// DieSides is the die rolled by each side every combat round.
	DieSides = 6
	// HitDamage is the fixed damage dealt by a landed blow.
	HitDamage = 3
)

// Engine runs sessions of one story.
type Engine struct {
	story   *story.Story
	enemies map[string]*actor.Enemy // Keyed by combat passage id
	roller  dice.Roller
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Engine)

// WithRoller sets the die roller. Defaults to a randomly seeded dice.Random.
func WithRoller(r dice.Roller) Option {
	return func(e *Engine) { e.roller = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now for UpdatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an engine for the story. The story is validated first; a broken graph
// never gets an engine. The story is only read, so engines may share one.
func New(s *story.Story, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, errors.New("story cannot be nil")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		story:   s,
		enemies: make(map[string]*actor.Enemy),
		roller:  dice.NewRandom(0),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for id, p := range s.Passages {
		if !p.IsCombat() {
			continue
		}
		enemy, err := s.Enemy(id)
		if err != nil {
			return nil, err
		}
		e.enemies[id] = enemy
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Story() *story.Story {
	return e.story
}

// NewGame returns a fresh session state on the start passage with default variables.
func (e *Engine) NewGame() (*state.GameState, error) {
	gs := state.NewGameState(e.story.ID, e.story.Start, e.story.InitialVars())
	p, err := e.story.StartPassage()
	if err != nil {
		return nil, err
	}
	if p.IsCombat() {
		if err := e.beginEncounter(gs, e.story.Start); err != nil {
			return nil, err
		}
	}
	e.logger.Debug("New game started", "story", e.story.ID, "id", gs.ID.String())
	return gs, nil
}

// VisibleChoices returns the current passage's choices whose conditions hold, in
// document order. Combat passages have none.
func (e *Engine) VisibleChoices(gs *state.GameState) ([]story.Choice, error) {
	if gs == nil {
		return nil, errors.New("game state cannot be nil")
	}
	p, err := e.story.Passage(gs.CurrentPassage)
	if err != nil {
		return nil, err
	}

	visible := make([]story.Choice, 0, len(p.Choices))
	for _, c := range p.Choices {
		if conditionals.Visible(c.If, gs.Vars) {
			visible = append(visible, c)
		}
	}
	return visible, nil
}

// ApplyChoice follows the visible choice at index. Effects are applied in order:
// delta, assign, hit point clamp, move, history, restart reset, encounter start.
func (e *Engine) ApplyChoice(gs *state.GameState, index int) (*state.GameState, error) {
	visible, err := e.VisibleChoices(gs)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(visible) {
		return nil, fmt.Errorf("%w: index %d, %d visible on passage %q", ErrInvalidChoice, index, len(visible), gs.CurrentPassage)
	}
	c := visible[index]

	next := gs.Clone()
	touched := next.Vars.ApplyDelta(c.Delta)
	touched = append(touched, next.Vars.Assign(c.Set)...)
	for _, name := range touched {
		if name == vars.HP {
			next.Vars.ClampHP()
			break
		}
	}
	next.LastCombat = nil

	from := next.CurrentPassage
	if err := e.arrive(next, c.To); err != nil {
		return nil, err
	}
	next.Turn++
	next.UpdatedAt = e.now()

	e.logger.Debug("Choice applied",
		"id", next.ID.String(),
		"from", from,
		"to", next.CurrentPassage,
		"choice", c.Text,
		"touched", touched)
	return next, nil
}

// arrive moves gs onto passageID and applies the arrival rules: entering the start
// passage resets the variables to the story defaults, and entering a combat passage
// starts a fresh encounter.
func (e *Engine) arrive(gs *state.GameState, passageID string) error {
	p, err := e.story.Passage(passageID)
	if err != nil {
		return err
	}
	gs.Visit(passageID)

	if passageID == e.story.Start {
		gs.Vars = e.story.InitialVars()
		e.logger.Debug("Restart: variables reset", "id", gs.ID.String())
	}

	gs.Combat = nil
	if p.IsCombat() {
		return e.beginEncounter(gs, passageID)
	}
	return nil
}

func (e *Engine) beginEncounter(gs *state.GameState, passageID string) error {
	enemy, ok := e.enemies[passageID]
	if !ok {
		return fmt.Errorf("passage %q has no combat", passageID)
	}
	gs.Combat = state.NewEncounter(passageID, enemy.Name, enemy.MaxHP(), enemy.Power())
	e.logger.Debug("Encounter started",
		"id", gs.ID.String(),
		"passage", passageID,
		"enemy", enemy.Name,
		"enemy_hp", enemy.MaxHP())
	return nil
}
