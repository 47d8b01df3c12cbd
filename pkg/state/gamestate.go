package state

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

// GameState is the engine state of one play session. Engine operations treat it as a
// value: they clone, mutate the clone and return it.
type GameState struct {
	ID             uuid.UUID  `json:"id"`                    // Unique ID per session
	StoryID        string     `json:"story"`                 // Story the session plays
	CurrentPassage string     `json:"current_passage"`       // Passage the hero is on
	Vars           vars.Store `json:"vars"`                  // Hero attributes and story flags
	History        []string   `json:"history"`               // Visited passages, append-only
	Combat         *Encounter `json:"combat,omitempty"`      // Set while an encounter is in progress
	LastCombat     *Encounter `json:"last_combat,omitempty"` // Encounter concluded by the last attack
	Turn           int        `json:"turn"`                  // Number of intents applied
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewGameState starts a session on the start passage with the given variables.
func NewGameState(storyID, start string, initial vars.Store) *GameState {
	now := time.Now()
	return &GameState{
		ID:             uuid.New(),
		StoryID:        storyID,
		CurrentPassage: start,
		Vars:           initial.Clone(),
		History:        []string{start},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Clone returns a deep copy of the game state.
func (gs *GameState) Clone() *GameState {
	if gs == nil {
		return nil
	}
	out := *gs
	out.Vars = gs.Vars.Clone()
	out.History = slices.Clone(gs.History)
	out.Combat = gs.Combat.Clone()
	out.LastCombat = gs.LastCombat.Clone()
	return &out
}

// Visit moves the passage pointer and records it in the history.
func (gs *GameState) Visit(passageID string) {
	gs.CurrentPassage = passageID
	gs.History = append(gs.History, passageID)
}

// InCombat reports whether an encounter is in progress.
func (gs *GameState) InCombat() bool {
	return gs.Combat != nil && gs.Combat.Status == CombatActive
}
