package engine

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jwebster45206/passage-engine/pkg/actor"
	"github.com/jwebster45206/passage-engine/pkg/state"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

// Snapshot is the read-only view handed to a presentation adapter.
type Snapshot struct {
	ID             uuid.UUID    `json:"id"`
	Story          string       `json:"story"`
	Passage        PassageView  `json:"passage"`
	VisibleChoices []ChoiceView `json:"visible_choices"`
	Combat         *CombatView  `json:"combat"`
	Vars           vars.Store   `json:"vars"`
	History        []string     `json:"history"`
	Turn           int          `json:"turn"`
}

type PassageView struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ChoiceView is a visible choice. Index is what selectChoice expects.
type ChoiceView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// CombatView describes the encounter on screen: the active one, or the one the last
// attack concluded (Finished with a Result).
type CombatView struct {
	EnemyName  string   `json:"enemy_name"`
	EnemyHP    int      `json:"enemy_hp"`
	EnemyMaxHP int      `json:"enemy_max_hp"`
	HeroHP     int      `json:"hero_hp"`
	HeroMaxHP  int      `json:"hero_max_hp"`
	Log        []string `json:"log"`
	Finished   bool     `json:"finished"`
	Result     string   `json:"result,omitempty"` // "victory" or "defeat" once finished
}

// Snapshot builds the presentation view of gs.
func (e *Engine) Snapshot(gs *state.GameState) (Snapshot, error) {
	visible, err := e.VisibleChoices(gs)
	if err != nil {
		return Snapshot{}, err
	}
	p, err := e.story.Passage(gs.CurrentPassage)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		ID:             gs.ID,
		Story:          gs.StoryID,
		Passage:        PassageView{ID: gs.CurrentPassage, Title: p.Title, Body: p.Body},
		VisibleChoices: make([]ChoiceView, 0, len(visible)),
		Vars:           gs.Vars.Clone(),
		History:        slices.Clone(gs.History),
		Turn:           gs.Turn,
	}
	for i, c := range visible {
		snap.VisibleChoices = append(snap.VisibleChoices, ChoiceView{Index: i, Text: c.Text})
	}

	hero := actor.HeroOf(gs.Vars)
	enc := gs.Combat
	if enc == nil {
		enc = gs.LastCombat
	}
	if enc != nil {
		snap.Combat = &CombatView{
			EnemyName:  enc.EnemyName,
			EnemyHP:    enc.EnemyHP,
			EnemyMaxHP: enc.EnemyMaxHP,
			HeroHP:     hero.HP(),
			HeroMaxHP:  hero.MaxHP(),
			Log:        slices.Clone(enc.Log),
			Finished:   enc.Finished(),
		}
		if enc.Finished() {
			snap.Combat.Result = string(enc.Status)
		}
	}
	return snap, nil
}
