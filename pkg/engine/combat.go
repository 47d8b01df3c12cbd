package engine

import (
	"fmt"

	"github.com/jwebster45206/passage-engine/pkg/state"
	"github.com/jwebster45206/passage-engine/pkg/vars"
)

// Attack resolves one simultaneous exchange of the active encounter.
//
// Both sides roll a d6 and add their bonus (hero strength, enemy power). The higher total
// lands a 3 point blow; ties favor the hero. When the enemy drops to 0 the hero is routed
// to on_victory, otherwise when the hero drops to 0 to on_defeat. Enemy defeat is checked
// first.
func (e *Engine) Attack(gs *state.GameState) (*state.GameState, error) {
	if gs == nil || !gs.InCombat() {
		return nil, ErrNoActiveCombat
	}
	p, err := e.story.Passage(gs.Combat.PassageID)
	if err != nil {
		return nil, err
	}
	if !p.IsCombat() {
		return nil, fmt.Errorf("%w: passage %q has no combat", ErrNoActiveCombat, gs.Combat.PassageID)
	}

	next := gs.Clone()
	enc := next.Combat

	heroRoll := e.roller.Roll(DieSides)
	enemyRoll := e.roller.Roll(DieSides)
	round := state.Round{
		HeroRoll:   heroRoll,
		HeroTotal:  heroRoll + next.Vars.Num(vars.Strength),
		EnemyRoll:  enemyRoll,
		EnemyTotal: enemyRoll + enc.EnemyPower,
		Damage:     HitDamage,
	}

	if round.HeroTotal >= round.EnemyTotal {
		round.EnemyHit = true
		enc.EnemyHP = vars.Clamp(enc.EnemyHP-HitDamage, 0, enc.EnemyMaxHP)
	} else {
		next.Vars.Damage(HitDamage)
	}
	enc.Rounds = append(enc.Rounds, round)
	enc.Log = append(enc.Log, formatRound(round, enc.EnemyName, enc.EnemyHP, next.Vars.Num(vars.HP)))

	e.logger.Debug("Combat round",
		"id", next.ID.String(),
		"passage", enc.PassageID,
		"hero_total", round.HeroTotal,
		"enemy_total", round.EnemyTotal,
		"enemy_hit", round.EnemyHit,
		"enemy_hp", enc.EnemyHP,
		"hero_hp", next.Vars.Num(vars.HP))

	var route string
	switch {
	case enc.EnemyHP <= 0:
		enc.Status = state.CombatVictory
		route = p.Combat.OnVictory
	case next.Vars.Num(vars.HP) <= 0:
		enc.Status = state.CombatDefeat
		route = p.Combat.OnDefeat
	}

	if route != "" {
		next.LastCombat = enc
		next.Combat = nil
		if err := e.arrive(next, route); err != nil {
			return nil, err
		}
		e.logger.Debug("Encounter finished",
			"id", next.ID.String(),
			"result", enc.Status,
			"to", route)
	}

	next.Turn++
	next.UpdatedAt = e.now()
	return next, nil
}

func formatRound(r state.Round, enemyName string, enemyHP, heroHP int) string {
	rolls := fmt.Sprintf("Hero %d+%d=%d vs %s %d+%d=%d",
		r.HeroRoll, r.HeroTotal-r.HeroRoll, r.HeroTotal,
		enemyName, r.EnemyRoll, r.EnemyTotal-r.EnemyRoll, r.EnemyTotal)
	if r.EnemyHit {
		return fmt.Sprintf("%s: %s is hit for %d (%d hp left)", rolls, enemyName, r.Damage, enemyHP)
	}
	return fmt.Sprintf("%s: hero is hit for %d (%d hp left)", rolls, r.Damage, heroHP)
}
