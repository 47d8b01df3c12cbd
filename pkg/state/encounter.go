package state

import "slices"

// CombatStatus is the state of an encounter.
type CombatStatus string

const (
	CombatActive  CombatStatus = "active"
	CombatVictory CombatStatus = "victory"
	CombatDefeat  CombatStatus = "defeat"
)

// Encounter is one fight, scoped to a single visit of a combat passage.
type Encounter struct {
	PassageID  string       `json:"passage_id"`
	EnemyName  string       `json:"enemy_name"`
	EnemyMaxHP int          `json:"enemy_max_hp"`
	EnemyPower int          `json:"enemy_power"`
	EnemyHP    int          `json:"enemy_hp"`
	Status     CombatStatus `json:"status"`
	Rounds     []Round      `json:"rounds"`
	Log        []string     `json:"log"`
}

// Round records one exchange of blows.
type Round struct {
	HeroRoll   int  `json:"hero_roll"`
	HeroTotal  int  `json:"hero_total"`
	EnemyRoll  int  `json:"enemy_roll"`
	EnemyTotal int  `json:"enemy_total"`
	EnemyHit   bool `json:"enemy_hit"` // True when the hero landed the blow
	Damage     int  `json:"damage"`
}

// NewEncounter starts a fight with a fresh enemy at full hit points and an empty log.
func NewEncounter(passageID, enemyName string, maxHP, power int) *Encounter {
	return &Encounter{
		PassageID:  passageID,
		EnemyName:  enemyName,
		EnemyMaxHP: maxHP,
		EnemyPower: power,
		EnemyHP:    maxHP,
		Status:     CombatActive,
		Rounds:     []Round{},
		Log:        []string{},
	}
}

func (e *Encounter) Clone() *Encounter {
	if e == nil {
		return nil
	}
	out := *e
	out.Rounds = slices.Clone(e.Rounds)
	out.Log = slices.Clone(e.Log)
	return &out
}

// Finished reports whether the encounter reached victory or defeat.
func (e *Encounter) Finished() bool {
	return e.Status == CombatVictory || e.Status == CombatDefeat
}
