package model

import (
	"fmt"
	"math"
)

// Skill bounds and granularity.
const (
	MinSkill  = 0.0
	MaxSkill  = 5.0
	SkillStep = 0.5
)

// MaxImportance bounds each position weight.
const MaxImportance = 100.0

// Player is one roster member.
type Player struct {
	ID          string
	Name        string
	Skill       float64
	Gender      string
	Preferences map[Position]Preference
}

// Preference returns the player's preference for pos; missing entries are CannotPlay.
func (p Player) Preference(pos Position) Preference {
	return p.Preferences[pos]
}

// Validate checks identity, skill range and that every position has a preference.
func (p Player) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("player %q: missing id", p.Name)
	}
	if math.IsNaN(p.Skill) || p.Skill < MinSkill || p.Skill > MaxSkill {
		return fmt.Errorf("player %s: skill %v outside [%v,%v]", p.ID, p.Skill, MinSkill, MaxSkill)
	}
	if r := math.Mod(p.Skill, SkillStep); r != 0 {
		return fmt.Errorf("player %s: skill %v is not a multiple of %v", p.ID, p.Skill, SkillStep)
	}
	for _, pos := range Positions {
		if _, ok := p.Preferences[pos]; !ok {
			return fmt.Errorf("player %s: missing preference for %s", p.ID, pos)
		}
	}
	return nil
}

// Roster is the set of players taking part in a game.
type Roster []Player

// Validate checks every player and rejects duplicate ids.
func (r Roster) Validate() error {
	seen := make(map[string]struct{}, len(r))
	for _, p := range r {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate player id %s", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for i, p := range r {
		prefs := make(map[Position]Preference, len(p.Preferences))
		for k, v := range p.Preferences {
			prefs[k] = v
		}
		p.Preferences = prefs
		out[i] = p
	}
	return out
}

// Importance weights each position in [0,100].
type Importance map[Position]float64

// Validate rejects unknown positions and out of range weights.
func (imp Importance) Validate() error {
	for pos, w := range imp {
		if !pos.Valid() {
			return fmt.Errorf("importance: unknown position %q", pos)
		}
		if math.IsNaN(w) || w < 0 || w > MaxImportance {
			return fmt.Errorf("importance: %s weight %v outside [0,%v]", pos, w, MaxImportance)
		}
	}
	return nil
}

// WithDefaults returns a copy where missing positions carry def.
func (imp Importance) WithDefaults(def float64) Importance {
	out := make(Importance, NumPositions)
	for _, pos := range Positions {
		if w, ok := imp[pos]; ok {
			out[pos] = w
		} else {
			out[pos] = def
		}
	}
	return out
}
