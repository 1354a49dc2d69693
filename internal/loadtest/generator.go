package loadtest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/types"
)

const (
	maxSkill       = 5.0
	skillStep      = 0.5
	maxImportance  = 100
	importanceStep = 5
)

// Generator builds random lineup requests. It is not safe for concurrent use.
type Generator struct {
	rng  *rand.Rand
	cfg  *Config
	next int
}

// NewGenerator returns a generator seeded from cfg.Seed.
func NewGenerator(cfg *Config) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		cfg: cfg,
	}
}

// Request returns a roster of MinPlayers..MaxPlayers players in which every
// position has at least one eligible player.
func (g *Generator) Request() types.LineupRequest {
	lo, hi := g.cfg.MinPlayers, g.cfg.MaxPlayers
	if lo < 1 {
		lo = 1
	}
	if hi < lo {
		hi = lo
	}
	n := lo + g.rng.IntN(hi-lo+1)

	players := make([]types.PlayerInput, n)
	for i := range players {
		g.next++
		prefs := make(map[string]types.PreferenceValue, model.NumPositions)
		for _, pos := range model.Positions {
			prefs[string(pos)] = types.PreferenceValue(g.preference().String())
		}
		players[i] = types.PlayerInput{
			ID:          fmt.Sprintf("player-%d", g.next),
			Name:        fmt.Sprintf("Player %d", g.next),
			Skill:       math.Round(g.rng.Float64()*maxSkill/skillStep) * skillStep,
			Gender:      []string{"F", "M"}[g.rng.IntN(2)],
			Preferences: prefs,
			Playing:     true,
		}
	}

	for _, pos := range model.Positions {
		label := string(pos)
		covered := false
		for _, p := range players {
			if p.Preferences[label] != types.PreferenceValue(model.CannotPlay.String()) {
				covered = true
				break
			}
		}
		if !covered {
			players[g.rng.IntN(n)].Preferences[label] = types.PreferenceValue(model.CanPlay.String())
		}
	}

	importance := make(types.ImportanceInput, model.NumPositions)
	for _, pos := range model.Positions {
		importance[string(pos)] = float64(g.rng.IntN(maxImportance/importanceStep+1) * importanceStep)
	}
	return types.LineupRequest{Players: players, Importance: importance}
}

func (g *Generator) preference() model.Preference {
	x := g.rng.Float64()
	switch {
	case x < g.cfg.CannotPlayRatio:
		return model.CannotPlay
	case x < g.cfg.CannotPlayRatio+g.cfg.WantsRatio:
		return model.WantsToPlay
	default:
		return model.CanPlay
	}
}
