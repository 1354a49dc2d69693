// Package assign computes one inning's fielding assignment as a maximum
// weight bipartite matching between players and position/bench slots.
package assign

import (
	"sort"

	"github.com/okian/lineup/internal/domain/eligibility"
	"github.com/okian/lineup/internal/domain/model"
)

// Bench is the role index of a benched player.
const Bench = -1

// Weights shape the per-inning edge weights.
type Weights struct {
	// WantBonus multiplies the skill term on WantsToPlay positions (>= 1).
	WantBonus float64
	// FairnessWeight rewards fielding players who sat more than average.
	FairnessWeight float64
	// VarietyPenalty is subtracted per earlier inning at the same position.
	VarietyPenalty float64
	// WantBenchPenalty scales a player's bench priority on bench edges.
	WantBenchPenalty float64
	// ConsecutiveSitPenalty is subtracted from the bench edge of a player who sat last inning.
	ConsecutiveSitPenalty float64
	// NoConsecutiveSits forbids benching a player who sat last inning.
	NoConsecutiveSits bool
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		WantBonus:             1.25,
		FairnessWeight:        10,
		VarietyPenalty:        1,
		WantBenchPenalty:      0.5,
		ConsecutiveSitPenalty: 5,
		NoConsecutiveSits:     true,
	}
}

// Relaxed drops every fairness rule and keeps only skill, importance and preference.
func (w Weights) Relaxed() Weights {
	return Weights{WantBonus: w.WantBonus, WantBenchPenalty: w.WantBenchPenalty}
}

// Counters are the running fairness tallies carried from inning to inning.
// They are indexed by the model's player order and never mutated in place.
type Counters struct {
	Innings int
	Benched []int
	Played  [][model.NumPositions]int
	SatLast []bool
}

// NewCounters returns zeroed counters for n players.
func NewCounters(n int) Counters {
	return Counters{
		Benched: make([]int, n),
		Played:  make([][model.NumPositions]int, n),
		SatLast: make([]bool, n),
	}
}

// Apply returns the counters updated with one assigned inning.
func (c Counters) Apply(m *eligibility.Model, in model.Inning) Counters {
	next := Counters{
		Innings: c.Innings + 1,
		Benched: append([]int(nil), c.Benched...),
		Played:  append([][model.NumPositions]int(nil), c.Played...),
		SatLast: make([]bool, len(c.SatLast)),
	}
	for pos, id := range in.Field {
		if i, ok := m.Index(id); ok {
			next.Played[i][pos.Index()]++
		}
	}
	for _, id := range in.Bench {
		if i, ok := m.Index(id); ok {
			next.Benched[i]++
			next.SatLast[i] = true
		}
	}
	return next
}

// Inning assigns one inning. It fails with InfeasibleInningError when the
// positions cannot all be filled by eligible players under w.
func Inning(m *eligibility.Model, c Counters, w Weights, number int) (model.Inning, error) {
	roles, err := Roles(m, c, w, number)
	if err != nil {
		return model.Inning{}, err
	}
	return ToInning(m, number, roles), nil
}

// Roles is Inning in index form: one role per player in model order, either
// a position index or Bench.
func Roles(m *eligibility.Model, c Counters, w Weights, number int) ([]int, error) {
	n := m.Size()
	cols := n
	shortHanded := n < model.NumPositions
	if shortHanded {
		// Every position stays open and each player also gets a costly bench
		// slot, so only a player with nowhere to field ends up sitting.
		cols = model.NumPositions + n
	}

	mean := 0.0
	for _, b := range c.Benched {
		mean += float64(b)
	}
	if n > 0 {
		mean /= float64(n)
	}

	cost := make([][]float64, n)
	for i, info := range m.Players {
		row := make([]float64, cols)
		for j := 0; j < model.NumPositions; j++ {
			if !info.Eligible[j] {
				row[j] = forbidden
				continue
			}
			row[j] = -FieldWeight(m, i, j, w)
			row[j] -= w.FairnessWeight * (float64(c.Benched[i]) - mean)
			row[j] += w.VarietyPenalty * float64(c.Played[i][j])
		}
		for j := model.NumPositions; j < cols; j++ {
			if w.NoConsecutiveSits && c.SatLast[i] {
				row[j] = forbidden
				continue
			}
			bench := w.WantBenchPenalty * info.BenchPriority
			if c.SatLast[i] {
				bench += w.ConsecutiveSitPenalty
			}
			if shortHanded {
				bench += discouraged
			}
			row[j] = bench
		}
		cost[i] = row
	}

	match := minCostAssignment(cost)

	roles := make([]int, n)
	infeasible := false
	for i, col := range match {
		if cost[i][col] >= forbidden {
			infeasible = true
		}
		if col >= model.NumPositions {
			roles[i] = Bench
		} else {
			roles[i] = col
		}
	}
	if infeasible {
		return nil, &model.InfeasibleInningError{Inning: number, Positions: contested(cost, match)}
	}
	return roles, nil
}

// contested names the positions of the bottleneck behind an infeasible
// matching. Starting from every player forced into a forbidden slot it
// follows allowed slots and, through the matching, the players holding them.
// The reached players all compete for the reached slots and outnumber them,
// so the reached positions are the ones short of available players.
func contested(cost [][]float64, match []int) []model.Position {
	holder := make(map[int]int, len(match))
	queue := make([]int, 0, len(match))
	reached := make([]bool, len(match))
	for i, col := range match {
		if cost[i][col] < forbidden {
			holder[col] = i
			continue
		}
		reached[i] = true
		queue = append(queue, i)
	}

	slots := map[int]bool{}
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		for col, v := range cost[i] {
			if v >= forbidden || slots[col] {
				continue
			}
			slots[col] = true
			if k, ok := holder[col]; ok && !reached[k] {
				reached[k] = true
				queue = append(queue, k)
			}
		}
	}

	var out []model.Position
	for j := 0; j < model.NumPositions; j++ {
		if slots[j] {
			out = append(out, model.Positions[j])
		}
	}
	return out
}

// FieldWeight is the quality term of player i at position index j:
// importance/100 x skill, boosted by WantBonus on wanted positions.
func FieldWeight(m *eligibility.Model, i, j int, w Weights) float64 {
	info := m.Players[i]
	mult := 1.0
	if info.Wants[j] && w.WantBonus > 1 {
		mult = w.WantBonus
	}
	return m.Importance[j] / 100 * info.Player.Skill * mult
}

// ToInning converts index roles into an inning keyed by player ids.
func ToInning(m *eligibility.Model, number int, roles []int) model.Inning {
	in := model.Inning{Number: number, Field: make(map[model.Position]string, model.NumPositions)}
	for i, role := range roles {
		id := m.Players[i].Player.ID
		if role == Bench {
			in.Bench = append(in.Bench, id)
			continue
		}
		in.Field[model.Positions[role]] = id
	}
	sort.Strings(in.Bench)
	return in
}
