// Package eligibility turns a roster and position weights into the constraint
// model the assignment search runs on.
package eligibility

import (
	"sort"

	"github.com/okian/lineup/internal/domain/model"
)

const (
	defaultImportance           = 50.0
	defaultConstrainedThreshold = 3
)

// PlayerInfo is a player's precomputed constraint data.
type PlayerInfo struct {
	Player        model.Player
	Eligible      [model.NumPositions]bool
	Wants         [model.NumPositions]bool
	EligibleCount int
	WantsCount    int
	// BenchPriority grows with WantsCount; higher means the player should sit less.
	BenchPriority float64
	// Constrained players have few eligible positions and are scheduled first.
	Constrained bool
}

// Model is the immutable constraint model of one request.
type Model struct {
	// Players in scheduling order: constrained first, then fewer eligible positions, then id.
	Players    []PlayerInfo
	Importance [model.NumPositions]float64

	byID map[string]int
}

// Option configures Build.
type Option func(*builder)

type builder struct {
	defaultImportance    float64
	constrainedThreshold int
}

// WithDefaultImportance sets the weight used for positions missing from the importance map.
func WithDefaultImportance(w float64) Option {
	return func(b *builder) {
		if w >= 0 && w <= model.MaxImportance {
			b.defaultImportance = w
		}
	}
}

// WithConstrainedThreshold sets how many eligible positions or fewer mark a player constrained.
func WithConstrainedThreshold(n int) Option {
	return func(b *builder) {
		if n >= 0 {
			b.constrainedThreshold = n
		}
	}
}

// Build derives the constraint model. It fails with EmptyRosterError when the
// roster is empty and InfeasibleRosterError when a position has no eligible player.
func Build(roster model.Roster, importance model.Importance, opts ...Option) (*Model, error) {
	b := &builder{defaultImportance: defaultImportance, constrainedThreshold: defaultConstrainedThreshold}
	for _, opt := range opts {
		opt(b)
	}

	if len(roster) == 0 {
		return nil, model.EmptyRosterError{}
	}

	m := &Model{Players: make([]PlayerInfo, 0, len(roster))}
	full := importance.WithDefaults(b.defaultImportance)
	for i, pos := range model.Positions {
		m.Importance[i] = full[pos]
	}

	var covered [model.NumPositions]int
	for _, p := range roster.Clone() {
		info := PlayerInfo{Player: p}
		for i, pos := range model.Positions {
			pref := p.Preference(pos)
			if !pref.Eligible() {
				continue
			}
			info.Eligible[i] = true
			info.EligibleCount++
			covered[i]++
			if pref == model.WantsToPlay {
				info.Wants[i] = true
				info.WantsCount++
			}
		}
		info.BenchPriority = float64(info.WantsCount)
		info.Constrained = info.EligibleCount <= b.constrainedThreshold
		m.Players = append(m.Players, info)
	}

	var missing []model.Position
	for i, pos := range model.Positions {
		if covered[i] == 0 {
			missing = append(missing, pos)
		}
	}
	if len(missing) > 0 {
		return nil, &model.InfeasibleRosterError{Position: missing[0], Positions: missing}
	}

	sort.SliceStable(m.Players, func(i, j int) bool {
		a, c := m.Players[i], m.Players[j]
		if a.Constrained != c.Constrained {
			return a.Constrained
		}
		if a.EligibleCount != c.EligibleCount {
			return a.EligibleCount < c.EligibleCount
		}
		return a.Player.ID < c.Player.ID
	})

	m.byID = make(map[string]int, len(m.Players))
	for i, p := range m.Players {
		m.byID[p.Player.ID] = i
	}
	return m, nil
}

// Size returns the roster size.
func (m *Model) Size() int { return len(m.Players) }

// FieldSlots returns how many positions are filled each inning.
func (m *Model) FieldSlots() int {
	if len(m.Players) < model.NumPositions {
		return len(m.Players)
	}
	return model.NumPositions
}

// BenchSlots returns how many players sit each inning.
func (m *Model) BenchSlots() int {
	if len(m.Players) <= model.NumPositions {
		return 0
	}
	return len(m.Players) - model.NumPositions
}

// Index returns the model index of a player id.
func (m *Model) Index(id string) (int, bool) {
	i, ok := m.byID[id]
	return i, ok
}

// Roster returns the players in model order.
func (m *Model) Roster() model.Roster {
	out := make(model.Roster, len(m.Players))
	for i, p := range m.Players {
		out[i] = p.Player
	}
	return out
}

// HasWants reports whether player i wants at least one position.
func (m *Model) HasWants(i int) bool { return m.Players[i].WantsCount > 0 }
