// Package scoring evaluates the objective of a full game schedule.
package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/lineup/internal/domain/assign"
	"github.com/okian/lineup/internal/domain/eligibility"
	"github.com/okian/lineup/internal/domain/model"
)

// Default objective weights.
const (
	defaultBenchVarianceWeight   = 3.0
	defaultLowPrefVarianceWeight = 0.5
	defaultWantsViolationWeight  = 2.0
	defaultRepeatWeight          = 0.25
)

// Weights of the penalty terms.
type Weights struct {
	BenchVariance   float64
	LowPrefVariance float64
	WantsViolation  float64
	Repeat          float64
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithBenchVarianceWeight weights the spread of bench innings.
func WithBenchVarianceWeight(w float64) Option {
	return func(e *Evaluator) {
		if w >= 0 {
			e.weights.BenchVariance = w
		}
	}
}

// WithLowPrefVarianceWeight weights the spread of innings spent at merely acceptable positions.
func WithLowPrefVarianceWeight(w float64) Option {
	return func(e *Evaluator) {
		if w >= 0 {
			e.weights.LowPrefVariance = w
		}
	}
}

// WithWantsViolationWeight weights bench innings beyond the fair share for players who want a position.
func WithWantsViolationWeight(w float64) Option {
	return func(e *Evaluator) {
		if w >= 0 {
			e.weights.WantsViolation = w
		}
	}
}

// WithRepeatWeight weights innings repeated at the same position.
func WithRepeatWeight(w float64) Option {
	return func(e *Evaluator) {
		if w >= 0 {
			e.weights.Repeat = w
		}
	}
}

// Scorer computes the objective of a schedule.
type Scorer interface {
	Score(m *eligibility.Model, s model.Schedule) model.Score
}

// Evaluator implements Scorer:
//
//	total = Σ importance/100 × skill − penalty
//
// where the penalty sums the weighted spread of bench counts and of innings
// at CanPlay positions (population variance scaled by roster size), the bench
// innings above the fair share ⌈innings × benchSlots / n⌉ for players with a
// WantsToPlay position, and innings repeated at the same position.
type Evaluator struct {
	weights Weights
}

// NewEvaluator creates an evaluator with the given options.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{weights: Weights{
		BenchVariance:   defaultBenchVarianceWeight,
		LowPrefVariance: defaultLowPrefVarianceWeight,
		WantsViolation:  defaultWantsViolationWeight,
		Repeat:          defaultRepeatWeight,
	}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the configured penalty weights.
func (e *Evaluator) Weights() Weights { return e.weights }

// Score evaluates a schedule. Players absent from the model are ignored.
func (e *Evaluator) Score(m *eligibility.Model, s model.Schedule) model.Score {
	return e.NewTally(m, RolesOf(m, s)).Score()
}

// RolesOf converts a schedule into per-inning role vectors in model order.
// Players missing from an inning are treated as benched.
func RolesOf(m *eligibility.Model, s model.Schedule) [][]int {
	roles := make([][]int, len(s.Innings))
	for t, in := range s.Innings {
		row := make([]int, m.Size())
		for i := range row {
			row[i] = assign.Bench
		}
		for pos, id := range in.Field {
			if i, ok := m.Index(id); ok {
				row[i] = pos.Index()
			}
		}
		roles[t] = row
	}
	return roles
}

// Tally holds the aggregates the objective depends on so single role changes
// can be re-scored in O(n).
type Tally struct {
	m       *eligibility.Model
	w       Weights
	innings int

	skill   float64
	benched []float64
	lowPref []float64
	played  [][model.NumPositions]int
	repeats int
}

// NewTally aggregates the given roles.
func (e *Evaluator) NewTally(m *eligibility.Model, roles [][]int) *Tally {
	n := m.Size()
	t := &Tally{
		m:       m,
		w:       e.weights,
		innings: len(roles),
		benched: make([]float64, n),
		lowPref: make([]float64, n),
		played:  make([][model.NumPositions]int, n),
	}
	for _, row := range roles {
		for i, role := range row {
			t.Add(i, role)
		}
	}
	return t
}

// Add records player i in role for one inning.
func (t *Tally) Add(i, role int) {
	if role == assign.Bench {
		t.benched[i]++
		return
	}
	info := t.m.Players[i]
	t.skill += t.m.Importance[role] / 100 * info.Player.Skill
	if !info.Wants[role] {
		t.lowPref[i]++
	}
	if t.played[i][role] >= 1 {
		t.repeats++
	}
	t.played[i][role]++
}

// Remove undoes Add.
func (t *Tally) Remove(i, role int) {
	if role == assign.Bench {
		t.benched[i]--
		return
	}
	info := t.m.Players[i]
	t.skill -= t.m.Importance[role] / 100 * info.Player.Skill
	if !info.Wants[role] {
		t.lowPref[i]--
	}
	t.played[i][role]--
	if t.played[i][role] >= 1 {
		t.repeats--
	}
}

// Score computes the objective from the current aggregates.
func (t *Tally) Score() model.Score {
	n := float64(t.m.Size())
	var sc model.Score
	sc.Skill = t.skill
	if n > 1 {
		sc.BenchVariance = t.w.BenchVariance * n * stat.PopVariance(t.benched, nil)
		sc.LowPrefVariance = t.w.LowPrefVariance * n * stat.PopVariance(t.lowPref, nil)
	}

	fairShare := math.Ceil(float64(t.innings*t.m.BenchSlots()) / n)
	excess := 0.0
	for i, b := range t.benched {
		if t.m.HasWants(i) && b > fairShare {
			excess += b - fairShare
		}
	}
	sc.WantsViolations = t.w.WantsViolation * excess
	sc.Repeats = t.w.Repeat * float64(t.repeats)

	sc.Penalty = sc.BenchVariance + sc.LowPrefVariance + sc.WantsViolations + sc.Repeats
	sc.Total = sc.Skill - sc.Penalty
	return sc
}

// Benched returns bench innings of player i.
func (t *Tally) Benched(i int) int { return int(t.benched[i]) }
