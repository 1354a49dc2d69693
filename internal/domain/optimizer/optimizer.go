// Package optimizer builds a full game schedule: a greedy inning-by-inning
// pass over the assignment search followed by pairwise swap hill climbing.
package optimizer

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/okian/lineup/internal/domain/assign"
	"github.com/okian/lineup/internal/domain/eligibility"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/scoring"
	"github.com/okian/lineup/pkg/logger"
)

const (
	defaultInnings    = 9
	defaultPassFactor = 4
	defaultMaxPasses  = 200

	// improvements smaller than this are float noise, not progress
	epsilon = 1e-9
)

// Solver produces a schedule for a roster.
type Solver interface {
	Optimize(ctx context.Context, roster model.Roster, importance model.Importance) (*model.Result, error)
}

// Optimizer implements Solver. It holds configuration only, so one value
// serves concurrent calls.
type Optimizer struct {
	innings    int
	weights    assign.Weights
	evaluator  *scoring.Evaluator
	passFactor int
	maxPasses  int
	buildOpts  []eligibility.Option
	log        logger.Logger
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := &Optimizer{
		innings:    defaultInnings,
		weights:    assign.DefaultWeights(),
		evaluator:  scoring.NewEvaluator(),
		passFactor: defaultPassFactor,
		maxPasses:  defaultMaxPasses,
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Innings returns the configured innings per game.
func (o *Optimizer) Innings() int { return o.innings }

// Optimize builds the best schedule it can find within the pass budget.
//
// Errors from the constraint builder (EmptyRosterError, InfeasibleRosterError)
// and the assignment search (InfeasibleInningError) are returned unchanged.
// If ctx ends before a full schedule exists the error is a CancelledError;
// if it ends during local search the best schedule so far is returned with
// Stats.Interrupted set.
func (o *Optimizer) Optimize(ctx context.Context, roster model.Roster, importance model.Importance) (*model.Result, error) {
	start := time.Now()

	m, err := eligibility.Build(roster, importance, o.buildOpts...)
	if err != nil {
		return nil, err
	}

	roles, relaxed, err := o.greedy(ctx, m)
	if err != nil {
		return nil, err
	}

	tally := o.evaluator.NewTally(m, roles)
	strict := len(relaxed) == 0 && o.weights.NoConsecutiveSits
	passes, swaps, interrupted := o.improve(ctx, m, roles, tally, strict)

	schedule := model.Schedule{Innings: make([]model.Inning, len(roles))}
	for t, r := range roles {
		schedule.Innings[t] = assign.ToInning(m, t+1, r)
	}

	res := &model.Result{
		Roster:   m.Roster(),
		Schedule: schedule,
		Score:    o.evaluator.Score(m, schedule),
		Stats: model.RunStats{
			Passes:         passes,
			SwapsAccepted:  swaps,
			RelaxedInnings: relaxed,
			Interrupted:    interrupted,
			Duration:       time.Since(start),
		},
	}

	o.log.Debug(ctx, "schedule optimized",
		logger.Int("players", m.Size()),
		logger.Int("innings", o.innings),
		logger.Float64("score", res.Score.Total),
		logger.Int("passes", passes),
		logger.Int("swaps", swaps),
		logger.Bool("interrupted", interrupted),
		logger.Duration("took", res.Stats.Duration),
	)
	return res, nil
}

// greedy assigns innings in order with running fairness counters. An
// infeasible inning is retried once with relaxed weights.
func (o *Optimizer) greedy(ctx context.Context, m *eligibility.Model) ([][]int, []int, error) {
	counters := assign.NewCounters(m.Size())
	roles := make([][]int, 0, o.innings)
	var relaxed []int

	for t := 1; t <= o.innings; t++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, &model.CancelledError{Cause: err}
		}

		r, err := assign.Roles(m, counters, o.weights, t)
		if errors.Is(err, model.ErrInfeasibleInning) {
			o.log.Debug(ctx, "retrying inning with relaxed fairness", logger.Int("inning", t))
			relaxed = append(relaxed, t)
			r, err = assign.Roles(m, counters, o.weights.Relaxed(), t)
		}
		if err != nil {
			return nil, nil, err
		}

		counters = counters.Apply(m, assign.ToInning(m, t, r))
		roles = append(roles, r)
	}
	return roles, relaxed, nil
}

// improve runs hill climbing over pairwise swaps within an inning, visiting
// innings in order and players by id. Only strictly improving swaps that keep
// both players eligible are accepted. It stops after a pass without
// improvement, when the pass budget is spent, or when ctx ends.
func (o *Optimizer) improve(ctx context.Context, m *eligibility.Model, roles [][]int, tally *scoring.Tally, strict bool) (passes, swaps int, interrupted bool) {
	order := make([]int, m.Size())
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return m.Players[order[a]].Player.ID < m.Players[order[b]].Player.ID })

	current := tally.Score().Total
	budget := o.passBudget(m.Size())

	for passes < budget {
		if ctx.Err() != nil {
			return passes, swaps, true
		}
		passes++
		improved := false

		for t := range roles {
			row := roles[t]
			for x := 0; x < len(order); x++ {
				for y := x + 1; y < len(order); y++ {
					a, b := order[x], order[y]
					ra, rb := row[a], row[b]
					if ra == rb {
						continue
					}
					if !canTake(m, a, rb) || !canTake(m, b, ra) {
						continue
					}
					if strict && (sitsTwice(roles, t, a, rb) || sitsTwice(roles, t, b, ra)) {
						continue
					}

					tally.Remove(a, ra)
					tally.Remove(b, rb)
					tally.Add(a, rb)
					tally.Add(b, ra)
					if s := tally.Score().Total; s > current+epsilon {
						row[a], row[b] = rb, ra
						current = s
						swaps++
						improved = true
						continue
					}
					tally.Remove(a, rb)
					tally.Remove(b, ra)
					tally.Add(a, ra)
					tally.Add(b, rb)
				}
			}
		}

		if !improved {
			break
		}
	}
	return passes, swaps, false
}

func (o *Optimizer) passBudget(players int) int {
	cells := players * o.innings
	budget := o.passFactor * ((cells + model.NumPositions - 1) / model.NumPositions)
	if budget > o.maxPasses {
		budget = o.maxPasses
	}
	if budget < 1 {
		budget = 1
	}
	return budget
}

func canTake(m *eligibility.Model, i, role int) bool {
	return role == assign.Bench || m.Players[i].Eligible[role]
}

// sitsTwice reports whether benching player i in inning t would put them on
// the bench in two consecutive innings.
func sitsTwice(roles [][]int, t, i, role int) bool {
	if role != assign.Bench {
		return false
	}
	if t > 0 && roles[t-1][i] == assign.Bench {
		return true
	}
	return t+1 < len(roles) && roles[t+1][i] == assign.Bench
}
