package optimizer

import (
	"github.com/okian/lineup/internal/domain/assign"
	"github.com/okian/lineup/internal/domain/eligibility"
	"github.com/okian/lineup/internal/domain/scoring"
	"github.com/okian/lineup/pkg/logger"
)

// Option applies a configuration option to the Optimizer.
type Option func(*Optimizer)

// WithInnings sets the number of innings per game.
func WithInnings(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.innings = n
		}
	}
}

// WithAssignWeights sets the per-inning edge weights.
func WithAssignWeights(w assign.Weights) Option {
	return func(o *Optimizer) {
		if w.WantBonus < 1 {
			w.WantBonus = 1
		}
		o.weights = w
	}
}

// WithEvaluator sets the objective evaluator.
func WithEvaluator(e *scoring.Evaluator) Option {
	return func(o *Optimizer) {
		if e != nil {
			o.evaluator = e
		}
	}
}

// WithPassFactor scales the local search budget: factor × ⌈players × innings / 10⌉ passes.
func WithPassFactor(f int) Option {
	return func(o *Optimizer) {
		if f > 0 {
			o.passFactor = f
		}
	}
}

// WithMaxPasses caps the local search budget.
func WithMaxPasses(n int) Option {
	return func(o *Optimizer) {
		if n > 0 {
			o.maxPasses = n
		}
	}
}

// WithDefaultImportance sets the weight of positions missing from a request.
func WithDefaultImportance(w float64) Option {
	return func(o *Optimizer) {
		o.buildOpts = append(o.buildOpts, eligibility.WithDefaultImportance(w))
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Optimizer) {
		if l != nil {
			o.log = l
		}
	}
}
