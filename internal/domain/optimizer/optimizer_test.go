package optimizer_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/okian/lineup/internal/domain/assign"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/optimizer"
	. "github.com/smartystreets/goconvey/convey"
)

func makeRoster(skills ...float64) model.Roster {
	out := make(model.Roster, len(skills))
	for i, s := range skills {
		prefs := make(map[model.Position]model.Preference, model.NumPositions)
		for _, pos := range model.Positions {
			prefs[pos] = model.CanPlay
		}
		out[i] = model.Player{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("Player %02d", i), Skill: s, Preferences: prefs}
	}
	return out
}

// stopAfter reports context.Canceled from Err once it has answered nil n times.
type stopAfter struct {
	context.Context
	n     int
	calls int
}

func (c *stopAfter) Err() error {
	c.calls++
	if c.calls > c.n {
		return context.Canceled
	}
	return nil
}

func flat(w float64) model.Importance {
	imp := model.Importance{}
	for _, pos := range model.Positions {
		imp[pos] = w
	}
	return imp
}

// checkInnings asserts that every inning fields distinct players, covers each
// roster member exactly once and respects CannotPlay.
func checkInnings(roster model.Roster, res *model.Result, fieldSize int) {
	byID := map[string]model.Player{}
	for _, p := range roster {
		byID[p.ID] = p
	}
	for _, in := range res.Schedule.Innings {
		So(in.Field, ShouldHaveLength, fieldSize)
		seen := map[string]int{}
		for pos, id := range in.Field {
			seen[id]++
			So(byID[id].Preference(pos), ShouldNotEqual, model.CannotPlay)
		}
		for _, id := range in.Bench {
			seen[id]++
		}
		So(seen, ShouldHaveLength, len(roster))
		for _, c := range seen {
			So(c, ShouldEqual, 1)
		}
	}
}

func TestOptimize(t *testing.T) {
	Convey("Given the default optimizer", t, func() {
		opt := optimizer.New()
		ctx := context.Background()

		Convey("Ten equal players at equal importance score exactly 135", func() {
			roster := makeRoster(3, 3, 3, 3, 3, 3, 3, 3, 3, 3)
			res, err := opt.Optimize(ctx, roster, flat(50))

			So(err, ShouldBeNil)
			So(res.Score.Total, ShouldEqual, 135.0)
			So(res.Schedule.Innings, ShouldHaveLength, 9)
			checkInnings(roster, res, 10)
			for _, in := range res.Schedule.Innings {
				So(in.Bench, ShouldBeEmpty)
			}
		})

		Convey("Twelve players where one cannot pitch", func() {
			roster := makeRoster(3, 4, 2.5, 3.5, 5, 1, 2, 4.5, 3, 1.5, 2, 4)
			roster[4].Preferences[model.Pitcher] = model.CannotPlay
			res, err := opt.Optimize(ctx, roster, model.Importance{model.Pitcher: 100, model.Catcher: 80})

			So(err, ShouldBeNil)
			checkInnings(roster, res, 10)

			Convey("The player never pitches", func() {
				for _, in := range res.Schedule.Innings {
					So(in.Field[model.Pitcher], ShouldNotEqual, roster[4].ID)
					So(in.Bench, ShouldHaveLength, 2)
				}
			})

			Convey("Bench time stays within the fairness bound", func() {
				counts := res.Schedule.BenchCounts()
				lo, hi := math.MaxInt, 0
				for _, p := range roster {
					c := counts[p.ID]
					lo = min(lo, c)
					hi = max(hi, c)
				}
				bound := int(math.Ceil(float64(9*2)/12.0)) + 1
				So(hi-lo, ShouldBeLessThanOrEqualTo, bound)
			})

			Convey("Nobody sits two innings in a row", func() {
				for t := 1; t < len(res.Schedule.Innings); t++ {
					for _, id := range res.Schedule.Innings[t].Bench {
						So(res.Schedule.Innings[t-1].Bench, ShouldNotContain, id)
					}
				}
			})

			Convey("The reported score matches the schedule", func() {
				So(res.Score.Total, ShouldAlmostEqual, res.Score.Skill-res.Score.Penalty, 1e-9)
				So(res.Stats.Passes, ShouldBeGreaterThanOrEqualTo, 1)
				So(res.Stats.Interrupted, ShouldBeFalse)
				So(res.Stats.RelaxedInnings, ShouldBeEmpty)
			})
		})

		Convey("Identical input produces identical output", func() {
			roster := makeRoster(3, 4, 2.5, 3.5, 5, 1, 2, 4.5, 3, 1.5, 2, 4, 0.5)
			roster[7].Preferences[model.Shortstop] = model.WantsToPlay
			imp := model.Importance{model.Shortstop: 90}

			a, err := opt.Optimize(ctx, roster, imp)
			So(err, ShouldBeNil)
			b, err := opt.Optimize(ctx, roster, imp)
			So(err, ShouldBeNil)

			So(b.Schedule, ShouldResemble, a.Schedule)
			So(b.Score, ShouldResemble, a.Score)
		})

		Convey("More local search never lowers the score", func() {
			roster := makeRoster(3, 4, 2.5, 3.5, 5, 1, 2, 4.5, 3, 1.5, 2, 4, 0.5, 5)
			roster[0].Preferences[model.Pitcher] = model.WantsToPlay
			roster[1].Preferences[model.Catcher] = model.WantsToPlay
			imp := model.Importance{model.Pitcher: 100, model.Shortstop: 90, model.RightField: 10}

			short, err := optimizer.New(optimizer.WithMaxPasses(1)).Optimize(ctx, roster, imp)
			So(err, ShouldBeNil)
			full, err := opt.Optimize(ctx, roster, imp)
			So(err, ShouldBeNil)
			So(full.Score.Total, ShouldBeGreaterThanOrEqualTo, short.Score.Total-1e-9)
		})

		Convey("Short rosters field everyone", func() {
			roster := makeRoster(3, 3, 2, 4, 5, 1, 2.5, 3.5)
			res, err := opt.Optimize(ctx, roster, nil)
			So(err, ShouldBeNil)
			checkInnings(roster, res, 8)
		})

		Convey("A custom innings count is honoured", func() {
			roster := makeRoster(3, 3, 2, 4, 5, 1, 2.5, 3.5, 4, 2, 1)
			res, err := optimizer.New(optimizer.WithInnings(6)).Optimize(ctx, roster, nil)
			So(err, ShouldBeNil)
			So(res.Schedule.Innings, ShouldHaveLength, 6)
			So(res.Schedule.Innings[5].Number, ShouldEqual, 6)
		})

		Convey("Innings that cannot avoid consecutive sits are relaxed", func() {
			skills := make([]float64, 25)
			for i := range skills {
				skills[i] = float64(i%10) * 0.5
			}
			roster := makeRoster(skills...)
			res, err := opt.Optimize(ctx, roster, nil)

			So(err, ShouldBeNil)
			So(res.Stats.RelaxedInnings, ShouldContain, 2)
			checkInnings(roster, res, 10)
		})

		Convey("Strict consecutive sit rules can be turned off", func() {
			w := assign.DefaultWeights()
			w.NoConsecutiveSits = false
			roster := makeRoster(3, 4, 2.5, 3.5, 5, 1, 2, 4.5, 3, 1.5, 2, 4)
			res, err := optimizer.New(optimizer.WithAssignWeights(w)).Optimize(ctx, roster, nil)
			So(err, ShouldBeNil)
			So(res.Stats.RelaxedInnings, ShouldBeEmpty)
			checkInnings(roster, res, 10)
		})

		Convey("Builder errors propagate unchanged", func() {
			_, err := opt.Optimize(ctx, nil, nil)
			So(errors.Is(err, model.ErrEmptyRoster), ShouldBeTrue)

			roster := makeRoster(3, 3, 3)
			for i := range roster {
				roster[i].Preferences[model.Catcher] = model.CannotPlay
			}
			_, err = opt.Optimize(ctx, roster, nil)
			var ire *model.InfeasibleRosterError
			So(errors.As(err, &ire), ShouldBeTrue)
			So(ire.Position, ShouldEqual, model.Catcher)
		})

		Convey("A cancelled context before any schedule yields CancelledError", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			res, err := opt.Optimize(cctx, makeRoster(3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3), nil)

			So(res, ShouldBeNil)
			So(errors.Is(err, model.ErrCancelled), ShouldBeTrue)
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
		})

		Convey("A context ending during local search keeps the greedy schedule", func() {
			roster := makeRoster(3, 4, 2.5, 3.5, 5, 1, 2, 4.5, 3, 1.5, 2, 4)
			// one check per greedy inning succeeds, the first local search check fails
			cctx := &stopAfter{Context: ctx, n: opt.Innings()}
			res, err := opt.Optimize(cctx, roster, nil)

			So(err, ShouldBeNil)
			So(res.Stats.Interrupted, ShouldBeTrue)
			So(res.Stats.Passes, ShouldEqual, 0)
			So(res.Schedule.Innings, ShouldHaveLength, 9)
			checkInnings(roster, res, 10)
		})

		Convey("An inning that stays infeasible after relaxing is reported", func() {
			roster := makeRoster(3, 3, 3, 3, 3, 3, 3, 3, 3, 3)
			for _, i := range []int{0, 1} {
				for _, pos := range model.Positions {
					if pos != model.Pitcher {
						roster[i].Preferences[pos] = model.CannotPlay
					}
				}
			}
			res, err := opt.Optimize(ctx, roster, nil)

			So(res, ShouldBeNil)
			var iie *model.InfeasibleInningError
			So(errors.As(err, &iie), ShouldBeTrue)
			So(iie.Inning, ShouldEqual, 1)
			So(iie.Positions, ShouldResemble, []model.Position{model.Pitcher})
			So(errors.Is(err, model.ErrInfeasibleInning), ShouldBeTrue)
		})
	})
}
