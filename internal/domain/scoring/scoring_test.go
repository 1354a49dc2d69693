package scoring_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/okian/lineup/internal/domain/eligibility"
	"github.com/okian/lineup/internal/domain/model"
	scoring "github.com/okian/lineup/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func uniformRoster(n int, skill float64) model.Roster {
	out := make(model.Roster, n)
	for i := range out {
		prefs := make(map[model.Position]model.Preference, model.NumPositions)
		for _, pos := range model.Positions {
			prefs[pos] = model.CanPlay
		}
		out[i] = model.Player{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("P%d", i), Skill: skill, Preferences: prefs}
	}
	return out
}

// rotation fields the first ten ids in a rotating pattern and benches the rest.
func rotation(ids []string, innings int) model.Schedule {
	var s model.Schedule
	for t := 0; t < innings; t++ {
		in := model.Inning{Number: t + 1, Field: map[model.Position]string{}}
		for k, id := range ids {
			if k < model.NumPositions {
				in.Field[model.Positions[(k+t)%model.NumPositions]] = id
			} else {
				in.Bench = append(in.Bench, id)
			}
		}
		s.Innings = append(s.Innings, in)
	}
	return s
}

func TestEvaluator_Score(t *testing.T) {
	Convey("Given the default evaluator", t, func() {
		ev := scoring.NewEvaluator()

		Convey("Ten equal players rotating through every position score 135", func() {
			r := uniformRoster(10, 3.0)
			m, err := eligibility.Build(r, nil)
			So(err, ShouldBeNil)
			ids := make([]string, len(r))
			for i, p := range r {
				ids[i] = p.ID
			}

			sc := ev.Score(m, rotation(ids, 9))
			So(sc.Skill, ShouldEqual, 135.0)
			So(sc.Penalty, ShouldEqual, 0)
			So(sc.Total, ShouldEqual, 135.0)
		})

		Convey("Repeating a position costs the repeat weight", func() {
			r := uniformRoster(10, 3.0)
			m, _ := eligibility.Build(r, nil)
			ids := make([]string, len(r))
			for i, p := range r {
				ids[i] = p.ID
			}
			s := rotation(ids, 2)
			s.Innings[1] = s.Innings[0].Clone()
			s.Innings[1].Number = 2

			sc := ev.Score(m, s)
			So(sc.Repeats, ShouldEqual, 10*0.25)
			So(sc.Total, ShouldEqual, 30-2.5)
		})

		Convey("Uneven bench time is penalised", func() {
			r := uniformRoster(12, 3.0)
			m, _ := eligibility.Build(r, nil)
			ids := make([]string, len(r))
			for i, p := range r {
				ids[i] = p.ID
			}
			// the same two players sit all four innings
			unfair := ev.Score(m, rotation(ids, 4))

			fair := model.Schedule{}
			for t := 0; t < 4; t++ {
				order := append(append([]string(nil), ids[2*t+2:]...), ids[:2*t+2]...)
				in := rotation(order, 1).Innings[0]
				in.Number = t + 1
				fair.Innings = append(fair.Innings, in)
			}
			even := ev.Score(m, fair)

			So(unfair.BenchVariance, ShouldBeGreaterThan, 0)
			So(even.BenchVariance, ShouldBeLessThan, unfair.BenchVariance)
			So(unfair.Skill, ShouldEqual, even.Skill)
		})

		Convey("Players who want a position are penalised beyond the fair share", func() {
			r := uniformRoster(11, 3.0)
			r[10].Preferences[model.Pitcher] = model.WantsToPlay
			m, _ := eligibility.Build(r, nil)
			ids := make([]string, len(r))
			for i, p := range r {
				ids[i] = p.ID
			}
			// p10 sits all 9 innings; fair share is ceil(9*1/11) = 1
			sc := ev.Score(m, rotation(ids, 9))
			So(sc.WantsViolations, ShouldEqual, 2.0*8)
		})

		Convey("Weights can be tuned", func() {
			quiet := scoring.NewEvaluator(
				scoring.WithBenchVarianceWeight(0),
				scoring.WithLowPrefVarianceWeight(0),
				scoring.WithWantsViolationWeight(0),
				scoring.WithRepeatWeight(0),
			)
			So(quiet.Weights(), ShouldResemble, scoring.Weights{})

			r := uniformRoster(12, 2.0)
			m, _ := eligibility.Build(r, nil)
			ids := make([]string, len(r))
			for i, p := range r {
				ids[i] = p.ID
			}
			sc := quiet.Score(m, rotation(ids, 3))
			So(sc.Penalty, ShouldEqual, 0)
			So(sc.Total, ShouldEqual, sc.Skill)
		})
	})
}

func TestTally(t *testing.T) {
	Convey("Given a tally over a schedule", t, func() {
		r := uniformRoster(12, 2.5)
		r[3].Skill = 4.5
		m, _ := eligibility.Build(r, model.Importance{model.Pitcher: 90})
		ids := make([]string, 0, len(r))
		for _, p := range m.Players {
			ids = append(ids, p.Player.ID)
		}
		ev := scoring.NewEvaluator()
		s := rotation(ids, 5)
		roles := scoring.RolesOf(m, s)
		tally := ev.NewTally(m, roles)

		So(tally.Score(), ShouldResemble, ev.Score(m, s))

		Convey("Swapping two roles and back restores the score", func() {
			before := tally.Score().Total
			a, b := 0, 11
			ra, rb := roles[2][a], roles[2][b]
			tally.Remove(a, ra)
			tally.Remove(b, rb)
			tally.Add(a, rb)
			tally.Add(b, ra)
			So(tally.Score().Total, ShouldNotEqual, before)
			tally.Remove(a, rb)
			tally.Remove(b, ra)
			tally.Add(a, ra)
			tally.Add(b, rb)
			So(math.Abs(tally.Score().Total-before), ShouldBeLessThan, 1e-9)
		})

		Convey("Bench counts are exposed", func() {
			i, _ := m.Index(ids[11])
			So(tally.Benched(i), ShouldEqual, 5)
		})
	})
}
