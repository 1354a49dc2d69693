package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/lineup/internal/adapters/repository"
	service "github.com/okian/lineup/internal/app"
	"github.com/okian/lineup/internal/config"
	"github.com/okian/lineup/internal/domain/model"
)

func roster(n int) model.Roster {
	out := make(model.Roster, n)
	for i := range out {
		prefs := make(map[model.Position]model.Preference, model.NumPositions)
		for _, pos := range model.Positions {
			prefs[pos] = model.CanPlay
		}
		out[i] = model.Player{ID: fmt.Sprintf("p%02d", i), Name: fmt.Sprintf("Player %d", i), Skill: 3, Preferences: prefs}
	}
	return out
}

func flatImportance(w float64) model.Importance {
	imp := model.Importance{}
	for _, pos := range model.Positions {
		imp[pos] = w
	}
	return imp
}

// gatedSolver blocks every call until release is closed.
type gatedSolver struct {
	release chan struct{}
}

func (g *gatedSolver) Optimize(ctx context.Context, r model.Roster, _ model.Importance) (*model.Result, error) {
	select {
	case <-g.release:
		return &model.Result{Roster: r, Score: model.Score{Total: float64(len(r))}}, nil
	case <-ctx.Done():
		return nil, &model.CancelledError{Cause: ctx.Err()}
	}
}

func started(t *testing.T, opts ...service.Option) *service.Service {
	svc := service.New(opts...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithQueueSize(8))
		defer svc.Stop()

		Convey("It reports itself stopped and refuses work", func() {
			So(svc.GetStats()["started"], ShouldEqual, false)
			_, err := svc.Optimize(context.Background(), roster(10), nil)
			So(err, ShouldEqual, service.ErrNotStarted)
		})

		Convey("Start and Stop are idempotent", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			So(svc.Start(context.Background()), ShouldBeNil)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["workers"], ShouldEqual, 2)
			So(stats["queueLength"], ShouldEqual, 0)

			svc.Stop()
			svc.Stop()
			So(svc.GetStats()["started"], ShouldEqual, false)
		})
	})
}

func TestService_GenerateLineup(t *testing.T) {
	Convey("Given a started service with the default optimizer", t, func() {
		svc := started(t, service.WithWorkerCount(2))
		defer svc.Stop()
		ctx := context.Background()

		Convey("Ten equal players produce the full rotation score and are stored", func() {
			out, err := svc.GenerateLineup(ctx, "tigers", roster(10), flatImportance(50))
			So(err, ShouldBeNil)
			So(out.ObjectiveValue, ShouldAlmostEqual, 135.0, 1e-9)
			So(out.Schedule, ShouldHaveLength, 9)
			So(out.TeamID, ShouldEqual, "tigers")
			So(out.GeneratedAt, ShouldNotBeNil)
			So(out.Stats.Cached, ShouldBeFalse)

			latest, err := svc.LatestLineup(ctx, "tigers")
			So(err, ShouldBeNil)
			So(latest.ObjectiveValue, ShouldEqual, out.ObjectiveValue)

			Convey("The same request is answered from the cache", func() {
				again, err := svc.GenerateLineup(ctx, "tigers", roster(10), flatImportance(50))
				So(err, ShouldBeNil)
				So(again.Stats.Cached, ShouldBeTrue)
				So(again.ObjectiveValue, ShouldEqual, out.ObjectiveValue)

				hist, err := svc.LineupHistory(ctx, "tigers", 5)
				So(err, ShouldBeNil)
				So(hist, ShouldHaveLength, 2)
				So(svc.GetStats()["cacheHits"], ShouldEqual, int64(1))
			})
		})

		Convey("Optimize does not store", func() {
			_, err := svc.Optimize(ctx, roster(11), flatImportance(50))
			So(err, ShouldBeNil)
			_, err = svc.LatestLineup(ctx, "tigers")
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("Domain errors come back unchanged", func() {
			_, err := svc.GenerateLineup(ctx, "tigers", model.Roster{}, nil)
			So(errors.Is(err, model.ErrEmptyRoster), ShouldBeTrue)

			r := roster(10)
			for i := range r {
				r[i].Preferences[model.Catcher] = model.CannotPlay
			}
			_, err = svc.Optimize(ctx, r, nil)
			So(errors.Is(err, model.ErrInfeasibleRoster), ShouldBeTrue)
			So(svc.GetStats()["failures"], ShouldEqual, int64(2))
		})
	})
}

func TestService_Backpressure(t *testing.T) {
	Convey("Given one busy worker and a tiny queue", t, func() {
		gate := &gatedSolver{release: make(chan struct{})}
		svc := started(t,
			service.WithWorkerCount(1),
			service.WithQueueSize(1),
			service.WithSolver(gate, "gated"),
			service.WithCache(nil),
			service.WithRequestTimeout(5*time.Second),
		)
		defer svc.Stop()

		const requests = 5
		errs := make(chan error, requests)
		for i := 0; i < requests; i++ {
			go func(i int) {
				_, err := svc.Optimize(context.Background(), roster(10+i), nil)
				errs <- err
			}(i)
		}

		Convey("Excess requests are refused at once and the rest complete", func() {
			for i := 0; i < 2; i++ {
				select {
				case err := <-errs:
					So(errors.Is(err, service.ErrBackpressure), ShouldBeTrue)
				case <-time.After(2 * time.Second):
					So("no backpressure", ShouldBeEmpty)
				}
			}
			close(gate.release)

			var ok, refused int
			for i := 0; i < requests-2; i++ {
				select {
				case err := <-errs:
					if err == nil {
						ok++
					} else if errors.Is(err, service.ErrBackpressure) {
						refused++
					}
				case <-time.After(2 * time.Second):
				}
			}
			So(ok, ShouldBeGreaterThanOrEqualTo, 1)
			So(ok+refused, ShouldEqual, requests-2)
		})
	})
}

func TestService_Timeout(t *testing.T) {
	Convey("Given a solver that never finishes in time", t, func() {
		gate := &gatedSolver{release: make(chan struct{})}
		svc := started(t,
			service.WithWorkerCount(1),
			service.WithSolver(gate, "gated"),
			service.WithRequestTimeout(30*time.Millisecond),
		)
		defer svc.Stop()

		Convey("The request fails with a deadline cancellation", func() {
			_, err := svc.GenerateLineup(context.Background(), "slow", roster(10), nil)
			So(errors.Is(err, model.ErrCancelled), ShouldBeTrue)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
		})
	})
}

func TestNewFromConfig(t *testing.T) {
	Convey("Given configuration with a Redis cache", t, func() {
		mr := miniredis.RunT(t)
		cfg := config.New()
		cfg.WorkerCount = 2
		cfg.RedisURL = "redis://" + mr.Addr()

		svc, err := service.NewFromConfig(context.Background(), cfg, nil)
		So(err, ShouldBeNil)
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Results are shared through Redis", func() {
			_, err := svc.Optimize(context.Background(), roster(10), flatImportance(50))
			So(err, ShouldBeNil)
			So(len(mr.Keys()), ShouldEqual, 1)
			So(svc.GetStats()["cache"], ShouldEqual, "tiered")
		})

		Convey("A bad Redis URL is rejected", func() {
			bad := config.New()
			bad.RedisURL = "not-a-url"
			_, err := service.NewFromConfig(context.Background(), bad, nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("The cache salt follows the optimizer settings", t, func() {
		a, b := config.New(), config.New()
		So(service.Salt(a), ShouldEqual, service.Salt(b))
		b.Innings = 6
		So(service.Salt(a), ShouldNotEqual, service.Salt(b))
		b = config.New()
		b.NoConsecutiveSits = false
		So(service.Salt(a), ShouldNotEqual, service.Salt(b))
	})
}
