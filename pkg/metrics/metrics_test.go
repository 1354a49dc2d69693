package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegistry(registry))

			Convey("Then collectors use the lineup namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.swapsAccepted.Add(3)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(names, ShouldContain, "lineup_scheduler_swaps_accepted_total")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNames("test", "opt"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithSolveBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithConstLabels(map[string]string{"instance": "a"}),
				WithRegistry(registry),
			)

			Convey("Then the options are applied", func() {
				So(manager.namespace, ShouldEqual, "test")
				So(manager.subsystem, ShouldEqual, "opt")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(manager.solveBuckets, ShouldResemble, []float64{1, 10, 100})
				So(manager.constLabels, ShouldResemble, prometheus.Labels{"env": "test", "instance": "a"})
				manager.relaxationRetries.Inc()
				So(testutil.ToFloat64(manager.relaxationRetries), ShouldEqual, 1)
			})
		})

		Convey("Empty option values keep defaults", func() {
			manager := NewManager(WithNames("", ""), WithLatencyBuckets(nil), WithSolveBuckets(nil),
				WithRegistry(prometheus.NewRegistry()))
			So(manager.namespace, ShouldEqual, "lineup")
			So(manager.subsystem, ShouldEqual, "scheduler")
			So(manager.solveBuckets, ShouldHaveLength, 14)
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("Optimizer counters move", func() {
			before := testutil.ToFloat64(globalManager.optimizations.WithLabelValues("ok"))
			RecordOptimization("ok")
			So(testutil.ToFloat64(globalManager.optimizations.WithLabelValues("ok")), ShouldEqual, before+1)

			swaps := testutil.ToFloat64(globalManager.swapsAccepted)
			RecordSwapsAccepted(4)
			So(testutil.ToFloat64(globalManager.swapsAccepted), ShouldEqual, swaps+4)
		})

		Convey("Gauges are set", func() {
			UpdateQueueSize(7)
			UpdateQueueCapacity(10)
			UpdateWorkerCount(3)
			UpdateStoredLineups(2)
			So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 7)
			So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 10)
			So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 3)
			So(testutil.ToFloat64(globalManager.storedLineups), ShouldEqual, 2)
		})

		Convey("Recording functions do not panic", func() {
			So(func() {
				RecordOptimizeDuration(12)
				RecordObjectiveValue(135)
				RecordImprovementPasses(2)
				RecordRelaxationRetry()
				RecordInterrupted()
				RecordRosterSize(12)
				RecordCacheHit("memory")
				RecordCacheMiss("redis")
				RecordCacheError("redis")
				UpdateQueueUtilization(0.5)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueWait(1)
				UpdateWorkerBusy(1)
				UpdateWorkerBusy(-1)
				RecordWorkerProcessingLatency(3)
				RecordWorkerError()
				RecordHTTPRequest("/health", "GET", "200")
				RecordHTTPRequestDuration("/health", "GET", "200", 1)
				RecordRateLimited("/optimize")
				RecordErrorByComponent("api", "bad_request")
				RecordErrorByType("bad_request", "warning")
				RecordErrorByEndpoint("/optimize", "POST", "bad_request")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.2)
			}, ShouldNotPanic)
		})

		Convey("GetRegistry exposes the custom registry", func() {
			So(GetRegistry(), ShouldEqual, customRegistry)
		})
	})
}
