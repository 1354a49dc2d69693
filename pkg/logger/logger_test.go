package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Get returns an initialized logger", func() {
			So(Get(), ShouldNotBeNil)
			So(Named("test"), ShouldNotBeNil)
		})

		Convey("Unknown formats are rejected", func() {
			So(Configure("xml", &bytes.Buffer{}), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Configure(FormatJSON, &buf), ShouldBeNil)
		So(SetLevelString("debug"), ShouldBeNil)
		defer func() {
			_ = SetLevelString("info")
			_ = Init()
		}()

		ctx := context.Background()

		Convey("Fields and source are emitted", func() {
			Get().With(String("team", "owls")).Info(ctx, "lineup generated",
				Int("innings", 9),
				Float64("score", 135),
				Bool("cached", false),
				Duration("took", time.Millisecond),
				Error(errors.New("boom")),
			)

			var rec map[string]interface{}
			So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
			So(rec["msg"], ShouldEqual, "lineup generated")
			So(rec["team"], ShouldEqual, "owls")
			So(rec["innings"], ShouldEqual, 9)
			So(rec["cached"], ShouldEqual, false)
			So(rec["source"], ShouldContainSubstring, "logger_test.go")
		})

		Convey("Named loggers group their fields", func() {
			Named("optimizer").Debug(ctx, "pass", Int("n", 1))
			So(buf.String(), ShouldContainSubstring, `"optimizer":{`)
		})

		Convey("Records below the level are dropped", func() {
			So(SetLevelString("error"), ShouldBeNil)
			Get().Info(ctx, "hidden")
			So(strings.TrimSpace(buf.String()), ShouldBeEmpty)
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("SetLevelString accepts known levels only", t, func() {
		for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
			So(SetLevelString(lvl), ShouldBeNil)
		}
		So(SetLevelString("verbose"), ShouldNotBeNil)
		So(SetLevelString("info"), ShouldBeNil)
	})
}

func TestNop(t *testing.T) {
	Convey("The nop logger accepts calls without output", t, func() {
		l := NewNop()
		l.Info(context.Background(), "ignored")
		l.Named("x").With(String("k", "v")).Error(context.Background(), "ignored")
		So(l, ShouldNotBeNil)
	})
}
