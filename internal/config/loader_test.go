package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/lineup/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LINEUP_ADDR", ":8080")
			_ = os.Setenv("LINEUP_QUEUE_SIZE", "64")
			_ = os.Setenv("LINEUP_WORKER_COUNT", "3")
			_ = os.Setenv("LINEUP_INNINGS", "7")
			_ = os.Setenv("LINEUP_FAIRNESS_WEIGHT", "12.5")
			_ = os.Setenv("LINEUP_NO_CONSECUTIVE_SITS", "false")
			_ = os.Setenv("LINEUP_REDIS_URL", "redis://localhost:6379/1")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.Innings, convey.ShouldEqual, 7)
				convey.So(cfg.FairnessWeight, convey.ShouldEqual, 12.5)
				convey.So(cfg.NoConsecutiveSits, convey.ShouldBeFalse)
				convey.So(cfg.RedisURL, convey.ShouldEqual, "redis://localhost:6379/1")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
queue_size: 500
worker_count: 6
want_bonus: 1.5
bench_variance_weight: 4
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LINEUP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values are applied over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 6)
				convey.So(cfg.WantBonus, convey.ShouldEqual, 1.5)
				convey.So(cfg.BenchVarianceWeight, convey.ShouldEqual, 4)
				convey.So(cfg.Innings, convey.ShouldEqual, 9)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
worker_count: 6
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LINEUP_CONFIG", tmpFile)
			_ = os.Setenv("LINEUP_WORKER_COUNT", "8")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When the YAML file is invalid", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("LINEUP_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			_ = os.Setenv("LINEUP_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When numeric env vars are not numbers", func() {
			_ = os.Setenv("LINEUP_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When addr is empty", func() {
			_ = os.Setenv("LINEUP_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			})
		})

		convey.Convey("When innings is zero", func() {
			_ = os.Setenv("LINEUP_INNINGS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then validation rejects it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "innings")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, envVar := range []string{
		"LINEUP_CONFIG",
		"LINEUP_ADDR",
		"LINEUP_QUEUE_SIZE",
		"LINEUP_WORKER_COUNT",
		"LINEUP_INNINGS",
		"LINEUP_FAIRNESS_WEIGHT",
		"LINEUP_NO_CONSECUTIVE_SITS",
		"LINEUP_REDIS_URL",
	} {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "lineup-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
