package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/horizontool/horizon/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Forecast.HistoryHorizon, convey.ShouldEqual, 288)
				convey.So(cfg.Sensors, convey.ShouldContainKey, config.DefaultSensorID)
			})
		})

		convey.Convey("When the log format is upper case", func() {
			_ = os.Setenv("HORIZON_LOG_FORMAT", "JSON")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it is normalized to the handler name", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("HORIZON_ADDR", ":8080")
			_ = os.Setenv("HORIZON_QUEUE_SIZE", "64")
			_ = os.Setenv("HORIZON_WORKER_COUNT", "16")
			_ = os.Setenv("HORIZON_FORECAST__HISTORY_HORIZON", "100")
			_ = os.Setenv("HORIZON_FORECAST__TOLERANCE", "2m")
			_ = os.Setenv("HORIZON_DATABASE__DSN", "postgres://localhost/horizon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.Forecast.HistoryHorizon, convey.ShouldEqual, 100)
				convey.So(cfg.Forecast.Tolerance, convey.ShouldEqual, 2*time.Minute)
				convey.So(cfg.Forecast.RealLimit, convey.ShouldEqual, 300)
				convey.So(cfg.Database.DSN, convey.ShouldEqual, "postgres://localhost/horizon")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			yamlContent := `
addr: ":9090"
worker_count: 24
forecast:
  future_limit: 5
  default_window: 12h
sensors:
  plant_7:
    name: Plant 7
    truth: plant_7_load
    value_column: kw
    models:
      - id: ARIMA
        series: arima_plant_7
        weight: 2
        value_column: yhat
      - id: LSTM
        series: lstm_plant_7
        weight: 1
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HORIZON_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file and keep defaults elsewhere", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
				convey.So(cfg.Forecast.FutureLimit, convey.ShouldEqual, 5)
				convey.So(cfg.Forecast.DefaultWindow, convey.ShouldEqual, 12*time.Hour)
				convey.So(cfg.Forecast.HistoryHorizon, convey.ShouldEqual, 288)
			})

			convey.Convey("Then configured sensors replace the default sensor", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Sensors, convey.ShouldHaveLength, 1)
				s := cfg.Sensors["plant_7"]
				convey.So(s.Truth, convey.ShouldEqual, "plant_7_load")
				convey.So(s.Models, convey.ShouldHaveLength, 2)
				convey.So(s.Models[0].ID, convey.ShouldEqual, "ARIMA")
				convey.So(s.Models[0].Weight, convey.ShouldEqual, 2.0)
				convey.So(s.ValueColumn, convey.ShouldEqual, "kw")
				convey.So(s.Models[0].ValueColumn, convey.ShouldEqual, "yhat")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			tmpFile := createTempConfigFile("addr: \":9090\"\nworker_count: 24\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HORIZON_CONFIG", tmpFile)
			_ = os.Setenv("HORIZON_ADDR", ":8080")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 24)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("HORIZON_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("HORIZON_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("HORIZON_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("HORIZON_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"HORIZON_CONFIG",
		"HORIZON_ADDR",
		"HORIZON_QUEUE_SIZE",
		"HORIZON_WORKER_COUNT",
		"HORIZON_FORECAST__HISTORY_HORIZON",
		"HORIZON_FORECAST__TOLERANCE",
		"HORIZON_DATABASE__DSN",
		"HORIZON_LOG_FORMAT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "horizon-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
