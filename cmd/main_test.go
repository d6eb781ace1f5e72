package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/horizontool/horizon/internal/adapters/http/api"
	"github.com/horizontool/horizon/internal/adapters/http/swagger"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	app "github.com/horizontool/horizon/internal/app"
	"github.com/horizontool/horizon/internal/config"
	"github.com/horizontool/horizon/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it should return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing system metrics update", func() {
			convey.Convey("Then it should update metrics without panicking", func() {
				convey.So(func() {
					updateSystemMetrics()
				}, convey.ShouldNotPanic)
			})
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given main application integration", t, func() {
		_ = os.Setenv("HORIZON_WORKER_COUNT", "2")
		_ = os.Setenv("HORIZON_QUEUE_SIZE", "16")
		defer func() {
			_ = os.Unsetenv("HORIZON_WORKER_COUNT")
			_ = os.Unsetenv("HORIZON_QUEUE_SIZE")
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cfg, err := config.Load(ctx)
		convey.So(err, convey.ShouldBeNil)
		convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)

		res := resolver.NewStaticResolver(cfg.Sensors)
		store, err := app.OpenStore(ctx, cfg, res)
		convey.So(err, convey.ShouldBeNil)

		svc := app.New(store, res, app.Options(cfg)...)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		router := api.NewRouter()
		swagger.Register(ctx, router)
		api.NewServer(svc, svc).Register(ctx, router)

		convey.Convey("When requesting the forecast of the default sensor", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast",
				strings.NewReader(`{"sensor_ids":["`+config.DefaultSensorID+`"]}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			convey.Convey("Then the dashboard payload is returned", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, `"sensor_id":"`+config.DefaultSensorID+`"`)
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "ensemble_predict")
			})
		})

		convey.Convey("When requesting an unknown sensor", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/metric-dates", strings.NewReader(`{"sensor_ids":["nope"]}`))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			convey.Convey("Then it is reported as not found", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusNotFound)
			})
		})

		convey.Convey("When the service metrics updater runs", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given an empty listen address", t, func() {
		_ = os.Setenv("HORIZON_ADDR", "")
		defer func() { _ = os.Unsetenv("HORIZON_ADDR") }()

		convey.Convey("Then configuration loading should fail", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
