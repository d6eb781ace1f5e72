package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/horizontool/horizon/internal/adapters/http/api"
	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/types"
	"github.com/horizontool/horizon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type mockDependencies struct {
	err        error
	gotIDs     []string
	start, end time.Time
}

func (m *mockDependencies) Forecast(_ context.Context, ids []string) ([]types.SensorForecast, error) {
	m.gotIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	out := make([]types.SensorForecast, len(ids))
	for i, id := range ids {
		out[i].Description = types.Description{SensorID: id, SensorName: "name " + id}
	}
	return out, nil
}

func (m *mockDependencies) AccuracyByPeriod(_ context.Context, ids []string, start, end time.Time) ([]types.SensorAccuracy, error) {
	m.gotIDs, m.start, m.end = ids, start, end
	if m.err != nil {
		return nil, m.err
	}
	return []types.SensorAccuracy{{SensorID: ids[0], Models: map[string]metric.Set{"LSTM": {MAE: 1.25}}}}, nil
}

func (m *mockDependencies) MetricDates(_ context.Context, ids []string) (map[string]types.MetricDates, error) {
	m.gotIDs = ids
	if m.err != nil {
		return nil, m.err
	}
	newest := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return map[string]types.MetricDates{ids[0]: {MaxDate: types.Timestamp(newest)}}, nil
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any {
	return m.stats
}

func newRouter(deps *mockDependencies) http.Handler {
	r := api.NewRouter()
	api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).Register(context.Background(), r)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Register(t *testing.T) {
	Convey("Given a router with all routes registered", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("Then the health endpoint exposes Prometheus metrics", func() {
			w := do(h, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "horizon_")
		})

		Convey("Then the stats endpoint returns the provider's stats", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			var got map[string]any
			So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
			So(got["started"], ShouldEqual, true)
		})

		Convey("Then every response carries a request id", func() {
			w := do(h, http.MethodGet, "/stats", "")
			So(w.Header().Get(api.RequestIDHeader), ShouldNotBeEmpty)
		})

		Convey("Then a caller supplied request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", nil)
			req.Header.Set(api.RequestIDHeader, "abc-123")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "abc-123")
		})

		Convey("Then GET on a POST route is rejected", func() {
			w := do(h, http.MethodGet, "/api/v1/forecast", "")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestForecastHandler(t *testing.T) {
	Convey("Given the forecast endpoint", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("When posting sensor ids", func() {
			w := do(h, http.MethodPost, "/api/v1/forecast", `{"sensor_ids":["a","b"]}`)

			Convey("Then one forecast per sensor is returned in order", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.gotIDs, ShouldResemble, []string{"a", "b"})
				var got []types.SensorForecast
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldHaveLength, 2)
				So(got[1].Description.SensorID, ShouldEqual, "b")
			})
		})

		Convey("When the body is invalid", func() {
			for _, body := range []string{``, `{`, `{"sensor_ids":[]}`, `{"sensor_ids":[""]}`, `{"other":1}`} {
				w := do(h, http.MethodPost, "/api/v1/forecast", body)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})
	})
}

func TestAccuracyHandler(t *testing.T) {
	Convey("Given the accuracy endpoint", t, func() {
		deps := &mockDependencies{}
		h := newRouter(deps)

		Convey("When dates use the wall clock layout and RFC3339", func() {
			w := do(h, http.MethodPost, "/api/v1/accuracy",
				`{"sensor_ids":["a"],"date_start":"2024-03-01 00:00:00","date_end":"2024-03-02T00:00:00Z"}`)

			Convey("Then both are parsed as UTC", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.start, ShouldEqual, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
				So(deps.end.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
				So(w.Body.String(), ShouldContainSubstring, `"MAE":1.25`)
			})
		})

		Convey("When a date is malformed", func() {
			w := do(h, http.MethodPost, "/api/v1/accuracy",
				`{"sensor_ids":["a"],"date_start":"yesterday","date_end":"2024-03-02 00:00:00"}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When a date is missing", func() {
			w := do(h, http.MethodPost, "/api/v1/accuracy", `{"sensor_ids":["a"],"date_start":"2024-03-01 00:00:00"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMetricDatesHandler(t *testing.T) {
	Convey("Given the metric dates endpoint", t, func() {
		h := newRouter(&mockDependencies{})

		Convey("Then dates are keyed by sensor id in the wall clock layout", func() {
			w := do(h, http.MethodPost, "/api/v1/metric-dates", `{"sensor_ids":["a"]}`)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"max_date":"2024-03-01 12:00:00"`)
		})
	})
}

func TestErrorMapping(t *testing.T) {
	Convey("Given service failures", t, func() {
		cases := []struct {
			err    error
			status int
		}{
			{fmt.Errorf("sensor %q: %w", "x", resolver.ErrUnknownSensor), http.StatusNotFound},
			{&accuracy.OverlapError{Model: "LSTM"}, http.StatusUnprocessableEntity},
			{fmt.Errorf("wrap: %w", metric.ErrInvalidInput), http.StatusUnprocessableEntity},
			{fmt.Errorf("truth: %w", repository.ErrEmptySeries), http.StatusUnprocessableEntity},
			{fmt.Errorf("%w: breaker open", repository.ErrUnavailable), http.StatusServiceUnavailable},
			{accuracy.ErrInvalidWindow, http.StatusBadRequest},
			{errors.New("boom"), http.StatusInternalServerError},
		}

		for _, tc := range cases {
			Convey("When the service fails with "+tc.err.Error(), func() {
				h := newRouter(&mockDependencies{err: tc.err})
				w := do(h, http.MethodPost, "/api/v1/forecast", `{"sensor_ids":["x"]}`)

				Convey("Then the status code reflects the error kind", func() {
					So(w.Code, ShouldEqual, tc.status)
					var body map[string]string
					So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
					So(body["message"], ShouldEqual, tc.err.Error())
					So(body["request_id"], ShouldNotBeEmpty)
				})
			})
		}
	})
}
