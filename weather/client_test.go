package weather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testConfig(baseURL string) config.WeatherConfig {
	return config.WeatherConfig{
		BaseURL:      baseURL,
		APIKey:       testKey,
		APIKeyHeader: "X-API-Key",
		Timeout:      5 * time.Second,
		Breaker: config.BreakerConfig{
			FailureThreshold: 2,
			OpenTimeout:      time.Hour,
		},
	}
}

func testClient(baseURL string) *Client {
	return NewClient(testConfig(baseURL), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestClient_Forecast_SingleObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, forecastPath, r.URL.Path)
		assert.Equal(t, "52.5000", r.URL.Query().Get("latitude"))
		assert.Equal(t, "13.4000", r.URL.Query().Get("longitude"))
		assert.Equal(t, hourlyVars, r.URL.Query().Get("hourly"))
		assert.Equal(t, "1", r.URL.Query().Get("forecast_days"))
		assert.Equal(t, testKey, r.Header.Get("X-API-Key"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{
			"latitude": 52.52, "longitude": 13.41,
			"hourly": {
				"time": ["2026-01-01T00:00", "2026-01-01T01:00"],
				"wind_speed_10m": [36.0, 50.0],
				"wind_direction_10m": [90.0, 180.0]
			}
		}`)
	}))
	defer srv.Close()

	obs, err := testClient(srv.URL).Forecast(context.Background(), []geo.Point{{Lat: 52.5, Lon: 13.4}})
	require.NoError(t, err)
	require.Len(t, obs, 1)

	assert.Equal(t, geo.Point{Lat: 52.5, Lon: 13.4}, obs[0].Point, "keyed by the requested point, not the snapped one")
	assert.Equal(t, 36.0, obs[0].SpeedKmh)
	assert.Equal(t, 90.0, obs[0].DirectionDeg)

	wind := obs[0].Wind()
	assert.InDelta(t, -10.0, wind.U, 1e-9)
	assert.InDelta(t, 0.0, wind.V, 1e-9)
}

func TestClient_Forecast_ArrayInRequestOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "10.0000,11.0000,12.0000", r.URL.Query().Get("latitude"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `[
			{"hourly": {"wind_speed_10m": [3.6], "wind_direction_10m": [0]}},
			{"hourly": {"wind_speed_10m": [null], "wind_direction_10m": [10]}},
			{"hourly": {"wind_speed_10m": [7.2], "wind_direction_10m": [180]}}
		]`)
	}))
	defer srv.Close()

	points := []geo.Point{{Lat: 10, Lon: 20}, {Lat: 11, Lon: 21}, {Lat: 12, Lon: 22}}
	obs, err := testClient(srv.URL).Forecast(context.Background(), points)
	require.NoError(t, err)
	require.Len(t, obs, 2, "null entries are skipped")

	assert.Equal(t, points[0], obs[0].Point)
	assert.Equal(t, points[2], obs[1].Point)
	assert.InDelta(t, 1.0, obs[0].Wind().V, 1e-9)
	assert.InDelta(t, -2.0, obs[1].Wind().V, 1e-9)
}

func TestClient_Forecast_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("X-API-Key"))
		_, _ = io.WriteString(w, `{"hourly": {"wind_speed_10m": [1], "wind_direction_10m": [1]}}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	_, err := NewClient(cfg).Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}})
	require.NoError(t, err)
}

func TestClient_Forecast_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Contains(t, err.Error(), "429")
}

func TestClient_Forecast_EmptyHourly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"hourly": {"wind_speed_10m": [], "wind_direction_10m": []}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestClient_Forecast_LocationCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"hourly": {"wind_speed_10m": [1], "wind_direction_10m": [1]}}]`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}})
	assert.Error(t, err)
}

func TestClient_Forecast_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"hourly": `)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}})
	assert.Error(t, err)
}

func TestClient_Forecast_EmptyPoints(t *testing.T) {
	obs, err := testClient("http://127.0.0.1:0").Forecast(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, obs)
}

func TestClient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var transitions []gobreaker.State
	c := NewClient(testConfig(srv.URL), WithStateListener(func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}))

	pts := []geo.Point{{Lat: 1, Lon: 1}}
	for i := 0; i < 2; i++ {
		_, err := c.Forecast(context.Background(), pts)
		require.ErrorIs(t, err, ErrStatus)
	}

	_, err := c.Forecast(context.Background(), pts)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "expected open breaker, got %v", err)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, transitions)
}

func TestClient_EmptyForecastDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"hourly": {"wind_speed_10m": [null], "wind_direction_10m": [null]}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 5; i++ {
		_, err := c.Forecast(context.Background(), []geo.Point{{Lat: 1, Lon: 1}})
		require.ErrorIs(t, err, ErrNoData)
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}

func TestObservationWindMatchesConvention(t *testing.T) {
	// Bearing 0 maps onto +V
	w := Observation{SpeedKmh: 18, DirectionDeg: 0}.Wind()
	assert.InDelta(t, 0, w.U, 1e-9)
	assert.InDelta(t, 5, w.V, 1e-9)
	assert.InDelta(t, 5, w.Speed(), 1e-9)
	assert.False(t, math.IsNaN(w.Direction()))
}
