// Package weather is a client for an Open-Meteo compatible forecast service,
// reduced to the current 10m wind at a batch of coordinates.
package weather

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pthm-cable/windfield/config"
	"github.com/pthm-cable/windfield/geo"
)

// API Docs: https://open-meteo.com/en/docs
// Sample request: https://api.open-meteo.com/v1/forecast?latitude=52.5,48.1&longitude=13.4,11.6&hourly=wind_speed_10m,wind_direction_10m&forecast_days=1
const (
	forecastPath   = "/v1/forecast"
	hourlyVars     = "wind_speed_10m,wind_direction_10m"
	maxBodyBytes   = 16 << 20
	coordPrecision = 4
)

var (
	// ErrNoData is returned when a response holds no usable current-hour wind.
	ErrNoData = errors.New("weather: no wind data in response")

	// ErrStatus is wrapped by errors for non-200 responses.
	ErrStatus = errors.New("weather: unexpected status")
)

// StateListener observes circuit breaker transitions.
type StateListener func(name string, from, to gobreaker.State)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithStateListener registers a breaker transition callback.
func WithStateListener(fn StateListener) Option {
	return func(c *Client) { c.listener = fn }
}

// Client fetches current wind for batches of coordinates.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	keyHeader  string
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]Observation]
	logger     *slog.Logger
	listener   StateListener
}

// NewClient creates a client from the weather config section.
func NewClient(cfg config.WeatherConfig, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		keyHeader:  cfg.APIKeyHeader,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(limit, burst)

	threshold := cfg.Breaker.FailureThreshold
	c.cb = gobreaker.NewCircuitBreaker[[]Observation](gobreaker.Settings{
		Name:        "weather-api",
		MaxRequests: 1,
		Timeout:     cfg.Breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return threshold > 0 && counts.ConsecutiveFailures >= threshold
		},
		// Empty forecasts and caller cancellation say nothing about service health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Info("circuit breaker transition", "name", name, "from", from.String(), "to", to.String())
			if c.listener != nil {
				c.listener(name, from, to)
			}
		},
	})

	return c
}

// Forecast returns the current-hour wind for each point that has data, in
// request order. Points whose entries are null are omitted.
func (c *Client) Forecast(ctx context.Context, points []geo.Point) ([]Observation, error) {
	if len(points) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}
	return c.cb.Execute(func() ([]Observation, error) {
		return c.fetch(ctx, points)
	})
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.cb.State()
}

func (c *Client) fetch(ctx context.Context, points []geo.Point) ([]Observation, error) {
	u, err := url.Parse(c.baseURL + forecastPath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	lats := make([]string, len(points))
	lons := make([]string, len(points))
	for i, p := range points {
		lats[i] = strconv.FormatFloat(p.Lat, 'f', coordPrecision, 64)
		lons[i] = strconv.FormatFloat(p.Lon, 'f', coordPrecision, 64)
	}

	q := u.Query()
	q.Set("latitude", strings.Join(lats, ","))
	q.Set("longitude", strings.Join(lons, ","))
	q.Set("hourly", hourlyVars)
	q.Set("forecast_days", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.apiKey != "" && c.keyHeader != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w %d: %s", ErrStatus, resp.StatusCode, truncate(body, 200))
	}

	forecasts, err := decodeForecasts(body)
	if err != nil {
		return nil, err
	}
	if len(forecasts) != len(points) {
		return nil, fmt.Errorf("response has %d locations for %d requested", len(forecasts), len(points))
	}

	obs := make([]Observation, 0, len(points))
	for i, f := range forecasts {
		speed, dir, ok := f.Hourly.current()
		if !ok {
			continue
		}
		obs = append(obs, Observation{Point: points[i], SpeedKmh: speed, DirectionDeg: dir})
	}
	if len(obs) == 0 {
		return nil, ErrNoData
	}
	return obs, nil
}

// decodeForecasts accepts either a single location object or an array of them.
func decodeForecasts(body []byte) ([]ForecastResponse, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("failed to decode response: %w", ErrNoData)
	}

	if trimmed[0] == '[' {
		var many []ForecastResponse
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return many, nil
	}

	var one ForecastResponse
	if err := json.Unmarshal(trimmed, &one); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return []ForecastResponse{one}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
