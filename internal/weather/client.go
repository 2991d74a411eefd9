// Package weather fetches current conditions from the OpenWeatherMap API.
// file: internal/weather/client.go
package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/marekdano/weather-mcp-server/internal/config"
	"github.com/marekdano/weather-mcp-server/internal/logging"
	"github.com/marekdano/weather-mcp-server/internal/mcperror"
	"github.com/marekdano/weather-mcp-server/internal/schema"
)

const (
	serviceName  = "OpenWeatherMap"
	currentPath  = "/data/2.5/weather"
	maxBodyBytes = 1 << 20
)

// Record is the subset of current weather returned to tool callers.
type Record struct {
	City        string  `json:"city"`
	Temperature float64 `json:"temperature"`
	Description string  `json:"description"`
}

// UpstreamRecorder observes outbound requests. status is 0 when no response
// was received.
type UpstreamRecorder interface {
	RecordUpstream(status int, elapsed time.Duration)
}

// Client calls the current-weather endpoint. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	response   *schema.Schema
	recorder   UpstreamRecorder
	logger     logging.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. The configured timeout is not
// applied to a client supplied this way.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRecorder attaches an upstream request recorder.
func WithRecorder(r UpstreamRecorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewClient builds a client from cfg. A missing API key is not an error here;
// FetchWeather reports it per call.
func NewClient(cfg config.WeatherConfig, validator *schema.Validator, logger logging.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	if validator == nil {
		validator = schema.NewValidator(logger)
	}
	compiled, err := validator.Compile(responseSchemaName, ResponseSchema())
	if err != nil {
		return nil, errors.Wrap(err, "weather: compile response schema")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultWeatherBaseURL
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		response:   compiled,
		logger:     logger.WithField("component", "weather_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchWeather returns current conditions for city in metric units.
func (c *Client) FetchWeather(ctx context.Context, city string) (Record, error) {
	if c.apiKey == "" {
		return Record{}, mcperror.NewConfigError("WEATHER_API_KEY", "weather API key is not configured")
	}

	endpoint := c.requestURL(city)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Record{}, errors.Wrap(err, "weather: create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(0, start)
		c.logger.Warn("Weather request failed.", "city", city, "error", err)
		return Record{}, errors.Wrap(err, "weather: send request")
	}
	defer resp.Body.Close()
	c.record(resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Info("Weather API returned non-success status.", "city", city, "status", resp.StatusCode)
		return Record{}, mcperror.NewUpstreamError(serviceName, resp.StatusCode, statusText(resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Record{}, errors.Wrap(err, "weather: read response body")
	}

	if _, err := c.response.ValidateJSON("weather response", body); err != nil {
		c.logger.Warn("Weather response failed schema validation.", "city", city, "error", err)
		return Record{}, err
	}

	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return Record{}, mcperror.NewValidationError("weather response", nil, err)
	}

	rec := Record{
		City:        payload.Name,
		Temperature: payload.Main.Temp,
		Description: payload.Weather[0].Description,
	}
	c.logger.Debug("Weather fetched.", "city", rec.City, "temperature", rec.Temperature)
	return rec, nil
}

func (c *Client) requestURL(city string) string {
	q := url.Values{}
	q.Set("q", city)
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)
	return c.baseURL + currentPath + "?" + q.Encode()
}

func (c *Client) record(status int, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordUpstream(status, time.Since(start))
	}
}

// statusText prefers the reason phrase the server sent.
func statusText(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
