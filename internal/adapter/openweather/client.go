package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
	"github.com/couchcryptid/city-weather-etl/internal/observability"
)

const weatherPath = "/data/2.5/weather"

// maxBodyBytes bounds a current-weather response; real ones are under 1 KiB.
const maxBodyBytes = 1 << 20

// Client fetches current-weather observations for a single city from the
// OpenWeatherMap API.
type Client struct {
	city       string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client for the given city.
func NewClient(baseURL, city, apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		city:    city,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// Endpoint returns the weather URL without its query string.
func (c *Client) Endpoint() string {
	return c.baseURL + weatherPath
}

// Fetch performs one GET and returns the raw JSON body. Non-2xx responses,
// transport failures and bodies that are not JSON fail with *domain.FetchError.
func (c *Client) Fetch(ctx context.Context) ([]byte, error) {
	resp, err := c.get(ctx)
	if err != nil {
		c.metrics.FetchErrors.Inc()
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.FetchErrors.Inc()
		return nil, &domain.FetchError{Endpoint: c.Endpoint(), StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.FetchErrors.Inc()
		return nil, &domain.FetchError{Endpoint: c.Endpoint(), StatusCode: resp.StatusCode, Err: apiMessage(body)}
	}

	if !json.Valid(body) {
		c.metrics.FetchErrors.Inc()
		return nil, &domain.FetchError{Endpoint: c.Endpoint(), StatusCode: resp.StatusCode, Err: errors.New("response is not valid JSON")}
	}

	c.logger.Debug("weather fetched", "city", c.city, "bytes", len(body))
	return body, nil
}

// Probe issues the readiness request. Any 2xx is ready; everything else is
// returned as an error.
func (c *Client) Probe(ctx context.Context) error {
	resp, err := c.get(ctx)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.FetchError{Endpoint: c.Endpoint(), StatusCode: resp.StatusCode, Err: errors.New("not ready")}
	}
	return nil
}

// IsReady reports whether the weather endpoint answers with a 2xx. It keeps
// no state between calls.
func (c *Client) IsReady(ctx context.Context) bool {
	if err := c.Probe(ctx); err != nil {
		c.logger.Debug("weather api not ready", "city", c.city, "error", err)
		return false
	}
	return true
}

func (c *Client) get(ctx context.Context) (*http.Response, error) {
	params := url.Values{
		"q":     {c.city},
		"appid": {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint()+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Endpoint: c.Endpoint(), Err: redact(err)}
	}
	return resp, nil
}

// apiMessage extracts the "message" field OpenWeatherMap puts in error bodies.
func apiMessage(body []byte) error {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return errors.New(e.Message)
	}
	return errors.New("unexpected response")
}

// redact drops the request URL from transport errors; its query carries the API key.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
