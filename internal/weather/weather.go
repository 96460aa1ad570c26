package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cloudpico-station/internal/station"
)

const kelvinOffset = 273.15

// ErrParse is returned when the body is not the expected weather JSON.
var ErrParse = errors.New("weather: JSON parsing failed")

// StatusError reports a non-200 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather: unexpected HTTP status %d", e.Code)
}

// payload matches the "main" block of an OpenWeatherMap current weather response.
type payload struct {
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *float64 `json:"humidity"`
		Pressure *float64 `json:"pressure"`
	} `json:"main"`
}

// Fetcher pulls current conditions from a fixed URL into State.WebData.
type Fetcher struct {
	client  *http.Client
	url     string
	timeout time.Duration
}

// New returns a Fetcher. A zero timeout leaves the request unbounded; a nil
// client uses http.DefaultClient.
func New(url string, timeout time.Duration, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, url: url, timeout: timeout}
}

// Fetch updates s.WebData on success. Any failure is logged and leaves the
// previous value in place.
func (f *Fetcher) Fetch(ctx context.Context, s *station.State) {
	slog.Info("fetching web weather data", "url", f.url)

	summary, err := f.get(ctx)
	if err != nil {
		slog.Warn("web weather fetch failed", "error", err)
		return
	}

	s.WebData = summary
	slog.Info("web weather updated", "web_data", s.WebData)
}

func (f *Fetcher) get(ctx context.Context) (string, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", fmt.Errorf("weather: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("weather: get: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("weather: close body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	return Parse(resp.Body)
}
