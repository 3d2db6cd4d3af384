package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNetwork covers transport failures and non-200 upstream responses
	ErrNetwork = errors.New("weather service request failed")
	// ErrParse covers bodies that do not carry a temperature reading
	ErrParse = errors.New("weather service response malformed")
)

// TemperatureSource reports the current temperature in °C for a location
type TemperatureSource interface {
	CurrentTemperature(ctx context.Context, location string) (float64, error)
}

// OpenWeatherClient queries the OpenWeatherMap current weather endpoint
type OpenWeatherClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenWeatherClient creates a client. A zero timeout leaves requests bounded only by their context.
func NewOpenWeatherClient(baseURL, apiKey string, timeout time.Duration) *OpenWeatherClient {
	return &OpenWeatherClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type currentWeatherResponse struct {
	Main *struct {
		Temp *float64 `json:"temp"`
	} `json:"main"`
}

// CurrentTemperature fetches the metric temperature for location
func (c *OpenWeatherClient) CurrentTemperature(ctx context.Context, location string) (float64, error) {
	query := url.Values{}
	query.Set("q", location)
	query.Set("appid", c.apiKey)
	query.Set("units", "metric")
	endpoint := c.baseURL + "/data/2.5/weather?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: unexpected status %d", ErrNetwork, resp.StatusCode)
	}

	var body currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if body.Main == nil || body.Main.Temp == nil {
		return 0, fmt.Errorf("%w: missing main.temp", ErrParse)
	}

	return *body.Main.Temp, nil
}
