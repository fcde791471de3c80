package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linelink/linelink-go/internal/config"
	"github.com/linelink/linelink-go/internal/utils"
)

const upstreamName = "openweathermap"

// Client talks to the OpenWeatherMap HTTP API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	apiKey     string
	latitude   float64
	longitude  float64
}

// NewClient creates an OpenWeatherMap client for the configured grid area.
func NewClient(cfg *config.WeatherConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		BaseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
	}
}

type owmWind struct {
	Speed float64 `json:"speed"`
	Deg   float64 `json:"deg"`
}

type owmMain struct {
	Temp float64 `json:"temp"`
}

type owmDescription struct {
	Description string `json:"description"`
}

type owmCurrentResponse struct {
	Dt      int64            `json:"dt"`
	Main    owmMain          `json:"main"`
	Wind    owmWind          `json:"wind"`
	Weather []owmDescription `json:"weather"`
}

type owmForecastResponse struct {
	List []owmCurrentResponse `json:"list"`
}

// CurrentConditions fetches the current observed weather for the grid area.
func (c *Client) CurrentConditions(ctx context.Context) (*AmbientReading, error) {
	var response owmCurrentResponse
	if err := c.makeRequest(ctx, "/weather", &response); err != nil {
		return nil, err
	}

	reading := toReading(response)
	return &reading, nil
}

// HourlyForecast fetches a forecast covering the next `hours` hours. The
// upstream free tier serves 3-hour blocks; each block is expanded to hourly
// readings so callers always get exactly one reading per hour offset.
func (c *Client) HourlyForecast(ctx context.Context, hours int) ([]AmbientReading, error) {
	var response owmForecastResponse
	if err := c.makeRequest(ctx, "/forecast", &response); err != nil {
		return nil, err
	}

	readings := make([]AmbientReading, 0, hours)
	for _, block := range response.List {
		base := toReading(block)
		for i := 0; i < 3 && len(readings) < hours; i++ {
			r := base
			r.Timestamp = base.Timestamp.Add(time.Duration(i) * time.Hour)
			r.HourOffset = len(readings)
			readings = append(readings, r)
		}
		if len(readings) >= hours {
			break
		}
	}

	if len(readings) < hours {
		return nil, utils.NewUpstreamUnavailableError(upstreamName,
			fmt.Errorf("forecast returned %d hourly readings, need %d", len(readings), hours))
	}
	return readings, nil
}

func toReading(item owmCurrentResponse) AmbientReading {
	description := ""
	if len(item.Weather) > 0 {
		description = item.Weather[0].Description
	}

	return AmbientReading{
		TemperatureC:     item.Main.Temp,
		WindSpeedFtS:     item.Wind.Speed * metersPerSecToFtPerSec,
		WindDirectionDeg: item.Wind.Deg,
		Description:      description,
		Timestamp:        time.Unix(item.Dt, 0).UTC(),
	}
}

// makeRequest is a helper method to make HTTP requests to OpenWeatherMap.
// Any transport or upstream failure is reported as UpstreamUnavailableError.
func (c *Client) makeRequest(ctx context.Context, path string, result interface{}) error {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%g", c.latitude))
	params.Set("lon", fmt.Sprintf("%g", c.longitude))
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	reqURL := c.BaseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return utils.NewUpstreamUnavailableError(upstreamName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return utils.NewUpstreamUnavailableError(upstreamName, err)
	}

	if resp.StatusCode >= 400 {
		return utils.NewUpstreamUnavailableError(upstreamName,
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return utils.NewUpstreamUnavailableError(upstreamName,
			fmt.Errorf("failed to unmarshal response: %w", err))
	}

	return nil
}
