package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// cfsPerCubicMeter converts the flood API's m³/s discharge to CFS.
const cfsPerCubicMeter = 35.3147

// Client fetches precipitation and river discharge forecasts from the
// Open-Meteo APIs. No API key required.
type Client struct {
	httpClient  *http.Client
	forecastURL string
	floodURL    string
	logger      *slog.Logger
}

// NewClient creates an Open-Meteo client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		forecastURL: "https://api.open-meteo.com/v1/forecast",
		floodURL:    "https://flood-api.open-meteo.com/v1/flood",
		logger:      logger,
	}
}

type rainfallResponse struct {
	Current struct {
		Rain float64 `json:"rain"`
	} `json:"current"`
	Daily struct {
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// Rainfall retrieves current rain plus the next-day precipitation sum for a
// location.
func (c *Client) Rainfall(ctx context.Context, lat, lon float64) (current, forecast24h float64, err error) {
	params := url.Values{
		"latitude":           {formatCoord(lat)},
		"longitude":          {formatCoord(lon)},
		"current":            {"rain"},
		"daily":              {"precipitation_sum"},
		"forecast_days":      {"2"},
		"timezone":           {"UTC"},
		"precipitation_unit": {"mm"},
	}

	var resp rainfallResponse
	if err := c.getJSON(ctx, c.forecastURL+"?"+params.Encode(), "forecast", &resp); err != nil {
		return 0, 0, err
	}

	// Index 0 is today; index 1 is the next-day sum used as the forecast.
	if len(resp.Daily.PrecipitationSum) > 1 {
		forecast24h = resp.Daily.PrecipitationSum[1]
	}
	return resp.Current.Rain, forecast24h, nil
}

type dischargeResponse struct {
	Daily struct {
		RiverDischarge []float64 `json:"river_discharge"`
	} `json:"daily"`
}

// RiverDischarge retrieves the daily river discharge forecast in CFS for a
// location from the GloFAS-backed flood API.
func (c *Client) RiverDischarge(ctx context.Context, lat, lon float64, days int) ([]float64, error) {
	params := url.Values{
		"latitude":      {formatCoord(lat)},
		"longitude":     {formatCoord(lon)},
		"daily":         {"river_discharge"},
		"forecast_days": {strconv.Itoa(days)},
	}

	var resp dischargeResponse
	if err := c.getJSON(ctx, c.floodURL+"?"+params.Encode(), "flood", &resp); err != nil {
		return nil, err
	}

	discharge := make([]float64, len(resp.Daily.RiverDischarge))
	for i, v := range resp.Daily.RiverDischarge {
		discharge[i] = v * cfsPerCubicMeter
	}
	return discharge, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL, source string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo %s request: %w", source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
