package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

// userAgent identifies the service to the NWS API, which rejects anonymous
// clients.
const userAgent = "flood-risk-service (riverwatch.io, ops@riverwatch.io)"

// Client fetches active alerts from the National Weather Service API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	area       string
	logger     *slog.Logger
}

// NewClient creates an NWS alerts client scoped to one area code.
func NewClient(area string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.weather.gov/alerts/active",
		area:    area,
		logger:  logger,
	}
}

// FetchFloodAlerts retrieves active flood-related alerts for the configured
// area. Non-flood products are filtered out client side.
func (c *Client) FetchFloodAlerts(ctx context.Context) ([]domain.FloodAlert, error) {
	params := url.Values{
		"area":   {c.area},
		"status": {"actual"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nws alerts request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}

	var alertsResp response
	if err := json.NewDecoder(resp.Body).Decode(&alertsResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var alerts []domain.FloodAlert
	for _, f := range alertsResp.Features {
		if !isFloodEvent(f.Properties.Event) {
			continue
		}
		alerts = append(alerts, mapFeature(f))
	}
	return alerts, nil
}

// isFloodEvent matches the NWS flood product family, including flash flood
// warnings and coastal flood statements.
func isFloodEvent(event string) bool {
	return strings.Contains(strings.ToLower(event), "flood")
}

func mapFeature(f feature) domain.FloodAlert {
	alert := domain.FloodAlert{
		ID:       f.Properties.ID,
		Event:    f.Properties.Event,
		Headline: f.Properties.Headline,
		Severity: f.Properties.Severity,
		Urgency:  f.Properties.Urgency,
		AreaDesc: f.Properties.AreaDesc,
	}
	if t, err := time.Parse(time.RFC3339, f.Properties.Effective); err == nil {
		alert.Effective = t
	}
	if t, err := time.Parse(time.RFC3339, f.Properties.Expires); err == nil {
		alert.Expires = t
	}
	return alert
}

// NWS API response types (geo-JSON feature collection).

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		ID        string `json:"id"`
		Event     string `json:"event"`
		Headline  string `json:"headline"`
		Severity  string `json:"severity"`
		Urgency   string `json:"urgency"`
		AreaDesc  string `json:"areaDesc"`
		Effective string `json:"effective"`
		Expires   string `json:"expires"`
	} `json:"properties"`
}
