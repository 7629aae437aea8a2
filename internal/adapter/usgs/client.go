package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riverwatch/flood-risk-service/internal/domain"
)

// missingValue is the USGS sentinel for an unavailable reading.
const missingValue = -999999

// Client fetches gauge data from the USGS NWIS water services.
type Client struct {
	httpClient *http.Client
	ivBaseURL  string
	siteURL    string
	logger     *slog.Logger
}

// NewClient creates a USGS water services client.
func NewClient(timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		ivBaseURL: "https://waterservices.usgs.gov/nwis/iv/",
		siteURL:   "https://waterservices.usgs.gov/nwis/site/",
		logger:    logger,
	}
}

// FetchReadings retrieves the latest discharge and gauge height for the given
// sites. A site missing one parameter still yields a reading with the other;
// sentinel values are dropped. Sites absent from the response are omitted.
func (c *Client) FetchReadings(ctx context.Context, sites []string) ([]domain.SiteReading, error) {
	params := url.Values{
		"format":      {"json"},
		"sites":       {strings.Join(sites, ",")},
		"parameterCd": {"00060,00065"},
		"period":      {"P1D"},
		"siteStatus":  {"active"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ivBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("usgs iv request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	var ivResp ivResponse
	if err := json.NewDecoder(resp.Body).Decode(&ivResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return c.mergeSeries(ivResp), nil
}

// mergeSeries folds the per-parameter time series into one reading per site.
func (c *Client) mergeSeries(resp ivResponse) []domain.SiteReading {
	bySite := make(map[string]*domain.SiteReading)
	var order []string

	for _, ts := range resp.Value.TimeSeries {
		if len(ts.SourceInfo.SiteCode) == 0 || len(ts.Variable.VariableCode) == 0 {
			continue
		}
		code := ts.SourceInfo.SiteCode[0].Value

		value, observedAt, ok := latestValue(ts)
		if !ok {
			continue
		}

		reading, exists := bySite[code]
		if !exists {
			reading = &domain.SiteReading{
				SiteCode: code,
				SiteName: ts.SourceInfo.SiteName,
				Lat:      ts.SourceInfo.GeoLocation.GeogLocation.Latitude,
				Lon:      ts.SourceInfo.GeoLocation.GeogLocation.Longitude,
			}
			bySite[code] = reading
			order = append(order, code)
		}

		switch ts.Variable.VariableCode[0].Value {
		case "00060":
			reading.FlowCFS = value
		case "00065":
			reading.GageHeightFT = value
		}
		if observedAt.After(reading.ObservedAt) {
			reading.ObservedAt = observedAt
		}
	}

	readings := make([]domain.SiteReading, 0, len(order))
	for _, code := range order {
		readings = append(readings, *bySite[code])
	}
	return readings
}

// latestValue extracts the newest numeric value of a series, skipping the
// -999999 sentinel and unparseable entries.
func latestValue(ts timeSeries) (float64, time.Time, bool) {
	if len(ts.Values) == 0 {
		return 0, time.Time{}, false
	}
	points := ts.Values[0].Value
	for i := len(points) - 1; i >= 0; i-- {
		v, err := strconv.ParseFloat(points[i].Value, 64)
		if err != nil || v == missingValue {
			continue
		}
		observedAt, _ := time.Parse(time.RFC3339, points[i].DateTime)
		return v, observedAt, true
	}
	return 0, time.Time{}, false
}

// SiteInfo retrieves static metadata for one site, including the drainage
// area used as the basin-size weight. The site service only speaks RDB.
func (c *Client) SiteInfo(ctx context.Context, siteCode string) (domain.SiteInfo, error) {
	params := url.Values{
		"format":     {"rdb"},
		"sites":      {siteCode},
		"siteOutput": {"expanded"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.siteURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.SiteInfo{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.SiteInfo{}, fmt.Errorf("usgs site request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return domain.SiteInfo{}, fmt.Errorf("usgs API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.SiteInfo{}, fmt.Errorf("read response: %w", err)
	}

	info, err := parseSiteRDB(string(body))
	if err != nil {
		return domain.SiteInfo{}, fmt.Errorf("site %s: %w", siteCode, err)
	}
	return info, nil
}

// parseSiteRDB reads the first data row of a USGS RDB table. The format is
// tab-separated with '#' comment lines and a column-width row after the
// header.
func parseSiteRDB(body string) (domain.SiteInfo, error) {
	var columns []string
	for _, line := range strings.Split(body, "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if columns == nil {
			columns = fields
			continue
		}
		// Skip the column-definition row ("5s", "15s", ...).
		if len(fields) > 0 && isWidthRow(fields[0]) {
			continue
		}

		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(fields) {
				row[col] = fields[i]
			}
		}
		return domain.SiteInfo{
			Code:             row["site_no"],
			Name:             row["station_nm"],
			Lat:              parseFloatField(row["dec_lat_va"]),
			Lon:              parseFloatField(row["dec_long_va"]),
			DrainageAreaSqMi: parseFloatField(row["drain_area_va"]),
		}, nil
	}
	return domain.SiteInfo{}, fmt.Errorf("no data rows in RDB response")
}

func isWidthRow(field string) bool {
	return len(field) >= 2 && field[len(field)-1] == 's' &&
		field[0] >= '0' && field[0] <= '9'
}

func parseFloatField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// USGS instantaneous values API response types.

type ivResponse struct {
	Value struct {
		TimeSeries []timeSeries `json:"timeSeries"`
	} `json:"value"`
}

type timeSeries struct {
	SourceInfo struct {
		SiteName string `json:"siteName"`
		SiteCode []struct {
			Value string `json:"value"`
		} `json:"siteCode"`
		GeoLocation struct {
			GeogLocation struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"geogLocation"`
		} `json:"geoLocation"`
	} `json:"sourceInfo"`
	Variable struct {
		VariableCode []struct {
			Value string `json:"value"`
		} `json:"variableCode"`
	} `json:"variable"`
	Values []struct {
		Value []struct {
			Value    string `json:"value"`
			DateTime string `json:"dateTime"`
		} `json:"value"`
	} `json:"values"`
}
