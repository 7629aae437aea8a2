package usgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ivFixture = `{
  "value": {
    "timeSeries": [
      {
        "sourceInfo": {
          "siteName": "Trinity Rv at Dallas, TX",
          "siteCode": [{"value": "08057000"}],
          "geoLocation": {"geogLocation": {"latitude": 32.7746, "longitude": -96.8045}}
        },
        "variable": {"variableCode": [{"value": "00060"}]},
        "values": [{"value": [
          {"value": "3200", "dateTime": "2025-06-15T10:00:00.000-05:00"},
          {"value": "4100", "dateTime": "2025-06-15T11:00:00.000-05:00"}
        ]}]
      },
      {
        "sourceInfo": {
          "siteName": "Trinity Rv at Dallas, TX",
          "siteCode": [{"value": "08057000"}],
          "geoLocation": {"geogLocation": {"latitude": 32.7746, "longitude": -96.8045}}
        },
        "variable": {"variableCode": [{"value": "00065"}]},
        "values": [{"value": [
          {"value": "12.4", "dateTime": "2025-06-15T11:00:00.000-05:00"}
        ]}]
      },
      {
        "sourceInfo": {
          "siteName": "W Fk Trinity Rv at Fort Worth, TX",
          "siteCode": [{"value": "08048000"}],
          "geoLocation": {"geogLocation": {"latitude": 32.7593, "longitude": -97.3308}}
        },
        "variable": {"variableCode": [{"value": "00060"}]},
        "values": [{"value": [
          {"value": "-999999", "dateTime": "2025-06-15T11:00:00.000-05:00"},
          {"value": "850", "dateTime": "2025-06-15T10:00:00.000-05:00"}
        ]}]
      }
    ]
  }
}`

const siteFixture = "# USGS site data\n" +
	"#\n" +
	"agency_cd\tsite_no\tstation_nm\tdec_lat_va\tdec_long_va\tdrain_area_va\n" +
	"5s\t15s\t50s\t16s\t16s\t8s\n" +
	"USGS\t08057000\tTrinity Rv at Dallas, TX\t32.7746\t-96.8045\t6106\n"

func testClient(ivURL, siteURL string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		ivBaseURL:  ivURL,
		siteURL:    siteURL,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestClient_FetchReadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "08057000,08048000", r.URL.Query().Get("sites"))
		assert.Equal(t, "00060,00065", r.URL.Query().Get("parameterCd"))
		assert.Equal(t, "P1D", r.URL.Query().Get("period"))
		assert.Equal(t, "active", r.URL.Query().Get("siteStatus"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(ivFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	readings, err := c.FetchReadings(context.Background(), []string{"08057000", "08048000"})
	require.NoError(t, err)
	require.Len(t, readings, 2)

	trinity := readings[0]
	assert.Equal(t, "08057000", trinity.SiteCode)
	assert.Equal(t, "Trinity Rv at Dallas, TX", trinity.SiteName)
	assert.Equal(t, 32.7746, trinity.Lat)
	assert.Equal(t, -96.8045, trinity.Lon)
	assert.Equal(t, 4100.0, trinity.FlowCFS)
	assert.Equal(t, 12.4, trinity.GageHeightFT)
	assert.Equal(t, 16, trinity.ObservedAt.UTC().Hour())

	// Sentinel tail value skipped in favor of the previous point.
	fortWorth := readings[1]
	assert.Equal(t, "08048000", fortWorth.SiteCode)
	assert.Equal(t, 850.0, fortWorth.FlowCFS)
	assert.Zero(t, fortWorth.GageHeightFT)
}

func TestClient_FetchReadings_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		c := testClient(srv.URL, srv.URL)
		_, err := c.FetchReadings(context.Background(), []string{"08057000"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		}))
		defer srv.Close()

		c := testClient(srv.URL, srv.URL)
		_, err := c.FetchReadings(context.Background(), []string{"08057000"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode response")
	})

	t.Run("empty time series", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"value":{"timeSeries":[]}}`))
		}))
		defer srv.Close()

		c := testClient(srv.URL, srv.URL)
		readings, err := c.FetchReadings(context.Background(), []string{"08057000"})
		require.NoError(t, err)
		assert.Empty(t, readings)
	})
}

func TestClient_SiteInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "rdb", r.URL.Query().Get("format"))
		assert.Equal(t, "08057000", r.URL.Query().Get("sites"))
		assert.Equal(t, "expanded", r.URL.Query().Get("siteOutput"))
		_, _ = w.Write([]byte(siteFixture))
	}))
	defer srv.Close()

	c := testClient(srv.URL, srv.URL)
	info, err := c.SiteInfo(context.Background(), "08057000")
	require.NoError(t, err)

	assert.Equal(t, "08057000", info.Code)
	assert.Equal(t, "Trinity Rv at Dallas, TX", info.Name)
	assert.Equal(t, 32.7746, info.Lat)
	assert.Equal(t, -96.8045, info.Lon)
	assert.Equal(t, 6106.0, info.DrainageAreaSqMi)
}

func TestParseSiteRDB_NoData(t *testing.T) {
	_, err := parseSiteRDB("# only comments\n#\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data rows")
}
