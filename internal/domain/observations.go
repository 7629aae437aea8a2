package domain

import "time"

// SiteReading is the latest instantaneous observation for one gauge site.
type SiteReading struct {
	SiteCode     string    `json:"site_code"`
	SiteName     string    `json:"site_name"`
	Lat          float64   `json:"lat"`
	Lon          float64   `json:"lon"`
	FlowCFS      float64   `json:"flow_cfs"`       // discharge, parameter 00060
	GageHeightFT float64   `json:"gage_height_ft"` // parameter 00065
	ObservedAt   time.Time `json:"observed_at"`
}

// SiteInfo is static metadata for a gauge site.
type SiteInfo struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	DrainageAreaSqMi float64 `json:"drainage_area_sqmi"`
}

// FloodAlert is one active NWS flood product.
type FloodAlert struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Headline  string    `json:"headline"`
	Severity  string    `json:"severity"`
	Urgency   string    `json:"urgency"`
	AreaDesc  string    `json:"area_desc"`
	Effective time.Time `json:"effective,omitzero"`
	Expires   time.Time `json:"expires,omitzero"`
}

// RainfallReport is current plus forecast precipitation for one location.
type RainfallReport struct {
	CurrentMM    float64 `json:"current_mm"`
	Forecast24MM float64 `json:"forecast_24h_mm"`
}
