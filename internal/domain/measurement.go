package domain

// Measurement holds the observed (or hypothetical) flood inputs for one
// location. Every field is optional; DefaultMeasurement supplies the neutral
// baselines, so decoding sparse JSON over a DefaultMeasurement value yields
// the documented defaults for absent fields.
type Measurement struct {
	CurrentRainfallMM  float64 `json:"current_rainfall_mm"`
	ForecastRainfallMM float64 `json:"forecast_rainfall_mm"`
	ElevationM         float64 `json:"elevation_m"`
	DistanceToWaterKM  float64 `json:"distance_to_water_km"`
	PopulationDensity  float64 `json:"population_density"` // people per km²
	HistoricalEvents   int     `json:"historical_events"`
	FlowCFS            float64 `json:"usgs_flow_cfs"`
	RiverStageFT       float64 `json:"river_stage_ft"`
	FloodStageFT       float64 `json:"flood_stage_ft"`
	WeatherAlerts      int     `json:"weather_alerts"`
}

// DefaultMeasurement returns the neutral baseline: mid-range terrain, a site
// away from water, typical suburban density, and the NWS default 20 ft flood
// stage. Rainfall, flow, stage, alerts and history default to zero.
func DefaultMeasurement() Measurement {
	return Measurement{
		ElevationM:        100,
		DistanceToWaterKM: 5,
		PopulationDensity: 1000,
		FloodStageFT:      20,
	}
}

// ApplyDefaults substitutes the neutral baselines for unset (zero) fields,
// so callers can build sparse measurements field by field.
func (m Measurement) ApplyDefaults() Measurement {
	def := DefaultMeasurement()
	if m.ElevationM == 0 {
		m.ElevationM = def.ElevationM
	}
	if m.DistanceToWaterKM == 0 {
		m.DistanceToWaterKM = def.DistanceToWaterKM
	}
	if m.PopulationDensity == 0 {
		m.PopulationDensity = def.PopulationDensity
	}
	if m.FloodStageFT == 0 {
		m.FloodStageFT = def.FloodStageFT
	}
	return m
}

// RiskLevel is the six-step classification of a composite 0–100 risk score.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "Very Low"
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskCritical RiskLevel = "Critical"
	RiskExtreme  RiskLevel = "Extreme"
)

// Color returns the display hex associated with the level. The mapping is
// part of the frontend contract.
func (l RiskLevel) Color() string {
	switch l {
	case RiskExtreme:
		return "#8B0000"
	case RiskCritical:
		return "#FF0000"
	case RiskHigh:
		return "#FF8C00"
	case RiskModerate:
		return "#FFD700"
	case RiskLow:
		return "#90EE90"
	default:
		return "#00FF00"
	}
}

// LikelihoodScores breaks down the 0–50 likelihood half of the composite score.
type LikelihoodScores struct {
	Total      float64 `json:"total"`
	Rainfall   float64 `json:"rainfall"`
	RiverStage float64 `json:"river_stage"`
	FlowRate   float64 `json:"flow_rate"`
	Alerts     float64 `json:"alerts"`
}

// SeverityScores breaks down the 0–50 severity half of the composite score.
type SeverityScores struct {
	Total      float64 `json:"total"`
	Elevation  float64 `json:"elevation"`
	Proximity  float64 `json:"proximity"`
	Historical float64 `json:"historical"`
	Population float64 `json:"population"`
}

// ComponentScores carries both halves of the breakdown.
type ComponentScores struct {
	Likelihood LikelihoodScores `json:"likelihood"`
	Severity   SeverityScores   `json:"severity"`
}

// RiskResult is the immutable outcome of scoring one Measurement.
// OverallScore is on the 0–100 scale.
type RiskResult struct {
	OverallScore  float64         `json:"overall_score"`
	RiskLevel     RiskLevel       `json:"risk_level"`
	RiskColor     string          `json:"risk_color"`
	ImmediateRisk bool            `json:"immediate_risk"`
	Components    ComponentScores `json:"component_scores"`
}
