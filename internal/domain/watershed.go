package domain

import (
	"log/slog"
	"math"
	"time"
)

// defaultTrendStability stands in when a snapshot carries no stability
// estimate; it is above the 0.7 confidence-penalty threshold.
const defaultTrendStability = 0.8

// staleDataAgeHours is assumed for snapshots with no LastUpdated timestamp.
const staleDataAgeHours = 24.0

// WatershedSnapshot is the current state of one monitored watershed.
// RiskScore here is on the watershed 0–10 scale, not the 0–100 composite
// scale of RiskResult.
type WatershedSnapshot struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	BasinSizeSqMi        float64   `json:"basin_size_sqmi"`
	CurrentStreamflowCFS float64   `json:"current_streamflow_cfs"`
	RiskScore            float64   `json:"risk_score"` // 0–10 scale
	RiskLevel            string    `json:"current_risk_level"`
	FloodStageCFS        float64   `json:"flood_stage_cfs"`
	Trend                string    `json:"trend"` // "rising", "falling", "stable"
	TrendRateCFSPerHour  float64   `json:"trend_rate_cfs_per_hour"`
	TrendStability       float64   `json:"trend_stability,omitempty"` // 0–1; zero means unknown
	LastUpdated          time.Time `json:"last_updated,omitzero"`
}

// DataAgeHours reports how old the snapshot's reading is. Snapshots without
// a timestamp are treated as a day old.
func (s WatershedSnapshot) DataAgeHours() float64 {
	if s.LastUpdated.IsZero() {
		return staleDataAgeHours
	}
	return clock.Since(s.LastUpdated).Hours()
}

// PredictionFactors records the inputs that shaped a watershed forecast.
type PredictionFactors struct {
	TrendRateCFSPerHour float64 `json:"trend_rate"`
	DataAgeHours        float64 `json:"data_age_hours"`
	TrendStability      float64 `json:"trend_stability"`
}

// WatershedForecast is the projected state of one watershed at the horizon.
type WatershedForecast struct {
	WatershedID        string            `json:"watershed_id"`
	WatershedName      string            `json:"watershed_name"`
	CurrentFlowCFS     float64           `json:"current_flow_cfs"`
	CurrentRiskScore   float64           `json:"current_risk_score"` // 0–10 scale
	PredictedFlowCFS   float64           `json:"predicted_flow_cfs"`
	PredictedRiskScore float64           `json:"predicted_risk_score"` // 0–10 scale
	PredictedRiskLevel string            `json:"predicted_risk_level"`
	Confidence         float64           `json:"confidence"` // 0–1
	Factors            PredictionFactors `json:"prediction_factors"`
}

// ForecastResult aggregates per-watershed forecasts for one horizon.
type ForecastResult struct {
	GeneratedAt       time.Time           `json:"generated_at"`
	HorizonHours      int                 `json:"forecast_horizon_hours"`
	Watersheds        []WatershedForecast `json:"watersheds_forecast"`
	OverallConfidence float64             `json:"overall_confidence"`
}

// CriticalPeriodEstimate predicts when the most urgent watershed reaches
// critical conditions. Absent (nil) when no watershed satisfies the rising
// trend and elevated risk gates.
type CriticalPeriodEstimate struct {
	HoursToCritical  float64 `json:"hours_to_critical"`
	Timeframe        string  `json:"timeframe"`
	Severity         string  `json:"severity"`   // "high" or "moderate"
	Confidence       float64 `json:"confidence"` // percent, 60–95
	PrimaryWatershed string  `json:"primary_watershed"`
}

// ForecastWatershed projects one watershed's flow and risk hoursAhead into
// the future. The linear trend extrapolation decays exponentially with a
// 24-hour constant so long horizons revert toward current conditions instead
// of extrapolating forever. Pure and total for finite inputs.
func ForecastWatershed(s WatershedSnapshot, hoursAhead int) WatershedForecast {
	h := float64(hoursAhead)
	naive := s.CurrentStreamflowCFS + s.TrendRateCFSPerHour*h
	decay := math.Exp(-h / 24)
	predictedFlow := s.CurrentStreamflowCFS + (naive-s.CurrentStreamflowCFS)*decay

	// Without a known flood stage, assume the predicted flow is at half
	// stage; the ratio is then ≤0.5 by construction.
	floodStage := s.FloodStageCFS
	if floodStage <= 0 {
		floodStage = predictedFlow * 2
	}
	var flowRatio float64
	if floodStage > 0 {
		flowRatio = predictedFlow / floodStage
	}
	predictedRisk := math.Min(10, flowRatio*8+s.RiskScore*0.2)

	stability := s.TrendStability
	if stability == 0 {
		stability = defaultTrendStability
	}
	dataAge := s.DataAgeHours()

	confidence := 0.9
	if dataAge > 2 {
		confidence *= 0.8
	}
	if stability < 0.7 {
		confidence *= 0.9
	}
	if hoursAhead > 24 {
		confidence *= 0.8
	}

	return WatershedForecast{
		WatershedID:        s.ID,
		WatershedName:      s.Name,
		CurrentFlowCFS:     s.CurrentStreamflowCFS,
		CurrentRiskScore:   s.RiskScore,
		PredictedFlowCFS:   predictedFlow,
		PredictedRiskScore: predictedRisk,
		PredictedRiskLevel: FlowRiskLevel(predictedRisk),
		Confidence:         confidence,
		Factors: PredictionFactors{
			TrendRateCFSPerHour: s.TrendRateCFSPerHour,
			DataAgeHours:        dataAge,
			TrendStability:      stability,
		},
	}
}

// Forecast projects every watershed hoursAhead and aggregates the result.
// Overall confidence is the arithmetic mean across watersheds. Snapshots with
// non-finite numeric state are skipped and logged so one bad watershed never
// spoils its peers; an empty input yields an empty result, never an error.
func Forecast(snapshots []WatershedSnapshot, hoursAhead int, logger *slog.Logger) ForecastResult {
	result := ForecastResult{
		GeneratedAt:  clock.Now().UTC(),
		HorizonHours: hoursAhead,
		Watersheds:   make([]WatershedForecast, 0, len(snapshots)),
	}

	var totalConfidence float64
	for _, s := range snapshots {
		if !finiteSnapshot(s) {
			logger.Warn("skipping watershed with invalid readings",
				"watershed_id", s.ID, "watershed_name", s.Name)
			continue
		}
		wf := ForecastWatershed(s, hoursAhead)
		result.Watersheds = append(result.Watersheds, wf)
		totalConfidence += wf.Confidence
	}

	if len(result.Watersheds) > 0 {
		result.OverallConfidence = totalConfidence / float64(len(result.Watersheds))
	}
	return result
}

// PredictCriticalPeriod estimates the next critical flood window across the
// region. A watershed qualifies when its flow trend exceeds 50 CFS/h and its
// 0–10 risk score exceeds 5; the earliest qualifying watershed wins. Returns
// nil when nothing qualifies or the earliest window is beyond 72 hours.
func PredictCriticalPeriod(snapshots []WatershedSnapshot) *CriticalPeriodEstimate {
	var best *CriticalPeriodEstimate
	for _, s := range snapshots {
		if s.TrendRateCFSPerHour <= 50 || s.RiskScore <= 5 {
			continue
		}
		hours := math.Max(1, (8.5-s.RiskScore)/(s.TrendRateCFSPerHour/100))
		if best != nil && hours >= best.HoursToCritical {
			continue
		}
		severity := "moderate"
		if s.TrendRateCFSPerHour > 100 {
			severity = "high"
		}
		best = &CriticalPeriodEstimate{
			HoursToCritical:  hours,
			Timeframe:        criticalTimeframe(hours),
			Severity:         severity,
			Confidence:       math.Max(60, 95-hours*2),
			PrimaryWatershed: s.Name,
		}
	}
	if best == nil || best.HoursToCritical > 72 {
		return nil
	}
	return best
}

func criticalTimeframe(hours float64) string {
	if hours <= 24 {
		return "Next " + formatFloat(hours, 0) + " hours"
	}
	return "Next " + formatFloat(hours/24, 1) + " days"
}

func finiteSnapshot(s WatershedSnapshot) bool {
	for _, v := range []float64{
		s.CurrentStreamflowCFS, s.RiskScore, s.TrendRateCFSPerHour,
		s.FloodStageCFS, s.TrendStability,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
